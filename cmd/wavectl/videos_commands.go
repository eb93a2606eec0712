package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"audiowave/internal/models"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var folder string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List published videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd)
			if err != nil {
				return err
			}
			list, err := a.Publisher.List(cmd.Context(), folder)
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, list)
			}
			if len(list.Resources) == 0 {
				scope := folder
				if scope == "" {
					scope = a.Publisher.Folder()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "No videos published under %s\n", scope)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderVideos(list.Resources, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "Folder to list instead of the configured one")
	return cmd
}

func newGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <public-id>",
		Short: "Show one published video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd)
			if err != nil {
				return err
			}
			res, err := a.Publisher.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderVideos([]models.PublishedResource{res}, time.Now()))
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <public-id>...",
		Short: "Delete published videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd)
			if err != nil {
				return err
			}
			res, err := a.Publisher.Delete(cmd.Context(), args)
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDeleteResult(res, args))
			return nil
		},
	}
}
