package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"audiowave/internal/models"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <audio-file>",
		Short: "Render an audio file into a waveform video and publish it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("audio file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("audio file: %s is a directory", path)
			}

			a, err := ctx.ensureApp(cmd)
			if err != nil {
				return err
			}

			start := time.Now()
			res, err := a.Pipeline.Publish(cmd.Context(), models.AudioSubmission{
				SourcePath:       path,
				OriginalFileName: filepath.Base(path),
			})
			if err != nil {
				return err
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Published %s (%s) in %s\n", res.PublicID, humanize.Bytes(uint64(max(res.Bytes, 0))), time.Since(start).Round(time.Millisecond))
			fmt.Fprintln(out, res.SecureURL)
			return nil
		},
	}
}
