package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"audiowave/internal/app"
	"audiowave/internal/config"
	"audiowave/internal/pkg/logger"
	"audiowave/internal/progress"
)

// buildFunc wires the services for a command. Tests replace it.
type buildFunc func(ctx context.Context, cfg *config.Config, log *logger.Logger, sink progress.Sink) (*app.App, error)

type commandContext struct {
	envFiles   []string
	logLevel   string
	jsonOutput bool

	build buildFunc
	app   *app.App
}

func newCommandContext() *commandContext {
	return &commandContext{build: buildApp}
}

func buildApp(ctx context.Context, cfg *config.Config, log *logger.Logger, sink progress.Sink) (*app.App, error) {
	return app.Build(ctx, app.Deps{Config: cfg, Log: log, Progress: sink})
}

// ensureApp loads the configuration and wires the services once per
// invocation. Progress is drawn on stderr when it is a terminal.
func (c *commandContext) ensureApp(cmd *cobra.Command) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	if err := config.LoadDotEnv(c.envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Level:       c.logLevel,
		Format:      "text",
		Output:      cmd.ErrOrStderr(),
		ServiceName: "wavectl",
	})

	var sink progress.Sink
	if isTerminal(cmd.ErrOrStderr()) {
		sink = &terminalProgress{out: cmd.ErrOrStderr()}
	}

	a, err := c.build(cmd.Context(), cfg, log, sink)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *commandContext) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// terminalProgress redraws a single status line per update.
type terminalProgress struct {
	out io.Writer
}

func (p *terminalProgress) Report(_ context.Context, _ string, percent float64) error {
	end := ""
	if percent >= 100 {
		end = "\n"
	}
	_, err := fmt.Fprintf(p.out, "\rRendering %5.1f%%%s", percent, end)
	return err
}
