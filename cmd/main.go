package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/julianstephens/church-latin/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		runner.Close()
		if errors.Is(err, shared.ErrSeedFailed) {
			logger.Error("seeding finished with errors", "error", err)
		} else {
			logger.Error("application error", "error", err)
		}
		os.Exit(1)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "clseed",
		Usage:    "Seed Church Latin course content into PocketBase",
		Version:  "0.1.0",
		Flags:    globalFlags(),
		Writer:   r.output,
		Commands: r.register(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				shared.SetLogLevel(r.logger, log.DebugLevel)
			}
			return ctx, nil
		},
	}
}
