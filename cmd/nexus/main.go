package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nexus/internal/inference"
	"github.com/samcharles93/nexus/internal/logger"
	"github.com/samcharles93/nexus/internal/output"
)

func main() {
	app := &cli.Command{
		Name:  "nexus",
		Usage: "Generate text until the context window is exhausted",
		Flags: loggingFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log, err := logger.Setup(os.Stderr, logger.Options{
				Level:   logLevel,
				Format:  logFormat,
				Debug:   debug,
				NoColor: noColor || !output.IsTerminal(os.Stderr),
			})
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: %v", err), inference.ExitConfiguration)
			}
			return logger.WithContext(ctx, log), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			runCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			os.Exit(ec.ExitCode())
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
