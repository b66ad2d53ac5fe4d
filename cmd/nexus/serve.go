package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nexus/internal/api"
	"github.com/samcharles93/nexus/internal/inference"
	"github.com/samcharles93/nexus/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		configFile  string
		ef          engineFlags
		sf          sessionFlags
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       "127.0.0.1:8080",
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "read-timeout",
			Usage:       "read header timeout",
			Value:       30 * time.Second,
			Destination: &readTimeout,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "config file (default ~/.config/nexus/config.yaml)",
			Destination: &configFile,
		},
	}
	flags = append(flags, ef.flags()...)
	flags = append(flags, sf.flags()...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve generation sessions over HTTP with SSE streaming",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			cfg, err := LoadConfig(configFile)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), inference.ExitConfiguration)
			}
			applyEngineConfig(cmd, cfg, &ef)
			applySessionConfig(cmd, cfg, &sf)
			if cfg.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = cfg.ServerAddress
			}

			defaults := sf.sessionConfig()
			if err := defaults.Validate(); err != nil {
				return exitError(nil, err)
			}
			provider, err := newToyProvider(ef)
			if err != nil {
				return exitError(nil, err)
			}

			server := api.NewServer(provider, defaults, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				if n := server.Registry().StopAll(); n > 0 {
					log.Info("stopping live sessions", "count", n)
				}
			}()

			log.Info("starting server", "address", addr, "tokenizer", ef.tokenizer, "capacity", defaults.Capacity)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
