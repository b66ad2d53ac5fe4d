package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nexus/internal/inference"
	"github.com/samcharles93/nexus/internal/logger"
	"github.com/samcharles93/nexus/internal/output"
)

type runOptions struct {
	promptFile string
	userPrompt string
	outputFile string
	streamMode string
	report     string
	raw        bool
	quiet      bool

	engine  engineFlags
	session inference.SessionConfig
}

func runCmd() *cli.Command {
	var (
		opts       runOptions
		configFile string
		sf         sessionFlags
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "prompt-file",
			Aliases:     []string{"p"},
			Usage:       "path to the system prompt file",
			Value:       "prompt.txt",
			Destination: &opts.promptFile,
		},
		&cli.StringFlag{
			Name:        "user-prompt",
			Usage:       "text appended after the system prompt",
			Destination: &opts.userPrompt,
		},
		&cli.StringFlag{
			Name:        "output-file",
			Aliases:     []string{"o"},
			Usage:       "mirror output into a file in addition to the terminal",
			Destination: &opts.outputFile,
		},
		&cli.StringFlag{
			Name:        "stream-mode",
			Usage:       "terminal streaming mode (instant, smooth, typewriter, quiet)",
			Value:       string(output.StreamInstant),
			Destination: &opts.streamMode,
		},
		&cli.BoolFlag{
			Name:        "raw",
			Usage:       "escape control characters in terminal output",
			Destination: &opts.raw,
		},
		&cli.BoolFlag{
			Name:        "quiet",
			Aliases:     []string{"q"},
			Usage:       "silence run metadata and only stream the generated text",
			Destination: &opts.quiet,
		},
		&cli.StringFlag{
			Name:        "report",
			Usage:       "write a JSON run report to this path",
			Destination: &opts.report,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "config file (default ~/.config/nexus/config.yaml)",
			Destination: &configFile,
		},
	}
	flags = append(flags, opts.engine.flags()...)
	flags = append(flags, sf.flags()...)

	return &cli.Command{
		Name:  "run",
		Usage: "Generate from a prompt file until the context window is exhausted",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)

			cfg, err := LoadConfig(configFile)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), inference.ExitConfiguration)
			}
			applyEngineConfig(c, cfg, &opts.engine)
			applySessionConfig(c, cfg, &sf)
			if cfg.StreamMode != "" && !c.IsSet("stream-mode") {
				opts.streamMode = cfg.StreamMode
			}
			if cfg.OutputFile != "" && !c.IsSet("output-file") {
				opts.outputFile = cfg.OutputFile
			}
			opts.session = sf.sessionConfig()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := execute(ctx, opts, os.Stdout, os.Stderr, log)
			return exitError(res, err)
		},
	}
}

// execute runs one session end to end. The returned error is a
// *inference.ConfigError when nothing ran, otherwise whatever the session
// returned.
func execute(ctx context.Context, opts runOptions, stdout, stderr io.Writer, log logger.Logger) (*inference.Result, error) {
	mode, err := output.ParseStreamMode(opts.streamMode)
	if err != nil {
		return nil, &inference.ConfigError{Field: "stream_mode", Reason: err.Error()}
	}
	raw, err := os.ReadFile(opts.promptFile)
	if err != nil {
		return nil, &inference.ConfigError{Field: "prompt_file", Reason: err.Error()}
	}
	prompt := inference.BuildPrompt(string(raw), opts.userPrompt)

	provider, err := newToyProvider(opts.engine)
	if err != nil {
		return nil, err
	}
	if err := opts.session.Validate(); err != nil {
		return nil, err
	}
	engine, err := provider.NewEngine(opts.session.Capacity)
	if err != nil {
		return nil, err
	}
	sess, err := inference.NewSession(engine, provider.Tokenizer(), opts.session, prompt, log)
	if err != nil {
		return nil, err
	}

	if dev, ok := output.ProbeDisplay(output.DisplayDevices); ok {
		log.Info("display device detected; rendering to it is not supported, using terminal", "device", dev)
	}

	var mirror *output.File
	if opts.outputFile != "" {
		mirror, err = output.CreateFile(opts.outputFile)
		if err != nil {
			return nil, &inference.ConfigError{Field: "output_file", Reason: err.Error()}
		}
		log.Info("mirroring output", "path", mirror.Path())
	}

	if !opts.quiet {
		printBanner(stderr, sess, opts.session, string(raw))
	}

	stream := output.NewStreamWriter(stdout, mode, opts.raw)
	var sink output.Sink = stream
	if mirror != nil {
		sink = output.Tee(stream, mirror)
	}
	res, runErr := sess.Run(ctx, sink)

	if cerr := output.CloseAll(stream, mirror); cerr != nil && runErr == nil {
		runErr = &inference.FatalError{
			State:     inference.StateOutputFailed,
			Positions: res.Positions,
			Err:       fmt.Errorf("%w: %w", inference.ErrOutputFailure, cerr),
		}
		res.State = inference.StateOutputFailed
	}
	_, _ = fmt.Fprintln(stdout)

	if !opts.quiet {
		_, _ = fmt.Fprintf(stderr, "Stats: %.2f TPS (%d tokens in %s)\n",
			res.Stats.TPS, res.Stats.TokensGenerated, res.Stats.Duration)
	}
	if opts.report != "" {
		if err := writeReport(opts.report, newRunReport(res, runErr, opts, stream.Text())); err != nil {
			log.Error("write report", "path", opts.report, "error", err)
		}
	}
	return res, runErr
}

func printBanner(w io.Writer, sess *inference.Session, cfg inference.SessionConfig, system string) {
	width := 40
	if f, ok := w.(*os.File); ok {
		if tw := output.TerminalWidth(f); tw > 0 && tw < width {
			width = tw
		}
	}
	rule := strings.Repeat("=", width)
	_, _ = fmt.Fprintln(w, "=== Torment Nexus ===")
	_, _ = fmt.Fprintln(w, "An LLM that generates until context exhaustion")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "=== System Prompt ===")
	_, _ = fmt.Fprintln(w, strings.TrimSpace(system))
	_, _ = fmt.Fprintln(w, rule)
	_, _ = fmt.Fprintf(w, "Session: %s\n", sess.ID())
	_, _ = fmt.Fprintf(w, "Seed: %d\n", sess.Seed())
	_, _ = fmt.Fprintf(w, "Prompt tokens: %d\n", sess.PromptTokens())
	_, _ = fmt.Fprintf(w, "Context capacity: %d\n", cfg.Capacity)
	_, _ = fmt.Fprintf(w, "Available tokens: %d\n", sess.Threshold()-sess.PromptTokens())
	_, _ = fmt.Fprintln(w, "=== Beginning Generation ===")
	_, _ = fmt.Fprintln(w)
}

// exitError maps a session outcome to the process exit status.
func exitError(res *inference.Result, err error) error {
	var ce *inference.ConfigError
	if errors.As(err, &ce) {
		return cli.Exit(fmt.Sprintf("error: %v", ce), inference.ExitConfiguration)
	}
	if res == nil {
		if err == nil {
			return nil
		}
		return cli.Exit(fmt.Sprintf("error: %v", err), inference.ExitFailure)
	}
	code := res.State.ExitCode()
	if code == inference.ExitOK {
		return nil
	}
	msg := res.State.Diagnostic()
	if err != nil && res.State != inference.StateContextExhausted {
		msg = fmt.Sprintf("%s\n%v", msg, err)
	}
	return cli.Exit("\n"+msg, code)
}
