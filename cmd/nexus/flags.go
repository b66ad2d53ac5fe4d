package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nexus/internal/inference"
)

var (
	logLevel  string
	logFormat string
	debug     bool
	noColor   bool
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
		&cli.BoolFlag{
			Name:        "no-color",
			Usage:       "disable coloured log output",
			Destination: &noColor,
		},
	}
}

// engineFlags selects the tokenizer and the toy model shared by run and
// serve.
type engineFlags struct {
	tokenizer string
	modelSeed int64
	hidden    int64
	threads   int64
}

func (f *engineFlags) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "tokenizer",
			Usage:       "tokenizer (vocab[:path], bytes, tiktoken[:encoding])",
			Value:       "vocab",
			Destination: &f.tokenizer,
		},
		&cli.Int64Flag{
			Name:        "model-seed",
			Usage:       "seed for the toy model weights",
			Value:       1,
			Destination: &f.modelSeed,
		},
		&cli.Int64Flag{
			Name:        "hidden",
			Usage:       "toy model hidden size",
			Value:       64,
			Destination: &f.hidden,
		},
		&cli.Int64Flag{
			Name:        "threads",
			Usage:       "worker threads for the forward pass (0 = all cores)",
			Destination: &f.threads,
		},
	}
}

// sessionFlags mirrors inference.SessionConfig on the command line.
type sessionFlags struct {
	contextSize      int64
	overflowFraction float64
	maxTokens        int64

	temperature      float64
	topP             float64
	topK             int64
	repeatPenalty    float64
	repeatLastN      int64
	presencePenalty  float64
	frequencyPenalty float64
	seed             int64

	mirostat    bool
	mirostatTau float64
	mirostatEta float64

	anchorInterval int64
	anchorText     string
	disableAnchors bool

	disableLoopGuard bool
	loopWindow       int64
	loopNGram        int64
	loopRepeats      int64
	loopStrictness   string
}

func (f *sessionFlags) flags() []cli.Flag {
	d := inference.DefaultSessionConfig()
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "context-size",
			Aliases:     []string{"c", "ctx"},
			Usage:       "context window size in tokens",
			Value:       int64(d.Capacity),
			Destination: &f.contextSize,
		},
		&cli.Float64Flag{
			Name:        "overflow-fraction",
			Usage:       "fraction of the context that may be consumed before stopping",
			Value:       d.OverflowFraction,
			Destination: &f.overflowFraction,
		},
		&cli.Int64Flag{
			Name:        "max-tokens",
			Aliases:     []string{"n"},
			Usage:       "optional cap on generated tokens (0 = until exhaustion)",
			Destination: &f.maxTokens,
		},
		&cli.Float64Flag{
			Name:        "temperature",
			Aliases:     []string{"temp", "t"},
			Usage:       "sampling temperature (0 = greedy)",
			Value:       float64(d.Temperature),
			Destination: &f.temperature,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Usage:       "nucleus sampling probability mass (1.0 disables filtering)",
			Value:       float64(d.TopP),
			Destination: &f.topP,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Usage:       "top-k sampling cap (0 disables filtering)",
			Value:       int64(d.TopK),
			Destination: &f.topK,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Usage:       "penalize recent repeats (1.0 disables)",
			Value:       float64(d.RepeatPenalty),
			Destination: &f.repeatPenalty,
		},
		&cli.Int64Flag{
			Name:        "repeat-last-n",
			Usage:       "recent tokens considered for penalties (-1 = whole history, 0 = off)",
			Value:       int64(d.RepeatLastN),
			Destination: &f.repeatLastN,
		},
		&cli.Float64Flag{
			Name:        "presence-penalty",
			Usage:       "presence penalty",
			Value:       float64(d.PresencePenalty),
			Destination: &f.presencePenalty,
		},
		&cli.Float64Flag{
			Name:        "frequency-penalty",
			Usage:       "frequency penalty",
			Value:       float64(d.FrequencyPenalty),
			Destination: &f.frequencyPenalty,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampling seed (-1 = time-based)",
			Value:       inference.RandomSeed,
			Destination: &f.seed,
		},
		&cli.BoolFlag{
			Name:        "mirostat",
			Usage:       "use mirostat-v2 sampling instead of the sampler chain",
			Destination: &f.mirostat,
		},
		&cli.Float64Flag{
			Name:        "mirostat-tau",
			Aliases:     []string{"tau"},
			Usage:       "target surprise for mirostat-v2",
			Value:       float64(d.MirostatTau),
			Destination: &f.mirostatTau,
		},
		&cli.Float64Flag{
			Name:        "mirostat-eta",
			Aliases:     []string{"eta"},
			Usage:       "learning rate for mirostat-v2",
			Value:       float64(d.MirostatEta),
			Destination: &f.mirostatEta,
		},
		&cli.Int64Flag{
			Name:        "anchor-interval",
			Usage:       "generated tokens between anchor injections (0 disables)",
			Value:       int64(d.AnchorInterval),
			Destination: &f.anchorInterval,
		},
		&cli.StringFlag{
			Name:        "anchor-text",
			Usage:       "text injected at each anchor",
			Value:       d.AnchorText,
			Destination: &f.anchorText,
		},
		&cli.BoolFlag{
			Name:        "disable-anchors",
			Usage:       "disable anchor injection entirely",
			Destination: &f.disableAnchors,
		},
		&cli.BoolFlag{
			Name:        "disable-loop-guard",
			Usage:       "disable loop detection",
			Destination: &f.disableLoopGuard,
		},
		&cli.Int64Flag{
			Name:        "loop-window",
			Usage:       "loop guard window in generated tokens",
			Value:       int64(d.LoopGuardWindow),
			Destination: &f.loopWindow,
		},
		&cli.Int64Flag{
			Name:        "loop-ngram",
			Usage:       "loop guard n-gram length",
			Value:       int64(d.LoopGuardNGram),
			Destination: &f.loopNGram,
		},
		&cli.Int64Flag{
			Name:        "loop-repeats",
			Usage:       "repeats of one n-gram that count as a loop",
			Value:       int64(d.LoopGuardRepeats),
			Destination: &f.loopRepeats,
		},
		&cli.StringFlag{
			Name:        "loop-strictness",
			Usage:       "loop guard strictness (consecutive, window)",
			Value:       d.LoopGuardStrictness,
			Destination: &f.loopStrictness,
		},
	}
}

// sessionConfig converts the flag values. Validation is left to
// SessionConfig.Validate.
func (f *sessionFlags) sessionConfig() inference.SessionConfig {
	return inference.SessionConfig{
		Capacity:            int(f.contextSize),
		OverflowFraction:    f.overflowFraction,
		MaxTokens:           int(f.maxTokens),
		RepeatPenalty:       float32(f.repeatPenalty),
		RepeatLastN:         int(f.repeatLastN),
		PresencePenalty:     float32(f.presencePenalty),
		FrequencyPenalty:    float32(f.frequencyPenalty),
		Temperature:         float32(f.temperature),
		TopP:                float32(f.topP),
		TopK:                int(f.topK),
		MirostatEnabled:     f.mirostat,
		MirostatTau:         float32(f.mirostatTau),
		MirostatEta:         float32(f.mirostatEta),
		AnchorEnabled:       !f.disableAnchors,
		AnchorInterval:      int(f.anchorInterval),
		AnchorText:          f.anchorText,
		LoopGuardEnabled:    !f.disableLoopGuard,
		LoopGuardWindow:     int(f.loopWindow),
		LoopGuardNGram:      int(f.loopNGram),
		LoopGuardRepeats:    int(f.loopRepeats),
		LoopGuardStrictness: f.loopStrictness,
		Seed:                f.seed,
	}
}
