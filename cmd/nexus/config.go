package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the nexus configuration file (~/.config/nexus/config.yaml).
// All fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	// Engine
	Tokenizer string `yaml:"tokenizer"`
	ModelSeed *int64 `yaml:"model_seed"`
	Hidden    *int64 `yaml:"hidden"`
	Threads   *int64 `yaml:"threads"`

	// Session
	ContextSize      *int64   `yaml:"context_size"`
	OverflowFraction *float64 `yaml:"overflow_fraction"`
	MaxTokens        *int64   `yaml:"max_tokens"`
	Temperature      *float64 `yaml:"temperature"`
	TopP             *float64 `yaml:"top_p"`
	TopK             *int64   `yaml:"top_k"`
	RepeatPenalty    *float64 `yaml:"repeat_penalty"`
	RepeatLastN      *int64   `yaml:"repeat_last_n"`
	PresencePenalty  *float64 `yaml:"presence_penalty"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty"`
	Seed             *int64   `yaml:"seed"`

	Mirostat    *bool    `yaml:"mirostat"`
	MirostatTau *float64 `yaml:"mirostat_tau"`
	MirostatEta *float64 `yaml:"mirostat_eta"`

	AnchorInterval *int64  `yaml:"anchor_interval"`
	AnchorText     *string `yaml:"anchor_text"`
	DisableAnchors *bool   `yaml:"disable_anchors"`

	DisableLoopGuard *bool   `yaml:"disable_loop_guard"`
	LoopWindow       *int64  `yaml:"loop_window"`
	LoopNGram        *int64  `yaml:"loop_ngram"`
	LoopRepeats      *int64  `yaml:"loop_repeats"`
	LoopStrictness   *string `yaml:"loop_strictness"`

	// Output
	StreamMode string `yaml:"stream_mode"`
	OutputFile string `yaml:"output_file"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nexus", "config.yaml")
}

// LoadConfig reads the config file. An empty path selects the default
// location, which may be missing. An explicit path must exist and parse.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func setIf[T any](c *cli.Command, name string, dst *T, v *T) {
	if v != nil && !c.IsSet(name) {
		*dst = *v
	}
}

// applyEngineConfig applies config file defaults to engine flags that were
// not set explicitly.
func applyEngineConfig(c *cli.Command, cfg Config, f *engineFlags) {
	if cfg.Tokenizer != "" && !c.IsSet("tokenizer") {
		f.tokenizer = cfg.Tokenizer
	}
	setIf(c, "model-seed", &f.modelSeed, cfg.ModelSeed)
	setIf(c, "hidden", &f.hidden, cfg.Hidden)
	setIf(c, "threads", &f.threads, cfg.Threads)
}

// applySessionConfig applies config file defaults to session flags that
// were not set explicitly.
func applySessionConfig(c *cli.Command, cfg Config, f *sessionFlags) {
	setIf(c, "context-size", &f.contextSize, cfg.ContextSize)
	setIf(c, "overflow-fraction", &f.overflowFraction, cfg.OverflowFraction)
	setIf(c, "max-tokens", &f.maxTokens, cfg.MaxTokens)
	setIf(c, "temperature", &f.temperature, cfg.Temperature)
	setIf(c, "top-p", &f.topP, cfg.TopP)
	setIf(c, "top-k", &f.topK, cfg.TopK)
	setIf(c, "repeat-penalty", &f.repeatPenalty, cfg.RepeatPenalty)
	setIf(c, "repeat-last-n", &f.repeatLastN, cfg.RepeatLastN)
	setIf(c, "presence-penalty", &f.presencePenalty, cfg.PresencePenalty)
	setIf(c, "frequency-penalty", &f.frequencyPenalty, cfg.FrequencyPenalty)
	setIf(c, "seed", &f.seed, cfg.Seed)
	setIf(c, "mirostat", &f.mirostat, cfg.Mirostat)
	setIf(c, "mirostat-tau", &f.mirostatTau, cfg.MirostatTau)
	setIf(c, "mirostat-eta", &f.mirostatEta, cfg.MirostatEta)
	setIf(c, "anchor-interval", &f.anchorInterval, cfg.AnchorInterval)
	setIf(c, "anchor-text", &f.anchorText, cfg.AnchorText)
	setIf(c, "disable-anchors", &f.disableAnchors, cfg.DisableAnchors)
	setIf(c, "disable-loop-guard", &f.disableLoopGuard, cfg.DisableLoopGuard)
	setIf(c, "loop-window", &f.loopWindow, cfg.LoopWindow)
	setIf(c, "loop-ngram", &f.loopNGram, cfg.LoopNGram)
	setIf(c, "loop-repeats", &f.loopRepeats, cfg.LoopRepeats)
	setIf(c, "loop-strictness", &f.loopStrictness, cfg.LoopStrictness)
}
