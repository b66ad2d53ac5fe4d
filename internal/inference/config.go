package inference

import (
	"math"
	"strings"
	"time"

	"github.com/samcharles93/nexus/internal/anchor"
	"github.com/samcharles93/nexus/internal/guard"
	"github.com/samcharles93/nexus/internal/logits"
)

// RandomSeed asks the session to derive its seed from the clock.
const RandomSeed int64 = -1

// SessionConfig is every knob a generation session honours. The zero value
// is not usable; start from DefaultSessionConfig.
type SessionConfig struct {
	Capacity         int     `yaml:"capacity" json:"capacity"`
	OverflowFraction float64 `yaml:"overflow_fraction" json:"overflow_fraction"`
	MaxTokens        int     `yaml:"max_tokens" json:"max_tokens"`

	RepeatPenalty    float32 `yaml:"repeat_penalty" json:"repeat_penalty"`
	RepeatLastN      int     `yaml:"repeat_last_n" json:"repeat_last_n"`
	PresencePenalty  float32 `yaml:"presence_penalty" json:"presence_penalty"`
	FrequencyPenalty float32 `yaml:"frequency_penalty" json:"frequency_penalty"`

	Temperature float32 `yaml:"temperature" json:"temperature"`
	TopP        float32 `yaml:"top_p" json:"top_p"`
	TopK        int     `yaml:"top_k" json:"top_k"`

	MirostatEnabled bool    `yaml:"mirostat_enabled" json:"mirostat_enabled"`
	MirostatTau     float32 `yaml:"mirostat_tau" json:"mirostat_tau"`
	MirostatEta     float32 `yaml:"mirostat_eta" json:"mirostat_eta"`

	AnchorEnabled  bool   `yaml:"anchor_enabled" json:"anchor_enabled"`
	AnchorInterval int    `yaml:"anchor_interval" json:"anchor_interval"`
	AnchorText     string `yaml:"anchor_text" json:"anchor_text"`

	LoopGuardEnabled    bool   `yaml:"loop_guard_enabled" json:"loop_guard_enabled"`
	LoopGuardWindow     int    `yaml:"loop_guard_window" json:"loop_guard_window"`
	LoopGuardNGram      int    `yaml:"loop_guard_ngram" json:"loop_guard_ngram"`
	LoopGuardRepeats    int    `yaml:"loop_guard_repeats" json:"loop_guard_repeats"`
	LoopGuardStrictness string `yaml:"loop_guard_strictness" json:"loop_guard_strictness"`

	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultSessionConfig returns the stock tuning.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Capacity:         1024,
		OverflowFraction: guard.DefaultOverflowFraction,

		RepeatPenalty:    2.15,
		RepeatLastN:      logits.UnboundedWindow,
		PresencePenalty:  1.35,
		FrequencyPenalty: 1.05,

		Temperature: 0.22,
		TopP:        0.5,
		TopK:        20,

		MirostatTau: 5.0,
		MirostatEta: 0.1,

		AnchorEnabled:  true,
		AnchorInterval: anchor.DefaultInterval,
		AnchorText:     anchor.DefaultText,

		LoopGuardEnabled:    true,
		LoopGuardWindow:     64,
		LoopGuardNGram:      4,
		LoopGuardRepeats:    3,
		LoopGuardStrictness: guard.Consecutive.String(),

		Seed: RandomSeed,
	}
}

// Validate checks the fields that can be judged without a tokenizer. The
// returned error is always a *ConfigError.
func (c SessionConfig) Validate() error {
	switch {
	case c.Capacity <= 0:
		return configErrorf("capacity", "must be positive, got %d", c.Capacity)
	case !(c.OverflowFraction > 0 && c.OverflowFraction <= 1):
		return configErrorf("overflow_fraction", "must be in (0, 1], got %g", c.OverflowFraction)
	case c.MaxTokens < 0:
		return configErrorf("max_tokens", "must not be negative, got %d", c.MaxTokens)
	case !finite(c.RepeatPenalty) || c.RepeatPenalty <= 0:
		return configErrorf("repeat_penalty", "must be positive, got %g", c.RepeatPenalty)
	case c.RepeatLastN < logits.UnboundedWindow:
		return configErrorf("repeat_last_n", "must be -1, 0 or positive, got %d", c.RepeatLastN)
	case !finite(c.PresencePenalty):
		return configErrorf("presence_penalty", "must be finite")
	case !finite(c.FrequencyPenalty):
		return configErrorf("frequency_penalty", "must be finite")
	case !finite(c.Temperature) || c.Temperature < 0:
		return configErrorf("temperature", "must not be negative, got %g", c.Temperature)
	case !(c.TopP > 0 && c.TopP <= 1):
		return configErrorf("top_p", "must be in (0, 1], got %g", c.TopP)
	case c.TopK < 0:
		return configErrorf("top_k", "must not be negative, got %d", c.TopK)
	case c.AnchorInterval < 0:
		return configErrorf("anchor_interval", "must not be negative, got %d", c.AnchorInterval)
	case c.Seed < RandomSeed || c.Seed > math.MaxUint32:
		return configErrorf("seed", "must be -1 or in [0, %d], got %d", uint32(math.MaxUint32), c.Seed)
	}
	if c.MirostatEnabled {
		if !finite(c.MirostatTau) || c.MirostatTau <= 0 {
			return configErrorf("mirostat_tau", "must be positive, got %g", c.MirostatTau)
		}
		if !finite(c.MirostatEta) || c.MirostatEta <= 0 {
			return configErrorf("mirostat_eta", "must be positive, got %g", c.MirostatEta)
		}
	}
	if c.anchorsOn() && strings.TrimSpace(c.AnchorText) == "" {
		return configErrorf("anchor_text", "must not be empty while anchors are enabled")
	}
	if c.LoopGuardEnabled {
		lc, err := c.loopConfig()
		if err != nil {
			return err
		}
		if err := lc.Validate(); err != nil {
			return configErrorf("loop_guard", "%v", err)
		}
	}
	return nil
}

func (c SessionConfig) anchorsOn() bool {
	return c.AnchorEnabled && c.AnchorInterval > 0
}

func (c SessionConfig) loopConfig() (guard.LoopConfig, error) {
	strict, err := guard.ParseStrictness(c.LoopGuardStrictness)
	if err != nil {
		return guard.LoopConfig{}, configErrorf("loop_guard_strictness", "%v", err)
	}
	return guard.LoopConfig{
		Window:     c.LoopGuardWindow,
		NGram:      c.LoopGuardNGram,
		Repeats:    c.LoopGuardRepeats,
		Strictness: strict,
	}, nil
}

func (c SessionConfig) strategyConfig() logits.StrategyConfig {
	return logits.StrategyConfig{
		Mirostat: c.MirostatEnabled,
		MirostatConfig: logits.MirostatConfig{
			Tau: c.MirostatTau,
			Eta: c.MirostatEta,
		},
		Chain: logits.ChainConfig{
			Temperature: c.Temperature,
			TopK:        c.TopK,
			TopP:        c.TopP,
		},
	}
}

func (c SessionConfig) penaltyConfig() logits.PenaltyConfig {
	return logits.PenaltyConfig{
		RepeatPenalty:    c.RepeatPenalty,
		PresencePenalty:  c.PresencePenalty,
		FrequencyPenalty: c.FrequencyPenalty,
		LastN:            c.RepeatLastN,
	}
}

// ResolveSeed returns seed unchanged unless it is RandomSeed, in which case a
// value is derived from now.
func ResolveSeed(seed int64, now time.Time) uint64 {
	if seed >= 0 {
		return uint64(seed)
	}
	return uint64(now.UnixNano()) & math.MaxUint32
}

// BuildPrompt frames a prompt file for ingestion: trailing whitespace is
// dropped and a blank line separates it from generated text. A non-empty
// user prompt is appended after the system prompt in the same way.
func BuildPrompt(system, user string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(system, " \t\r\n"))
	b.WriteString("\n\n")
	if u := strings.TrimSpace(user); u != "" {
		b.WriteString(u)
		b.WriteString("\n\n")
	}
	return b.String()
}

func finite(f float32) bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
