package logits

import "math/rand/v2"

// Strategy turns a penalty-adjusted logit vector into one token id.
type Strategy interface {
	Sample(logits []float32) int
	Name() string
}

// StrategyConfig selects and configures a Strategy.
type StrategyConfig struct {
	Mirostat       bool
	MirostatConfig MirostatConfig
	Chain          ChainConfig
}

// NewStrategy builds the strategy a session uses for its whole lifetime.
func NewStrategy(cfg StrategyConfig, rng *rand.Rand) Strategy {
	if cfg.Mirostat {
		return NewMirostat(cfg.MirostatConfig, rng)
	}
	return NewChain(cfg.Chain, rng)
}
