package logits

// UnboundedWindow makes the penalty window cover the whole history.
const UnboundedWindow = -1

// PenaltyConfig configures the repetition, presence and frequency penalties.
type PenaltyConfig struct {
	RepeatPenalty    float32
	PresencePenalty  float32
	FrequencyPenalty float32
	// LastN is the number of trailing history tokens considered. Zero
	// disables the stage and UnboundedWindow considers all of them.
	LastN int
}

// Penalties adjusts logits for tokens that already occur in a history
// window. Apply is a pure function of its inputs: the only state kept between
// calls is scratch space.
type Penalties struct {
	cfg PenaltyConfig

	mark  []uint32
	count []uint32
	epoch uint32
	seen  []int
}

// NewPenalties returns a penalty stage for cfg. A non-positive repeat
// penalty is treated as 1 (disabled).
func NewPenalties(cfg PenaltyConfig) *Penalties {
	if cfg.RepeatPenalty <= 0 {
		cfg.RepeatPenalty = 1
	}
	return &Penalties{cfg: cfg}
}

// Enabled reports whether Apply can change any logit.
func (p *Penalties) Enabled() bool {
	if p == nil || p.cfg.LastN == 0 {
		return false
	}
	return p.cfg.RepeatPenalty != 1 || p.cfg.PresencePenalty != 0 || p.cfg.FrequencyPenalty != 0
}

// Window returns the suffix of history the stage looks at.
func (p *Penalties) Window(history []int) []int {
	switch {
	case p.cfg.LastN == 0:
		return nil
	case p.cfg.LastN < 0 || p.cfg.LastN >= len(history):
		return history
	default:
		return history[len(history)-p.cfg.LastN:]
	}
}

// Apply penalises, in place, every logit whose token occurs in the window
// selected from history. For each distinct token the repeat penalty is
// applied first (positive logits are divided, non-positive ones multiplied,
// so the token always loses probability), then the presence penalty once,
// then the frequency penalty once per occurrence. Tokens outside the window
// and ids outside the vocabulary are left alone.
func (p *Penalties) Apply(logits []float32, history []int) {
	if !p.Enabled() {
		return
	}
	window := p.Window(history)
	if len(window) == 0 {
		return
	}

	if len(p.mark) < len(logits) {
		p.mark = make([]uint32, len(logits))
		p.count = make([]uint32, len(logits))
	}
	p.epoch++
	if p.epoch == 0 {
		clear(p.mark)
		p.epoch = 1
	}
	p.seen = p.seen[:0]

	for _, id := range window {
		if id < 0 || id >= len(logits) {
			continue
		}
		if p.mark[id] != p.epoch {
			p.mark[id] = p.epoch
			p.count[id] = 0
			p.seen = append(p.seen, id)
		}
		p.count[id]++
	}

	for _, id := range p.seen {
		v := logits[id]
		if p.cfg.RepeatPenalty != 1 {
			if v > 0 {
				v /= p.cfg.RepeatPenalty
			} else {
				v *= p.cfg.RepeatPenalty
			}
		}
		v -= p.cfg.PresencePenalty
		v -= p.cfg.FrequencyPenalty * float32(p.count[id])
		logits[id] = v
	}
}
