// Package toy implements a tiny recurrent language model. It produces
// deterministic, token-dependent logits so that the generation pipeline can
// run end to end without model files.
package toy

import (
	"context"
	"errors"
	"fmt"

	"github.com/samcharles93/nexus/internal/tensor"
)

const (
	DefaultHidden = 64
	DefaultDecay  = 0.85
)

var (
	ErrPosition      = errors.New("toy: non-contiguous position")
	ErrContextFull   = errors.New("toy: context capacity exceeded")
	ErrTokenRange    = errors.New("toy: token id out of range")
	ErrEmptyEvaluate = errors.New("toy: no tokens to evaluate")
)

// Config describes the model shape and its weight seed.
type Config struct {
	Vocab  int
	Hidden int
	Seed   uint64
	// Decay is how much of the previous hidden state survives each token.
	// Zero selects DefaultDecay.
	Decay float32
}

// Model holds the read-only weights. It is safe to share one Model between
// any number of contexts.
type Model struct {
	Vocab  int
	Hidden int
	Decay  float32

	Emb  tensor.Mat // [Vocab x Hidden]
	Out  tensor.Mat // [Vocab x Hidden]
	Bias []float32  // [Vocab]
}

// NewModel builds a model with weights derived from cfg.Seed.
func NewModel(cfg Config) (*Model, error) {
	if cfg.Vocab <= 0 {
		return nil, fmt.Errorf("toy: vocab must be positive, got %d", cfg.Vocab)
	}
	if cfg.Hidden == 0 {
		cfg.Hidden = DefaultHidden
	}
	if cfg.Decay == 0 {
		cfg.Decay = DefaultDecay
	}
	if cfg.Hidden < 0 {
		return nil, fmt.Errorf("toy: hidden must be positive, got %d", cfg.Hidden)
	}
	if cfg.Decay < 0 || cfg.Decay >= 1 {
		return nil, fmt.Errorf("toy: decay must be in [0,1), got %g", cfg.Decay)
	}
	m := &Model{
		Vocab:  cfg.Vocab,
		Hidden: cfg.Hidden,
		Decay:  cfg.Decay,
		Emb:    tensor.NewMat(cfg.Vocab, cfg.Hidden),
		Out:    tensor.NewMat(cfg.Vocab, cfg.Hidden),
	}
	tensor.FillRand(&m.Emb, cfg.Seed+11, 2)
	tensor.FillRand(&m.Out, cfg.Seed+23, 1)
	bias := tensor.NewMat(1, cfg.Vocab)
	tensor.FillRand(&bias, cfg.Seed+37, 0.5)
	m.Bias = bias.Row(0)
	return m, nil
}

// NewContext returns an evaluation context with room for capacity positions.
// The context references the model weights and owns only its scratch.
func (m *Model) NewContext(capacity int) *Context {
	return &Context{
		model:    m,
		capacity: capacity,
		h:        make([]float32, m.Hidden),
		norm:     make([]float32, m.Hidden),
		logits:   make([]float32, m.Vocab),
	}
}

// Context is the per-session state of a Model: a hidden vector and the next
// position it expects.
type Context struct {
	model    *Model
	capacity int
	next     int

	h      []float32
	norm   []float32
	logits []float32
}

// Position is the next position the context will accept.
func (c *Context) Position() int { return c.next }

// Capacity is the number of positions the context can hold.
func (c *Context) Capacity() int { return c.capacity }

// Reset clears the hidden state and rewinds to position zero.
func (c *Context) Reset() {
	clear(c.h)
	c.next = 0
}

// ForwardToken feeds tok at the next position and returns the logits for the
// following one. The returned slice is reused by the next call.
func (c *Context) ForwardToken(tok int) ([]float32, error) {
	m := c.model
	if tok < 0 || tok >= m.Vocab {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrTokenRange, tok, m.Vocab)
	}
	if c.capacity > 0 && c.next >= c.capacity {
		return nil, fmt.Errorf("%w: position %d, capacity %d", ErrContextFull, c.next, c.capacity)
	}

	tensor.Scale(c.h, m.Decay)
	tensor.Add(c.h, m.Emb.Row(tok))
	copy(c.norm, c.h)
	tensor.Tanh(c.norm)
	tensor.RMSNorm(c.norm, c.norm, nil, 1e-6)
	tensor.MatVec(c.logits, &m.Out, c.norm)
	tensor.Add(c.logits, m.Bias)

	c.next++
	return c.logits, nil
}

// Evaluate feeds tokens at positions start, start+1, ... and returns the
// logits after the last one. start must equal Position.
func (c *Context) Evaluate(_ context.Context, tokens []int, start int) ([]float32, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyEvaluate
	}
	if start != c.next {
		return nil, fmt.Errorf("%w: got start %d, expected %d", ErrPosition, start, c.next)
	}
	var out []float32
	for _, tok := range tokens {
		var err error
		out, err = c.ForwardToken(tok)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
