package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/samcharles93/nexus/internal/tokenizer"
)

// Engine produces next-token logits. It is stateful: every call continues
// from the position after the previous one, and a session never skips or
// rewinds a position.
type Engine interface {
	// Evaluate feeds tokens at positions start, start+1, ... and returns the
	// logits that follow the last of them. The caller may modify the
	// returned slice; it is only valid until the next call.
	Evaluate(ctx context.Context, tokens []int, start int) ([]float32, error)
}

// Model is a single-token forward pass with an internal KV state.
type Model interface {
	ForwardToken(id int) ([]float32, error)
	Reset()
}

// ErrPositionMismatch is returned by ModelEngine when asked to evaluate a
// position other than the next one.
var ErrPositionMismatch = errors.New("engine position mismatch")

// ModelEngine adapts a Model to Engine, tracking the position the model has
// reached. Evaluating from position zero resets the model first.
type ModelEngine struct {
	model Model
	next  int
}

func NewModelEngine(m Model) *ModelEngine {
	return &ModelEngine{model: m}
}

// Position is the next position the engine will accept.
func (e *ModelEngine) Position() int { return e.next }

func (e *ModelEngine) Evaluate(_ context.Context, tokens []int, start int) ([]float32, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("evaluate: no tokens")
	}
	if start == 0 && e.next != 0 {
		if err := safeReset(e.model); err != nil {
			return nil, err
		}
		e.next = 0
	}
	if start != e.next {
		return nil, fmt.Errorf("%w: asked for %d, engine is at %d", ErrPositionMismatch, start, e.next)
	}
	var out []float32
	for _, id := range tokens {
		var err error
		out, err = safeForward(e.model, id)
		if err != nil {
			return nil, fmt.Errorf("forward token at position %d: %w", e.next, err)
		}
		e.next++
	}
	return out, nil
}

func safeReset(m Model) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Reset: %v", rec)
		}
	}()
	m.Reset()
	return nil
}

func safeForward(m Model, id int) (logits []float32, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in ForwardToken: %v", rec)
		}
	}()
	return m.ForwardToken(id)
}

func safeEvaluate(ctx context.Context, e Engine, tokens []int, start int) (logits []float32, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Evaluate: %v", rec)
		}
	}()
	return e.Evaluate(ctx, tokens, start)
}

func safeEncode(tok tokenizer.Tokenizer, text string) (ids []int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Encode: %v", rec)
		}
	}()
	return tok.Encode(text)
}

func safeDecode(tok tokenizer.Tokenizer, ids []int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Decode: %v", rec)
		}
	}()
	return tok.Decode(ids)
}
