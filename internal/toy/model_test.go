package toy

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/samcharles93/nexus/internal/tensor"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel(Config{Vocab: 8, Hidden: 6, Seed: 5})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

// TestForwardMatchesNaive compares the first ForwardToken call against a
// hand-computed reference.
func TestForwardMatchesNaive(t *testing.T) {
	m := newTestModel(t)
	c := m.NewContext(16)
	tok := 3

	logits, err := c.ForwardToken(tok)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}

	h := make([]float32, m.Hidden)
	copy(h, m.Emb.Row(tok))
	tensor.Tanh(h)
	tensor.RMSNorm(h, h, nil, 1e-6)
	for j := 0; j < m.Vocab; j++ {
		ref := tensor.Dot(m.Out.Row(j), h) + m.Bias[j]
		if math.Abs(float64(logits[j]-ref)) > 1e-4 {
			t.Fatalf("logit mismatch at %d: got %f, want %f", j, logits[j], ref)
		}
	}
}

// TestForwardNoAllocs verifies that ForwardToken reuses its scratch.
func TestForwardNoAllocs(t *testing.T) {
	m := newTestModel(t)
	c := m.NewContext(0)
	allocs := testing.AllocsPerRun(100, func() {
		_, _ = c.ForwardToken(1)
	})
	if allocs != 0 {
		t.Fatalf("expected 0 allocations, got %v", allocs)
	}
}

func TestContextsAreIndependent(t *testing.T) {
	m := newTestModel(t)
	a, b := m.NewContext(16), m.NewContext(16)

	la, err := a.Evaluate(context.Background(), []int{1, 2, 3}, 0)
	if err != nil {
		t.Fatalf("evaluate a: %v", err)
	}
	want := append([]float32(nil), la...)

	if _, err := b.Evaluate(context.Background(), []int{7, 7}, 0); err != nil {
		t.Fatalf("evaluate b: %v", err)
	}

	a.Reset()
	la, err = a.Evaluate(context.Background(), []int{1, 2, 3}, 0)
	if err != nil {
		t.Fatalf("evaluate a again: %v", err)
	}
	for i := range want {
		if la[i] != want[i] {
			t.Fatalf("context state leaked at %d: %f vs %f", i, la[i], want[i])
		}
	}
}

func TestHistoryChangesLogits(t *testing.T) {
	m := newTestModel(t)
	a, b := m.NewContext(16), m.NewContext(16)
	la, _ := a.Evaluate(context.Background(), []int{1, 4}, 0)
	lb, _ := b.Evaluate(context.Background(), []int{2, 4}, 0)
	same := true
	for i := range la {
		if la[i] != lb[i] {
			same = false
		}
	}
	if same {
		t.Fatalf("expected earlier tokens to influence logits")
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()

	c := m.NewContext(3)
	if _, err := c.Evaluate(ctx, nil, 0); !errors.Is(err, ErrEmptyEvaluate) {
		t.Fatalf("expected ErrEmptyEvaluate, got %v", err)
	}
	if _, err := c.Evaluate(ctx, []int{1}, 1); !errors.Is(err, ErrPosition) {
		t.Fatalf("expected ErrPosition, got %v", err)
	}
	if _, err := c.Evaluate(ctx, []int{99}, 0); !errors.Is(err, ErrTokenRange) {
		t.Fatalf("expected ErrTokenRange, got %v", err)
	}
	if _, err := c.Evaluate(ctx, []int{1, 2, 3}, 0); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if _, err := c.Evaluate(ctx, []int{1}, 3); !errors.Is(err, ErrContextFull) {
		t.Fatalf("expected ErrContextFull, got %v", err)
	}
}

func TestBiasIsSeeded(t *testing.T) {
	m := newTestModel(t)
	again := newTestModel(t)
	nonZero := false
	for i, b := range m.Bias {
		if b != again.Bias[i] {
			t.Fatalf("bias not deterministic at %d: %f vs %f", i, b, again.Bias[i])
		}
		if b != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatalf("bias left at zero")
	}

	other, err := NewModel(Config{Vocab: 8, Hidden: 6, Seed: 6})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if other.Bias[0] == m.Bias[0] && other.Bias[1] == m.Bias[1] {
		t.Fatalf("bias ignores the seed")
	}
}

func TestNewModelValidates(t *testing.T) {
	for _, cfg := range []Config{{Vocab: 0}, {Vocab: 4, Hidden: -1}, {Vocab: 4, Decay: 1}} {
		if _, err := NewModel(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}
