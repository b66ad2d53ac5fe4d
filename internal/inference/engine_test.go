package inference

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/samcharles93/nexus/internal/toy"
)

type panicResetModel struct{ okModel }

func (panicResetModel) Reset() { panic("reset boom") }

type okModel struct{ fed []int }

func (m *okModel) ForwardToken(id int) ([]float32, error) {
	m.fed = append(m.fed, id)
	return []float32{1, 0}, nil
}

func (m *okModel) Reset() { m.fed = nil }

type panicForwardModel struct{}

func (panicForwardModel) ForwardToken(int) ([]float32, error) { panic("forward boom") }
func (panicForwardModel) Reset()                             {}

func TestModelEngineTracksPositions(t *testing.T) {
	t.Parallel()
	m := &okModel{}
	e := NewModelEngine(m)
	ctx := context.Background()

	if _, err := e.Evaluate(ctx, []int{1, 2, 3}, 0); err != nil {
		t.Fatalf("evaluate prompt: %v", err)
	}
	if _, err := e.Evaluate(ctx, []int{4}, 3); err != nil {
		t.Fatalf("evaluate next: %v", err)
	}
	if e.Position() != 4 {
		t.Fatalf("position: got %d want 4", e.Position())
	}

	if _, err := e.Evaluate(ctx, []int{5}, 7); !errors.Is(err, ErrPositionMismatch) {
		t.Fatalf("expected ErrPositionMismatch, got %v", err)
	}

	if _, err := e.Evaluate(ctx, []int{9}, 0); err != nil {
		t.Fatalf("evaluate from zero: %v", err)
	}
	if !slices.Equal(m.fed, []int{9}) {
		t.Fatalf("evaluating from zero must reset the model, fed %v", m.fed)
	}
}

func TestModelEngineConvertsPanics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e := NewModelEngine(panicForwardModel{})
	_, err := e.Evaluate(ctx, []int{1}, 0)
	if err == nil || !strings.Contains(err.Error(), "panic in ForwardToken") {
		t.Fatalf("expected forward panic error, got %v", err)
	}

	e = NewModelEngine(&panicResetModel{})
	if _, err := e.Evaluate(ctx, []int{1}, 0); err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	_, err = e.Evaluate(ctx, []int{1}, 0)
	if err == nil || !strings.Contains(err.Error(), "panic in Reset") {
		t.Fatalf("expected reset panic error, got %v", err)
	}
}

func TestModelEngineMatchesToyContext(t *testing.T) {
	t.Parallel()
	m, err := toy.NewModel(toy.Config{Vocab: 64, Hidden: 16, Seed: 3})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	ctx := context.Background()

	direct, err := m.NewContext(32).Evaluate(ctx, []int{1, 2, 3, 4}, 0)
	if err != nil {
		t.Fatalf("direct evaluate: %v", err)
	}
	want := append([]float32(nil), direct...)

	e := NewModelEngine(m.NewContext(32))
	if _, err := e.Evaluate(ctx, []int{1, 2}, 0); err != nil {
		t.Fatalf("evaluate prefix: %v", err)
	}
	got, err := e.Evaluate(ctx, []int{3, 4}, 2)
	if err != nil {
		t.Fatalf("evaluate suffix: %v", err)
	}
	if !slices.Equal(got, want) {
		t.Fatalf("split evaluation differs from direct")
	}
}

func TestStateSurface(t *testing.T) {
	t.Parallel()
	fatal := []State{StateContextExhausted, StateLoopDetected, StateEngineFailed, StateOutputFailed}
	for _, s := range fatal {
		if !s.Fatal() || !s.Terminal() {
			t.Fatalf("%s: fatal=%v terminal=%v", s, s.Fatal(), s.Terminal())
		}
		if s.Diagnostic() == "" {
			t.Fatalf("%s: missing diagnostic", s)
		}
		if s.ExitCode() == ExitOK {
			t.Fatalf("%s: fatal state exits 0", s)
		}
	}
	for _, s := range []State{StateMaxTokensReached, StateOperatorStopped} {
		if s.Fatal() || !s.Terminal() {
			t.Fatalf("%s: fatal=%v terminal=%v", s, s.Fatal(), s.Terminal())
		}
		if s.Diagnostic() != "" {
			t.Fatalf("%s: normal termination carries diagnostic %q", s, s.Diagnostic())
		}
		if s.ExitCode() != ExitOK {
			t.Fatalf("%s: exit code %d, want %d", s, s.ExitCode(), ExitOK)
		}
	}
	if StateGenerating.Terminal() {
		t.Fatalf("generating reported terminal")
	}
	if StateContextExhausted.String() != "context_exhausted" {
		t.Fatalf("name: %q", StateContextExhausted.String())
	}
	if State(42).String() != "state(42)" {
		t.Fatalf("unknown state name: %q", State(42).String())
	}

	text, err := StateLoopDetected.MarshalText()
	if err != nil || string(text) != "loop_detected" {
		t.Fatalf("marshal: %q, %v", text, err)
	}

	st, ok := StateOf(&FatalError{State: StateEngineFailed, Err: ErrEngineFailure})
	if !ok || st != StateEngineFailed {
		t.Fatalf("StateOf fatal: %v, %v", st, ok)
	}
	if _, ok := StateOf(errors.New("plain")); ok {
		t.Fatalf("StateOf plain error reported a state")
	}
}

func TestDefaultSessionConfigIsValid(t *testing.T) {
	t.Parallel()
	cfg := DefaultSessionConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Capacity != 1024 || cfg.Seed != RandomSeed {
		t.Fatalf("defaults: capacity=%d seed=%d", cfg.Capacity, cfg.Seed)
	}
	if math.Abs(cfg.OverflowFraction-0.95) > 1e-9 {
		t.Fatalf("overflow fraction: %v", cfg.OverflowFraction)
	}
}

func TestConfigErrorUnwraps(t *testing.T) {
	t.Parallel()
	cfg := DefaultSessionConfig()
	cfg.TopP = 1.5
	err := cfg.Validate()
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if ce.Field != "top_p" {
		t.Fatalf("field: got %q", ce.Field)
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("config error does not match ErrConfiguration")
	}
}

func TestResolveSeed(t *testing.T) {
	t.Parallel()
	now := time.Unix(0, 0x1_2345_6789)
	if got := ResolveSeed(7, now); got != 7 {
		t.Fatalf("explicit seed: got %d", got)
	}
	if got := ResolveSeed(RandomSeed, now); got != 0x2345_6789 {
		t.Fatalf("random seed: got %#x", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()
	if got := BuildPrompt("You are a machine.  \n\n\t", ""); got != "You are a machine.\n\n" {
		t.Fatalf("system only: %q", got)
	}
	if got := BuildPrompt("sys\n", "  user says hi "); got != "sys\n\nuser says hi\n\n" {
		t.Fatalf("with user prompt: %q", got)
	}
}
