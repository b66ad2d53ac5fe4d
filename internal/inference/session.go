package inference

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/samcharles93/nexus/internal/anchor"
	"github.com/samcharles93/nexus/internal/guard"
	"github.com/samcharles93/nexus/internal/history"
	"github.com/samcharles93/nexus/internal/logger"
	"github.com/samcharles93/nexus/internal/logits"
	"github.com/samcharles93/nexus/internal/output"
	"github.com/samcharles93/nexus/internal/tokenizer"
)

type Stats struct {
	TokensGenerated int           `json:"tokens_generated"`
	Duration        time.Duration `json:"duration_ns"`
	TPS             float64       `json:"tokens_per_second"`
}

// Result describes how a session ended. It is returned for every run,
// including fatal ones.
type Result struct {
	ID              string           `json:"id"`
	State           State            `json:"state"`
	Seed            uint64           `json:"seed"`
	Strategy        string           `json:"strategy"`
	PromptTokens    int              `json:"prompt_tokens"`
	Positions       int              `json:"positions"`
	Capacity        int              `json:"capacity"`
	Threshold       int              `json:"threshold"`
	Generated       int              `json:"generated"`
	AnchorsInjected int              `json:"anchors_injected"`
	Loop            *guard.Detection `json:"loop,omitempty"`
	Stats           Stats            `json:"stats"`
	// Tokens is the generated stream in emission order, without anchors.
	Tokens []int `json:"-"`
}

// Session drives one generation run: prompt ingestion followed by the
// sample-emit loop until a terminal state. A Session is single-use and not
// safe for concurrent use.
type Session struct {
	id     string
	cfg    SessionConfig
	engine Engine
	tok    tokenizer.Tokenizer
	log    logger.Logger

	seed   uint64
	prompt []int

	hist      *history.History
	budget    *guard.Budget
	penalties *logits.Penalties
	strategy  logits.Strategy
	loop      *guard.LoopGuard
	anchors   *anchor.Scheduler

	state     State
	generated []int
	pending   []int
	partial   []byte
	detection *guard.Detection
}

// NewSession validates cfg, tokenizes the prompt and the anchor text and
// builds the pipeline. Any *ConfigError is returned before the engine is
// touched. A nil log discards output.
func NewSession(engine Engine, tok tokenizer.Tokenizer, cfg SessionConfig, prompt string, log logger.Logger) (*Session, error) {
	if engine == nil {
		return nil, configErrorf("engine", "is required")
	}
	if tok == nil {
		return nil, configErrorf("tokenizer", "is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}

	promptIDs, err := safeEncode(tok, prompt)
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}
	if len(promptIDs) == 0 {
		return nil, configErrorf("prompt", "tokenizes to zero tokens")
	}
	if len(promptIDs) >= cfg.Capacity {
		return nil, configErrorf("prompt",
			"prompt (%d tokens) exceeds context window (%d tokens); use a shorter prompt or increase the context size",
			len(promptIDs), cfg.Capacity)
	}

	var anchors *anchor.Scheduler
	if cfg.anchorsOn() {
		ids, err := safeEncode(tok, cfg.AnchorText)
		if err != nil {
			return nil, fmt.Errorf("encode anchor text: %w", err)
		}
		if len(ids) == 0 {
			return nil, configErrorf("anchor_text", "tokenizes to zero tokens")
		}
		if len(ids) > cfg.Capacity {
			return nil, configErrorf("anchor_text", "%d tokens do not fit a context of %d", len(ids), cfg.Capacity)
		}
		anchors = anchor.New(cfg.AnchorInterval, ids)
	}

	var loop *guard.LoopGuard
	if cfg.LoopGuardEnabled {
		lc, err := cfg.loopConfig()
		if err != nil {
			return nil, err
		}
		loop = guard.NewLoopGuard(lc)
	}

	budget, err := guard.NewBudget(cfg.Capacity, cfg.OverflowFraction)
	if err != nil {
		return nil, configErrorf("capacity", "%v", err)
	}

	seed := ResolveSeed(cfg.Seed, time.Now())
	id := uuid.NewString()
	return &Session{
		id:        id,
		cfg:       cfg,
		engine:    engine,
		tok:       tok,
		log:       log.With("session", id),
		seed:      seed,
		prompt:    promptIDs,
		hist:      history.New(cfg.Capacity),
		budget:    budget,
		penalties: logits.NewPenalties(cfg.penaltyConfig()),
		strategy:  logits.NewStrategy(cfg.strategyConfig(), logits.NewRNG(seed)),
		loop:      loop,
		anchors:   anchors,
		state:     StateInit,
	}, nil
}

func (s *Session) ID() string { return s.id }

// Seed is the resolved sampling seed.
func (s *Session) Seed() uint64 { return s.seed }

// PromptTokens is the number of tokens the prompt occupies.
func (s *Session) PromptTokens() int { return len(s.prompt) }

// Threshold is the position count at which the session stops.
func (s *Session) Threshold() int { return s.budget.Threshold() }

func (s *Session) State() State { return s.state }

// History exposes the positions consumed so far.
func (s *Session) History() *history.History { return s.hist }

// Run ingests the prompt and generates until a terminal state. Cancelling
// ctx stops the session at the next step boundary with StateOperatorStopped.
// Fatal states are returned as a *FatalError alongside the Result.
func (s *Session) Run(ctx context.Context, sink output.Sink) (*Result, error) {
	if s.state != StateInit {
		return nil, fmt.Errorf("session %s already ran (state %s)", s.id, s.state)
	}
	if sink == nil {
		sink = output.Discard
	}
	start := time.Now()

	s.state = StateIngesting
	s.log.Info("ingesting prompt",
		"prompt_tokens", len(s.prompt),
		"capacity", s.cfg.Capacity,
		"threshold", s.budget.Threshold(),
		"seed", s.seed,
		"strategy", s.strategy.Name(),
	)
	s.hist.AppendAll(s.prompt, history.Prompt)
	s.pending = append(s.pending[:0], s.prompt...)

	err := s.generate(ctx, sink)
	if err == nil || s.state != StateOutputFailed {
		if ferr := s.flushPartial(sink); ferr != nil && err == nil {
			err = s.fail(StateOutputFailed, ErrOutputFailure, ferr)
		}
	}

	res := s.result(time.Since(start))
	s.logSummary(res)
	return res, err
}

func (s *Session) generate(ctx context.Context, sink output.Sink) error {
	// Prompt ingestion.
	logitsVec, err := s.flushPending(ctx)
	if err != nil {
		return err
	}
	if s.budget.Consume(len(s.prompt)) {
		return s.exhausted()
	}
	s.state = StateGenerating

	for {
		if ctx.Err() != nil {
			s.state = StateOperatorStopped
			return nil
		}
		if s.cfg.MaxTokens > 0 && len(s.generated) >= s.cfg.MaxTokens {
			s.state = StateMaxTokensReached
			return nil
		}

		if logitsVec == nil {
			if logitsVec, err = s.flushPending(ctx); err != nil {
				return err
			}
		}

		s.penalties.Apply(logitsVec, s.hist.Last(-1))
		next := s.strategy.Sample(logitsVec)
		if next < 0 || next >= len(logitsVec) {
			return s.fail(StateEngineFailed, ErrEngineFailure,
				fmt.Errorf("no selectable token in %d logits", len(logitsVec)))
		}
		logitsVec = nil

		pos := s.hist.Append(next, history.Generated)
		s.generated = append(s.generated, next)
		s.pending = append(s.pending, next)
		s.budget.Consume(1)

		if err := s.emit(sink, next, pos); err != nil {
			return err
		}

		if toks, ok := s.anchors.Observe(); ok {
			first := s.hist.AppendAll(toks, history.Anchor)
			s.pending = append(s.pending, toks...)
			s.budget.Consume(len(toks))
			s.log.Debug("anchor injected", "position", first, "tokens", len(toks), "count", s.anchors.Injected())
		}

		if s.loop != nil {
			if det, hit := s.loop.Observe(next); hit {
				s.detection = &det
				s.log.Error("loop detected", "position", pos, "detail", det.String())
				return s.fail(StateLoopDetected, ErrLoopDetected, errors.New(det.String()))
			}
		}

		if s.budget.Exhausted() {
			return s.exhausted()
		}
	}
}

// flushPending sends every queued token to the engine in one call. The start
// position is derived from the history, so engine and history positions
// cannot drift apart.
func (s *Session) flushPending(ctx context.Context) ([]float32, error) {
	start := s.hist.Len() - len(s.pending)
	out, err := safeEvaluate(ctx, s.engine, s.pending, start)
	if err != nil {
		return nil, s.fail(StateEngineFailed, ErrEngineFailure,
			fmt.Errorf("evaluate %d tokens at position %d: %w", len(s.pending), start, err))
	}
	if len(out) == 0 {
		return nil, s.fail(StateEngineFailed, ErrEngineFailure,
			fmt.Errorf("engine returned no logits at position %d", start))
	}
	s.pending = s.pending[:0]
	return out, nil
}

func (s *Session) emit(sink output.Sink, tok, pos int) error {
	text, err := safeDecode(s.tok, []int{tok})
	if err != nil {
		return s.fail(StateOutputFailed, ErrOutputFailure, fmt.Errorf("decode token %d at position %d: %w", tok, pos, err))
	}
	s.partial = append(s.partial, text...)
	n := completePrefix(s.partial)
	if n == 0 {
		return nil
	}
	fragment := string(s.partial[:n])
	s.partial = append(s.partial[:0], s.partial[n:]...)
	if err := sink.Write(fragment); err != nil {
		return s.fail(StateOutputFailed, ErrOutputFailure, err)
	}
	return nil
}

// flushPartial writes any bytes held back waiting for the rest of a UTF-8
// sequence.
func (s *Session) flushPartial(sink output.Sink) error {
	if len(s.partial) == 0 {
		return nil
	}
	fragment := string(s.partial)
	s.partial = s.partial[:0]
	return sink.Write(fragment)
}

// completePrefix returns the length of b without a trailing incomplete UTF-8
// sequence. Invalid bytes are passed through.
func completePrefix(b []byte) int {
	n := len(b)
	for i := 1; i < utf8.UTFMax && i <= n; i++ {
		c := b[n-i]
		if utf8.RuneStart(c) {
			if c >= utf8.RuneSelf && !utf8.FullRune(b[n-i:]) {
				return n - i
			}
			return n
		}
	}
	return n
}

func (s *Session) exhausted() error {
	s.log.Warn("context window exhausted",
		"positions", s.hist.Len(),
		"threshold", s.budget.Threshold(),
		"capacity", s.budget.Capacity(),
	)
	return s.fail(StateContextExhausted, ErrContextExhausted,
		fmt.Errorf("%d of %d positions used (threshold %d)", s.hist.Len(), s.budget.Capacity(), s.budget.Threshold()))
}

func (s *Session) fail(state State, sentinel, cause error) error {
	s.state = state
	return &FatalError{
		State:     state,
		Positions: s.hist.Len(),
		Err:       fmt.Errorf("%w: %w", sentinel, cause),
	}
}

func (s *Session) result(elapsed time.Duration) *Result {
	res := &Result{
		ID:              s.id,
		State:           s.state,
		Seed:            s.seed,
		Strategy:        s.strategy.Name(),
		PromptTokens:    len(s.prompt),
		Positions:       s.hist.Len(),
		Capacity:        s.budget.Capacity(),
		Threshold:       s.budget.Threshold(),
		Generated:       len(s.generated),
		AnchorsInjected: s.anchors.Injected(),
		Loop:            s.detection,
		Tokens:          append([]int(nil), s.generated...),
	}
	res.Stats = Stats{TokensGenerated: res.Generated, Duration: elapsed}
	if elapsed.Seconds() > 0 {
		res.Stats.TPS = float64(res.Generated) / elapsed.Seconds()
	}
	return res
}

func (s *Session) logSummary(res *Result) {
	args := []any{
		"state", res.State.String(),
		"generated", res.Generated,
		"positions", res.Positions,
		"anchors", res.AnchorsInjected,
		"duration", res.Stats.Duration.Round(time.Millisecond),
		"tps", fmt.Sprintf("%.2f", res.Stats.TPS),
	}
	if res.State.Fatal() {
		s.log.Error("session ended", args...)
		return
	}
	s.log.Info("session ended", args...)
}
