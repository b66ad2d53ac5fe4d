package api

import (
	"time"

	"github.com/samcharles93/nexus/internal/inference"
)

// GenerationRequest starts a session. Unset tuning fields keep the server
// defaults.
type GenerationRequest struct {
	Prompt     string `json:"prompt"`
	UserPrompt string `json:"user_prompt,omitempty"`
	Stream     *bool  `json:"stream,omitempty"`

	Capacity         *int     `json:"capacity,omitempty"`
	OverflowFraction *float64 `json:"overflow_fraction,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`

	Temperature      *float32 `json:"temperature,omitempty"`
	TopP             *float32 `json:"top_p,omitempty"`
	TopK             *int     `json:"top_k,omitempty"`
	RepeatPenalty    *float32 `json:"repeat_penalty,omitempty"`
	RepeatLastN      *int     `json:"repeat_last_n,omitempty"`
	PresencePenalty  *float32 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float32 `json:"frequency_penalty,omitempty"`

	Mirostat    *bool    `json:"mirostat,omitempty"`
	MirostatTau *float32 `json:"mirostat_tau,omitempty"`
	MirostatEta *float32 `json:"mirostat_eta,omitempty"`

	AnchorEnabled  *bool   `json:"anchor_enabled,omitempty"`
	AnchorInterval *int    `json:"anchor_interval,omitempty"`
	AnchorText     *string `json:"anchor_text,omitempty"`

	LoopGuardEnabled    *bool   `json:"loop_guard_enabled,omitempty"`
	LoopGuardWindow     *int    `json:"loop_guard_window,omitempty"`
	LoopGuardNGram      *int    `json:"loop_guard_ngram,omitempty"`
	LoopGuardRepeats    *int    `json:"loop_guard_repeats,omitempty"`
	LoopGuardStrictness *string `json:"loop_guard_strictness,omitempty"`

	Seed *int64 `json:"seed,omitempty"`
}

func (r *GenerationRequest) streaming() bool {
	return r.Stream == nil || *r.Stream
}

// apply overlays the request onto base.
func (r *GenerationRequest) apply(base inference.SessionConfig) inference.SessionConfig {
	cfg := base
	set(&cfg.Capacity, r.Capacity)
	set(&cfg.OverflowFraction, r.OverflowFraction)
	set(&cfg.MaxTokens, r.MaxTokens)
	set(&cfg.Temperature, r.Temperature)
	set(&cfg.TopP, r.TopP)
	set(&cfg.TopK, r.TopK)
	set(&cfg.RepeatPenalty, r.RepeatPenalty)
	set(&cfg.RepeatLastN, r.RepeatLastN)
	set(&cfg.PresencePenalty, r.PresencePenalty)
	set(&cfg.FrequencyPenalty, r.FrequencyPenalty)
	set(&cfg.MirostatEnabled, r.Mirostat)
	set(&cfg.MirostatTau, r.MirostatTau)
	set(&cfg.MirostatEta, r.MirostatEta)
	set(&cfg.AnchorEnabled, r.AnchorEnabled)
	set(&cfg.AnchorInterval, r.AnchorInterval)
	set(&cfg.AnchorText, r.AnchorText)
	set(&cfg.LoopGuardEnabled, r.LoopGuardEnabled)
	set(&cfg.LoopGuardWindow, r.LoopGuardWindow)
	set(&cfg.LoopGuardNGram, r.LoopGuardNGram)
	set(&cfg.LoopGuardRepeats, r.LoopGuardRepeats)
	set(&cfg.LoopGuardStrictness, r.LoopGuardStrictness)
	set(&cfg.Seed, r.Seed)
	return cfg
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// SessionEvent opens a stream.
type SessionEvent struct {
	ID           string `json:"id"`
	Seed         uint64 `json:"seed"`
	PromptTokens int    `json:"prompt_tokens"`
	Capacity     int    `json:"capacity"`
	Threshold    int    `json:"threshold"`
}

// TokenEvent carries one decoded fragment.
type TokenEvent struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// GenerationResponse is the body of a non-streaming request and the payload
// of the final "done" event.
type GenerationResponse struct {
	*inference.Result
	Text       string `json:"text,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SessionInfo describes a live session.
type SessionInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Fragments int64     `json:"fragments"`
	Stopping  bool      `json:"stopping"`
}

type SessionList struct {
	Object string        `json:"object"`
	Data   []SessionInfo `json:"data"`
}

type StopResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
}
