package logits

import (
	"math"
	"slices"
	"testing"
)

func TestPenaltiesLeaveUnseenTokensUnchanged(t *testing.T) {
	p := NewPenalties(PenaltyConfig{
		RepeatPenalty:    2,
		PresencePenalty:  0.5,
		FrequencyPenalty: 0.25,
		LastN:            UnboundedWindow,
	})
	logits := []float32{4, -2, 3, 1, 0.5}
	p.Apply(logits, []int{0, 1, 1})

	if !slices.Equal(logits[2:], []float32{3, 1, 0.5}) {
		t.Fatalf("unseen tokens changed: %v", logits[2:])
	}
}

func TestPenaltiesComposeInOrder(t *testing.T) {
	p := NewPenalties(PenaltyConfig{
		RepeatPenalty:    2,
		PresencePenalty:  0.5,
		FrequencyPenalty: 0.25,
		LastN:            UnboundedWindow,
	})
	logits := []float32{4, -2, 3}
	p.Apply(logits, []int{0, 1, 1})

	// token 0: 4/2 - 0.5 - 0.25*1
	if math.Abs(float64(logits[0])-1.25) > 1e-6 {
		t.Fatalf("token 0: got %v want 1.25", logits[0])
	}
	// token 1: -2*2 - 0.5 - 0.25*2
	if math.Abs(float64(logits[1])+5) > 1e-6 {
		t.Fatalf("token 1: got %v want -5", logits[1])
	}
}

func TestPenaltiesRespectWindow(t *testing.T) {
	p := NewPenalties(PenaltyConfig{RepeatPenalty: 2, LastN: 2})
	logits := []float32{4, 4, 4}
	p.Apply(logits, []int{0, 1, 2})

	if !slices.Equal(logits, []float32{4, 2, 2}) {
		t.Fatalf("token 0 is outside the window: got %v", logits)
	}
}

func TestPenaltiesDisabled(t *testing.T) {
	cases := map[string]PenaltyConfig{
		"neutral":     {RepeatPenalty: 1, LastN: 64},
		"zero-window": {RepeatPenalty: 2, PresencePenalty: 1, LastN: 0},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			p := NewPenalties(cfg)
			if p.Enabled() {
				t.Fatalf("penalties should be disabled")
			}
			logits := []float32{1, 2, 3}
			p.Apply(logits, []int{0, 1, 2})
			if !slices.Equal(logits, []float32{1, 2, 3}) {
				t.Fatalf("disabled penalties changed logits: %v", logits)
			}
		})
	}
}

func TestPenaltiesIgnoreOutOfVocabularyIDs(t *testing.T) {
	p := NewPenalties(PenaltyConfig{RepeatPenalty: 2, LastN: UnboundedWindow})
	logits := []float32{2, 2}
	p.Apply(logits, []int{-1, 5, 1})
	if !slices.Equal(logits, []float32{2, 1}) {
		t.Fatalf("got %v want [2 1]", logits)
	}
}

func TestPenaltiesCountsResetBetweenCalls(t *testing.T) {
	p := NewPenalties(PenaltyConfig{RepeatPenalty: 1, FrequencyPenalty: 1, LastN: UnboundedWindow})

	first := []float32{0, 0}
	p.Apply(first, []int{0, 0, 0})
	if !slices.Equal(first, []float32{-3, 0}) {
		t.Fatalf("first call: got %v", first)
	}

	second := []float32{0, 0}
	p.Apply(second, []int{0})
	if !slices.Equal(second, []float32{-1, 0}) {
		t.Fatalf("counts leaked between calls: got %v", second)
	}
}
