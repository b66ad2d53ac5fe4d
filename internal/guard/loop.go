// Package guard holds the two hard stops of a generation session: the
// repetition detector and the context budget.
package guard

import (
	"fmt"
	"slices"
	"strings"
)

// Strictness selects how repeated n-grams are counted.
type Strictness int

const (
	// Consecutive fires when the newest n*R tokens are R back-to-back copies
	// of one n-gram.
	Consecutive Strictness = iota
	// Window fires when the n-gram ending at the newest token occurs at least
	// R times anywhere in the window.
	Window
)

func (s Strictness) String() string {
	switch s {
	case Consecutive:
		return "consecutive"
	case Window:
		return "window"
	default:
		return fmt.Sprintf("strictness(%d)", int(s))
	}
}

// ParseStrictness accepts "consecutive" or "window".
func ParseStrictness(s string) (Strictness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "consecutive":
		return Consecutive, nil
	case "window":
		return Window, nil
	default:
		return 0, fmt.Errorf("unknown loop guard strictness %q", s)
	}
}

// LoopConfig configures a LoopGuard.
type LoopConfig struct {
	Window     int
	NGram      int
	Repeats    int
	Strictness Strictness
}

// Validate reports the first inconsistent field.
func (c LoopConfig) Validate() error {
	if c.NGram < 1 {
		return fmt.Errorf("ngram must be >= 1, got %d", c.NGram)
	}
	if c.Repeats < 2 {
		return fmt.Errorf("repeats must be >= 2, got %d", c.Repeats)
	}
	if c.Window < c.NGram*c.Repeats {
		return fmt.Errorf("window %d cannot hold %d repeats of a %d-gram", c.Window, c.Repeats, c.NGram)
	}
	if c.Strictness != Consecutive && c.Strictness != Window {
		return fmt.Errorf("unknown strictness %d", int(c.Strictness))
	}
	return nil
}

// Detection describes a repetition the guard fired on.
type Detection struct {
	NGram   []int `json:"ngram"`
	Repeats int   `json:"repeats"`
}

func (d Detection) String() string {
	return fmt.Sprintf("%d-gram %v repeated %d times", len(d.NGram), d.NGram, d.Repeats)
}

// LoopGuard watches the generated stream for literal repeated n-grams.
type LoopGuard struct {
	cfg    LoopConfig
	window []int
}

// NewLoopGuard returns a guard for cfg. cfg must have passed Validate.
func NewLoopGuard(cfg LoopConfig) *LoopGuard {
	return &LoopGuard{
		cfg:    cfg,
		window: make([]int, 0, cfg.Window),
	}
}

// Observe records one emitted token and reports whether the stream is now
// looping.
func (g *LoopGuard) Observe(tok int) (Detection, bool) {
	if len(g.window) == g.cfg.Window {
		copy(g.window, g.window[1:])
		g.window = g.window[:len(g.window)-1]
	}
	g.window = append(g.window, tok)

	switch g.cfg.Strictness {
	case Window:
		return g.checkWindow()
	default:
		return g.checkConsecutive()
	}
}

// Len is the number of tokens currently held in the window.
func (g *LoopGuard) Len() int { return len(g.window) }

func (g *LoopGuard) checkConsecutive() (Detection, bool) {
	n, r := g.cfg.NGram, g.cfg.Repeats
	span := n * r
	if len(g.window) < span {
		return Detection{}, false
	}
	tail := g.window[len(g.window)-span:]
	gram := tail[span-n:]
	for i := 0; i < span-n; i += n {
		if !slices.Equal(tail[i:i+n], gram) {
			return Detection{}, false
		}
	}
	return Detection{NGram: slices.Clone(gram), Repeats: r}, true
}

func (g *LoopGuard) checkWindow() (Detection, bool) {
	n := g.cfg.NGram
	if len(g.window) < n*g.cfg.Repeats {
		return Detection{}, false
	}
	gram := g.window[len(g.window)-n:]
	seen := 0
	for i := 0; i+n <= len(g.window); i++ {
		if slices.Equal(g.window[i:i+n], gram) {
			seen++
		}
	}
	if seen < g.cfg.Repeats {
		return Detection{}, false
	}
	return Detection{NGram: slices.Clone(gram), Repeats: seen}, true
}
