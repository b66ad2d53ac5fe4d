// Package history records the tokens a session has placed into the engine's
// position space.
package history

import "fmt"

// Kind tells where a recorded token came from.
type Kind uint8

const (
	Prompt Kind = iota
	Generated
	Anchor
)

func (k Kind) String() string {
	switch k {
	case Prompt:
		return "prompt"
	case Generated:
		return "generated"
	case Anchor:
		return "anchor"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Entry is one token at one position.
type Entry struct {
	Token    int
	Position int
	Kind     Kind
}

// History is an append-only record of (token, position) pairs. Positions are
// assigned by the history itself so they are always contiguous from zero.
type History struct {
	tokens []int
	kinds  []Kind
}

// New returns an empty history with room for capacity entries.
func New(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{
		tokens: make([]int, 0, capacity),
		kinds:  make([]Kind, 0, capacity),
	}
}

// Append records tok at the next position and returns that position.
func (h *History) Append(tok int, kind Kind) int {
	pos := len(h.tokens)
	h.tokens = append(h.tokens, tok)
	h.kinds = append(h.kinds, kind)
	return pos
}

// AppendAll records toks at consecutive positions and returns the first one.
func (h *History) AppendAll(toks []int, kind Kind) int {
	start := len(h.tokens)
	for _, t := range toks {
		h.Append(t, kind)
	}
	return start
}

// Len is the number of positions consumed so far.
func (h *History) Len() int { return len(h.tokens) }

// Next is the position the next appended token will occupy.
func (h *History) Next() int { return len(h.tokens) }

// At returns the entry stored at pos.
func (h *History) At(pos int) (Entry, bool) {
	if pos < 0 || pos >= len(h.tokens) {
		return Entry{}, false
	}
	return Entry{Token: h.tokens[pos], Position: pos, Kind: h.kinds[pos]}, true
}

// Last returns the most recent n tokens, or all of them when n is negative
// or larger than the history. The returned slice aliases internal storage
// and must not be modified.
func (h *History) Last(n int) []int {
	if n < 0 || n >= len(h.tokens) {
		return h.tokens
	}
	return h.tokens[len(h.tokens)-n:]
}

// Range returns the tokens in positions [from, to). It aliases internal
// storage.
func (h *History) Range(from, to int) []int {
	from = max(from, 0)
	to = min(to, len(h.tokens))
	if from >= to {
		return nil
	}
	return h.tokens[from:to]
}

// Count returns how many entries of the given kind have been recorded.
func (h *History) Count(kind Kind) int {
	n := 0
	for _, k := range h.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

// Tokens returns a copy of every recorded token in position order.
func (h *History) Tokens() []int {
	return append([]int(nil), h.tokens...)
}

// Entries returns a copy of every entry in position order.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.tokens))
	for i, t := range h.tokens {
		out[i] = Entry{Token: t, Position: i, Kind: h.kinds[i]}
	}
	return out
}
