package history

import (
	"slices"
	"testing"
)

func TestAppendAssignsContiguousPositions(t *testing.T) {
	h := New(4)
	if p := h.AppendAll([]int{7, 8, 9}, Prompt); p != 0 {
		t.Fatalf("prompt start: got %d want 0", p)
	}
	if p := h.Append(1, Generated); p != 3 {
		t.Fatalf("generated position: got %d want 3", p)
	}
	if p := h.AppendAll([]int{5, 5}, Anchor); p != 4 {
		t.Fatalf("anchor start: got %d want 4", p)
	}
	if h.Len() != 6 {
		t.Fatalf("len: got %d want 6", h.Len())
	}

	for i, e := range h.Entries() {
		if e.Position != i {
			t.Fatalf("entry %d has position %d", i, e.Position)
		}
	}
	e, ok := h.At(4)
	if !ok {
		t.Fatalf("missing entry at 4")
	}
	if want := (Entry{Token: 5, Position: 4, Kind: Anchor}); e != want {
		t.Fatalf("entry: got %+v want %+v", e, want)
	}
	if _, ok := h.At(6); ok {
		t.Fatalf("entry past the end")
	}
}

func TestLastWindow(t *testing.T) {
	h := New(0)
	h.AppendAll([]int{1, 2, 3, 4}, Generated)

	cases := []struct {
		n    int
		want []int
	}{
		{2, []int{3, 4}},
		{-1, []int{1, 2, 3, 4}},
		{10, []int{1, 2, 3, 4}},
	}
	for _, tc := range cases {
		if got := h.Last(tc.n); !slices.Equal(got, tc.want) {
			t.Fatalf("Last(%d): got %v want %v", tc.n, got, tc.want)
		}
	}
	if got := h.Last(0); len(got) != 0 {
		t.Fatalf("Last(0): got %v", got)
	}
}

func TestRangeAndCount(t *testing.T) {
	h := New(0)
	h.AppendAll([]int{1, 2}, Prompt)
	h.Append(3, Generated)
	h.AppendAll([]int{9, 9, 9}, Anchor)

	if got := h.Range(2, 4); !slices.Equal(got, []int{3, 9}) {
		t.Fatalf("Range(2,4): got %v", got)
	}
	if got := h.Range(5, 2); got != nil {
		t.Fatalf("inverted range: got %v", got)
	}
	if h.Count(Prompt) != 2 || h.Count(Generated) != 1 || h.Count(Anchor) != 3 {
		t.Fatalf("counts: prompt=%d generated=%d anchor=%d", h.Count(Prompt), h.Count(Generated), h.Count(Anchor))
	}
	if Anchor.String() != "anchor" {
		t.Fatalf("kind name: %q", Anchor.String())
	}
}

func TestTokensIsACopy(t *testing.T) {
	h := New(0)
	h.Append(1, Generated)
	toks := h.Tokens()
	toks[0] = 42
	if e, _ := h.At(0); e.Token != 1 {
		t.Fatalf("history aliased by Tokens: %d", e.Token)
	}
}
