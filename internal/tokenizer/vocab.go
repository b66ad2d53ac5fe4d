package tokenizer

import (
	_ "embed"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

//go:embed vocab.json
var defaultVocabJSON []byte

// Vocab is a greedy longest-match tokenizer over a fixed list of pieces.
// Text that no piece covers becomes the unknown id, one rune at a time.
type Vocab struct {
	pieces  []string
	encoder map[string]int
	maxLen  int
	unkID   int
}

type vocabFile struct {
	Unk    string   `json:"unk"`
	Pieces []string `json:"pieces"`
}

// DefaultVocab returns the small built-in English vocabulary.
func DefaultVocab() (*Vocab, error) {
	return ParseVocab(defaultVocabJSON)
}

// LoadVocabFile reads a vocabulary JSON file.
func LoadVocabFile(path string) (*Vocab, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	return ParseVocab(raw)
}

// ParseVocab accepts either an object {"unk": "...", "pieces": [...]} or a
// bare array of pieces. The unknown piece is appended when it is missing.
func ParseVocab(raw []byte) (*Vocab, error) {
	var f vocabFile
	if err := json.Unmarshal(raw, &f); err != nil {
		var list []string
		if err2 := json.Unmarshal(raw, &list); err2 != nil {
			return nil, fmt.Errorf("parse vocab json: %w", err)
		}
		f.Pieces = list
	}
	if f.Unk == "" {
		f.Unk = "<unk>"
	}

	v := &Vocab{encoder: make(map[string]int, len(f.Pieces)+1)}
	for _, p := range f.Pieces {
		if p == "" {
			return nil, fmt.Errorf("vocab contains an empty piece")
		}
		if _, dup := v.encoder[p]; dup {
			return nil, fmt.Errorf("vocab piece %q listed twice", p)
		}
		v.encoder[p] = len(v.pieces)
		v.pieces = append(v.pieces, p)
		v.maxLen = max(v.maxLen, len(p))
	}
	if id, ok := v.encoder[f.Unk]; ok {
		v.unkID = id
	} else {
		v.unkID = len(v.pieces)
		v.pieces = append(v.pieces, f.Unk)
	}
	if len(v.pieces) == 1 {
		return nil, fmt.Errorf("vocab has no pieces")
	}
	return v, nil
}

func (v *Vocab) Encode(text string) ([]int, error) {
	ids := make([]int, 0, len(text)/2+1)
	for i := 0; i < len(text); {
		n := min(v.maxLen, len(text)-i)
		matched := false
		for ; n > 0; n-- {
			if id, ok := v.encoder[text[i:i+n]]; ok && id != v.unkID {
				ids = append(ids, id)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			_, size := utf8.DecodeRuneInString(text[i:])
			ids = append(ids, v.unkID)
			i += size
		}
	}
	return ids, nil
}

func (v *Vocab) Decode(ids []int) (string, error) {
	var size int
	for _, id := range ids {
		if id < 0 || id >= len(v.pieces) {
			return "", fmt.Errorf("vocab tokenizer: id %d out of range", id)
		}
		size += len(v.pieces[id])
	}
	buf := make([]byte, 0, size)
	for _, id := range ids {
		buf = append(buf, v.pieces[id]...)
	}
	return string(buf), nil
}

func (v *Vocab) VocabSize() int { return len(v.pieces) }

// UnknownID is the id emitted for uncovered text.
func (v *Vocab) UnknownID() int { return v.unkID }

// Piece returns the text of id.
func (v *Vocab) Piece(id int) string {
	if id < 0 || id >= len(v.pieces) {
		return ""
	}
	return v.pieces[id]
}
