package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// EncodingCL100kBase is the GPT-4 / GPT-3.5-turbo encoding.
	EncodingCL100kBase = "cl100k_base"
	// EncodingP50kBase is the GPT-3 / Codex encoding.
	EncodingP50kBase = "p50k_base"
	// EncodingR50kBase is the older GPT-3 encoding.
	EncodingR50kBase = "r50k_base"
)

// TikToken wraps pkoukk/tiktoken-go. The BPE ranks are fetched and cached by
// the library on first use.
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken loads the named encoding.
func NewTikToken(name string) (*TikToken, error) {
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", name, err)
	}
	return &TikToken{encoding: enc, name: name}, nil
}

func (t *TikToken) Encode(text string) ([]int, error) {
	return t.encoding.Encode(text, nil, nil), nil
}

func (t *TikToken) Decode(ids []int) (string, error) {
	return t.encoding.Decode(ids), nil
}

// VocabSize includes the special tokens that follow the mergeable ranks.
func (t *TikToken) VocabSize() int {
	switch t.name {
	case EncodingCL100kBase:
		return 100277
	case EncodingP50kBase:
		return 50281
	default:
		return 50257
	}
}

func (t *TikToken) Name() string { return t.name }
