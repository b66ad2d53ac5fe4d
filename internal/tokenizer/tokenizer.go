// Package tokenizer converts between text and token ids. Sessions only see the
// Tokenizer interface; the implementations here cover a byte-level codec, a
// greedy vocabulary codec and OpenAI's BPE encodings.
package tokenizer

import (
	"fmt"
	"strings"
)

// Tokenizer defines the minimal interface used by a generation session.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	// VocabSize is the number of distinct ids the tokenizer can produce.
	VocabSize() int
}

// Open resolves a tokenizer spec of the form "bytes", "vocab",
// "vocab:<path.json>" or "tiktoken:<encoding>".
func Open(spec string) (Tokenizer, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(spec), ":")
	switch strings.ToLower(kind) {
	case "", "bytes":
		return Bytes{}, nil
	case "vocab":
		if arg == "" {
			return DefaultVocab()
		}
		return LoadVocabFile(arg)
	case "tiktoken":
		if arg == "" {
			arg = EncodingCL100kBase
		}
		return NewTikToken(arg)
	default:
		return nil, fmt.Errorf("unknown tokenizer %q (want bytes, vocab[:path] or tiktoken[:encoding])", spec)
	}
}
