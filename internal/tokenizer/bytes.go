package tokenizer

import "fmt"

// Bytes maps every byte of UTF-8 text to its own id.
type Bytes struct{}

func (Bytes) Encode(text string) ([]int, error) {
	ids := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		ids[i] = int(text[i])
	}
	return ids, nil
}

func (Bytes) Decode(ids []int) (string, error) {
	buf := make([]byte, len(ids))
	for i, id := range ids {
		if id < 0 || id > 0xff {
			return "", fmt.Errorf("byte tokenizer: id %d out of range", id)
		}
		buf[i] = byte(id)
	}
	return string(buf), nil
}

func (Bytes) VocabSize() int { return 256 }
