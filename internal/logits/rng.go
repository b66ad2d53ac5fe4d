package logits

import "math/rand/v2"

// NewRNG returns the session random source for seed. The stream value is
// derived from the seed with a golden-ratio mix so nearby seeds do not share
// a PCG stream.
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9E3779B9))
}
