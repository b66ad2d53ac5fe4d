package logits

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
)

// MirostatConfig configures the mirostat v2 controller.
type MirostatConfig struct {
	// Tau is the target surprise in bits.
	Tau float32
	// Eta is the learning rate applied to the surprise error.
	Eta float32
}

// Mirostat is the adaptive mirostat v2 sampler. It keeps a running ceiling
// mu on token surprise, truncates the distribution to tokens under that
// ceiling and nudges mu after every draw so the realised surprise tracks Tau.
type Mirostat struct {
	tau float64
	eta float64
	mu  float64
	rng *rand.Rand

	last float64
	kept int

	idx  []int
	val  []float32
	prob []float64
}

// NewMirostat returns a controller with mu initialised to 2*Tau.
func NewMirostat(cfg MirostatConfig, rng *rand.Rand) *Mirostat {
	tau := float64(cfg.Tau)
	return &Mirostat{
		tau: tau,
		eta: float64(cfg.Eta),
		mu:  2 * tau,
		rng: rng,
	}
}

// Name implements Strategy.
func (m *Mirostat) Name() string { return "mirostat-v2" }

// Mu returns the current surprise ceiling.
func (m *Mirostat) Mu() float64 { return m.mu }

// LastSurprise returns the surprise, in bits, of the most recent draw.
func (m *Mirostat) LastSurprise() float64 { return m.last }

// Kept returns the size of the truncation set used by the most recent draw.
func (m *Mirostat) Kept() int { return m.kept }

// Sample draws one token and updates mu.
func (m *Mirostat) Sample(logits []float32) int {
	n := len(logits)
	if n == 0 {
		return 0
	}
	if cap(m.idx) < n {
		m.idx = make([]int, n)
		m.val = make([]float32, n)
		m.prob = make([]float64, n)
	}
	idx := m.idx[:n]
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(logits[b], logits[a])
	})
	val := m.val[:n]
	for i, id := range idx {
		val[i] = logits[id]
	}
	prob := m.prob[:n]
	if softmax(prob, val) == 0 {
		m.kept = 1
		m.last = 0
		return idx[0]
	}

	// Surprise grows along the sorted list, so the truncation set is a prefix.
	kept := 1
	for kept < n && -math.Log2(prob[kept]) <= m.mu {
		kept++
	}
	m.kept = kept

	var mass float64
	for _, p := range prob[:kept] {
		mass += p
	}
	i := draw(m.rng, prob[:kept], mass)

	m.last = -math.Log2(prob[i] / mass)
	m.mu -= m.eta * (m.last - m.tau)
	return idx[i]
}
