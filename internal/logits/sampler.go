package logits

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
)

// ChainConfig configures the fixed sampling pipeline.
type ChainConfig struct {
	// Temperature divides the logits. Zero selects greedy decoding.
	Temperature float32
	// TopK keeps the k highest logits. Zero keeps all of them.
	TopK int
	// TopP keeps the smallest prefix of the sorted distribution whose mass
	// reaches TopP. One disables the filter.
	TopP float32
}

// Chain is the temperature → top-k → top-p → draw pipeline.
type Chain struct {
	cfg    ChainConfig
	rng    *rand.Rand
	greedy bool

	topIdx []int
	topVal []float32
	prob   []float64
}

// NewChain returns a chain drawing from rng. Out-of-range values fall back to
// the disabled setting of each stage; SessionConfig.Validate rejects them
// before a chain is ever built.
func NewChain(cfg ChainConfig, rng *rand.Rand) *Chain {
	if cfg.TopK < 0 {
		cfg.TopK = 0
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = 1
	}
	return &Chain{
		cfg:    cfg,
		rng:    rng,
		greedy: cfg.Temperature <= 0,
	}
}

// Name implements Strategy.
func (c *Chain) Name() string {
	if c.greedy {
		return "greedy"
	}
	return "chain"
}

// Sample draws a single index from logits. The process is:
//
//  1. If the temperature is zero the index of the largest logit is returned
//     and no random value is consumed.
//  2. The logits are scaled by the inverse temperature and shortlisted to
//     the top k entries, ordered from largest to smallest.
//  3. A softmax over the shortlist is computed with the maximum subtracted
//     for numerical stability.
//  4. If TopP < 1 the shortlist is cut once the cumulative probability
//     reaches TopP.
//  5. A value drawn from [0, mass) selects an index from the cut list, which
//     renormalises it implicitly.
func (c *Chain) Sample(logits []float32) int {
	if len(logits) == 0 {
		return 0
	}
	if c.greedy {
		return argmax(logits)
	}

	invTemp := 1 / c.cfg.Temperature
	topIdx, topVal := c.shortlist(logits, c.cfg.TopK, invTemp)

	if cap(c.prob) < len(topVal) {
		c.prob = make([]float64, len(topVal))
	}
	prob := c.prob[:len(topVal)]
	if softmax(prob, topVal) == 0 {
		return topIdx[0]
	}

	cut := len(prob)
	mass := 1.0
	if c.cfg.TopP < 1 {
		var cum float64
		for i := range prob {
			cum += prob[i]
			if cum >= float64(c.cfg.TopP) {
				cut = i + 1
				break
			}
		}
		mass = 0
		for _, p := range prob[:cut] {
			mass += p
		}
	}

	return topIdx[draw(c.rng, prob[:cut], mass)]
}

// shortlist returns the indices and scaled values of the k largest logits,
// largest first. Equal values keep their vocabulary order. k <= 0 or k >= len
// sorts the whole vocabulary.
func (c *Chain) shortlist(logits []float32, k int, invTemp float32) ([]int, []float32) {
	n := len(logits)
	if k <= 0 || k >= n {
		if cap(c.topIdx) < n {
			c.topIdx = make([]int, n)
			c.topVal = make([]float32, n)
		}
		idx := c.topIdx[:n]
		for i := range idx {
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			return cmp.Compare(logits[b], logits[a])
		})
		val := c.topVal[:n]
		for i, id := range idx {
			val[i] = logits[id] * invTemp
		}
		return idx, val
	}

	if cap(c.topIdx) < k+1 {
		c.topIdx = make([]int, 0, k+1)
		c.topVal = make([]float32, 0, k+1)
	}
	topIdx := c.topIdx[:0]
	topVal := c.topVal[:0]

	for i, l := range logits {
		v := l * invTemp

		pos := len(topVal)
		for pos > 0 && topVal[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}

		topIdx = append(topIdx, 0)
		topVal = append(topVal, 0)
		copy(topIdx[pos+1:], topIdx[pos:])
		copy(topVal[pos+1:], topVal[pos:])
		topIdx[pos] = i
		topVal[pos] = v

		if len(topVal) > k {
			topIdx = topIdx[:k]
			topVal = topVal[:k]
		}
	}
	c.topIdx = topIdx
	c.topVal = topVal
	return topIdx, topVal
}

// argmax returns the index of the largest value, the first one on ties.
func argmax(x []float32) int {
	bestI := 0
	bestV := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > bestV {
			bestV = x[i]
			bestI = i
		}
	}
	return bestI
}

// softmax writes exp(v - max) / sum into dst and returns the sum before
// normalisation. -Inf inputs get zero probability.
func softmax(dst []float64, vals []float32) float64 {
	maxv := float32(math.Inf(-1))
	for _, v := range vals {
		if v > maxv {
			maxv = v
		}
	}
	if math.IsInf(float64(maxv), -1) {
		clear(dst)
		return 0
	}
	var sum float64
	for i, v := range vals {
		e := math.Exp(float64(v - maxv))
		dst[i] = e
		sum += e
	}
	if sum == 0 || math.IsNaN(sum) {
		return 0
	}
	inv := 1 / sum
	for i := range dst {
		dst[i] *= inv
	}
	return sum
}

// draw picks an index from prob, whose entries sum to mass.
func draw(rng *rand.Rand, prob []float64, mass float64) int {
	r := rng.Float64() * mass
	var c float64
	for i, p := range prob {
		c += p
		if r < c {
			return i
		}
	}
	return len(prob) - 1
}
