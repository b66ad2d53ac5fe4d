package guard

import (
	"fmt"
	"math"
)

// DefaultOverflowFraction is the share of the context a session may fill.
const DefaultOverflowFraction = 0.95

// Budget tracks positions consumed against the context capacity.
type Budget struct {
	capacity  int
	threshold int
	used      int
}

// NewBudget returns a budget that trips once ceil(capacity*fraction)
// positions are in use.
func NewBudget(capacity int, fraction float64) (*Budget, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	if !(fraction > 0 && fraction <= 1) {
		return nil, fmt.Errorf("overflow fraction must be in (0, 1], got %g", fraction)
	}
	return &Budget{
		capacity:  capacity,
		threshold: Threshold(capacity, fraction),
	}, nil
}

// Threshold returns ceil(capacity*fraction), ignoring floating point noise
// in the last few bits of the product.
func Threshold(capacity int, fraction float64) int {
	t := int(math.Ceil(float64(capacity)*fraction - 1e-9))
	return max(t, 1)
}

// Consume records n more positions and reports whether the budget is spent.
func (b *Budget) Consume(n int) bool {
	b.used += n
	return b.Exhausted()
}

// Exhausted reports whether the threshold has been reached.
func (b *Budget) Exhausted() bool { return b.used >= b.threshold }

func (b *Budget) Used() int      { return b.used }
func (b *Budget) Capacity() int  { return b.capacity }
func (b *Budget) Threshold() int { return b.threshold }

// Remaining is the number of positions left before the threshold.
func (b *Budget) Remaining() int { return max(b.threshold-b.used, 0) }
