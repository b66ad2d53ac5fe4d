package guard

import "testing"

func TestBudgetTripsExactlyAtThreshold(t *testing.T) {
	b, err := NewBudget(100, 0.95)
	if err != nil {
		t.Fatalf("new budget: %v", err)
	}
	if b.Threshold() != 95 {
		t.Fatalf("threshold: got %d want 95", b.Threshold())
	}

	for i := 1; i < 95; i++ {
		if b.Consume(1) {
			t.Fatalf("tripped early at %d", i)
		}
	}
	if b.Remaining() != 1 {
		t.Fatalf("remaining: got %d want 1", b.Remaining())
	}
	if !b.Consume(1) {
		t.Fatalf("did not trip at threshold")
	}
	if b.Used() != 95 || b.Remaining() != 0 {
		t.Fatalf("after trip: used=%d remaining=%d", b.Used(), b.Remaining())
	}
}

func TestThresholdRoundsUp(t *testing.T) {
	cases := []struct {
		capacity int
		fraction float64
		want     int
	}{
		{100, 0.95, 95},
		{1024, 0.95, 973},
		{10, 0.01, 1},
		{7, 0.5, 4},
		{64, 1, 64},
	}
	for _, tc := range cases {
		if got := Threshold(tc.capacity, tc.fraction); got != tc.want {
			t.Fatalf("%d x %g: got %d want %d", tc.capacity, tc.fraction, got, tc.want)
		}
	}
}

func TestNewBudgetRejectsBadInput(t *testing.T) {
	for _, f := range []float64{0, -0.5, 1.3} {
		if _, err := NewBudget(100, f); err == nil {
			t.Fatalf("fraction %g: expected error", f)
		}
	}
	if _, err := NewBudget(0, 0.9); err == nil {
		t.Fatalf("zero capacity: expected error")
	}
}

func TestBudgetMultiPositionConsume(t *testing.T) {
	b, err := NewBudget(20, 0.5)
	if err != nil {
		t.Fatalf("new budget: %v", err)
	}
	if b.Consume(4) {
		t.Fatalf("tripped after 4 of 10")
	}
	if !b.Consume(12) {
		t.Fatalf("did not trip after overshoot")
	}
	if b.Used() != 16 {
		t.Fatalf("used: got %d want 16", b.Used())
	}
}
