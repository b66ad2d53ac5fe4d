// Package anchor schedules the periodic re-grounding snippet that is fed
// back into the model during long generations.
package anchor

// DefaultInterval is the number of generated tokens between injections.
const DefaultInterval = 80

// DefaultText is the re-grounding snippet used when none is configured.
const DefaultText = "\n\nRemember: stay on the original topic and keep moving forward.\n\n"

// Scheduler counts generated tokens and hands out the anchor tokens every
// Interval of them. It never assigns positions itself: the caller appends the
// returned tokens to the same history that feeds the engine, which is what
// keeps the two position spaces identical.
type Scheduler struct {
	interval  int
	tokens    []int
	countdown int
	injected  int
}

// New returns a scheduler for tokens, or nil when interval is zero or there is
// nothing to inject. A nil *Scheduler is valid and never fires.
func New(interval int, tokens []int) *Scheduler {
	if interval <= 0 || len(tokens) == 0 {
		return nil
	}
	return &Scheduler{
		interval:  interval,
		tokens:    append([]int(nil), tokens...),
		countdown: interval,
	}
}

// Observe records one generated token. When the interval elapses it returns
// the anchor tokens to inject before the next generated token.
func (s *Scheduler) Observe() ([]int, bool) {
	if s == nil {
		return nil, false
	}
	s.countdown--
	if s.countdown > 0 {
		return nil, false
	}
	s.countdown = s.interval
	s.injected++
	return s.tokens, true
}

// Enabled reports whether the scheduler can ever fire.
func (s *Scheduler) Enabled() bool { return s != nil }

// Len is the number of positions one injection consumes.
func (s *Scheduler) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tokens)
}

// Injected is the number of injections handed out so far.
func (s *Scheduler) Injected() int {
	if s == nil {
		return 0
	}
	return s.injected
}

// Until is the number of generated tokens left before the next injection.
func (s *Scheduler) Until() int {
	if s == nil {
		return -1
	}
	return s.countdown
}
