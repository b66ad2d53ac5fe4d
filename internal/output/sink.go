// Package output delivers decoded text fragments to the terminal and to
// optional mirrors.
package output

import (
	"errors"
	"sync"
)

// Sink receives decoded fragments in emission order. A returned error ends
// the session.
type Sink interface {
	Write(fragment string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(fragment string) error

func (f SinkFunc) Write(fragment string) error { return f(fragment) }

// Discard accepts and drops every fragment.
var Discard Sink = SinkFunc(func(string) error { return nil })

// Tee writes every fragment to all sinks in order and stops at the first
// failure.
func Tee(sinks ...Sink) Sink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return tee(out)
}

type tee []Sink

func (t tee) Write(fragment string) error {
	for _, s := range t {
		if err := s.Write(fragment); err != nil {
			return err
		}
	}
	return nil
}

// Collector keeps every fragment in memory. It is safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	parts []string
	size  int
}

func (c *Collector) Write(fragment string) error {
	c.mu.Lock()
	c.parts = append(c.parts, fragment)
	c.size += len(fragment)
	c.mu.Unlock()
	return nil
}

// Fragments returns a copy of the fragments received so far.
func (c *Collector) Fragments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.parts...)
}

// String joins everything received so far.
func (c *Collector) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, 0, c.size)
	for _, p := range c.parts {
		buf = append(buf, p...)
	}
	return string(buf)
}

// CloseAll closes every non-nil closer and joins their errors.
func CloseAll(closers ...interface{ Close() error }) error {
	var errs []error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
