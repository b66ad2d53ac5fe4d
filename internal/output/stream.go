package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

type StreamMode string

const (
	StreamInstant    StreamMode = "instant"
	StreamSmooth     StreamMode = "smooth"
	StreamTypewriter StreamMode = "typewriter"
	StreamQuiet      StreamMode = "quiet"
)

// ParseStreamMode validates a --stream-mode value.
func ParseStreamMode(s string) (StreamMode, error) {
	switch m := StreamMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return StreamInstant, nil
	case StreamInstant, StreamSmooth, StreamTypewriter, StreamQuiet:
		return m, nil
	default:
		return "", fmt.Errorf("unknown stream mode %q (want instant, smooth, typewriter or quiet)", s)
	}
}

// StreamWriter renders fragments to a terminal-like writer.
//
// instant flushes every fragment, smooth batches fragments and flushes on a
// short timer, typewriter flushes rune by rune and quiet holds everything
// until Close. Raw mode escapes control characters.
type StreamWriter struct {
	mode   StreamMode
	output *bufio.Writer

	mu            sync.Mutex
	batch         strings.Builder
	lastFlush     time.Time
	flushInterval time.Duration
	batchSize     int
	err           error

	accumulator strings.Builder
	rawOutput   bool

	stop chan struct{}
	done chan struct{}
}

// NewStreamWriter wraps w. Smooth mode starts a background flusher that
// Close stops.
func NewStreamWriter(w io.Writer, mode StreamMode, rawOutput bool) *StreamWriter {
	sw := &StreamWriter{
		mode:          mode,
		output:        bufio.NewWriterSize(w, 4096),
		flushInterval: 50 * time.Millisecond,
		batchSize:     5,
		lastFlush:     time.Now(),
		rawOutput:     rawOutput,
	}
	if mode == StreamSmooth {
		sw.stop = make(chan struct{})
		sw.done = make(chan struct{})
		go sw.backgroundFlusher()
	}
	return sw
}

// Write handles one decoded fragment. It returns the first write error seen,
// including one hit by the background flusher.
func (w *StreamWriter) Write(fragment string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}

	w.accumulator.WriteString(fragment)
	switch w.mode {
	case StreamSmooth:
		w.batch.WriteString(fragment)
		tokenCount := strings.Count(w.batch.String(), " ") + 1
		if tokenCount >= w.batchSize || time.Since(w.lastFlush) >= w.flushInterval {
			w.flushBatch()
		}
	case StreamTypewriter:
		for _, r := range fragment {
			if w.rawOutput {
				_, _ = w.output.WriteString(escapeRawOutputRune(r))
			} else {
				_, _ = w.output.WriteRune(r)
			}
			if err := w.output.Flush(); err != nil {
				w.err = err
				break
			}
		}
	case StreamQuiet:
	default:
		w.writeText(fragment)
		w.setErr(w.output.Flush())
	}
	return w.err
}

// Text returns everything written so far.
func (w *StreamWriter) Text() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.accumulator.String()
}

// Close stops the flusher and writes whatever is still buffered. In quiet
// mode this is the whole output.
func (w *StreamWriter) Close() error {
	if w == nil {
		return nil
	}
	if w.stop != nil {
		close(w.stop)
		<-w.done
		w.stop = nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.mode {
	case StreamQuiet:
		w.writeText(w.accumulator.String())
	case StreamSmooth:
		w.flushBatch()
	}
	w.setErr(w.output.Flush())
	return w.err
}

func (w *StreamWriter) writeText(text string) {
	if w.rawOutput {
		text = escapeRawOutput(text)
	}
	_, _ = w.output.WriteString(text)
}

func (w *StreamWriter) setErr(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// flushBatch writes the pending batch. Callers hold w.mu.
func (w *StreamWriter) flushBatch() {
	if w.batch.Len() == 0 {
		return
	}
	w.writeText(w.batch.String())
	w.setErr(w.output.Flush())
	w.batch.Reset()
	w.lastFlush = time.Now()
}

func (w *StreamWriter) backgroundFlusher() {
	defer close(w.done)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.mu.Lock()
			if time.Since(w.lastFlush) >= w.flushInterval {
				w.flushBatch()
			}
			w.mu.Unlock()
		}
	}
}

func escapeRawOutput(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteString(escapeRawOutputRune(r))
	}
	return b.String()
}

func escapeRawOutputRune(r rune) string {
	switch r {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	case '\\':
		return `\\`
	default:
		if strconv.IsPrint(r) {
			return string(r)
		}
		return fmt.Sprintf(`\u%04x`, r)
	}
}
