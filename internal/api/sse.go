package api

import (
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

// SSEWriter frames session events as server-sent events. It doubles as the
// session's output sink, so a failed write surfaces as an output failure.
type SSEWriter struct {
	mu      sync.Mutex
	w       io.Writer
	flusher func()
	index   int
}

func NewSSEWriter(c *echo.Context) (*SSEWriter, error) {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")

	flusher, ok := res.(interface{ Flush() })
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}
	return &SSEWriter{w: res, flusher: flusher.Flush}, nil
}

// Session announces the session before any token.
func (s *SSEWriter) Session(ev SessionEvent) error {
	return s.send("session", ev)
}

// Write implements output.Sink.
func (s *SSEWriter) Write(fragment string) error {
	s.mu.Lock()
	idx := s.index
	s.index++
	s.mu.Unlock()
	return s.send("token", TokenEvent{Index: idx, Text: fragment})
}

// Done sends the terminal event.
func (s *SSEWriter) Done(resp GenerationResponse) error {
	return s.send("done", resp)
}

// Fail sends an error event in place of done.
func (s *SSEWriter) Fail(body ErrorBody) error {
	return s.send("error", map[string]any{"error": body})
}

func (s *SSEWriter) send(event string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher()
	}
	return nil
}
