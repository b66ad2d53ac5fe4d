package output

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func mustWrite(t *testing.T, s Sink, fragment string) {
	t.Helper()
	if err := s.Write(fragment); err != nil {
		t.Fatalf("write %q: %v", fragment, err)
	}
}

func TestStreamWriterInstant(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf, StreamInstant, false)
	mustWrite(t, w, "hello")
	if buf.String() != "hello" {
		t.Fatalf("instant mode buffered: %q", buf.String())
	}
	mustWrite(t, w, " world")
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if buf.String() != "hello world" || w.Text() != "hello world" {
		t.Fatalf("got %q / %q", buf.String(), w.Text())
	}
}

func TestStreamWriterQuietHoldsUntilClose(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf, StreamQuiet, false)
	mustWrite(t, w, "a")
	mustWrite(t, w, "b")
	if buf.Len() != 0 {
		t.Fatalf("quiet mode wrote early: %q", buf.String())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if buf.String() != "ab" {
		t.Fatalf("got %q want %q", buf.String(), "ab")
	}
}

func TestStreamWriterSmoothFlushesOnClose(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf, StreamSmooth, false)
	for _, frag := range []string{"one", " two", " three"} {
		mustWrite(t, w, frag)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if buf.String() != "one two three" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestStreamWriterRaw(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf, StreamTypewriter, true)
	mustWrite(t, w, "a\nb\t\\")
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if buf.String() != `a\nb\t\\` {
		t.Fatalf("raw output: got %q", buf.String())
	}
	if w.Text() != "a\nb\t\\" {
		t.Fatalf("text must stay unescaped: got %q", w.Text())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestStreamWriterReportsWriteErrors(t *testing.T) {
	w := NewStreamWriter(failingWriter{}, StreamInstant, false)
	err := w.Write("x")
	if err == nil {
		t.Fatalf("expected write error")
	}
	if again := w.Write("y"); !errors.Is(again, err) {
		t.Fatalf("later writes must repeat the first error, got %v", again)
	}
}

func TestParseStreamMode(t *testing.T) {
	m, err := ParseStreamMode("")
	if err != nil || m != StreamInstant {
		t.Fatalf("empty: got %v, %v", m, err)
	}
	m, err = ParseStreamMode("Smooth")
	if err != nil || m != StreamSmooth {
		t.Fatalf("Smooth: got %v, %v", m, err)
	}
	if _, err := ParseStreamMode("loud"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestFileMirrorCreatesParentsAndTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.txt")

	f, err := CreateFile(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mustWrite(t, f, "first run, long text")
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err = CreateFile(path)
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	mustWrite(t, f, "second")
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// Fragments are flushed as they arrive.
	if string(got) != "second" {
		t.Fatalf("mirror content: got %q", got)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestTeeStopsAtFirstFailure(t *testing.T) {
	var first, last Collector
	boom := errors.New("boom")
	sink := Tee(&first, nil, SinkFunc(func(string) error { return boom }), &last)

	mustWrite(t, Tee(&first), "solo")
	if err := sink.Write("x"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !slices.Equal(first.Fragments(), []string{"solo", "x"}) {
		t.Fatalf("first sink: %v", first.Fragments())
	}
	if len(last.Fragments()) != 0 {
		t.Fatalf("sink after failure was written: %v", last.Fragments())
	}
	if first.String() != "solox" {
		t.Fatalf("collector text: %q", first.String())
	}
}

func TestProbeDisplay(t *testing.T) {
	present := map[string]bool{"/dev/fb1": true}
	stat := func(p string) (fs.FileInfo, error) {
		if present[p] {
			return nil, nil
		}
		return nil, fs.ErrNotExist
	}
	dev, ok := probeDisplay(DisplayDevices, stat)
	if !ok || dev != "/dev/fb1" {
		t.Fatalf("probe: got %q, %v", dev, ok)
	}
	if _, ok := probeDisplay([]string{"/dev/spidev0.0"}, stat); ok {
		t.Fatalf("absent device reported present")
	}
}

func TestIsTerminalRegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "tty")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	if IsTerminal(f) || IsTerminal(nil) {
		t.Fatalf("regular file or nil reported as terminal")
	}
	if w := TerminalWidth(f); w != 0 {
		t.Fatalf("width of regular file: %d", w)
	}
}

func TestCloseAllSkipsNilFile(t *testing.T) {
	var nilFile *File
	if err := CloseAll(nilFile); err != nil {
		t.Fatalf("close nil file: %v", err)
	}
}
