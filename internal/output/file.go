package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// File mirrors fragments into a file. The file is truncated when opened and
// flushed after every fragment so that it survives an abrupt exit.
type File struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

// CreateFile opens path for writing, creating missing parent directories.
func CreateFile(path string) (*File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &File{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func (o *File) Path() string { return o.path }

func (o *File) Write(fragment string) error {
	if _, err := o.w.WriteString(fragment); err != nil {
		return fmt.Errorf("write %s: %w", o.path, err)
	}
	if err := o.w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", o.path, err)
	}
	return nil
}

func (o *File) Close() error {
	if o == nil || o.f == nil {
		return nil
	}
	flushErr := o.w.Flush()
	closeErr := o.f.Close()
	o.f = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
