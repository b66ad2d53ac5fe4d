package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/samcharles93/nexus/internal/inference"
	"github.com/samcharles93/nexus/internal/version"
)

// runReport is the --report document.
type runReport struct {
	*inference.Result
	Diagnostic string                  `json:"diagnostic,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Tokenizer  string                  `json:"tokenizer"`
	Config     inference.SessionConfig `json:"config"`
	Text       string                  `json:"text"`
	Version    string                  `json:"version"`
}

func newRunReport(res *inference.Result, err error, opts runOptions, text string) runReport {
	r := runReport{
		Result:     res,
		Diagnostic: res.State.Diagnostic(),
		Tokenizer:  opts.engine.tokenizer,
		Config:     opts.session,
		Text:       text,
		Version:    version.String(),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func writeReport(path string, r runReport) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
