package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nexus/internal/inference"
)

func ptr[T any](v T) *T { return &v }

func TestLoadConfigExplicitPath(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
tokenizer: bytes
context_size: 512
temperature: 0
top_k: 1
disable_anchors: true
loop_strictness: window
stream_mode: smooth
server_address: 0.0.0.0:9000
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Tokenizer != "bytes" || cfg.StreamMode != "smooth" || cfg.ServerAddress != "0.0.0.0:9000" {
		t.Fatalf("unexpected string fields: %+v", cfg)
	}
	if cfg.ContextSize == nil || *cfg.ContextSize != 512 {
		t.Fatalf("context_size not loaded")
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0 {
		t.Fatalf("explicit zero temperature must be kept")
	}
	if cfg.DisableAnchors == nil || !*cfg.DisableAnchors {
		t.Fatalf("disable_anchors not loaded")
	}
	if cfg.TopP != nil {
		t.Fatalf("unset field must stay nil")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("top_k: [1, 2"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadConfigDefaultLocationMayBeMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("missing default config must not fail: %v", err)
	}
	if cfg.ContextSize != nil || cfg.Tokenizer != "" {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestApplyConfigRespectsExplicitFlags(t *testing.T) {
	t.Parallel()
	var (
		sf sessionFlags
		ef engineFlags
		sc inference.SessionConfig
	)
	cfg := Config{
		Tokenizer:      "bytes",
		Temperature:    ptr(0.9),
		TopK:           ptr(int64(5)),
		Seed:           ptr(int64(77)),
		DisableAnchors: ptr(true),
		LoopStrictness: ptr("window"),
	}
	cmd := &cli.Command{
		Name:  "test",
		Flags: append(sf.flags(), ef.flags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			applySessionConfig(c, cfg, &sf)
			applyEngineConfig(c, cfg, &ef)
			sc = sf.sessionConfig()
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"test", "--top-k", "9", "--context-size", "300"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if ef.tokenizer != "bytes" {
		t.Fatalf("tokenizer from config not applied: %q", ef.tokenizer)
	}
	if sc.TopK != 9 {
		t.Fatalf("explicit flag overridden: top_k=%d", sc.TopK)
	}
	if sc.Capacity != 300 {
		t.Fatalf("capacity: got %d", sc.Capacity)
	}
	if sc.Temperature != float32(0.9) {
		t.Fatalf("temperature from config not applied: %g", sc.Temperature)
	}
	if sc.Seed != 77 {
		t.Fatalf("seed from config not applied: %d", sc.Seed)
	}
	if sc.AnchorEnabled {
		t.Fatalf("disable_anchors from config not applied")
	}
	if sc.LoopGuardStrictness != "window" {
		t.Fatalf("strictness from config not applied: %q", sc.LoopGuardStrictness)
	}
	if err := sc.Validate(); err != nil {
		t.Fatalf("merged config invalid: %v", err)
	}
}

func TestSessionFlagDefaultsMatchSessionDefaults(t *testing.T) {
	t.Parallel()
	var sf sessionFlags
	cmd := &cli.Command{
		Name:   "test",
		Flags:  sf.flags(),
		Action: func(context.Context, *cli.Command) error { return nil },
	}
	if err := cmd.Run(context.Background(), []string{"test"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got, want := sf.sessionConfig(), inference.DefaultSessionConfig(); got != want {
		t.Fatalf("flag defaults drifted:\n got %+v\nwant %+v", got, want)
	}
}
