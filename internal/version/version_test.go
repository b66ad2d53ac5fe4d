package version

import (
	"runtime/debug"
	"testing"
)

func withBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	prev := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	t.Cleanup(func() { readBuildInfo = prev })
}

func withLDFlags(t *testing.T, v, commit, built string) {
	t.Helper()
	pv, pc, pb := Version, Commit, BuildTime
	Version, Commit, BuildTime = v, commit, built
	t.Cleanup(func() { Version, Commit, BuildTime = pv, pc, pb })
}

func TestResolvePrefersLDFlags(t *testing.T) {
	withLDFlags(t, "v1.2.3", "abcdef0123456789", "2026-01-02T03:04:05Z")
	withBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "v9.9.9"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	})

	info := Resolve()
	if info.Version != "v1.2.3" {
		t.Fatalf("version: got %q", info.Version)
	}
	if info.Commit != "abcdef0123456789" {
		t.Fatalf("commit: got %q", info.Commit)
	}
	if got := String(); got != "v1.2.3 (abcdef012345)" {
		t.Fatalf("string: got %q", got)
	}
}

func TestResolveFallsBackToBuildInfo(t *testing.T) {
	withLDFlags(t, "", "", "")
	withBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123abcd"},
			{Key: "vcs.time", Value: "2026-10-19T00:00:00Z"},
		},
	})

	info := Resolve()
	if info.Version != "2026-10-19T00:00:00Z" {
		t.Fatalf("version: got %q", info.Version)
	}
	if info.Commit != "0123abcd" {
		t.Fatalf("commit: got %q", info.Commit)
	}
	if info.GoVersion == "" {
		t.Fatalf("missing go version")
	}
}

func TestResolveWithoutBuildInfo(t *testing.T) {
	withLDFlags(t, "", "", "")
	withBuildInfo(t, nil)

	info := Resolve()
	if info.Version == "" {
		t.Fatalf("missing fallback version")
	}
	if info.Commit != "" {
		t.Fatalf("unexpected commit %q", info.Commit)
	}
	if got := String(); got != info.Version {
		t.Fatalf("string: got %q want %q", got, info.Version)
	}
}
