package kicadcli

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/hpungsan/partbridge/internal/errors"
)

// fakeTool writes a shell script standing in for kicad-cli.
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a unix shell")
	}
	path := filepath.Join(t.TempDir(), "kicad-cli")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}
	return path
}

func TestDiscover_ExplicitWins(t *testing.T) {
	explicit := fakeTool(t, "exit 0\n")
	t.Setenv(EnvPath, fakeTool(t, "exit 0\n"))

	c := Discover(explicit)
	if c.Path() != explicit {
		t.Errorf("Path() = %q, want explicit %q", c.Path(), explicit)
	}
}

func TestDiscover_EnvBeforePath(t *testing.T) {
	env := fakeTool(t, "exit 0\n")
	t.Setenv(EnvPath, env)

	c := Discover("")
	if c.Path() != env {
		t.Errorf("Path() = %q, want env %q", c.Path(), env)
	}
}

func TestDiscover_SkipsNonExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	dir := t.TempDir()
	plain := filepath.Join(dir, "kicad-cli")
	if err := os.WriteFile(plain, []byte("not executable"), 0644); err != nil {
		t.Fatal(err)
	}
	env := fakeTool(t, "exit 0\n")
	t.Setenv(EnvPath, env)

	if got := Discover(plain).Path(); got != env {
		t.Errorf("Path() = %q, want fallback to env %q", got, env)
	}
}

func TestUnavailable(t *testing.T) {
	var c *CLI
	if c.Available() {
		t.Fatal("nil CLI should be unavailable")
	}
	err := New("").Upgrade(context.Background(), "/tmp/x.kicad_sym")
	if !errors.Is(err, errors.ErrToolUnavailable) {
		t.Fatalf("Upgrade() error = %v, want TOOL_UNAVAILABLE", err)
	}
}

func TestConvert_Success(t *testing.T) {
	// sym upgrade <in> -o <out>
	tool := fakeTool(t, `cp "$3" "$5"`+"\n")
	dir := t.TempDir()
	in := filepath.Join(dir, "part.lib")
	out := filepath.Join(dir, "part.kicad_sym")
	if err := os.WriteFile(in, []byte("(kicad_symbol_lib)"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := New(tool).Convert(context.Background(), in, out); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestConvert_NoOutput(t *testing.T) {
	tool := fakeTool(t, "exit 0\n")
	dir := t.TempDir()
	err := New(tool).Convert(context.Background(), filepath.Join(dir, "a.lib"), filepath.Join(dir, "a.kicad_sym"))
	if !errors.Is(err, errors.ErrConversionFailed) {
		t.Fatalf("Convert() error = %v, want CONVERSION_FAILED", err)
	}
}

func TestUpgrade_FailureCarriesStderr(t *testing.T) {
	tool := fakeTool(t, "echo 'Failed to load library' >&2\nexit 3\n")
	err := New(tool).Upgrade(context.Background(), "/tmp/x.kicad_sym")
	if !errors.Is(err, errors.ErrConversionFailed) {
		t.Fatalf("Upgrade() error = %v, want CONVERSION_FAILED", err)
	}
	if !strings.Contains(err.Error(), "Failed to load library") {
		t.Errorf("error %q does not carry stderr", err.Error())
	}
}

func TestUpgrade_PassesForce(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "args")
	tool := fakeTool(t, `echo "$@" > "`+marker+`"`+"\n")

	if err := New(tool).Upgrade(context.Background(), "/lib/x.kicad_sym"); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	got, _ := os.ReadFile(marker)
	if strings.TrimSpace(string(got)) != "sym upgrade /lib/x.kicad_sym --force" {
		t.Errorf("args = %q", got)
	}
}

func TestRun_Cancelled(t *testing.T) {
	tool := fakeTool(t, "sleep 5\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(tool).Upgrade(ctx, "/tmp/x.kicad_sym")
	if !errors.Is(err, errors.ErrCancelled) {
		t.Fatalf("Upgrade() error = %v, want CANCELLED", err)
	}
}

func TestDefaultLocations(t *testing.T) {
	if got := defaultLocations("darwin"); len(got) != 1 || !strings.HasSuffix(got[0], "MacOS/kicad-cli") {
		t.Errorf("darwin = %v", got)
	}
	if got := defaultLocations("linux"); got[0] != "/usr/bin/kicad-cli" {
		t.Errorf("linux = %v", got)
	}
	if got := defaultLocations("windows"); !strings.HasSuffix(got[0], "kicad-cli.exe") {
		t.Errorf("windows = %v", got)
	}
}
