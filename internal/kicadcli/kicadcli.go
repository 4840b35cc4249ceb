// Package kicadcli runs KiCad's command-line tool for symbol library
// conversion and format upgrades.
package kicadcli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hpungsan/partbridge/internal/errors"
)

// ToolName is the executable name looked up on PATH.
const ToolName = "kicad-cli"

// EnvPath overrides discovery when no explicit path is configured.
const EnvPath = "PARTBRIDGE_KICAD_CLI"

// CLI is a resolved kicad-cli binary. The zero value and a CLI with an empty
// path are unavailable.
type CLI struct {
	path string
}

// New wraps a known binary path without discovery.
func New(path string) *CLI {
	return &CLI{path: path}
}

// Discover resolves kicad-cli once, in order: the explicit value, the
// PARTBRIDGE_KICAD_CLI environment variable, PATH, then the platform's
// default install locations. The first executable file wins.
func Discover(explicit string) *CLI {
	candidates := []string{explicit, os.Getenv(EnvPath)}
	if p, err := exec.LookPath(ToolName); err == nil {
		candidates = append(candidates, p)
	}
	candidates = append(candidates, defaultLocations(runtime.GOOS)...)

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c != "" && isExecutable(c) {
			return &CLI{path: c}
		}
	}
	return &CLI{}
}

// Path returns the resolved binary, or "" when unavailable.
func (c *CLI) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Available reports whether a binary was resolved.
func (c *CLI) Available() bool {
	return c.Path() != ""
}

// Convert upgrades a legacy .lib file at in to a .kicad_sym file at out.
func (c *CLI) Convert(ctx context.Context, in, out string) error {
	if err := c.run(ctx, "sym", "upgrade", in, "-o", out); err != nil {
		return err
	}
	if _, err := os.Stat(out); err != nil {
		return errors.NewConversionFailed(ToolName, fmt.Sprintf("did not produce output file: %s", out))
	}
	return nil
}

// Upgrade rewrites the symbol library at path in the current format, in place.
func (c *CLI) Upgrade(ctx context.Context, path string) error {
	return c.run(ctx, "sym", "upgrade", path, "--force")
}

func (c *CLI) run(ctx context.Context, args ...string) error {
	if !c.Available() {
		return errors.NewToolUnavailable(ToolName)
	}

	cmd := exec.CommandContext(ctx, c.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return errors.NewCancelled(ToolName)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return errors.NewConversionFailed(ToolName, msg)
	}
	return nil
}

func defaultLocations(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"/Applications/KiCad/KiCad.app/Contents/MacOS/kicad-cli"}
	case "windows":
		base := os.Getenv("ProgramFiles")
		if base == "" {
			base = `C:\Program Files`
		}
		var out []string
		for _, ver := range []string{"9.0", "8.0", "7.0"} {
			out = append(out, filepath.Join(base, "KiCad", ver, "bin", "kicad-cli.exe"))
		}
		return out
	default:
		return []string{"/usr/bin/kicad-cli", "/usr/local/bin/kicad-cli"}
	}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0111 != 0
}
