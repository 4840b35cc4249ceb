package config

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Environment overrides applied after the config file is merged.
const (
	EnvLibraryRoot = "PARTBRIDGE_LIBRARY_ROOT"
	EnvKiCadCLI    = "PARTBRIDGE_KICAD_CLI"
)

// Config is the contents of ~/.partbridge/config.json.
type Config struct {
	// LibraryRoot is the directory holding the merged symbol library, footprint
	// directory, 3D models and components.db. Empty means detect from the KiCad
	// sym-lib-table, falling back to ~/kicad_libs/<alias>.
	LibraryRoot string `json:"library_root,omitempty"`

	// LibraryAlias names the symbol file, the .pretty directory and the
	// library prefix of every Footprint property.
	LibraryAlias string `json:"library_alias,omitempty"`

	// ModelsVar is the KiCad path variable used in footprint 3D model references.
	ModelsVar string `json:"models_var,omitempty"`

	// KiCadCLI is an explicit path to kicad-cli. Takes precedence over PATH lookup.
	KiCadCLI string `json:"kicad_cli,omitempty"`

	// KiCadConfigDir overrides the per-OS KiCad configuration directory.
	KiCadConfigDir string `json:"kicad_config_dir,omitempty"`

	// KiCadVersion selects the versioned KiCad configuration directory (e.g. "9.0").
	KiCadVersion string `json:"kicad_version,omitempty"`

	// AllowedPaths are extra directories an export may be written into, next to
	// ~/.partbridge/exports. Relative entries are ignored.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths lifts the export directory restriction. The .jsonl,
	// traversal and symlink checks still run.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns and DBMaxIdleConns size the components.db pool. Zero keeps
	// the database/sql default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools names MCP tools that are not registered. Unknown names are
	// warned about at startup.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes switches off whole tool groups ("component", "library").
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// WatchPatterns are doublestar globs matched against file names in the watched directory.
	WatchPatterns []string `json:"watch_patterns,omitempty"`

	// WatchDebounceMs is how long the watcher waits after the last event before importing.
	WatchDebounceMs int `json:"watch_debounce_ms,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		LibraryAlias:    "partbridge",
		ModelsVar:       "PARTBRIDGE_3DMODELS",
		KiCadVersion:    "9.0",
		WatchDebounceMs: 750,
	}
}

// DefaultWatchPatterns is used when no watch_patterns are configured.
var DefaultWatchPatterns = []string{"*.zip"}

// DefaultBaseDir returns ~/.partbridge.
func DefaultBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".partbridge"), nil
}

// Load reads baseDir/config.json over DefaultConfig and then applies the
// PARTBRIDGE_* environment overrides. A missing file yields the defaults.
func Load(baseDir string) (*Config, error) {
	file, err := readFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	cfg := Merge(DefaultConfig(), file)
	applyEnv(cfg)
	return cfg, nil
}

// Patterns returns the configured watch patterns or the defaults.
func (c *Config) Patterns() []string {
	if len(c.WatchPatterns) == 0 {
		return DefaultWatchPatterns
	}
	return c.WatchPatterns
}

// readFile decodes path as-is, without defaults. A missing file is an empty Config.
func readFile(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvLibraryRoot)); v != "" {
		cfg.LibraryRoot = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvKiCadCLI)); v != "" {
		cfg.KiCadCLI = v
	}
}

// Merge layers overlay on base. A non-blank overlay scalar wins, booleans are
// ORed, and lists are unioned in order with blanks and duplicates dropped.
func Merge(base, overlay *Config) *Config {
	return &Config{
		LibraryRoot:    cmp.Or(strings.TrimSpace(overlay.LibraryRoot), base.LibraryRoot),
		LibraryAlias:   cmp.Or(strings.TrimSpace(overlay.LibraryAlias), base.LibraryAlias),
		ModelsVar:      cmp.Or(strings.TrimSpace(overlay.ModelsVar), base.ModelsVar),
		KiCadCLI:       cmp.Or(strings.TrimSpace(overlay.KiCadCLI), base.KiCadCLI),
		KiCadConfigDir: cmp.Or(strings.TrimSpace(overlay.KiCadConfigDir), base.KiCadConfigDir),
		KiCadVersion:   cmp.Or(strings.TrimSpace(overlay.KiCadVersion), base.KiCadVersion),

		DBMaxOpenConns:  cmp.Or(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:  cmp.Or(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		WatchDebounceMs: cmp.Or(overlay.WatchDebounceMs, base.WatchDebounceMs),

		AllowUnsafePaths: base.AllowUnsafePaths || overlay.AllowUnsafePaths,

		AllowedPaths:  union(base.AllowedPaths, overlay.AllowedPaths),
		DisabledTools: union(base.DisabledTools, overlay.DisabledTools),
		DisabledTypes: union(base.DisabledTypes, overlay.DisabledTypes),
		WatchPatterns: union(base.WatchPatterns, overlay.WatchPatterns),
	}
}

// union returns the trimmed, non-blank entries of a then b, first occurrence
// kept. It returns nil rather than an empty slice.
func union(a, b []string) []string {
	var out []string
	for _, s := range slices.Concat(a, b) {
		if s = strings.TrimSpace(s); s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
