package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/partbridge/internal/config"
	"github.com/hpungsan/partbridge/internal/errors"
)

// ExportExt is the only extension an export file may carry.
const ExportExt = ".jsonl"

// ValidateExportPath checks an export destination before anything is written.
//
// The file must be a .jsonl path without ".." components that is not itself a
// symlink. Unless allow_unsafe_paths is set, it must sit directly in
// ~/.partbridge/exports or one of allowed_paths, and that directory must not be
// a symlink. Nested paths are refused so no intermediate directory can be
// swapped between this check and the O_NOFOLLOW open in createExportFile.
func ValidateExportPath(path string, cfg *config.Config) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if hasDotDot(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	if filepath.Ext(path) != ExportExt {
		return errors.NewInvalidRequest("path must have " + ExportExt + " extension")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	if isSymlink(abs) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	if cfg != nil && cfg.AllowUnsafePaths {
		return nil
	}

	dirs, err := exportDirs(cfg)
	if err != nil {
		return err
	}
	parent := filepath.Dir(abs)
	if !slices.Contains(dirs, parent) {
		return errors.NewInvalidRequest(fmt.Sprintf(
			"export file must be directly in one of: %s", strings.Join(dirs, ", ")))
	}
	if isSymlink(parent) {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}
	return nil
}

// DefaultExportsDir returns ~/.partbridge/exports.
func DefaultExportsDir() (string, error) {
	base, err := config.DefaultBaseDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(base, "exports"), nil
}

// exportDirs lists the default exports directory plus every absolute
// allowed_paths entry. A symlinked entry is replaced by its target so the
// comparison in ValidateExportPath is against real directories.
func exportDirs(cfg *config.Config) ([]string, error) {
	def, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{def}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if !filepath.IsAbs(p) {
				continue
			}
			p = filepath.Clean(p)
			if isSymlink(p) {
				resolved, err := filepath.EvalSymlinks(p)
				if err != nil {
					return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
				}
				p = resolved
			}
			dirs = append(dirs, p)
		}
	}
	return dirs, nil
}

// hasDotDot reports whether any component of path, split on either slash, is "..".
func hasDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
	return slices.Contains(parts, "..")
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}
