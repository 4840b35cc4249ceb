package extract

import (
	"archive/zip"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/partbridge/internal/errors"
)

// File extensions the extractors look for, lower-case.
var (
	extSymbol = []string{".kicad_sym"}
	extLegacy = []string{".lib"}
	extMod    = []string{".kicad_mod"}
	extStep   = []string{".step", ".stp"}
	extWrl    = []string{".wrl"}
)

// unpack extracts every entry of the archive into destDir. Entries that would
// land outside destDir make the whole archive invalid.
func unpack(archivePath, destDir string) error {
	if _, err := os.Stat(archivePath); err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return errors.NewFileNotFound(archivePath)
		}
		return errors.NewInternal(err)
	}

	absDestDir, err := filepath.Abs(destDir)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("resolve extract dir: %w", err))
	}
	if err := os.MkdirAll(absDestDir, 0755); err != nil {
		return errors.NewInternal(fmt.Errorf("create extract dir: %w", err))
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.NewArchiveCorrupt(archivePath, err)
	}
	defer zr.Close()

	for _, file := range zr.File {
		name := entryName(file.Name)
		destPath := filepath.Join(absDestDir, filepath.FromSlash(name))

		relPath, err := filepath.Rel(absDestDir, destPath)
		if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
			return errors.NewArchiveCorrupt(archivePath, fmt.Errorf("invalid path in archive: %s", file.Name))
		}

		if file.FileInfo().IsDir() || strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return errors.NewInternal(fmt.Errorf("create directory: %w", err))
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return errors.NewInternal(fmt.Errorf("create parent directory: %w", err))
		}
		if err := extractFile(file, destPath); err != nil {
			return errors.NewArchiveCorrupt(archivePath, fmt.Errorf("extract %s: %w", file.Name, err))
		}
	}
	return nil
}

// entryName returns a zip entry name with forward slashes. Some Windows tools
// write backslash separators, which would otherwise unpack as flat file names
// on Unix.
func entryName(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}

func extractFile(file *zip.File, destPath string) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, rc)
	return err
}

// findFiles walks dir and returns files whose extension matches one of exts,
// case-insensitively, in lexical walk order. macOS resource-fork junk is skipped.
func findFiles(dir string, exts []string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if name == "__MACOSX" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, "._") {
			return nil
		}
		lower := strings.ToLower(name)
		for _, ext := range exts {
			if strings.HasSuffix(lower, ext) {
				out = append(out, path)
				break
			}
		}
		return nil
	})
	return out
}

func first(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

// rootDir returns the first directory directly under dir whose name satisfies match.
func rootDir(dir string, match func(name string) bool) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() && match(e.Name()) {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

// stem returns the file name without directory or extension.
func stem(path string) string {
	if path == "" {
		return ""
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
