package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/db"
	"github.com/hpungsan/partbridge/internal/errors"
	"github.com/hpungsan/partbridge/internal/normalize"
)

// ExportSchemaVersion is written into the header line of every export.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: ~/.partbridge/exports/<alias>-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader represents the header line in a JSONL export file.
type ExportHeader struct {
	PartbridgeExport bool   `json:"_partbridge_export"`
	SchemaVersion    string `json:"schema_version"`
	ExportedAt       int64  `json:"exported_at"`
	Library          string `json:"library"`
}

// Export writes every component record to a JSONL file. The first line is an
// ExportHeader; each following line is one component. The file is written
// beside its destination and renamed into place once complete, so an existing
// export at the same path survives a failed run.
func Export(ctx context.Context, lib *Library, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		if exportPath, err = defaultExportPath(lib.Layout.Alias, now); err != nil {
			return nil, err
		}
	}
	if err := ValidateExportPath(exportPath, lib.Config); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	tempPath, err := exportTempPath(exportPath)
	if err != nil {
		return nil, err
	}
	header := ExportHeader{
		PartbridgeExport: true,
		SchemaVersion:    ExportSchemaVersion,
		ExportedAt:       now.Unix(),
		Library:          lib.Layout.Alias,
	}
	count, err := writeExport(ctx, lib, tempPath, header)
	if err != nil {
		os.Remove(tempPath)
		return nil, err
	}
	if err := commitExport(tempPath, exportPath); err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	lib.Logger.Info().Str("path", exportPath).Int("count", count).Msg("library exported")
	return &ExportOutput{Path: exportPath, Count: count, ExportedAt: header.ExportedAt}, nil
}

func exportTempPath(exportPath string) (string, error) {
	var suffix [8]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	return exportPath + "." + hex.EncodeToString(suffix[:]) + ".tmp", nil
}

// writeExport streams the header and every component into a new file at path
// and returns the number of components written.
func writeExport(ctx context.Context, lib *Library, path string, header ExportHeader) (int, error) {
	f, err := createExportFile(path)
	if err != nil {
		return 0, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(header); err != nil {
		return 0, errors.NewInternal(err)
	}
	count := 0
	err = db.StreamAll(ctx, lib.DB, func(c *component.Component) error {
		if err := enc.Encode(component.ToExportRecord(c)); err != nil {
			return errors.NewInternal(err)
		}
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := f.Sync(); err != nil {
		return 0, errors.NewInternal(err)
	}
	// Windows cannot rename an open file.
	if err := f.Close(); err != nil {
		return 0, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	return count, nil
}

// commitExport renames the finished temp file onto dest. A symlink at dest is
// refused since the rename would replace the link rather than its target. On
// Windows an existing dest is reported instead of deleted first.
func commitExport(tempPath, dest string) error {
	if isSymlink(dest) {
		return errors.NewInvalidRequest("export path is a symlink")
	}
	if err := os.Rename(tempPath, dest); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(dest); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	return nil
}

// defaultExportPath returns ~/.partbridge/exports/<alias>-<timestamp>.jsonl.
func defaultExportPath(alias string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := normalize.SanitizeName(alias) + "-" + now.Format("2006-01-02T150405") + ExportExt
	return filepath.Join(dir, name), nil
}
