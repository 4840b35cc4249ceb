package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/db"
	"github.com/hpungsan/partbridge/internal/errors"
	"github.com/hpungsan/partbridge/internal/kicad"
	"github.com/hpungsan/partbridge/internal/normalize"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID  string
	MPN string
	// KeepFiles removes only the record, leaving library files in place.
	KeepFiles bool
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted       bool     `json:"deleted"`
	ID            string   `json:"id"`
	MPN           string   `json:"mpn"`
	SymbolRemoved bool     `json:"symbol_removed"`
	RemovedFiles  []string `json:"removed_files"`
}

// Delete removes a component record and, unless KeepFiles is set, its symbol
// entry, footprint file and copied 3D models.
func Delete(ctx context.Context, lib *Library, input DeleteInput) (*DeleteOutput, error) {
	lib.writeMu.Lock()
	defer lib.writeMu.Unlock()

	c, err := lookup(lib, input.ID, input.MPN)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("delete")
	}

	out := &DeleteOutput{ID: c.ID, MPN: c.MPN, RemovedFiles: []string{}}

	if !input.KeepFiles {
		if c.SymbolName != nil {
			removed, err := removeSymbol(lib.Layout.SymbolLibPath(), *c.SymbolName)
			if err != nil {
				return nil, err
			}
			out.SymbolRemoved = removed
		}
		if c.FootprintName != nil {
			fp := filepath.Join(lib.Layout.FootprintDir(), *c.FootprintName+normalize.FootprintExt)
			removed, err := removeIfExists(fp)
			if err != nil {
				return nil, err
			}
			if removed {
				out.RemovedFiles = append(out.RemovedFiles, fp)
			}
		}
		models, err := removeModels(lib.Layout.ModelsDir(), c.MPN)
		if err != nil {
			return nil, err
		}
		out.RemovedFiles = append(out.RemovedFiles, models...)
	}

	if err := db.Delete(lib.DB, c.ID); err != nil {
		return nil, err
	}
	out.Deleted = true

	if err := db.LogImport(lib.DB, &component.LogEntry{ComponentID: &c.ID, Action: component.ActionDelete}); err != nil {
		lib.Logger.Warn().Err(err).Str("mpn", c.MPN).Msg("failed to record delete")
	}
	lib.Logger.Info().Str("mpn", c.MPN).Int("files", len(out.RemovedFiles)).Msg("component deleted")
	return out, nil
}

func removeSymbol(libPath, name string) (bool, error) {
	symLib, err := kicad.LoadSymbolLib(libPath)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, errors.NewInternal(fmt.Errorf("read symbol library: %w", err))
	}
	if symLib.Remove(name) == 0 {
		return false, nil
	}
	if err := symLib.Save(libPath); err != nil {
		return false, errors.NewInternal(fmt.Errorf("write symbol library: %w", err))
	}
	return true, nil
}

func removeIfExists(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// removeModels deletes <dir>/<mpn>.<ext> for every extension.
func removeModels(dir, mpn string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.NewInternal(err)
	}
	var removed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.TrimSuffix(name, filepath.Ext(name)) != mpn {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			return removed, errors.NewInternal(err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
