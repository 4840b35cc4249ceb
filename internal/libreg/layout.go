// Package libreg owns the on-disk library layout and its registration in the
// host tool's configuration: the symbol and footprint library tables and the
// 3D-model path variable.
package libreg

import (
	"fmt"
	"os"
	"path/filepath"
)

// ModelsDirName is the 3D-model directory under the library root.
const ModelsDirName = "3dmodels"

// DBFileName is the metadata store file under the library root.
const DBFileName = "components.db"

// Layout resolves the paths of one library root.
type Layout struct {
	Root  string
	Alias string
}

// SymbolLibPath returns <root>/<alias>.kicad_sym.
func (l Layout) SymbolLibPath() string {
	return filepath.Join(l.Root, l.Alias+".kicad_sym")
}

// FootprintDir returns <root>/<alias>.pretty.
func (l Layout) FootprintDir() string {
	return filepath.Join(l.Root, l.Alias+".pretty")
}

// ModelsDir returns <root>/3dmodels.
func (l Layout) ModelsDir() string {
	return filepath.Join(l.Root, ModelsDirName)
}

// DBPath returns <root>/components.db.
func (l Layout) DBPath() string {
	return filepath.Join(l.Root, DBFileName)
}

// EnsureDirs creates the root, footprint and model directories.
func (l Layout) EnsureDirs() error {
	if l.Root == "" {
		return fmt.Errorf("library root is empty")
	}
	for _, dir := range []string{l.Root, l.FootprintDir(), l.ModelsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
