package kicad

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/partbridge/internal/sexpr"
)

// Footprint is a parsed .kicad_mod file. Both the current footprint head and
// the pre-6.0 module head are accepted and preserved on save.
type Footprint struct {
	root *sexpr.Node
}

// ParseFootprint parses the contents of a .kicad_mod file.
func ParseFootprint(data []byte) (*Footprint, error) {
	root, err := sexpr.ParseOne(data)
	if err != nil {
		return nil, err
	}
	switch root.Head() {
	case "footprint", "module":
	default:
		return nil, fmt.Errorf("not a footprint: top-level form is %q", root.Head())
	}
	return &Footprint{root: root}, nil
}

// LoadFootprint reads and parses the footprint at path.
func LoadFootprint(path string) (*Footprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fp, err := ParseFootprint(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return fp, nil
}

// Name returns the footprint name.
func (f *Footprint) Name() string {
	return f.root.Arg(0)
}

// Rename sets the footprint name.
func (f *Footprint) Rename(name string) {
	f.root.SetArg(0, name)
}

// Models returns the 3D model paths referenced by the footprint.
func (f *Footprint) Models() []string {
	nodes := f.root.FindAll("model")
	out := make([]string, len(nodes))
	for i, m := range nodes {
		out[i] = m.Arg(0)
	}
	return out
}

// SetModel replaces all model references with a single one pointing at path.
// Placement of the first existing reference is kept.
func (f *Footprint) SetModel(path string) {
	models := f.root.FindAll("model")
	if len(models) == 0 {
		f.root.Append(sexpr.Form("model", sexpr.String(path),
			sexpr.Form("offset", xyz("0", "0", "0")),
			sexpr.Form("scale", xyz("1", "1", "1")),
			sexpr.Form("rotate", xyz("0", "0", "0")),
		))
		return
	}
	keep := models[0]
	keep.SetArg(0, path)
	f.root.RemoveFunc(func(n *sexpr.Node) bool {
		return n.Head() == "model" && n != keep
	})
}

// ClearModels removes every model reference.
func (f *Footprint) ClearModels() {
	f.root.RemoveAll("model")
}

// Bytes returns the formatted footprint.
func (f *Footprint) Bytes() []byte {
	return sexpr.Marshal(f.root)
}

// Save writes the footprint to path atomically, replacing any existing file.
func (f *Footprint) Save(path string) error {
	return WriteFileAtomic(path, f.Bytes())
}

func xyz(x, y, z string) *sexpr.Node {
	return sexpr.Form("xyz", sexpr.Atom(x), sexpr.Atom(y), sexpr.Atom(z))
}
