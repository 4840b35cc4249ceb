package kicad

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/hpungsan/partbridge/internal/sexpr"
)

// SymbolLibVersion is the file format version of newly created libraries.
const SymbolLibVersion = "20231120"

// hideFormSince is the first format version that writes (hide yes) instead of a bare hide atom.
const hideFormSince = 20231120

// unitSuffix matches the _<unit>_<body> tail of a sub-unit name.
var unitSuffix = regexp.MustCompile(`_(\d+)_(\d+)$`)

// IsUnitName reports whether name carries a sub-unit _<unit>_<body> suffix.
func IsUnitName(name string) bool {
	return unitSuffix.MatchString(name)
}

// SymbolLib is a parsed .kicad_sym file.
type SymbolLib struct {
	root *sexpr.Node
}

// NewSymbolLib returns an empty library with a current header.
func NewSymbolLib() *SymbolLib {
	return &SymbolLib{root: sexpr.Form("kicad_symbol_lib",
		sexpr.Form("version", sexpr.Atom(SymbolLibVersion)),
		sexpr.Form("generator", sexpr.String(Generator)),
	)}
}

// ParseSymbolLib parses the contents of a .kicad_sym file.
func ParseSymbolLib(data []byte) (*SymbolLib, error) {
	root, err := sexpr.ParseOne(data)
	if err != nil {
		return nil, err
	}
	if root.Head() != "kicad_symbol_lib" {
		return nil, fmt.Errorf("not a symbol library: top-level form is %q", root.Head())
	}
	return &SymbolLib{root: root}, nil
}

// LoadSymbolLib reads and parses the library at path.
func LoadSymbolLib(path string) (*SymbolLib, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lib, err := ParseSymbolLib(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return lib, nil
}

// Version returns the format version from the header.
func (l *SymbolLib) Version() string {
	return l.root.Find("version").Arg(0)
}

// Generator returns the writer tool named in the header.
func (l *SymbolLib) Generator() string {
	return l.root.Find("generator").Arg(0)
}

// SetGenerator sets the writer tool named in the header.
func (l *SymbolLib) SetGenerator(name string) {
	setGenerator(l.root, name)
}

// Symbols returns the top-level symbol entries in file order.
func (l *SymbolLib) Symbols() []*Symbol {
	nodes := l.root.FindAll("symbol")
	out := make([]*Symbol, len(nodes))
	for i, n := range nodes {
		out[i] = &Symbol{node: n, lib: l}
	}
	return out
}

// Find returns the top-level symbol with the given name, or nil.
func (l *SymbolLib) Find(name string) *Symbol {
	for _, s := range l.Symbols() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// Remove deletes every top-level symbol with the given name and returns how many were removed.
func (l *SymbolLib) Remove(name string) int {
	return l.root.RemoveFunc(func(n *sexpr.Node) bool {
		return n.Head() == "symbol" && n.Arg(0) == name
	})
}

// Append adds a copy of sym to the end of the library.
func (l *SymbolLib) Append(sym *Symbol) *Symbol {
	n := sym.node.Clone()
	l.root.Append(n)
	return &Symbol{node: n, lib: l}
}

// Bytes returns the formatted library.
func (l *SymbolLib) Bytes() []byte {
	return sexpr.Marshal(l.root)
}

// Save writes the library to path atomically.
func (l *SymbolLib) Save(path string) error {
	return WriteFileAtomic(path, l.Bytes())
}

func (l *SymbolLib) usesHideForm() bool {
	v, err := strconv.Atoi(l.Version())
	return err == nil && v >= hideFormSince
}

// Symbol is one entry of a SymbolLib. Sub-units are nested symbol forms.
type Symbol struct {
	node *sexpr.Node
	lib  *SymbolLib
}

// Property is a key/value pair attached to a symbol.
type Property struct {
	Key   string
	Value string
}

// Name returns the symbol name.
func (s *Symbol) Name() string {
	return s.node.Arg(0)
}

// Units returns the names of the nested sub-unit symbols in file order.
func (s *Symbol) Units() []string {
	units := s.node.FindAll("symbol")
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.Arg(0)
	}
	return names
}

// Rename sets the symbol name and re-derives every sub-unit name from it.
// Sub-units keep their _<unit>_<body> suffix; a sub-unit without one gets the bare name.
func (s *Symbol) Rename(name string) {
	s.node.SetArg(0, name)
	for _, u := range s.node.FindAll("symbol") {
		if m := unitSuffix.FindStringSubmatch(u.Arg(0)); m != nil {
			u.SetArg(0, name+"_"+m[1]+"_"+m[2])
		} else {
			u.SetArg(0, name)
		}
	}
}

// Properties returns the symbol's properties in file order.
func (s *Symbol) Properties() []Property {
	nodes := s.node.FindAll("property")
	out := make([]Property, len(nodes))
	for i, p := range nodes {
		out[i] = Property{Key: p.Arg(0), Value: p.Arg(1)}
	}
	return out
}

// Property returns the value of the named property.
func (s *Symbol) Property(key string) (string, bool) {
	for _, p := range s.node.FindAll("property") {
		if p.Arg(0) == key {
			return p.Arg(1), true
		}
	}
	return "", false
}

// SetProperty updates an existing property or adds a hidden one after the last property.
// New properties get the next free id when the symbol's properties carry ids.
func (s *Symbol) SetProperty(key, value string) {
	props := s.node.FindAll("property")
	for _, p := range props {
		if p.Arg(0) == key {
			p.SetArg(1, value)
			return
		}
	}

	prop := sexpr.Form("property", sexpr.String(key), sexpr.String(value))
	maxID, hasIDs := -1, false
	for _, p := range props {
		idNode := p.Find("id")
		if idNode == nil {
			continue
		}
		hasIDs = true
		if id, err := strconv.Atoi(idNode.Arg(0)); err == nil && id > maxID {
			maxID = id
		}
	}
	if hasIDs {
		prop.Append(sexpr.Form("id", sexpr.Atom(strconv.Itoa(maxID+1))))
	}
	prop.Append(sexpr.Form("at", sexpr.Atom("0"), sexpr.Atom("0"), sexpr.Atom("0")))

	effects := sexpr.Form("effects", sexpr.Form("font", sexpr.Form("size", sexpr.Atom("1.27"), sexpr.Atom("1.27"))))
	if s.lib != nil && s.lib.usesHideForm() {
		effects.Append(sexpr.Form("hide", sexpr.Atom("yes")))
	} else {
		effects.Append(sexpr.Atom("hide"))
	}
	prop.Append(effects)

	s.node.InsertAfter("property", prop)
}
