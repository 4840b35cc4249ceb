// Package testutil builds vendor-style archives and canned KiCad files for tests.
package testutil

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// File is one archive entry. A Name ending in "/" is written as a directory entry.
type File struct {
	Name string
	Body string
}

// WriteZip writes files, in order, to dir/name and returns the archive path.
func WriteZip(tb testing.TB, dir, name string, files ...File) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, file := range files {
		w, err := zw.Create(file.Name)
		if err != nil {
			tb.Fatalf("create entry %s: %v", file.Name, err)
		}
		if strings.HasSuffix(file.Name, "/") {
			continue
		}
		if _, err := w.Write([]byte(file.Body)); err != nil {
			tb.Fatalf("write entry %s: %v", file.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("close zip: %v", err)
	}
	return path
}

// WriteFile writes body to dir/name, creating parent directories, and returns the path.
func WriteFile(tb testing.TB, dir, name, body string) string {
	tb.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		tb.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		tb.Fatalf("write %s: %v", name, err)
	}
	return path
}

// SymbolLib returns a KiCad 6 symbol library declaring one symbol with the
// usual _0_1 and _1_1 sub-units. Extra properties are added as key/value pairs.
func SymbolLib(name string, props ...string) string {
	var extra strings.Builder
	for i := 0; i+1 < len(props); i += 2 {
		fmt.Fprintf(&extra, "      (property %q %q (id %d) (at 0 0 0)\n        (effects (font (size 1.27 1.27)) hide)\n      )\n", props[i], props[i+1], 4+i/2)
	}
	return fmt.Sprintf(`(kicad_symbol_lib (version 20211014) (generator kicad_symbol_editor)
  (symbol %[1]q (pin_names (offset 0.254)) (in_bom yes) (on_board yes)
    (property "Reference" "IC" (id 0) (at 0 2.54 0)
      (effects (font (size 1.27 1.27)))
    )
    (property "Value" "vendor-value" (id 1) (at 0 -2.54 0)
      (effects (font (size 1.27 1.27)))
    )
    (property "Footprint" "vendor:FP" (id 2) (at 0 0 0)
      (effects (font (size 1.27 1.27)) hide)
    )
    (property "Datasheet" "" (id 3) (at 0 0 0)
      (effects (font (size 1.27 1.27)) hide)
    )
%[2]s    (symbol "%[1]s_0_1"
      (rectangle (start -5.08 5.08) (end 5.08 -5.08) (stroke (width 0) (type default)) (fill (type background)))
    )
    (symbol "%[1]s_1_1"
      (pin input line (at -7.62 0 0) (length 2.54)
        (name "IN" (effects (font (size 1.27 1.27))))
        (number "1" (effects (font (size 1.27 1.27))))
      )
    )
  )
)
`, name, extra.String())
}

// Footprint returns a KiCad 6 footprint named name. A non-empty modelPath adds a model reference.
func Footprint(name, modelPath string) string {
	model := ""
	if modelPath != "" {
		model = fmt.Sprintf("  (model %q (offset (xyz 0 0 0)) (scale (xyz 1 1 1)) (rotate (xyz 0 0 0)))\n", modelPath)
	}
	return fmt.Sprintf(`(footprint %q (version 20211014) (generator pcbnew) (layer "F.Cu")
  (attr smd)
  (fp_text reference "REF**" (at 0 -3) (layer "F.SilkS") (effects (font (size 1 1) (thickness 0.15))))
  (pad "1" smd rect (at -1 0) (size 1 1) (layers "F.Cu" "F.Paste" "F.Mask"))
%s)
`, name, model)
}

// LegacyLib returns a pre-6.0 .lib file declaring one symbol.
func LegacyLib(name string) string {
	return fmt.Sprintf(`EESchema-LIBRARY Version 2.4
#encoding utf-8
#
# %[1]s
#
DEF %[1]s U 0 40 Y Y 1 F N
F0 "U" 0 100 50 H V C CNN
F1 "%[1]s" 0 -100 50 H V C CNN
DRAW
S -200 200 200 -200 0 1 0 N
ENDDRAW
ENDDEF
#
#End Library
`, name)
}

// Step is placeholder STEP content.
const Step = "ISO-10303-21;\nHEADER;\nENDSEC;\nEND-ISO-10303-21;\n"

// Wrl is placeholder VRML content.
const Wrl = "#VRML V2.0 utf8\n"
