package sexpr

import (
	"errors"
	"strings"
	"testing"
)

func TestParse_Basic(t *testing.T) {
	nodes, err := Parse([]byte(`(kicad_symbol_lib (version 20211014) (generator "kicad_symbol_editor")
  (symbol "STM32C071RBT6" (pin_names (offset 0.254)) (in_bom yes)
    (property "Reference" "U" (id 0) (at 0 0 0))
  )
)`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("len(nodes) = %d, want 1", len(nodes))
	}
	root := nodes[0]
	if root.Head() != "kicad_symbol_lib" {
		t.Errorf("Head() = %q, want kicad_symbol_lib", root.Head())
	}
	if v := root.Find("version").Arg(0); v != "20211014" {
		t.Errorf("version = %q, want 20211014", v)
	}
	gen := root.Find("generator")
	if gen.Arg(0) != "kicad_symbol_editor" || !gen.Children[1].Quoted {
		t.Errorf("generator = %+v, want quoted kicad_symbol_editor", gen.Children[1])
	}
	sym := root.Find("symbol")
	if sym.Arg(0) != "STM32C071RBT6" {
		t.Errorf("symbol name = %q", sym.Arg(0))
	}
	if sym.Find("property").Arg(1) != "U" {
		t.Errorf("Reference value = %q, want U", sym.Find("property").Arg(1))
	}
}

func TestParse_Escapes(t *testing.T) {
	n, err := ParseOne([]byte(`(property "Description" "say \"hi\"\nback\\slash")`))
	if err != nil {
		t.Fatalf("ParseOne() error = %v", err)
	}
	want := "say \"hi\"\nback\\slash"
	if got := n.Arg(1); got != want {
		t.Errorf("Arg(1) = %q, want %q", got, want)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated list", "(a (b c)"},
		{"stray close", "(a))"},
		{"unterminated string", `(a "b`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("Parse() error = %v, want *SyntaxError", err)
			}
		})
	}
}

func TestParseOne_RejectsMultiple(t *testing.T) {
	if _, err := ParseOne([]byte("(a) (b)")); err == nil {
		t.Fatal("ParseOne() expected error for two expressions")
	}
	if _, err := ParseOne([]byte("")); err == nil {
		t.Fatal("ParseOne() expected error for empty input")
	}
}

func TestParseOne_SkipsByteOrderMark(t *testing.T) {
	root, err := ParseOne([]byte("\xEF\xBB\xBF(kicad_symbol_lib (version 20211014))\r\n"))
	if err != nil {
		t.Fatalf("ParseOne() error = %v", err)
	}
	if root.Head() != "kicad_symbol_lib" {
		t.Errorf("Head() = %q, want kicad_symbol_lib", root.Head())
	}

	// only a leading mark is dropped
	if _, err := ParseOne([]byte("(a)\xEF\xBB\xBF")); err == nil {
		t.Error("ParseOne() expected error for trailing BOM bytes")
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	src := `(footprint "X-M" (version 20240108) (layer "F.Cu")
  (descr "with \"quotes\"")
  (model "${KICAD6_3DMODEL_DIR}/X.step" (offset (xyz 0 0 0)))
)`
	n, err := ParseOne([]byte(src))
	if err != nil {
		t.Fatalf("ParseOne() error = %v", err)
	}
	out := Marshal(n)
	again, err := ParseOne(out)
	if err != nil {
		t.Fatalf("re-parse error = %v\n%s", err, out)
	}
	if n.Format() != again.Format() {
		t.Errorf("round trip changed document:\n%s\n---\n%s", n.Format(), again.Format())
	}
	if again.Find("descr").Arg(0) != `with "quotes"` {
		t.Errorf("descr = %q", again.Find("descr").Arg(0))
	}
}

func TestFormat_Layout(t *testing.T) {
	n := Form("lib_table",
		Form("version", Atom("7")),
		Form("lib", Form("name", String("a b"))),
	)
	got := n.Format()
	want := "(lib_table\n\t(version 7)\n\t(lib\n\t\t(name \"a b\")\n\t)\n)"
	if got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormat_QuotesUnsafeAtoms(t *testing.T) {
	n := List(Atom("x"), Atom(""), Atom("has space"))
	if got := n.Format(); got != `(x "" "has space")` {
		t.Errorf("Format() = %s", got)
	}
}

func TestSetArg(t *testing.T) {
	n := Form("symbol", String("OLD"), Form("in_bom", Atom("yes")))
	n.SetArg(0, "NEW")
	if n.Arg(0) != "NEW" {
		t.Errorf("Arg(0) = %q, want NEW", n.Arg(0))
	}

	p := Form("property")
	p.SetArg(1, "v")
	if len(p.Children) != 3 || p.Arg(0) != "" || p.Arg(1) != "v" {
		t.Errorf("SetArg padding: %s", p.Format())
	}
}

func TestInsertAfterAndRemove(t *testing.T) {
	n := Form("symbol", String("X"),
		Form("property", String("Reference"), String("U")),
		Form("property", String("Value"), String("X")),
		Form("symbol", String("X_0_1")),
	)
	n.InsertAfter("property", Form("property", String("Footprint"), String("lib:X")))

	props := n.FindAll("property")
	if len(props) != 3 || props[2].Arg(0) != "Footprint" {
		t.Fatalf("properties after insert: %s", n.Format())
	}
	if n.Children[len(n.Children)-1].Head() != "symbol" {
		t.Errorf("unit should stay last: %s", n.Format())
	}

	if removed := n.RemoveAll("property"); removed != 3 {
		t.Errorf("RemoveAll() = %d, want 3", removed)
	}
	if strings.Contains(n.Format(), "property") {
		t.Errorf("properties remain: %s", n.Format())
	}
}

func TestClone_IsDeep(t *testing.T) {
	n := Form("a", Form("b", String("c")))
	c := n.Clone()
	c.Find("b").SetArg(0, "changed")
	if n.Find("b").Arg(0) != "c" {
		t.Error("Clone shares children with original")
	}
}
