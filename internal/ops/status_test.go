package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/partbridge/internal/errors"
)

func TestStatus(t *testing.T) {
	lib := newTestLibrary(t)
	seedComponent(t, lib, "A", "", "")
	seedComponent(t, lib, "B", "", "")

	out, err := Status(context.Background(), lib)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if out.Components != 2 {
		t.Errorf("Components = %d, want 2", out.Components)
	}
	if out.Root != lib.Layout.Root || out.SymbolLib != lib.Layout.SymbolLibPath() {
		t.Errorf("Status() = %+v", out)
	}
	if out.KiCadCLI != "" {
		t.Errorf("KiCadCLI = %q, want empty without a tool", out.KiCadCLI)
	}
	if out.Registration.SymbolTable || out.Registration.ModelsVar {
		t.Errorf("Registration = %+v, want unregistered", out.Registration)
	}
}

func TestRegisterLibrary(t *testing.T) {
	lib := newTestLibrary(t)

	out, err := RegisterLibrary(context.Background(), lib)
	if err != nil {
		t.Fatalf("RegisterLibrary() error = %v", err)
	}
	reg := out.Registration
	if !reg.SymbolTable || !reg.FootprintTable || !reg.ModelsVar || reg.ConfigDir != lib.ConfigDir {
		t.Errorf("Registration = %+v", reg)
	}

	lib.ConfigDir = ""
	if _, err := RegisterLibrary(context.Background(), lib); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("RegisterLibrary() error = %v, want INVALID_REQUEST", err)
	}
}
