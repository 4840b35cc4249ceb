package ops

import (
	"context"

	"github.com/hpungsan/partbridge/internal/db"
	"github.com/hpungsan/partbridge/internal/libreg"
)

// StatusOutput describes an open library and its host registration.
type StatusOutput struct {
	Root         string        `json:"root"`
	Alias        string        `json:"alias"`
	SymbolLib    string        `json:"symbol_lib"`
	FootprintDir string        `json:"footprint_dir"`
	ModelsDir    string        `json:"models_dir"`
	Components   int           `json:"components"`
	KiCadCLI     string        `json:"kicad_cli,omitempty"`
	Registration libreg.Status `json:"registration"`
}

// Status reports the library layout, record count, converter and registration state.
func Status(ctx context.Context, lib *Library) (*StatusOutput, error) {
	_, total, err := db.List(ctx, lib.DB, 1, 0)
	if err != nil {
		return nil, err
	}
	out := &StatusOutput{
		Root:         lib.Layout.Root,
		Alias:        lib.Layout.Alias,
		SymbolLib:    lib.Layout.SymbolLibPath(),
		FootprintDir: lib.Layout.FootprintDir(),
		ModelsDir:    lib.Layout.ModelsDir(),
		Components:   total,
		KiCadCLI:     lib.ToolPath,
	}
	if lib.ConfigDir != "" {
		out.Registration = libreg.Inspect(lib.Layout, lib.ConfigDir, lib.ModelsVar)
	}
	return out, nil
}

// RegisterLibrary writes the host library tables and model path variable,
// then reports the resulting registration state.
func RegisterLibrary(ctx context.Context, lib *Library) (*StatusOutput, error) {
	lib.writeMu.Lock()
	err := lib.Register()
	lib.writeMu.Unlock()
	if err != nil {
		return nil, err
	}
	lib.Logger.Info().Str("config_dir", lib.ConfigDir).Str("alias", lib.Layout.Alias).Msg("library registered")
	return Status(ctx, lib)
}
