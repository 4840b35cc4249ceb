// Package normalize merges extracted artifacts into the shared library: one
// symbol library file, one footprint directory and one 3D model directory.
//
// Every write is a whole-file read-modify-write. Callers must serialize
// imports into the same library root.
package normalize

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/errors"
	"github.com/hpungsan/partbridge/internal/kicad"
)

// DefaultModelsVar is the path variable used in model references when none is configured.
const DefaultModelsVar = "PARTBRIDGE_3DMODELS"

// FootprintExt is the extension of written footprint files.
const FootprintExt = ".kicad_mod"

var unsafeChars = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeName replaces / \ : * ? " < > | with underscores. Everything else,
// including hyphens and periods, is kept.
func SanitizeName(raw string) string {
	return unsafeChars.Replace(raw)
}

// Converter is the external format tool. Convert is required for legacy
// symbols; Upgrade is best effort.
type Converter interface {
	Convert(ctx context.Context, in, out string) error
	Upgrade(ctx context.Context, path string) error
}

// Normalizer rewrites bundles into the shared library.
type Normalizer struct {
	Converter Converter
	// ModelsVar is the path variable written into footprint model references.
	ModelsVar string
	// Generator is written into the symbol library header by PostProcess.
	Generator string
}

func (n *Normalizer) modelsVar() string {
	if n.ModelsVar == "" {
		return DefaultModelsVar
	}
	return n.ModelsVar
}

func (n *Normalizer) generator() string {
	if n.Generator == "" {
		return kicad.Generator
	}
	return n.Generator
}

// ModelRef returns the portable model reference for file.
func (n *Normalizer) ModelRef(file string) string {
	return "${" + n.modelsVar() + "}/" + file
}

// Symbol renames the bundle's first symbol to the sanitized part ID and merges
// it into targetLib, replacing any entry of the same name. Legacy symbols are
// converted first; a missing or failing converter is fatal here.
func (n *Normalizer) Symbol(ctx context.Context, b *component.Bundle, targetLib string) (string, error) {
	if !b.HasSymbol() {
		return "", errors.NewMissingArtifact("symbol")
	}
	name := SanitizeName(b.PartID)

	source := b.SymbolPath
	if b.SymbolFormat == component.FormatLegacy {
		if n.Converter == nil {
			return "", errors.NewToolUnavailable("kicad-cli")
		}
		converted := source + ".kicad_sym"
		if err := n.Converter.Convert(ctx, source, converted); err != nil {
			return "", err
		}
		source = converted
	}

	src, err := kicad.LoadSymbolLib(source)
	if err != nil {
		return "", errors.NewArchiveCorrupt(b.SymbolPath, err)
	}
	syms := src.Symbols()
	if len(syms) == 0 {
		return "", errors.NewEmptyLibrary(source)
	}

	sym := syms[0]
	sym.Rename(name)
	sym.SetProperty("Reference", "U")
	sym.SetProperty("Value", name)

	target, err := loadOrCreate(targetLib)
	if err != nil {
		return "", err
	}
	target.Remove(name)
	target.Append(sym)
	if err := target.Save(targetLib); err != nil {
		return "", errors.NewInternal(fmt.Errorf("write symbol library: %w", err))
	}
	return name, nil
}

// Footprint renames the canonical footprint, copies 3D models into modelsDir
// and writes footprintDir/<name>.kicad_mod, replacing any previous file.
// STEP is referenced when present, WRL otherwise; no model clears the references.
func (n *Normalizer) Footprint(b *component.Bundle, footprintDir, modelsDir string) (string, error) {
	if !b.HasFootprint() {
		return "", errors.NewMissingArtifact("footprint")
	}
	name := SanitizeName(b.PartID)

	fp, err := kicad.LoadFootprint(b.FootprintPath)
	if err != nil {
		return "", errors.NewArchiveCorrupt(b.FootprintPath, err)
	}
	fp.Rename(name)

	var modelFile string
	if b.ModelStepPath != "" {
		modelFile = name + filepath.Ext(b.ModelStepPath)
		if err := copyFile(b.ModelStepPath, filepath.Join(modelsDir, modelFile)); err != nil {
			return "", errors.NewInternal(fmt.Errorf("copy STEP model: %w", err))
		}
	}
	if b.ModelWrlPath != "" {
		wrlFile := name + filepath.Ext(b.ModelWrlPath)
		if err := copyFile(b.ModelWrlPath, filepath.Join(modelsDir, wrlFile)); err != nil {
			return "", errors.NewInternal(fmt.Errorf("copy WRL model: %w", err))
		}
		if modelFile == "" {
			modelFile = wrlFile
		}
	}

	if modelFile != "" {
		fp.SetModel(n.ModelRef(modelFile))
	} else {
		fp.ClearModels()
	}

	if err := fp.Save(filepath.Join(footprintDir, name+FootprintExt)); err != nil {
		return "", errors.NewInternal(fmt.Errorf("write footprint: %w", err))
	}
	return name, nil
}

// Link points the symbol's Footprint property at <alias>:<footprintName>.
func (n *Normalizer) Link(targetLib, symbolName, alias, footprintName string) error {
	lib, err := kicad.LoadSymbolLib(targetLib)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("read symbol library: %w", err))
	}
	sym := lib.Find(symbolName)
	if sym == nil {
		return errors.NewLinkFailed(symbolName, targetLib)
	}
	sym.SetProperty("Footprint", alias+":"+footprintName)
	if err := lib.Save(targetLib); err != nil {
		return errors.NewInternal(fmt.Errorf("write symbol library: %w", err))
	}
	return nil
}

// PostProcess patches the library header and asks the converter to upgrade the
// file to the current format. Run once after all symbol writes of an import.
// Errors leave a loadable library behind and should be reported as warnings.
func (n *Normalizer) PostProcess(ctx context.Context, targetLib string) error {
	if err := kicad.PatchGenerator(targetLib, n.generator()); err != nil {
		return errors.NewInternal(fmt.Errorf("patch library header: %w", err))
	}
	if n.Converter == nil {
		return errors.NewToolUnavailable("kicad-cli")
	}
	return n.Converter.Upgrade(ctx, targetLib)
}

func loadOrCreate(path string) (*kicad.SymbolLib, error) {
	lib, err := kicad.LoadSymbolLib(path)
	if err == nil {
		return lib, nil
	}
	if stderrors.Is(err, os.ErrNotExist) {
		return kicad.NewSymbolLib(), nil
	}
	return nil, errors.NewInternal(fmt.Errorf("read symbol library: %w", err))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
