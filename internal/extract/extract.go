// Package extract unpacks vendor archives and locates the symbol, footprint and
// 3D model files inside them, together with a best-effort part identifier.
package extract

import (
	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/errors"
)

// Request describes one archive to extract. ExtractDir is owned by the caller.
type Request struct {
	ArchivePath string
	ExtractDir  string
	SourceURL   string
	ReferrerURL string
}

// Extractor knows one vendor's archive layout and identifier conventions.
type Extractor func(Request) (*component.Bundle, error)

var extractors = map[component.Vendor]Extractor{
	component.UltraLibrarian: extractUltraLibrarian,
	component.SnapEDA:        extractSnapEDA,
	component.SamacSys:       extractSamacSys,
	component.EasyEDA:        extractEasyEDA,
	component.Generic:        extractGeneric,
}

// For returns the extractor for vendor, falling back to the generic one.
func For(vendor component.Vendor) Extractor {
	if x, ok := extractors[vendor]; ok {
		return x
	}
	return extractGeneric
}

// Extract runs the vendor's extractor. It fails when the archive cannot be
// read, when the vendor is unsupported, or when nothing recognizable was found.
// A missing symbol or footprint alone is not an error.
func Extract(vendor component.Vendor, req Request) (*component.Bundle, error) {
	b, err := For(vendor)(req)
	if err != nil {
		return nil, err
	}
	if b.Empty() {
		return nil, errors.NewNoArtifacts(req.ArchivePath)
	}
	enrich(b)
	return b, nil
}

func newBundle(vendor component.Vendor, req Request) *component.Bundle {
	return &component.Bundle{
		PartID:       component.UnknownID,
		SymbolFormat: component.FormatNative,
		Vendor:       vendor,
		SourceURL:    req.SourceURL,
		ReferrerURL:  req.ReferrerURL,
		ExtractDir:   req.ExtractDir,
	}
}

// pickSymbol prefers a .kicad_sym under dir and falls back to a legacy .lib when allowed.
func pickSymbol(b *component.Bundle, dir string, allowLegacy bool) {
	if sym := first(findFiles(dir, extSymbol)); sym != "" {
		b.SymbolPath = sym
		b.SymbolFormat = component.FormatNative
		return
	}
	if !allowLegacy {
		return
	}
	if lib := first(findFiles(dir, extLegacy)); lib != "" {
		b.SymbolPath = lib
		b.SymbolFormat = component.FormatLegacy
	}
}

// pickModels takes the first STEP and WRL under each dir in turn, stopping at the
// first dir that has one of that kind.
func pickModels(b *component.Bundle, dirs ...string) {
	for _, d := range dirs {
		if b.ModelStepPath == "" {
			b.ModelStepPath = first(findFiles(d, extStep))
		}
		if b.ModelWrlPath == "" {
			b.ModelWrlPath = first(findFiles(d, extWrl))
		}
	}
}
