package component

import (
	"path/filepath"
	"sort"
)

// SymbolFormat is the on-disk format of an extracted symbol file.
type SymbolFormat string

const (
	FormatNative SymbolFormat = "kicad_sym"
	FormatLegacy SymbolFormat = "legacy_lib"
)

// Bundle is what an extractor found inside one archive. Every path points into
// ExtractDir, which the caller owns and removes after normalization.
type Bundle struct {
	// PartID is the best-effort canonical identifier. Never empty; UnknownID when unresolved.
	PartID string

	SymbolPath   string
	SymbolFormat SymbolFormat

	// FootprintPath is the canonical entry of FootprintCandidates.
	FootprintPath       string
	FootprintCandidates []string

	ModelStepPath string
	ModelWrlPath  string

	Manufacturer string
	Description  string

	Vendor      Vendor
	SourceURL   string
	ReferrerURL string
	ExtractDir  string
}

// SetFootprints stores the candidates ordered by basename length, then
// lexicographically, and makes the first one canonical. Vendors ship size
// variants such as X-M and X-L next to the unsuffixed X.
func (b *Bundle) SetFootprints(paths []string) {
	sorted := append([]string(nil), paths...)
	sort.SliceStable(sorted, func(i, j int) bool {
		bi, bj := filepath.Base(sorted[i]), filepath.Base(sorted[j])
		if len(bi) != len(bj) {
			return len(bi) < len(bj)
		}
		return bi < bj
	})
	b.FootprintCandidates = sorted
	b.FootprintPath = ""
	if len(sorted) > 0 {
		b.FootprintPath = sorted[0]
	}
}

// HasSymbol reports whether a symbol file was found.
func (b *Bundle) HasSymbol() bool { return b.SymbolPath != "" }

// HasFootprint reports whether a footprint file was found.
func (b *Bundle) HasFootprint() bool { return b.FootprintPath != "" }

// Has3DModel reports whether a STEP or WRL model was found.
func (b *Bundle) Has3DModel() bool { return b.ModelStepPath != "" || b.ModelWrlPath != "" }

// Empty reports whether the archive held nothing the pipeline can use.
func (b *Bundle) Empty() bool {
	return !b.HasSymbol() && !b.HasFootprint() && !b.Has3DModel()
}
