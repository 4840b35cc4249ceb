package extract

import (
	"strings"

	"github.com/hpungsan/partbridge/internal/component"
)

// Ultra Librarian layout:
//
//	LQFP-64_STM.step
//	KiCADv6/2026-02-08_08-16-27.kicad_sym
//	KiCADv6/footprints.pretty/LQFP-64_STM.kicad_mod
//	KiCADv6/footprints.pretty/LQFP-64_STM-M.kicad_mod
//
// The directory may be KiCAD, KiCADv5 or KiCADv6. Symbol files are named by
// export timestamp, so the part number has to come from their content.
func extractUltraLibrarian(req Request) (*component.Bundle, error) {
	if err := unpack(req.ArchivePath, req.ExtractDir); err != nil {
		return nil, err
	}
	b := newBundle(component.UltraLibrarian, req)

	kicadDir := rootDir(req.ExtractDir, func(name string) bool {
		return strings.HasPrefix(strings.ToUpper(name), "KICAD")
	})
	if kicadDir == "" {
		kicadDir = req.ExtractDir
	}

	pickSymbol(b, kicadDir, true)
	b.SetFootprints(findFiles(kicadDir, extMod))
	// models usually sit at the archive root, outside the KiCAD directory
	pickModels(b, req.ExtractDir)

	b.PartID = resolvePartID(newResolveContext(b),
		symbolEntryName,
		distributorPartID,
		sourceURLSegment,
		footprintFileStem,
	)
	return b, nil
}
