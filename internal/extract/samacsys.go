package extract

import "github.com/hpungsan/partbridge/internal/component"

// SamacSys (Component Search Engine, Mouser) layout:
//
//	KiCad/<MPN>.kicad_sym           or KiCad/symbol/<MPN>.kicad_sym
//	KiCad/<MPN>.pretty/<MPN>.kicad_mod
//	KiCad/3dmodel/<MPN>.step        or <MPN>.step at the root
//
// File names are the part number.
func extractSamacSys(req Request) (*component.Bundle, error) {
	if err := unpack(req.ArchivePath, req.ExtractDir); err != nil {
		return nil, err
	}
	b := newBundle(component.SamacSys, req)

	searchDir := rootDir(req.ExtractDir, func(name string) bool { return name == "KiCad" })
	if searchDir == "" {
		searchDir = req.ExtractDir
	}

	pickSymbol(b, searchDir, false)
	b.SetFootprints(findFiles(searchDir, extMod))
	pickModels(b, searchDir, req.ExtractDir)

	b.PartID = resolvePartID(newResolveContext(b),
		symbolFileStem,
		footprintFileStem,
	)
	return b, nil
}
