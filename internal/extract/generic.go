package extract

import "github.com/hpungsan/partbridge/internal/component"

// extractGeneric makes no layout assumption and searches the whole tree.
func extractGeneric(req Request) (*component.Bundle, error) {
	if err := unpack(req.ArchivePath, req.ExtractDir); err != nil {
		return nil, err
	}
	b := newBundle(component.Generic, req)

	pickSymbol(b, req.ExtractDir, true)
	b.SetFootprints(findFiles(req.ExtractDir, extMod))
	pickModels(b, req.ExtractDir)

	b.PartID = resolvePartID(newResolveContext(b),
		symbolFileStem,
		footprintFileStem,
	)
	return b, nil
}
