package extract

import "github.com/hpungsan/partbridge/internal/component"

// SnapEDA puts every file at the archive root and often names them by UUID.
func extractSnapEDA(req Request) (*component.Bundle, error) {
	if err := unpack(req.ArchivePath, req.ExtractDir); err != nil {
		return nil, err
	}
	b := newBundle(component.SnapEDA, req)

	pickSymbol(b, req.ExtractDir, false)
	b.SetFootprints(findFiles(req.ExtractDir, extMod))
	pickModels(b, req.ExtractDir)

	b.PartID = resolvePartID(newResolveContext(b),
		symbolEntryName,
		func(c *resolveContext) string {
			if id := distributorPartID(c); id != "" {
				return id
			}
			return snapEDAPartID(c)
		},
		footprintEntryName,
		symbolFileStem,
		footprintFileStem,
	)
	return b, nil
}
