package extract

import (
	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/errors"
)

// EasyEDA/LCSC downloads are JSON and need easyeda2kicad, which is not integrated.
// The failure is permanent for this vendor.
func extractEasyEDA(Request) (*component.Bundle, error) {
	return nil, errors.NewUnsupportedVendor(string(component.EasyEDA), "easyeda2kicad")
}
