package ops

import (
	"strings"

	"github.com/hpungsan/partbridge/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	DefaultLogLimit  = 20
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// clampPage applies limit defaults and bounds and makes offset non-negative.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, max(offset, 0)
}

// Address identifies one component record.
type Address struct {
	ByID bool
	ID   string
	MPN  string
}

// ValidateAddress validates addressing parameters.
// Rules:
// - Must specify exactly one of id or mpn
// - Both given → ErrInvalidRequest
// - Neither given → ErrInvalidRequest
func ValidateAddress(id, mpn string) (*Address, error) {
	id = strings.TrimSpace(id)
	mpn = strings.TrimSpace(mpn)

	if id != "" && mpn != "" {
		return nil, errors.NewInvalidRequest("specify either id or mpn, not both")
	}
	if id == "" && mpn == "" {
		return nil, errors.NewInvalidRequest("must specify either id or mpn")
	}
	if id != "" {
		return &Address{ByID: true, ID: id}, nil
	}
	return &Address{MPN: mpn}, nil
}
