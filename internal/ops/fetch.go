package ops

import (
	"context"

	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/db"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID  string
	MPN string
	// LogLimit bounds the returned activity entries. 0 means DefaultLogLimit.
	LogLimit int
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	component.Component                      // embedded (copy, not pointer)
	SymbolRef           string               `json:"symbol_ref,omitempty"`
	FootprintRef        string               `json:"footprint_ref,omitempty"`
	Activity            []component.LogEntry `json:"activity"`
}

// Fetch retrieves a component by ID or MPN together with its recent activity.
func Fetch(ctx context.Context, lib *Library, input FetchInput) (*FetchOutput, error) {
	c, err := lookup(lib, input.ID, input.MPN)
	if err != nil {
		return nil, err
	}

	limit := input.LogLimit
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	activity, err := db.ListLog(ctx, lib.DB, c.ID, limit)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		activity = []component.LogEntry{}
	}

	out := &FetchOutput{Component: *c, Activity: activity}
	if c.SymbolName != nil {
		out.SymbolRef = lib.Layout.Alias + ":" + *c.SymbolName
	}
	if c.FootprintName != nil {
		out.FootprintRef = lib.Layout.Alias + ":" + *c.FootprintName
	}
	return out, nil
}

func lookup(lib *Library, id, mpn string) (*component.Component, error) {
	addr, err := ValidateAddress(id, mpn)
	if err != nil {
		return nil, err
	}
	if addr.ByID {
		return db.GetByID(lib.DB, addr.ID)
	}
	return db.GetByMPN(lib.DB, addr.MPN)
}
