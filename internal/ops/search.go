package ops

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/db"
	"github.com/hpungsan/partbridge/internal/errors"
)

// MaxQueryLength bounds search queries.
const MaxQueryLength = db.MaxSearchQueryChars

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query  string // required
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items      []component.Component `json:"items"`
	Pagination Pagination            `json:"pagination"`
	Sort       string                `json:"sort"`
}

// Search matches the query against MPN, manufacturer and description.
func Search(ctx context.Context, lib *Library, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}

	limit, offset := clampPage(input.Limit, input.Offset)

	items, total, err := db.Search(ctx, lib.DB, query, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []component.Component{}
	}

	return &SearchOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}
