package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/hpungsan/partbridge/internal/errors"
)

func TestSearch(t *testing.T) {
	lib := newTestLibrary(t)
	seedComponent(t, lib, "LM358DR", "Texas Instruments", "Dual op-amp, 3-32V")
	seedComponent(t, lib, "TPS62160DGKR", "Texas Instruments", "3-17V step-down converter")
	seedComponent(t, lib, "KSC721J-LFS", "C&K", "Tactile switch")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"mpn substring", "358", []string{"LM358DR"}},
		{"case insensitive", "lm358", []string{"LM358DR"}},
		{"manufacturer", "texas", []string{"TPS62160DGKR", "LM358DR"}},
		{"description", "switch", []string{"KSC721J-LFS"}},
		{"ampersand", "C&K", []string{"KSC721J-LFS"}},
		{"no match", "nonexistent", nil},
		{"wildcard is literal", "%", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Search(context.Background(), lib, SearchInput{Query: tt.query})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if out.Items == nil {
				t.Fatal("Items is nil, want empty slice")
			}
			if len(out.Items) != len(tt.want) {
				t.Fatalf("len(Items) = %d, want %d", len(out.Items), len(tt.want))
			}
			for i, mpn := range tt.want {
				if out.Items[i].MPN != mpn {
					t.Errorf("Items[%d].MPN = %q, want %q", i, out.Items[i].MPN, mpn)
				}
			}
			if out.Pagination.Total != len(tt.want) {
				t.Errorf("Total = %d, want %d", out.Pagination.Total, len(tt.want))
			}
		})
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	lib := newTestLibrary(t)

	for _, q := range []string{"", "   ", strings.Repeat("x", MaxQueryLength+1)} {
		if _, err := Search(context.Background(), lib, SearchInput{Query: q}); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("Search(%d chars) error = %v, want INVALID_REQUEST", len(q), err)
		}
	}
}

func TestSearch_Pagination(t *testing.T) {
	lib := newTestLibrary(t)
	for _, mpn := range []string{"RES-1", "RES-2", "RES-3"} {
		seedComponent(t, lib, mpn, "", "")
	}

	out, err := Search(context.Background(), lib, SearchInput{Query: "RES", Limit: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(out.Items) != 2 || !out.Pagination.HasMore || out.Pagination.Total != 3 {
		t.Errorf("len = %d, Pagination = %+v", len(out.Items), out.Pagination)
	}
}
