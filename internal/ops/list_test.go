package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/db"
)

func seedComponent(t *testing.T, lib *Library, mpn, manufacturer, description string) *component.Component {
	t.Helper()
	c := &component.Component{
		MPN:          mpn,
		Manufacturer: optional(manufacturer),
		Description:  optional(description),
		Vendor:       optional(string(component.SnapEDA)),
	}
	if err := db.Upsert(lib.DB, c); err != nil {
		t.Fatalf("Upsert(%s) error = %v", mpn, err)
	}
	return c
}

func TestList_Empty(t *testing.T) {
	lib := newTestLibrary(t)

	out, err := List(context.Background(), lib, ListInput{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if out.Items == nil {
		t.Error("Items is nil, want empty slice")
	}
	if out.Pagination.Total != 0 || out.Pagination.HasMore {
		t.Errorf("Pagination = %+v", out.Pagination)
	}
	if out.Pagination.Limit != DefaultListLimit {
		t.Errorf("Limit = %d, want %d", out.Pagination.Limit, DefaultListLimit)
	}
	if out.Sort != "updated_at_desc" {
		t.Errorf("Sort = %q", out.Sort)
	}
}

func TestList_Pagination(t *testing.T) {
	lib := newTestLibrary(t)
	for _, mpn := range []string{"A", "B", "C", "D", "E"} {
		seedComponent(t, lib, mpn, "", "")
	}

	tests := []struct {
		name      string
		input     ListInput
		wantLen   int
		wantFirst string
		wantMore  bool
	}{
		{"first page", ListInput{Limit: 2}, 2, "E", true},
		{"middle page", ListInput{Limit: 2, Offset: 2}, 2, "C", true},
		{"last page", ListInput{Limit: 2, Offset: 4}, 1, "A", false},
		{"past end", ListInput{Limit: 2, Offset: 10}, 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := List(context.Background(), lib, tt.input)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(out.Items) != tt.wantLen {
				t.Fatalf("len(Items) = %d, want %d", len(out.Items), tt.wantLen)
			}
			if tt.wantLen > 0 && out.Items[0].MPN != tt.wantFirst {
				t.Errorf("Items[0].MPN = %q, want %q", out.Items[0].MPN, tt.wantFirst)
			}
			if out.Pagination.HasMore != tt.wantMore {
				t.Errorf("HasMore = %v, want %v", out.Pagination.HasMore, tt.wantMore)
			}
			if out.Pagination.Total != 5 {
				t.Errorf("Total = %d, want 5", out.Pagination.Total)
			}
		})
	}
}

func TestList_LimitClamped(t *testing.T) {
	lib := newTestLibrary(t)
	out, err := List(context.Background(), lib, ListInput{Limit: 1000, Offset: -3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if out.Pagination.Limit != MaxListLimit || out.Pagination.Offset != 0 {
		t.Errorf("Pagination = %+v", out.Pagination)
	}
}
