package component

// ExportRecord is one component line of a JSONL export file.
type ExportRecord struct {
	// Header detection field - true only for header line
	PartbridgeExport bool `json:"_partbridge_export,omitempty"`

	// Header fields (only present in header line)
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	ID            string  `json:"id"`
	MPN           string  `json:"mpn"`
	Manufacturer  *string `json:"manufacturer"`
	Description   *string `json:"description"`
	SymbolName    *string `json:"symbol_name"`
	FootprintName *string `json:"footprint_name"`
	Has3DModel    bool    `json:"has_3d_model"`
	Vendor        *string `json:"vendor"`
	SourceURL     *string `json:"source_url"`
	ReferrerURL   *string `json:"referrer_url"`
	CreatedAt     int64   `json:"created_at"`
	UpdatedAt     int64   `json:"updated_at"`
}

// ToExportRecord converts a Component to its export form.
func ToExportRecord(c *Component) *ExportRecord {
	return &ExportRecord{
		ID:            c.ID,
		MPN:           c.MPN,
		Manufacturer:  c.Manufacturer,
		Description:   c.Description,
		SymbolName:    c.SymbolName,
		FootprintName: c.FootprintName,
		Has3DModel:    c.Has3DModel,
		Vendor:        c.Vendor,
		SourceURL:     c.SourceURL,
		ReferrerURL:   c.ReferrerURL,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// ToComponent converts an export line back to a Component.
func (r *ExportRecord) ToComponent() *Component {
	return &Component{
		ID:            r.ID,
		MPN:           r.MPN,
		Manufacturer:  r.Manufacturer,
		Description:   r.Description,
		SymbolName:    r.SymbolName,
		FootprintName: r.FootprintName,
		Has3DModel:    r.Has3DModel,
		Vendor:        r.Vendor,
		SourceURL:     r.SourceURL,
		ReferrerURL:   r.ReferrerURL,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
