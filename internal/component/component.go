package component

// Component is one imported part as stored in the metadata database.
type Component struct {
	// ID is a ULID that stays stable across re-imports of the same MPN
	ID string `json:"id"`

	// MPN is the sanitized manufacturer part number, unique per library
	MPN string `json:"mpn"`

	Manufacturer *string `json:"manufacturer"`
	Description  *string `json:"description"`

	// SymbolName and FootprintName are nil when that artifact was missing
	SymbolName    *string `json:"symbol_name"`
	FootprintName *string `json:"footprint_name"`

	Has3DModel bool `json:"has_3d_model"`

	// Vendor is the classified archive vendor (see Vendor)
	Vendor *string `json:"vendor"`

	SourceURL   *string `json:"source_url"`
	ReferrerURL *string `json:"referrer_url"`

	// CreatedAt and UpdatedAt are Unix timestamps
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Log actions recorded in the activity log.
const (
	ActionImport       = "import"
	ActionImportFailed = "import_failed"
	ActionDelete       = "delete"
)

// LogEntry is one row of the append-only activity log.
type LogEntry struct {
	ID           string  `json:"id"`
	ComponentID  *string `json:"component_id"`
	Action       string  `json:"action"`
	SourceFile   *string `json:"source_file"`
	ErrorMessage *string `json:"error_message"`
	CreatedAt    int64   `json:"created_at"`
}
