package mcp

import "github.com/mark3labs/mcp-go/mcp"

var importToolDef = mcp.NewTool("component_import",
	mcp.WithDescription("Import a vendor component archive (.zip) into the shared KiCad library. "+
		"Classifies the vendor, extracts symbol, footprint and 3D model, renames everything to the "+
		"part number and links the symbol to its footprint. Returns status success, partial or error with warnings."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to the downloaded archive")),
	mcp.WithString("source_url", mcp.Description("URL the archive was downloaded from")),
	mcp.WithString("referrer_url", mcp.Description("Page that linked to the download, e.g. a distributor product page")),
	mcp.WithBoolean("overwrite", mcp.Description("Acknowledge replacing an existing component without a warning")),
	mcp.WithDestructiveHintAnnotation(false),
)

var listToolDef = mcp.NewTool("component_list",
	mcp.WithDescription("List imported components, most recently updated first."),
	mcp.WithNumber("limit", mcp.Description("Maximum items to return (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var searchToolDef = mcp.NewTool("component_search",
	mcp.WithDescription("Search components by part number, manufacturer or description (case-insensitive substring)."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for")),
	mcp.WithNumber("limit", mcp.Description("Maximum items to return (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var fetchToolDef = mcp.NewTool("component_fetch",
	mcp.WithDescription("Fetch one component by id or mpn, with its library references and recent activity."),
	mcp.WithString("id", mcp.Description("Component id")),
	mcp.WithString("mpn", mcp.Description("Manufacturer part number")),
	mcp.WithNumber("log_limit", mcp.Description("Maximum activity entries (default 20)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var deleteToolDef = mcp.NewTool("component_delete",
	mcp.WithDescription("Delete a component by id or mpn, removing its symbol entry, footprint file and 3D models."),
	mcp.WithString("id", mcp.Description("Component id")),
	mcp.WithString("mpn", mcp.Description("Manufacturer part number")),
	mcp.WithBoolean("keep_files", mcp.Description("Remove only the record and leave library files in place")),
	mcp.WithDestructiveHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("component_export",
	mcp.WithDescription("Export all component records to a JSONL file."),
	mcp.WithString("path", mcp.Description("Output .jsonl path (default ~/.partbridge/exports/<alias>-<timestamp>.jsonl)")),
)

var statusToolDef = mcp.NewTool("library_status",
	mcp.WithDescription("Report the library location, component count, kicad-cli availability and KiCad registration."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var registerToolDef = mcp.NewTool("library_register",
	mcp.WithDescription("Register the library in KiCad's sym-lib-table and fp-lib-table and set the 3D model path variable."),
	mcp.WithIdempotentHintAnnotation(true),
)
