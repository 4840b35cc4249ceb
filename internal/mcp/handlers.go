package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/partbridge/internal/errors"
	"github.com/hpungsan/partbridge/internal/ops"
)

// Handlers serves the MCP tools for one library.
type Handlers struct {
	lib *ops.Library
}

func NewHandlers(lib *ops.Library) *Handlers {
	return &Handlers{lib: lib}
}

// ImportRequest represents the arguments for component_import.
type ImportRequest struct {
	Path        string `json:"path"`
	SourceURL   string `json:"source_url,omitempty"`
	ReferrerURL string `json:"referrer_url,omitempty"`
	Overwrite   bool   `json:"overwrite,omitempty"`
}

// ListRequest represents the arguments for component_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// SearchRequest represents the arguments for component_search.
type SearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// FetchRequest represents the arguments for component_fetch.
type FetchRequest struct {
	ID       string `json:"id,omitempty"`
	MPN      string `json:"mpn,omitempty"`
	LogLimit int    `json:"log_limit,omitempty"`
}

// DeleteRequest represents the arguments for component_delete.
type DeleteRequest struct {
	ID        string `json:"id,omitempty"`
	MPN       string `json:"mpn,omitempty"`
	KeepFiles bool   `json:"keep_files,omitempty"`
}

// ExportRequest represents the arguments for component_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// invoke decodes the tool arguments into Req and runs op. Argument and
// operation failures become error results; only a failure to encode the
// output is returned as a Go error.
func invoke[Req, Out any](ctx context.Context, req mcp.CallToolRequest, op func(context.Context, Req) (Out, error)) (*mcp.CallToolResult, error) {
	args, err := decode[Req](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	out, err := op(ctx, args)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleImport runs the import pipeline on one archive. A failed run still
// returns its structured output, flagged as an error result.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status string
	res, err := invoke(ctx, req, func(ctx context.Context, r ImportRequest) (*ops.ImportOutput, error) {
		out, err := ops.Import(ctx, h.lib, ops.ImportInput{
			ArchivePath: r.Path,
			SourceURL:   r.SourceURL,
			ReferrerURL: r.ReferrerURL,
			Overwrite:   r.Overwrite,
		})
		if out != nil {
			status = out.Status
		}
		return out, err
	})
	if res != nil && status == ops.StatusError {
		res.IsError = true
	}
	return res, err
}

func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return invoke(ctx, req, func(ctx context.Context, r ListRequest) (*ops.ListOutput, error) {
		return ops.List(ctx, h.lib, ops.ListInput{Limit: r.Limit, Offset: r.Offset})
	})
}

func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return invoke(ctx, req, func(ctx context.Context, r SearchRequest) (*ops.SearchOutput, error) {
		return ops.Search(ctx, h.lib, ops.SearchInput{Query: r.Query, Limit: r.Limit, Offset: r.Offset})
	})
}

func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return invoke(ctx, req, func(ctx context.Context, r FetchRequest) (*ops.FetchOutput, error) {
		return ops.Fetch(ctx, h.lib, ops.FetchInput{ID: r.ID, MPN: r.MPN, LogLimit: r.LogLimit})
	})
}

func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return invoke(ctx, req, func(ctx context.Context, r DeleteRequest) (*ops.DeleteOutput, error) {
		return ops.Delete(ctx, h.lib, ops.DeleteInput{ID: r.ID, MPN: r.MPN, KeepFiles: r.KeepFiles})
	})
}

func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return invoke(ctx, req, func(ctx context.Context, r ExportRequest) (*ops.ExportOutput, error) {
		return ops.Export(ctx, h.lib, ops.ExportInput{Path: r.Path})
	})
}

// HandleStatus reports the library layout, tool availability and registration.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return invoke(ctx, req, func(ctx context.Context, _ struct{}) (*ops.StatusOutput, error) {
		return ops.Status(ctx, h.lib)
	})
}

// HandleRegister adds the library to KiCad's global tables.
func (h *Handlers) HandleRegister(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return invoke(ctx, req, func(ctx context.Context, _ struct{}) (*ops.StatusOutput, error) {
		return ops.RegisterLibrary(ctx, h.lib)
	})
}

// errorResult renders err as {"error": {...}} with IsError set. Any error that
// is not a BridgeError is treated as internal, and internal messages are
// replaced so paths and driver errors never reach the client.
func errorResult(err error) *mcp.CallToolResult {
	var bErr *errors.BridgeError
	if !stderrors.As(err, &bErr) {
		bErr = errors.NewInternal(err)
	}

	body := map[string]any{
		"code":      bErr.Code,
		"status":    bErr.Status,
		"retryable": errors.Retryable(bErr),
	}
	switch {
	case bErr.Code == errors.ErrInternal:
		body["message"] = "an internal error occurred"
	case err != error(bErr):
		// wrapped: keep the caller's context
		body["message"] = err.Error()
	default:
		body["message"] = bErr.Message
	}
	if bErr.Code != errors.ErrInternal && bErr.Details != nil {
		body["details"] = bErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": body})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
