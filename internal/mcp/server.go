package mcp

import (
	"context"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/partbridge/internal/ops"
)

// KnownTypes lists the tool groups. A tool's group is the prefix of its name
// before the first underscore.
var KnownTypes = []string{"component", "library"}

type handlerMethod func(h *Handlers, ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// tools is every tool the server can expose, in listing order.
var tools = []struct {
	def  mcp.Tool
	call handlerMethod
}{
	{importToolDef, (*Handlers).HandleImport},
	{listToolDef, (*Handlers).HandleList},
	{searchToolDef, (*Handlers).HandleSearch},
	{fetchToolDef, (*Handlers).HandleFetch},
	{deleteToolDef, (*Handlers).HandleDelete},
	{exportToolDef, (*Handlers).HandleExport},
	{statusToolDef, (*Handlers).HandleStatus},
	{registerToolDef, (*Handlers).HandleRegister},
}

// AllToolNames returns the name of every tool.
func AllToolNames() []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.def.Name
	}
	return names
}

// ValidateDisabledTools returns the entries of names that are not tools.
func ValidateDisabledTools(names []string) []string {
	return unknownNames(names, AllToolNames())
}

// ValidateDisabledTypes returns the entries of names that are not tool groups.
func ValidateDisabledTypes(names []string) []string {
	return unknownNames(names, KnownTypes)
}

func unknownNames(names, known []string) []string {
	unknown := []string{}
	for _, n := range names {
		if !slices.Contains(known, n) {
			unknown = append(unknown, n)
		}
	}
	return unknown
}

// GetTypeForTool returns the group of a tool: "component_import" -> "component".
func GetTypeForTool(toolName string) string {
	typ, _, ok := strings.Cut(toolName, "_")
	if !ok {
		return ""
	}
	return typ
}

// NewServer builds an MCP server exposing every tool not switched off by the
// library's disabled_tools or disabled_types.
func NewServer(lib *ops.Library, version string) *server.MCPServer {
	s := server.NewMCPServer("partbridge", version, server.WithToolCapabilities(true))
	h := NewHandlers(lib)

	for _, t := range tools {
		name := t.def.Name
		if slices.Contains(lib.Config.DisabledTools, name) || slices.Contains(lib.Config.DisabledTypes, GetTypeForTool(name)) {
			continue
		}
		call := t.call
		s.AddTool(t.def, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return call(h, ctx, req)
		})
	}
	return s
}

// Run serves the MCP tools over stdio until stdin closes.
func Run(lib *ops.Library, version string) error {
	return server.ServeStdio(NewServer(lib, version))
}
