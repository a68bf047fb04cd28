package tools

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/contextor-mcp/assemble"
	"github.com/lexandro/contextor-mcp/browse"
	"github.com/lexandro/contextor-mcp/core"
)

// ListArgs defines the input parameters for the contextor_list tool.
type ListArgs struct {
	Path        string `json:"path,omitempty" jsonschema:"Directory relative to the project root (default: the root)"`
	Filter      string `json:"filter,omitempty" jsonschema:"Case-insensitive name filter; a glob when it contains * ? [ or {"`
	ShowIgnored bool   `json:"showIgnored,omitempty" jsonschema:"Include entries normally skipped by the ignore rules"`
}

// ListHandler holds the dependencies for the list tool.
type ListHandler struct {
	Core    *core.Core
	Browser *browse.Browser
	Logger  *slog.Logger
}

// Handle processes a contextor_list request.
func (h *ListHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ListArgs) (*mcp.CallToolResult, any, error) {
	dir, err := h.Browser.Resolve(filepath.FromSlash(args.Path))
	if err != nil {
		return errorResult("Error: %v", err), nil, nil
	}

	entries, err := assemble.ListDir(h.Core.Store(), h.Core.Rules(), dir, args.ShowIgnored)
	if err != nil {
		h.Logger.Warn("contextor_list failed", "path", dir, "error", err)
		return errorResult("Error: %v", err), nil, nil
	}
	entries, err = browse.FilterEntries(entries, args.Filter)
	if err != nil {
		return errorResult("Error: %v", err), nil, nil
	}

	display := filepath.Base(h.Browser.Base())
	if rel, _ := filepath.Rel(h.Browser.Base(), dir); rel != "." {
		display += "/" + filepath.ToSlash(rel)
	}

	h.Logger.Info("contextor_list", "path", dir, "filter", args.Filter, "entries", len(entries))
	return textResult(FormatListing(display, entries)), nil, nil
}
