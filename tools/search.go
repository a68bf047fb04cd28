package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/contextor-mcp/index"
)

// SearchArgs defines the input parameters for the contextor_search tool.
type SearchArgs struct {
	Query        string `json:"query" jsonschema:"Search query. Plain words match any word; wrap in double quotes for an exact phrase; /regex/ for a regular expression"`
	FileGlob     string `json:"fileGlob,omitempty" jsonschema:"Optional glob over relative paths (e.g. src/**/*.go)"`
	MaxResults   int    `json:"maxResults,omitempty" jsonschema:"Maximum number of files to return (default 50)"`
	ContextLines int    `json:"contextLines,omitempty" jsonschema:"Context lines before and after each match (default 2)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Index  *index.ContentIndex
	Logger *slog.Logger
}

// Handle processes a contextor_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" {
		h.Logger.Warn("contextor_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	contextLines := args.ContextLines
	if contextLines == 0 {
		contextLines = 2
	}

	hits, totalMatches, err := h.Index.Search(index.SearchOptions{
		Query:        args.Query,
		FileGlob:     args.FileGlob,
		MaxResults:   args.MaxResults,
		ContextLines: contextLines,
	})
	if err != nil {
		h.Logger.Error("contextor_search failed", "query", args.Query, "error", err)
		return errorResult("Search error: %v", err), nil, nil
	}

	h.Logger.Info("contextor_search",
		"query", args.Query,
		"fileGlob", args.FileGlob,
		"files", len(hits),
		"matches", totalMatches,
		"elapsed", time.Since(start),
	)
	return textResult(FormatSearchResults(hits, totalMatches)), nil, nil
}
