package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/contextor-mcp/assemble"
	"github.com/lexandro/contextor-mcp/index"
)

// ReindexArgs defines the input parameters for the contextor_reindex tool.
type ReindexArgs struct{}

// ReindexFunc clears the caches and rebuilds the search index.
type ReindexFunc func(ctx context.Context) (index.BuildStats, error)

// ReindexHandler holds the dependencies for the reindex tool.
type ReindexHandler struct {
	DoReindex ReindexFunc
	Logger    *slog.Logger
}

// Handle processes a contextor_reindex request.
func (h *ReindexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReindexArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("contextor_reindex started")

	stats, err := h.DoReindex(ctx)
	if err != nil {
		h.Logger.Error("contextor_reindex failed", "error", err)
		return errorResult("Reindex error: %v", err), nil, nil
	}

	h.Logger.Info("contextor_reindex complete",
		"files", stats.Files,
		"totalSize", stats.TotalBytes,
		"skipped", stats.Skipped,
		"elapsed", stats.Elapsed,
	)

	return textResult(fmt.Sprintf("Reindex complete: %d files (%s), %d skipped, caches cleared in %s",
		stats.Files, assemble.FormatSize(stats.TotalBytes), stats.Skipped,
		stats.Elapsed.Round(time.Millisecond))), nil, nil
}
