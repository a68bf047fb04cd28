package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/contextor-mcp/assemble"
	"github.com/lexandro/contextor-mcp/core"
	"github.com/lexandro/contextor-mcp/index"
)

// StatusArgs defines the input parameters for the contextor_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Core      *core.Core
	Index     *index.ContentIndex // nil when search is disabled
	StartTime time.Time
	Logger    *slog.Logger
}

// Handle processes a contextor_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder
	uptime := time.Since(h.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	tokenStats := h.Core.Counter().Stats()
	state := "idle"
	if h.Core.Busy() {
		state = "running"
	}

	h.Logger.Info("contextor_status", "state", state, "pending", h.Core.Pending(), "memory", memStats.Alloc, "uptime", uptime)

	builder.WriteString("=== contextor-mcp Status ===\n\n")
	fmt.Fprintf(&builder, "Root directory: %s\n", h.Core.Root())
	fmt.Fprintf(&builder, "Uptime: %s\n", formatDuration(uptime))
	fmt.Fprintf(&builder, "Assembly: %s, %d queued\n", state, h.Core.Pending())
	fmt.Fprintf(&builder, "Default max depth: %d\n", h.Core.MaxDepth())
	fmt.Fprintf(&builder, "Last document: %s\n", assemble.FormatSize(int64(len(h.Core.LastMarkdown()))))
	fmt.Fprintf(&builder, "Tokenizer: %s (%d computed, %d fallbacks)\n",
		tokenStats.Backend, tokenStats.Computations, tokenStats.Fallbacks)
	fmt.Fprintf(&builder, "Memory usage: %s (heap: %s)\n",
		assemble.FormatSize(int64(memStats.Alloc)),
		assemble.FormatSize(int64(memStats.HeapAlloc)),
	)

	builder.WriteString("\nCaches:\n")
	for _, stats := range h.Core.Store().Stats() {
		builder.WriteString("  " + formatCacheStats(stats) + "\n")
	}
	builder.WriteString("  " + formatCacheStats(tokenStats.Cache) + "\n")

	if h.Index != nil {
		indexStats := h.Index.Stats()
		fmt.Fprintf(&builder, "\nSearch index: %d files, %s\n", indexStats.Files, assemble.FormatSize(indexStats.TotalBytes))

		type tagCount struct {
			tag   string
			count int
		}
		tags := make([]tagCount, 0, len(indexStats.FenceTags))
		for tag, count := range indexStats.FenceTags {
			tags = append(tags, tagCount{tag, count})
		}
		sort.Slice(tags, func(i, j int) bool {
			if tags[i].count != tags[j].count {
				return tags[i].count > tags[j].count
			}
			return tags[i].tag < tags[j].tag
		})
		for _, tc := range tags {
			fmt.Fprintf(&builder, "  %-20s %d files\n", tc.tag, tc.count)
		}
	}

	return textResult(builder.String()), nil, nil
}
