package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/contextor-mcp/assemble"
	"github.com/lexandro/contextor-mcp/cache"
	"github.com/lexandro/contextor-mcp/index"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// FormatSearchResults renders search hits grouped by file, with line numbers and context.
func FormatSearchResults(hits []index.Hit, totalMatches int) string {
	if len(hits) == 0 {
		return "No matches found."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Found %d matches in %d files:\n\n", totalMatches, len(hits))

	for i, hit := range hits {
		if i > 0 {
			builder.WriteString("\n")
		}
		fmt.Fprintf(&builder, "── %s (%s) ──\n", hit.RelativePath, assemble.FormatSize(hit.Size))
		for _, match := range hit.Matches {
			for _, line := range match.ContextBefore {
				fmt.Fprintf(&builder, "  %s\n", line)
			}
			fmt.Fprintf(&builder, "  %d: %s\n", match.LineNumber, match.LineText)
			for _, line := range match.ContextAfter {
				fmt.Fprintf(&builder, "  %s\n", line)
			}
		}
	}
	return builder.String()
}

// FormatListing renders a directory listing, one entry per line, directories
// marked with a trailing slash.
func FormatListing(display string, entries []cache.Entry) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s/ (%d entries)\n", display, len(entries))
	for _, e := range entries {
		if e.IsDir {
			fmt.Fprintf(&builder, "  %s/\n", e.Name)
			continue
		}
		fmt.Fprintf(&builder, "  %s  (%s)\n", e.Name, assemble.FormatSize(e.Size))
	}
	return builder.String()
}

// formatCacheStats renders one cache's counters on a single line.
func formatCacheStats(stats cache.Stats) string {
	return fmt.Sprintf("%-9s %d/%d entries, ttl %s, %d hits, %d misses, %d evicted, %d expired",
		stats.Name+":", stats.Entries, stats.MaxSize, stats.TTL,
		stats.Hits, stats.Misses, stats.Evictions, stats.Expired)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, totalSeconds%60)
	}
	return fmt.Sprintf("%dh%dm", totalMinutes/60, totalMinutes%60)
}
