package tools

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/contextor-mcp/browse"
	"github.com/lexandro/contextor-mcp/core"
	"github.com/lexandro/contextor-mcp/task"
)

// AssembleArgs defines the input parameters for the contextor_assemble tool.
type AssembleArgs struct {
	Paths       []string `json:"paths" jsonschema:"Files or directories to include, relative to the project root, in output order"`
	MaxDepth    *int     `json:"maxDepth,omitempty" jsonschema:"Directory recursion limit (default from server configuration, usually 3); 0 shows selected directories as headers only"`
	ShowIgnored bool     `json:"showIgnored,omitempty" jsonschema:"Include entries normally skipped by the ignore rules (build output, VCS metadata, hidden files)"`
	Output      string   `json:"output,omitempty" jsonschema:"Also save the document to this path relative to the project root"`
}

// AssembleHandler holds the dependencies for the assemble tool.
type AssembleHandler struct {
	Core    *core.Core
	Browser *browse.Browser
	Logger  *slog.Logger
}

// Handle processes a contextor_assemble request.
func (h *AssembleHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args AssembleArgs) (*mcp.CallToolResult, any, error) {
	if len(args.Paths) == 0 {
		h.Logger.Warn("contextor_assemble called without paths")
		return errorResult("Error: paths parameter is required"), nil, nil
	}

	depth := core.DefaultDepth
	if args.MaxDepth != nil {
		if *args.MaxDepth < 0 {
			return errorResult("Error: maxDepth must not be negative, got %d", *args.MaxDepth), nil, nil
		}
		depth = *args.MaxDepth
	}

	selections := make([]string, 0, len(args.Paths))
	for _, p := range args.Paths {
		resolved, err := h.Browser.Resolve(filepath.FromSlash(p))
		if err != nil {
			return errorResult("Error: %v", err), nil, nil
		}
		selections = append(selections, resolved)
	}

	result := h.Core.Assemble(ctx, selections, depth, args.ShowIgnored)
	h.Logger.Info("contextor_assemble",
		"paths", len(selections),
		"status", result.Status,
		"bytes", len(result.Markdown),
		"tokens", result.Tokens,
		"elapsed", result.Elapsed,
	)

	switch result.Status {
	case task.StatusCancelled:
		return textResult(result.Markdown), nil, nil
	case task.StatusFailed:
		return errorResult("%s", result.Markdown), nil, nil
	}

	summary := fmt.Sprintf("%d tokens, %d bytes, assembled in %s",
		result.Tokens, len(result.Markdown), result.Elapsed.Round(time.Millisecond))

	if args.Output != "" {
		target, err := h.Browser.Resolve(filepath.FromSlash(args.Output))
		if err != nil {
			return errorResult("Error: %v", err), nil, nil
		}
		saved, err := h.Core.Save(target)
		if err != nil {
			h.Logger.Error("contextor_assemble save failed", "path", target, "error", err)
			return errorResult("Save error: %v", err), nil, nil
		}
		summary += ", saved to " + saved
	}

	if result.Markdown == "" {
		return textResult("Nothing to assemble: every selected path is ignored or missing.\n" + summary), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: result.Markdown},
			&mcp.TextContent{Text: summary},
		},
	}, nil, nil
}

// CancelArgs defines the input parameters for the contextor_cancel tool (none required).
type CancelArgs struct{}

// CancelHandler holds the dependencies for the cancel tool.
type CancelHandler struct {
	Core   *core.Core
	Logger *slog.Logger
}

// Handle processes a contextor_cancel request.
func (h *CancelHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args CancelArgs) (*mcp.CallToolResult, any, error) {
	cancelled := h.Core.CancelCurrentAssembly()
	h.Logger.Info("contextor_cancel", "cancelled", cancelled)
	if !cancelled {
		return textResult("No assembly is running."), nil, nil
	}
	return textResult("Cancellation requested."), nil, nil
}

// SaveArgs defines the input parameters for the contextor_save tool.
type SaveArgs struct {
	Path string `json:"path,omitempty" jsonschema:"Target path relative to the project root (default llm.txt)"`
}

// SaveHandler holds the dependencies for the save tool.
type SaveHandler struct {
	Core    *core.Core
	Browser *browse.Browser
	Logger  *slog.Logger
}

// Handle processes a contextor_save request.
func (h *SaveHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SaveArgs) (*mcp.CallToolResult, any, error) {
	target := h.Browser.DefaultOutputPath()
	if args.Path != "" {
		resolved, err := h.Browser.Resolve(filepath.FromSlash(args.Path))
		if err != nil {
			return errorResult("Error: %v", err), nil, nil
		}
		target = resolved
	}

	saved, err := h.Core.Save(target)
	if err != nil {
		h.Logger.Error("contextor_save failed", "path", target, "error", err)
		return errorResult("Save error: %v", err), nil, nil
	}
	h.Logger.Info("contextor_save", "path", saved)
	return textResult("Saved to " + saved), nil, nil
}
