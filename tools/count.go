package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/contextor-mcp/browse"
	"github.com/lexandro/contextor-mcp/core"
	"github.com/lexandro/contextor-mcp/language"
)

// CountArgs defines the input parameters for the contextor_count tool.
type CountArgs struct {
	Text string `json:"text,omitempty" jsonschema:"Text to count. When text and path are both empty, the last assembled document is counted"`
	Path string `json:"path,omitempty" jsonschema:"File to count, relative to the project root"`
}

// CountHandler holds the dependencies for the count tool.
type CountHandler struct {
	Core    *core.Core
	Browser *browse.Browser
	Logger  *slog.Logger
}

// Handle processes a contextor_count request.
func (h *CountHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args CountArgs) (*mcp.CallToolResult, any, error) {
	text := args.Text
	source := "text"

	switch {
	case args.Path != "":
		resolved, err := h.Browser.Resolve(filepath.FromSlash(args.Path))
		if err != nil {
			return errorResult("Error: %v", err), nil, nil
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return errorResult("Error: cannot read %s: %v", args.Path, err), nil, nil
		}
		decoded, _, err := language.Decode(data)
		if errors.Is(err, language.ErrBinaryContent) {
			return errorResult("Error: %s is a binary file", args.Path), nil, nil
		}
		text, source = decoded, args.Path
	case text == "":
		text = h.Core.LastMarkdown()
		if text == "" {
			return errorResult("Error: nothing to count; pass text or path, or assemble a document first"), nil, nil
		}
		source = "last document"
	}

	count := h.Core.CountTokens(text)
	backend := h.Core.Counter().Backend()
	h.Logger.Info("contextor_count", "source", source, "tokens", count, "backend", backend)

	return textResult(fmt.Sprintf("%d tokens in %s (%s)", count, source, backend)), nil, nil
}
