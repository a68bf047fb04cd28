// Package server builds the MCP server exposing the contextor tools.
package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/contextor-mcp/tools"
)

// Version is reported to MCP clients during initialization.
const Version = "0.3.0"

// Handlers groups every tool handler the server registers.
// Search and Reindex are optional; nil leaves the tool unregistered.
type Handlers struct {
	Assemble *tools.AssembleHandler
	Cancel   *tools.CancelHandler
	Count    *tools.CountHandler
	List     *tools.ListHandler
	Save     *tools.SaveHandler
	Status   *tools.StatusHandler
	Search   *tools.SearchHandler
	Reindex  *tools.ReindexHandler
}

const instructions = `This server turns files and folders of the project into a single Markdown document ready to paste into an LLM prompt, and reports its token count.

Typical flow:
- Use contextor_list to browse the project (ignored build output, VCS metadata and hidden files are skipped unless showIgnored is set)
- Use contextor_assemble with the paths you need; directories are rendered recursively up to maxDepth
- Use contextor_count to check the token budget, contextor_save to write the document to disk (default llm.txt)
- Use contextor_search to find which files mention something before assembling them
- Listings and file contents are cached briefly and refreshed automatically when files change`

// Setup creates the MCP server and registers the tools.
func Setup(h Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "contextor-mcp",
			Version: Version,
		},
		&mcp.ServerOptions{Instructions: instructions},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "contextor_assemble",
		Description: `Render files and directories into one Markdown document.

Each file becomes a "## path" header, its size and a fenced code block tagged with its language.
Each directory becomes a header, a "Contains: N folders, M files" line and its children, folders first.
Binary files are replaced by a placeholder. Directories deeper than maxDepth show a depth notice instead of their content.

Returns the document followed by a line with its token and byte counts. Set output to also save it.`,
	}, h.Assemble.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "contextor_cancel",
		Description: "Cancel the running assembly, or the next queued one when nothing is running.",
	}, h.Cancel.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "contextor_count",
		Description: "Count tokens in the given text, in a project file, or (with no arguments) in the last assembled document.",
	}, h.Count.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "contextor_list",
		Description: `List a project directory, folders first, with file sizes.

Filter examples:
  - "test" - names containing "test"
  - "*.go" - Go files
  - "{cmd,internal}" - exactly those names`,
	}, h.List.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "contextor_save",
		Description: "Save the last assembled document. Defaults to llm.txt in the project root; the file is replaced atomically.",
	}, h.Save.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "contextor_status",
		Description: "Show server status: assembly queue, tokenizer, cache hit rates, search index size, memory usage and uptime.",
	}, h.Status.Handle)

	if h.Search != nil {
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name: "contextor_search",
			Description: `Search file contents using the in-memory full-text index.

Query formats:
  - Plain text: word-level matching (e.g., "handleRequest")
  - "quoted text": exact phrase matching (e.g., "\"func main\"")
  - /regex/: regular expression matching (e.g., "/func\s+\w+Handler/")

Use fileGlob to restrict by path (e.g., "**/*.go").`,
		}, h.Search.Handle)
	}

	if h.Reindex != nil {
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        "contextor_reindex",
			Description: "Drop every cached listing, file content and token count, then rebuild the search index from disk.",
		}, h.Reindex.Handle)
	}

	return mcpServer
}
