// Package cmd implements the contextor-mcp command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lexandro/contextor-mcp/assemble"
	"github.com/lexandro/contextor-mcp/cache"
	"github.com/lexandro/contextor-mcp/index"
	"github.com/lexandro/contextor-mcp/tokens"
)

var (
	flagRoot         string
	flagMaxDepth     int
	flagShowIgnored  bool
	flagLogLevel     string
	flagLogFile      string
	flagTokenizer    string
	flagEncoding     string
	flagModel        string
	flagExcludeDirs  []string
	flagExcludeExts  []string
	flagListingCache int
	flagContentCache int
	flagTokenCache   int
	flagCacheTTL     string
	flagMaxFileSize  int64
)

var rootCmd = &cobra.Command{
	Use:   "contextor-mcp",
	Short: "Assemble project files into Markdown for LLM prompts",
	Long: `contextor-mcp renders files and folders of a project into one Markdown document,
each file in a fenced code block, and counts the tokens it will cost.

Without a subcommand it runs as an MCP server on stdio.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagRoot, "root", "", "project root directory (default: current working directory)")
	flags.IntVar(&flagMaxDepth, "max-depth", assemble.DefaultMaxDepth, "directory recursion limit; 0 shows selected directories as headers only")
	flags.BoolVar(&flagShowIgnored, "show-ignored", false, "include entries the ignore rules would skip")
	flags.StringVar(&flagLogLevel, "log-level", "info", "log level: debug|info|warn|error")
	flags.StringVar(&flagLogFile, "log-file", "", "log file path (serve default: <root>/contextor-mcp.log, otherwise stderr)")
	flags.StringVar(&flagTokenizer, "tokenizer", tokens.TokenizerAuto, "token counter: auto|tiktoken|regex")
	flags.StringVar(&flagEncoding, "encoding", tokens.DefaultEncoding, "BPE encoding for the tiktoken counter")
	flags.StringVar(&flagModel, "model", "", "model name selecting the BPE encoding (overrides --encoding)")
	flags.StringSliceVar(&flagExcludeDirs, "exclude-dir", nil, "extra directory name to ignore (repeatable)")
	flags.StringSliceVar(&flagExcludeExts, "exclude-ext", nil, "extra file extension to ignore, e.g. .csv (repeatable)")
	flags.IntVar(&flagListingCache, "listing-cache", cache.DefaultListingMaxSize, "directory listing cache capacity")
	flags.IntVar(&flagContentCache, "content-cache", cache.DefaultContentMaxSize, "file content cache capacity")
	flags.IntVar(&flagTokenCache, "token-cache", 0, "token count cache capacity (0: tokenizer default)")
	flags.StringVar(&flagCacheTTL, "cache-ttl", cache.DefaultTTL.String(), "maximum age of cached entries, e.g. 5m")
	flags.Int64Var(&flagMaxFileSize, "max-file-size", index.DefaultMaxFileSize, "largest file the search index accepts, in bytes")
}
