package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexandro/contextor-mcp/core"
	"github.com/lexandro/contextor-mcp/index"
	"github.com/lexandro/contextor-mcp/tools"
)

var (
	flagGlob         string
	flagMaxResults   int
	flagContextLines int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Index the root and search file contents",
	Long: `Index every non-ignored text file under --root and print matching lines.

Query formats:
  plain words      any word matches
  "quoted text"    exact phrase
  /regex/          regular expression`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&flagGlob, "glob", "g", "", "restrict to relative paths matching this glob, e.g. **/*.go")
	searchCmd.Flags().IntVarP(&flagMaxResults, "max-results", "n", 50, "maximum number of files")
	searchCmd.Flags().IntVarP(&flagContextLines, "context", "C", 2, "context lines around each match")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	e, err := newEnv(nil, core.Options{})
	if err != nil {
		return err
	}
	defer e.close()

	contentIndex, err := index.NewContentIndex()
	if err != nil {
		return fmt.Errorf("creating content index: %w", err)
	}
	defer contentIndex.Close()

	builder := &index.Builder{
		Root:        e.root,
		Index:       contentIndex,
		Rules:       e.rules,
		MaxFileSize: flagMaxFileSize,
		Logger:      e.logger,
	}
	stats, err := builder.Build(cmd.Context())
	if err != nil {
		return err
	}
	e.logger.Debug("indexed", "files", stats.Files, "skipped", stats.Skipped, "elapsed", stats.Elapsed)

	hits, total, err := contentIndex.Search(index.SearchOptions{
		Query:        args[0],
		FileGlob:     flagGlob,
		MaxResults:   flagMaxResults,
		ContextLines: flagContextLines,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), tools.FormatSearchResults(hits, total))
	return err
}
