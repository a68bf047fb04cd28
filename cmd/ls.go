package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lexandro/contextor-mcp/assemble"
	"github.com/lexandro/contextor-mcp/browse"
	"github.com/lexandro/contextor-mcp/core"
	"github.com/lexandro/contextor-mcp/tools"
)

var flagFilter string

var lsCmd = &cobra.Command{
	Use:   "ls [directory]",
	Short: "List a directory the way render would traverse it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLs,
}

func init() {
	lsCmd.Flags().StringVarP(&flagFilter, "filter", "f", "", "name filter; a glob when it contains * ? [ or {")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	e, err := newEnv(nil, core.Options{})
	if err != nil {
		return err
	}
	defer e.close()

	dir := e.root
	if len(args) == 1 {
		selections, err := resolveSelections(e.root, args)
		if err != nil {
			return err
		}
		dir = selections[0]
	}

	entries, err := assemble.ListDir(e.store, e.rules, dir, e.core.ShowIgnored())
	if err != nil {
		return err
	}
	entries, err = browse.FilterEntries(entries, flagFilter)
	if err != nil {
		return err
	}

	display := filepath.Base(e.root)
	if rel, _ := filepath.Rel(e.root, dir); rel != "." {
		display += "/" + filepath.ToSlash(rel)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), tools.FormatListing(display, entries))
	return err
}
