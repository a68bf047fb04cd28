package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexandro/contextor-mcp/core"
	"github.com/lexandro/contextor-mcp/language"
)

var countCmd = &cobra.Command{
	Use:   "count [files...]",
	Short: "Count tokens in files, or in stdin when no file is given",
	RunE:  runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	e, err := newEnv(nil, core.Options{})
	if err != nil {
		return err
	}
	defer e.close()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text, _, err := language.Decode(data)
		if err != nil {
			return fmt.Errorf("stdin: %w", err)
		}
		fmt.Fprintf(out, "%d\n", e.core.CountTokens(text))
		return nil
	}

	total := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		text, _, err := language.Decode(data)
		if errors.Is(err, language.ErrBinaryContent) {
			e.logger.Warn("skipping binary file", "path", path)
			continue
		}
		n := e.core.CountTokens(text)
		total += n
		fmt.Fprintf(out, "%8d  %s\n", n, path)
	}
	if len(args) > 1 {
		fmt.Fprintf(out, "%8d  total (%s)\n", total, e.counter.Backend())
	}
	return nil
}
