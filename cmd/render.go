package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexandro/contextor-mcp/browse"
	"github.com/lexandro/contextor-mcp/core"
	"github.com/lexandro/contextor-mcp/task"
)

var flagOutput string

var renderCmd = &cobra.Command{
	Use:   "render [paths...]",
	Short: "Render files and directories to Markdown",
	Long: `Render the given files and directories, in order, into one Markdown document.
Paths are relative to the working directory and must lie under --root.
Without paths the whole root is rendered. Interrupting cancels the render.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the document to this file instead of stdout")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var e *env
	e, err := newEnv(nil, core.Options{
		OnProgress: func(message string) {
			if e != nil {
				e.logger.Debug(message)
			}
		},
	})
	if err != nil {
		return err
	}
	defer e.close()

	selections, err := resolveSelections(e.root, args)
	if err != nil {
		return err
	}

	result := e.core.Assemble(ctx, selections, e.core.MaxDepth(), e.core.ShowIgnored())
	switch result.Status {
	case task.StatusCancelled:
		return fmt.Errorf("render cancelled")
	case task.StatusFailed:
		return result.Err
	}

	if flagOutput != "" {
		target, err := filepath.Abs(flagOutput)
		if err != nil {
			return err
		}
		if err := browse.SaveText(target, result.Markdown); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved to %s\n", target)
	} else if _, err := fmt.Fprint(cmd.OutOrStdout(), result.Markdown); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%d tokens (%s), %d bytes\n", result.Tokens, e.counter.Backend(), len(result.Markdown))
	return nil
}

// resolveSelections makes args absolute and checks they lie under root.
// No args selects the root itself.
func resolveSelections(root string, args []string) ([]string, error) {
	if len(args) == 0 {
		return []string{root}, nil
	}
	selections := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", arg, err)
		}
		if !browse.Within(root, abs) {
			return nil, fmt.Errorf("path %s is outside %s", arg, root)
		}
		selections = append(selections, abs)
	}
	return selections, nil
}
