package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexandro/contextor-mcp/register"
)

var flagServerName string

var registerCmd = &cobra.Command{
	Use:   "register <project|user> [directory] [-- server flags...]",
	Short: "Add this server to an MCP client configuration",
	Example: `  contextor-mcp register project            # ./.mcp.json
  contextor-mcp register project ../app     # ../app/.mcp.json
  contextor-mcp register user               # ~/.claude.json
  contextor-mcp register user -- --tokenizer regex`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		options, err := registerOptions(cmd, args)
		if err != nil {
			return err
		}
		configPath, err := register.Register(options)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %q in %s\n", options.ServerName, configPath)
		return nil
	},
}

var unregisterCmd = &cobra.Command{
	Use:   "unregister <project|user> [directory]",
	Short: "Remove this server from an MCP client configuration",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		options, err := registerOptions(cmd, args)
		if err != nil {
			return err
		}
		configPath, err := register.Unregister(options)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %q from %s\n", options.ServerName, configPath)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, unregisterCmd} {
		c.Flags().StringVar(&flagServerName, "name", "", "server name in the config (default: binary name without -mcp)")
		rootCmd.AddCommand(c)
	}
}

// registerOptions splits args at "--": scope and optional directory before it,
// flags forwarded to the server after it.
func registerOptions(cmd *cobra.Command, args []string) (register.Options, error) {
	positional, serverArgs := args, []string(nil)
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		positional, serverArgs = args[:dash], args[dash:]
	}
	if len(positional) == 0 || len(positional) > 2 {
		return register.Options{}, fmt.Errorf("expected <project|user> [directory], got %d arguments", len(positional))
	}

	scope, err := register.ParseScope(positional[0])
	if err != nil {
		return register.Options{}, err
	}
	options := register.Options{Scope: scope, ServerName: flagServerName, ServerArgs: serverArgs}
	if len(positional) == 2 {
		if scope != register.ScopeProject {
			return register.Options{}, fmt.Errorf("a directory is only accepted with the project scope")
		}
		options.Directory = positional[1]
	}
	return options, nil
}
