package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/lexandro/contextor-mcp/browse"
	"github.com/lexandro/contextor-mcp/core"
	"github.com/lexandro/contextor-mcp/index"
	"github.com/lexandro/contextor-mcp/metrics"
	"github.com/lexandro/contextor-mcp/server"
	"github.com/lexandro/contextor-mcp/tools"
	"github.com/lexandro/contextor-mcp/watcher"
)

var (
	flagWatch       bool
	flagSearch      bool
	flagMetricsAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().BoolVar(&flagWatch, "watch", true, "refresh caches and the search index when files change")
		c.Flags().BoolVar(&flagSearch, "search", true, "build the in-memory search index and expose contextor_search")
		c.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	}
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := newEnv(func(root string) string {
		return filepath.Join(root, "contextor-mcp.log")
	}, core.Options{})
	if err != nil {
		return err
	}
	defer e.close()
	logger := e.logger

	logger.Info("starting contextor-mcp",
		"root", e.root,
		"maxDepth", e.core.MaxDepth(),
		"tokenizer", e.counter.Backend(),
		"watch", flagWatch,
		"search", flagSearch,
	)

	browser, err := browse.NewBrowser(e.root, e.store, e.rules)
	if err != nil {
		return err
	}

	handlers := server.Handlers{
		Assemble: &tools.AssembleHandler{Core: e.core, Browser: browser, Logger: logger},
		Cancel:   &tools.CancelHandler{Core: e.core, Logger: logger},
		Count:    &tools.CountHandler{Core: e.core, Browser: browser, Logger: logger},
		List:     &tools.ListHandler{Core: e.core, Browser: browser, Logger: logger},
		Save:     &tools.SaveHandler{Core: e.core, Browser: browser, Logger: logger},
		Status:   &tools.StatusHandler{Core: e.core, StartTime: startTime, Logger: logger},
	}

	var builder *index.Builder
	if flagSearch {
		contentIndex, err := index.NewContentIndex()
		if err != nil {
			return fmt.Errorf("creating content index: %w", err)
		}
		defer contentIndex.Close()

		builder = &index.Builder{
			Root:        e.root,
			Index:       contentIndex,
			Rules:       e.rules,
			MaxFileSize: flagMaxFileSize,
			Logger:      logger,
		}
		stats, err := builder.Build(ctx)
		if err != nil {
			return fmt.Errorf("initial indexing: %w", err)
		}
		logger.Info("initial indexing complete",
			"files", stats.Files,
			"totalSize", stats.TotalBytes,
			"skipped", stats.Skipped,
			"duration", stats.Elapsed,
		)

		handlers.Status.Index = contentIndex
		handlers.Search = &tools.SearchHandler{Index: contentIndex, Logger: logger}
		handlers.Reindex = &tools.ReindexHandler{Logger: logger, DoReindex: reindexFunc(e, contentIndex, builder)}
	}

	if flagWatch {
		w, err := watcher.New(watcher.Options{Root: e.root, Rules: e.rules, Logger: logger})
		if err != nil {
			logger.Warn("failed to start file watcher, continuing without live updates", "error", err)
		} else {
			go w.Start()
			var updater watcher.IndexUpdater
			if builder != nil {
				updater = builder
			}
			go watcher.Run(w, e.store, updater, logger)
			defer w.Close()
		}
	}

	if flagMetricsAddr != "" {
		go metrics.Serve(ctx, flagMetricsAddr, logger)
	}

	mcpServer := server.Setup(handlers)

	logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("MCP server error", "error", err)
		return err
	}
	logger.Info("MCP server stopped")
	return nil
}

// reindexFunc drops every cache and rebuilds the search index from disk.
func reindexFunc(e *env, contentIndex *index.ContentIndex, builder *index.Builder) tools.ReindexFunc {
	return func(ctx context.Context) (index.BuildStats, error) {
		e.store.Clear()
		e.counter.ClearCache()
		if err := contentIndex.Clear(); err != nil {
			return index.BuildStats{}, fmt.Errorf("clearing content index: %w", err)
		}
		return builder.Build(ctx)
	}
}
