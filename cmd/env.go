package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexandro/contextor-mcp/cache"
	"github.com/lexandro/contextor-mcp/core"
	"github.com/lexandro/contextor-mcp/ignore"
	"github.com/lexandro/contextor-mcp/tokens"
)

// env holds the components every subcommand shares, built from the global flags.
type env struct {
	root    string
	logger  *slog.Logger
	rules   *ignore.RuleSet
	store   *cache.Store
	counter *tokens.Counter
	core    *core.Core
	logFile *os.File
}

// newEnv resolves the root and builds the logger, ignore rules, caches, token counter
// and core. defaultLogFile is used when --log-file is not given; empty means stderr.
func newEnv(defaultLogFile func(root string) string, options core.Options) (*env, error) {
	root, err := resolveRoot(flagRoot)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := time.ParseDuration(flagCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid --cache-ttl %q: %w", flagCacheTTL, err)
	}

	logFile := flagLogFile
	if logFile == "" && defaultLogFile != nil {
		logFile = defaultLogFile(root)
	}
	logger, file := setupLogger(flagLogLevel, logFile)
	e := &env{root: root, logger: logger, logFile: file}

	e.rules = ignore.DefaultRuleSet().Extend(flagExcludeDirs, normalizeExtensions(flagExcludeExts))
	e.store = cache.NewStore(cache.StoreOptions{
		ListingMaxSize: flagListingCache,
		ListingTTL:     cacheTTL,
		ContentMaxSize: flagContentCache,
		ContentTTL:     cacheTTL,
	})

	e.counter, err = tokens.NewCounter(tokens.Options{
		Tokenizer: flagTokenizer,
		Encoding:  flagEncoding,
		Model:     flagModel,
		CacheSize: flagTokenCache,
		CacheTTL:  cacheTTL,
		Logger:    logger,
	})
	if err != nil {
		e.close()
		return nil, fmt.Errorf("creating token counter: %w", err)
	}

	options.Root = root
	maxDepth := flagMaxDepth
	options.MaxDepth = &maxDepth
	options.ShowIgnored = flagShowIgnored
	options.Rules = e.rules
	options.Store = e.store
	options.Counter = e.counter
	options.Logger = logger
	e.core, err = core.New(options)
	if err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

func (e *env) close() {
	if e.core != nil {
		e.core.Close()
	}
	if e.logFile != nil {
		e.logFile.Close()
	}
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s is not a directory", abs)
	}
	return abs, nil
}

// normalizeExtensions adds the leading dot users tend to forget.
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// setupLogger creates an slog.Logger writing to a file or stderr, never to stdout:
// stdout carries MCP traffic or the rendered document.
func setupLogger(level string, logFile string) (*slog.Logger, *os.File) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	writer := os.Stderr
	var file *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
		} else {
			writer, file = f, f
		}
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler), file
}
