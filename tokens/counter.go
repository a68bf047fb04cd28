// Package tokens estimates how many LLM tokens a text consumes.
package tokens

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/lexandro/contextor-mcp/cache"
	"github.com/lexandro/contextor-mcp/metrics"
)

// Tokenizer selection values for Options.Tokenizer.
const (
	TokenizerAuto     = "auto"
	TokenizerTiktoken = "tiktoken"
	TokenizerRegex    = "regex"
)

// Default token cache capacities. Precise counts are costlier to recompute, so more
// of them are kept.
const (
	DefaultPreciseCacheSize = 200
	DefaultRegexCacheSize   = 100
	DefaultCacheTTL         = 5 * time.Minute
)

// Options configures a Counter.
type Options struct {
	Tokenizer string // auto (default), tiktoken or regex
	Encoding  string // BPE encoding name, default cl100k_base
	Model     string // model name; overrides Encoding when set
	CacheSize int    // 0 picks the backend default
	CacheTTL  time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// Stats describes the counter's backend and cache activity.
type Stats struct {
	Backend      string
	Computations uint64
	Fallbacks    uint64
	Cache        cache.Stats
}

// cacheKey identifies a text by content hash plus byte length, without keeping the text.
type cacheKey struct {
	hash   uint64
	length int
}

// Counter counts tokens with a primary backend, falling back to the regex backend and
// then to a word count, and memoizes results. Safe for concurrent use.
type Counter struct {
	primary  Backend
	fallback Backend
	cache    *cache.Cache[cacheKey, int]
	logger   *slog.Logger

	computations atomic.Uint64
	fallbacks    atomic.Uint64
}

// NewCounter builds a counter whose backend is chosen from options. With "auto", a
// tokenizer that cannot be loaded degrades to the regex backend; with "tiktoken" the
// load error is returned.
func NewCounter(options Options) (*Counter, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var backend Backend
	switch options.Tokenizer {
	case TokenizerRegex:
		backend = RegexBackend{}
	case TokenizerTiktoken:
		precise, err := NewTiktokenBackend(options.Encoding, options.Model)
		if err != nil {
			return nil, err
		}
		backend = precise
	default:
		precise, err := NewTiktokenBackend(options.Encoding, options.Model)
		if err != nil {
			logger.Warn("precise tokenizer unavailable, using regex approximation", "error", err)
			backend = RegexBackend{}
		} else {
			backend = precise
		}
	}

	return NewCounterWithBackend(backend, options), nil
}

// NewCounterWithBackend builds a counter around an explicit backend.
func NewCounterWithBackend(backend Backend, options Options) *Counter {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	size := options.CacheSize
	if size <= 0 {
		size = DefaultPreciseCacheSize
		if _, ok := backend.(RegexBackend); ok {
			size = DefaultRegexCacheSize
		}
	}
	ttl := options.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}

	return &Counter{
		primary:  backend,
		fallback: RegexBackend{},
		cache: cache.New[cacheKey, int](cache.Options{
			Name:    "tokens",
			MaxSize: size,
			TTL:     ttl,
			Now:     options.Now,
		}),
		logger: logger,
	}
}

// Count returns the token count of text. It never fails: backend errors degrade to
// cheaper approximations. Empty and whitespace-only text counts as zero.
func (c *Counter) Count(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	key := cacheKey{hash: xxhash.Sum64String(trimmed), length: len(trimmed)}
	if count, ok := c.cache.Get(key); ok {
		return count
	}

	count := c.compute(text)
	c.cache.Put(key, count)
	return count
}

func (c *Counter) compute(text string) int {
	c.computations.Add(1)

	count, err := c.primary.Count(text)
	if err == nil {
		metrics.RecordTokenComputation(c.primary.Name())
		return count
	}
	c.fallbacks.Add(1)
	c.logger.Warn("token backend failed, falling back", "backend", c.primary.Name(), "error", err)

	if c.primary.Name() != c.fallback.Name() {
		count, err = c.fallback.Count(text)
		if err == nil {
			metrics.RecordTokenComputation(c.fallback.Name())
			return count
		}
		c.logger.Warn("token backend failed, falling back", "backend", c.fallback.Name(), "error", err)
	}

	metrics.RecordTokenComputation("words")
	return countWords(text)
}

// Backend returns the name of the primary backend.
func (c *Counter) Backend() string {
	return c.primary.Name()
}

// ClearCache drops all memoized counts.
func (c *Counter) ClearCache() {
	c.cache.Clear()
}

// Stats returns a snapshot of the counter.
func (c *Counter) Stats() Stats {
	return Stats{
		Backend:      c.primary.Name(),
		Computations: c.computations.Load(),
		Fallbacks:    c.fallbacks.Load(),
		Cache:        c.cache.Stats(),
	}
}
