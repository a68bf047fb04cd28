package index

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/bmatcuk/doublestar/v4"
)

const defaultMaxResults = 50

// SearchOptions configures a search.
type SearchOptions struct {
	// Query is plain words (any may match), a "quoted phrase" or a /regex/.
	Query        string
	FileGlob     string // doublestar pattern over relative paths, e.g. "src/**/*.go"
	MaxResults   int    // files, default 50
	ContextLines int
}

// Hit is one file with its matching lines.
type Hit struct {
	RelativePath string
	FenceTag     string
	Size         int64
	Matches      []LineMatch
}

// LineMatch is a matching line with surrounding context.
type LineMatch struct {
	LineNumber    int // 1-based
	LineText      string
	ContextBefore []string
	ContextAfter  []string
}

// lineMatcher decides whether one line of a hit file matches the query.
type lineMatcher func(line string) bool

// Search runs the query against Bleve and extracts matching lines from each hit,
// in relevance order. It returns the hits and the total number of matching lines.
func (ci *ContentIndex) Search(options SearchOptions) ([]Hit, int, error) {
	if options.MaxResults <= 0 {
		options.MaxResults = defaultMaxResults
	}
	if options.ContextLines < 0 {
		options.ContextLines = 0
	}
	glob := strings.ReplaceAll(options.FileGlob, "\\", "/")
	if glob != "" && !doublestar.ValidatePattern(glob) {
		return nil, 0, fmt.Errorf("invalid file glob %q", options.FileGlob)
	}

	bleveQuery, matchLine, err := parseQuery(options.Query)
	if err != nil {
		return nil, 0, err
	}

	ci.mu.RLock()
	defer ci.mu.RUnlock()

	request := bleve.NewSearchRequest(bleveQuery)
	// Overfetch: glob filtering happens after Bleve.
	request.Size = options.MaxResults * 5
	result, err := ci.index.Search(request)
	if err != nil {
		return nil, 0, fmt.Errorf("searching index: %w", err)
	}

	var hits []Hit
	total := 0
	for _, docHit := range result.Hits {
		file, ok := ci.files[docHit.ID]
		if !ok {
			continue
		}
		if glob != "" {
			if matched, _ := doublestar.Match(glob, docHit.ID); !matched {
				continue
			}
		}

		matches := findMatchingLines(file.content, matchLine, options.ContextLines)
		if len(matches) == 0 {
			continue
		}
		total += len(matches)
		hits = append(hits, Hit{
			RelativePath: docHit.ID,
			FenceTag:     file.fenceTag,
			Size:         file.size,
			Matches:      matches,
		})
		if len(hits) >= options.MaxResults {
			break
		}
	}
	return hits, total, nil
}

// parseQuery builds the Bleve query and the matching line predicate.
func parseQuery(raw string) (query.Query, lineMatcher, error) {
	q := strings.TrimSpace(raw)
	if q == "" {
		return nil, nil, fmt.Errorf("empty query")
	}

	if len(q) > 2 && strings.HasPrefix(q, "/") && strings.HasSuffix(q, "/") {
		pattern := q[1 : len(q)-1]
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
		}
		// Bleve matches regexes against lowercased terms.
		return bleve.NewRegexpQuery(strings.ToLower(pattern)), re.MatchString, nil
	}

	if len(q) > 2 && strings.HasPrefix(q, "\"") && strings.HasSuffix(q, "\"") {
		phrase := q[1 : len(q)-1]
		lowered := strings.ToLower(phrase)
		return bleve.NewMatchPhraseQuery(phrase), func(line string) bool {
			return strings.Contains(strings.ToLower(line), lowered)
		}, nil
	}

	terms := strings.Fields(strings.ToLower(q))
	return bleve.NewMatchQuery(q), func(line string) bool {
		lowered := strings.ToLower(line)
		for _, term := range terms {
			if strings.Contains(lowered, term) {
				return true
			}
		}
		return false
	}, nil
}

func findMatchingLines(content string, match lineMatcher, contextLines int) []LineMatch {
	lines := strings.Split(content, "\n")

	var matches []LineMatch
	for i, line := range lines {
		if !match(line) {
			continue
		}
		m := LineMatch{LineNumber: i + 1, LineText: line}
		if contextLines > 0 {
			start := max(0, i-contextLines)
			end := min(len(lines), i+contextLines+1)
			m.ContextBefore = append(m.ContextBefore, lines[start:i]...)
			m.ContextAfter = append(m.ContextAfter, lines[i+1:end]...)
		}
		matches = append(matches, m)
	}
	return matches
}
