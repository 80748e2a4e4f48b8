package query

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SearchHit is one line matched by search_text.
type SearchHit struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Text   string `json:"text"`
}

// SearchTextOptions are the parameters of search_text/search_rg/grep.
type SearchTextOptions struct {
	Pattern string
	Limit   int
}

// SearchTextResult is the response for search_text.
type SearchTextResult struct {
	Hits       []SearchHit `json:"hits"`
	Provenance *Provenance `json:"provenance"`
	NextHops   []Hop       `json:"next_hops"`
}

// SearchText implements search_text: a pattern search bounded by
// PatternMaxLength and SearchTimeoutSecs, preferring ripgrep and falling
// back to an in-process regexp walk of live files when rg is unavailable
// (grounded on original_source's search_with_rg/search_fallback_exact
// two-tier approach, and on internal/gitmine's bounded-subprocess
// pattern for shelling out safely).
func (e *Engine) SearchText(ctx context.Context, opts SearchTextOptions) (*SearchTextResult, error) {
	start := time.Now()
	state, err := e.GetRepoState(ctx)
	if err != nil {
		return nil, err
	}

	maxLen := e.cfg.Search.PatternMaxLength
	if maxLen > 0 && len(opts.Pattern) > maxLen {
		return nil, fmt.Errorf("search_text: pattern exceeds max length %d", maxLen)
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	timeoutSecs := e.cfg.Search.SearchTimeoutSecs
	if timeoutSecs <= 0 {
		timeoutSecs = 30
	}
	searchCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	hits, err := searchWithRipgrep(searchCtx, e.repoRoot, opts.Pattern, opts.Limit)
	var warnings []string
	if err != nil {
		warnings = append(warnings, "ripgrep unavailable, used in-process fallback search")
		hits, err = e.searchFallback(searchCtx, opts.Pattern, opts.Limit)
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Path != hits[j].Path {
			return hits[i].Path < hits[j].Path
		}
		return hits[i].Line < hits[j].Line
	})
	if len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}

	var nextHops []Hop
	if len(hits) > 0 {
		nextHops = append(nextHops, Hop{
			Method: "open_file",
			Params: map[string]interface{}{"path": hits[0].Path, "start_line": hits[0].Line},
			Reason: "view the matched line in context",
		})
	}

	return &SearchTextResult{
		Hits:       hits,
		Provenance: e.buildProvenance(state, start, warnings),
		NextHops:   nextHops,
	}, nil
}

func searchWithRipgrep(ctx context.Context, repoRoot, pattern string, limit int) ([]SearchHit, error) {
	if _, err := exec.LookPath("rg"); err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, "rg", "--line-number", "--column", "--no-heading", "--max-count", strconv.Itoa(limit), pattern, ".")
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		if len(out) == 0 {
			return nil, err
		}
	}
	return parseRipgrepOutput(out), nil
}

func parseRipgrepOutput(out []byte) []SearchHit {
	var hits []SearchHit
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), ":", 4)
		if len(parts) != 4 {
			continue
		}
		line, err1 := strconv.Atoi(parts[1])
		col, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil {
			continue
		}
		hits = append(hits, SearchHit{Path: parts[0], Line: line, Column: col, Text: parts[3]})
	}
	return hits
}

// searchFallback walks every live file and applies pattern as a regexp,
// used when ripgrep isn't installed on the host.
func (e *Engine) searchFallback(ctx context.Context, pattern string, limit int) ([]SearchHit, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = regexp.MustCompile(regexp.QuoteMeta(pattern))
	}

	files, err := e.db.GetAllLiveFiles()
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	for _, f := range files {
		if ctx.Err() != nil {
			return hits, ctx.Err()
		}
		content, err := readFileLines(e.repoRoot, f.Path, 0, 0)
		if err != nil {
			continue
		}
		for i, line := range strings.Split(content, "\n") {
			if loc := re.FindStringIndex(line); loc != nil {
				hits = append(hits, SearchHit{Path: f.Path, Line: i + 1, Column: loc[0] + 1, Text: line})
				if len(hits) >= limit {
					return hits, nil
				}
			}
		}
	}
	return hits, nil
}
