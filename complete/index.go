// Package complete builds inline completion candidates for the line editor
// from four sources: recent shell history, installed executables, filesystem
// entries under the working directory, and per-tool sub-command tables
// enriched with best-effort project context (git branches, script names,
// build targets).
//
// Complete never blocks on unbounded I/O: contextual queries are bounded by
// a short timeout and degrade to an empty result on any failure.
package complete

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxCandidates caps the number of completions per query.
	DefaultMaxCandidates = 8
	// DefaultCacheEntries bounds the result cache; exceeding it clears the
	// whole cache rather than evicting piecemeal.
	DefaultCacheEntries = 256
	// DefaultQueryTimeout bounds each contextual subprocess query.
	DefaultQueryTimeout = 2 * time.Second
)

// HistorySource supplies up to n previously submitted commands,
// newest first.
type HistorySource func(n int) []string

// historyScan is how many history entries are considered per query.
const historyScan = 500

// Index answers completion queries for partial command lines.
type Index struct {
	MaxCandidates int

	history HistorySource
	dirCtx  *contextCache

	execOnce sync.Once
	execs    []string // sorted lowercase-deduped executable names from $PATH

	mu       sync.Mutex
	cwd      string
	cacheCap int
	cache    map[string][]string // lowercased partial -> candidates
}

// New creates an index reading history from the given source.
func New(history HistorySource) *Index {
	return NewWithLimits(history, DefaultMaxCandidates, DefaultCacheEntries, DefaultQueryTimeout)
}

// NewWithLimits creates an index with explicit bounds.
func NewWithLimits(history HistorySource, maxCandidates, cacheEntries int, queryTimeout time.Duration) *Index {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	if cacheEntries <= 0 {
		cacheEntries = DefaultCacheEntries
	}
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	cwd, _ := os.Getwd()
	return &Index{
		MaxCandidates: maxCandidates,
		history:       history,
		dirCtx:        newContextCache(queryTimeout),
		cwd:           cwd,
		cacheCap:      cacheEntries,
		cache:         make(map[string][]string),
	}
}

// Close releases the directory-context cache.
func (i *Index) Close() {
	i.dirCtx.Close()
}

// SetWorkDir changes the directory that relative-path and project-context
// completions resolve against. Cached results for the old directory are
// dropped.
func (i *Index) SetWorkDir(dir string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if dir == i.cwd {
		return
	}
	i.cwd = dir
	i.cache = make(map[string][]string)
}

// WorkDir returns the current completion working directory.
func (i *Index) WorkDir() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cwd
}

// Complete returns up to MaxCandidates full-line completions for partial.
// An empty or all-whitespace partial yields nothing.
func (i *Index) Complete(partial string) []string {
	if strings.TrimSpace(partial) == "" {
		return nil
	}

	key := strings.ToLower(partial)

	i.mu.Lock()
	if cached, ok := i.cache[key]; ok {
		i.mu.Unlock()
		return cached
	}
	cwd := i.cwd
	i.mu.Unlock()

	var out []string
	if strings.ContainsRune(strings.TrimLeft(partial, " "), ' ') {
		out = i.completeMultiToken(partial, cwd)
	} else {
		out = i.completeSingleToken(partial)
	}

	i.mu.Lock()
	if cwd == i.cwd { // a cd raced this query; don't cache stale results
		if len(i.cache) >= i.cacheCap {
			i.cache = make(map[string][]string)
		}
		i.cache[key] = out
	}
	i.mu.Unlock()

	return out
}

// completeSingleToken unions history lines and executable names sharing the
// partial as a case-insensitive prefix. History matches rank first.
func (i *Index) completeSingleToken(partial string) []string {
	prefix := strings.ToLower(partial)

	var pool []string
	if i.history != nil {
		for _, cmd := range i.history(historyScan) {
			if strings.HasPrefix(strings.ToLower(cmd), prefix) && len(cmd) > len(partial) {
				pool = append(pool, cmd)
			}
		}
	}
	for _, name := range i.executables() {
		if strings.HasPrefix(strings.ToLower(name), prefix) && len(name) > len(partial) {
			pool = append(pool, name)
		}
	}

	return dedupeFold(pool, i.MaxCandidates)
}

// completeMultiToken dispatches on the first token: known tools get their
// sub-command tables plus project context, cd gets directories only, and
// everything else gets filesystem entries for the last token.
func (i *Index) completeMultiToken(partial, cwd string) []string {
	head, last := splitLast(partial)
	tokens := strings.Fields(head)
	if len(tokens) == 0 {
		return nil
	}
	first := tokens[0]
	args := tokens[1:]

	var tails []string
	switch {
	case isToolCommand(first):
		tails = i.toolCandidates(first, args, last, cwd)
	case first == "cd" || first == "pushd" || first == "rmdir":
		tails = i.pathCandidates(last, cwd, true)
	default:
		tails = i.pathCandidates(last, cwd, false)
	}

	out := make([]string, 0, len(tails))
	for _, tail := range tails {
		out = append(out, head+tail)
	}
	return dedupeFold(out, i.MaxCandidates)
}

// pathCandidates lists entries under the directory implied by the last
// token. Hidden entries are excluded unless the name being completed itself
// starts with a dot. Directories get a trailing slash.
func (i *Index) pathCandidates(last, cwd string, dirsOnly bool) []string {
	dirPart := ""
	base := last
	if idx := strings.LastIndexByte(last, '/'); idx >= 0 {
		dirPart = last[:idx+1]
		base = last[idx+1:]
	}

	searchDir := filepath.Join(cwd, dirPart)
	if strings.HasPrefix(dirPart, "/") {
		searchDir = dirPart
	} else if strings.HasPrefix(dirPart, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		searchDir = filepath.Join(home, dirPart[2:])
	}

	entries, err := os.ReadDir(searchDir)
	if err != nil {
		return nil
	}

	baseFold := strings.ToLower(base)
	showHidden := strings.HasPrefix(base, ".")

	var out []string
	for _, e := range entries {
		name := e.Name()
		if !showHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if dirsOnly && !e.IsDir() {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(name), baseFold) {
			continue
		}
		if e.IsDir() {
			name += "/"
		}
		out = append(out, dirPart+name)
	}
	sort.Strings(out)
	return out
}

// executables scans $PATH once and returns the discovered command names.
func (i *Index) executables() []string {
	i.execOnce.Do(func() {
		seen := make(map[string]bool)
		var names []string
		for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				info, err := e.Info()
				if err != nil || info.Mode()&0111 == 0 {
					continue
				}
				name := e.Name()
				fold := strings.ToLower(name)
				if !seen[fold] {
					seen[fold] = true
					names = append(names, name)
				}
			}
		}
		sort.Strings(names)
		i.execs = names
	})
	return i.execs
}

// splitLast splits a partial into everything up to and including the final
// space, and the in-progress last token.
func splitLast(partial string) (head, last string) {
	idx := strings.LastIndexByte(partial, ' ')
	return partial[:idx+1], partial[idx+1:]
}

// dedupeFold removes case-insensitive duplicates (first occurrence wins) and
// caps the result at max.
func dedupeFold(in []string, max int) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		fold := strings.ToLower(s)
		if seen[fold] {
			continue
		}
		seen[fold] = true
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}
