package complete

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jellydator/ttlcache/v3"
)

// DirContext holds project context gathered for one directory.
type DirContext struct {
	Branches      []string // local git branches
	ModifiedFiles []string // modified/untracked paths from git status
	Scripts       []string // package.json script names
	MakeTargets   []string
	JustRecipes   []string
	CargoBins     []string // Cargo package + [[bin]] names
	PyScripts     []string // pyproject [project.scripts] names
}

const dirContextTTL = 30 * time.Second

// contextCache is a TTL cache of DirContext entries keyed by absolute path.
// Entries age out quickly because branches and modified files change as the
// user works.
type contextCache struct {
	cache   *ttlcache.Cache[string, *DirContext]
	timeout time.Duration
}

func newContextCache(timeout time.Duration) *contextCache {
	c := ttlcache.New[string, *DirContext](
		ttlcache.WithTTL[string, *DirContext](dirContextTTL),
		ttlcache.WithDisableTouchOnHit[string, *DirContext](),
	)
	go c.Start()
	return &contextCache{cache: c, timeout: timeout}
}

func (cc *contextCache) Close() {
	cc.cache.Stop()
}

// Get returns the context for dir, gathering it on a miss. Gathering is
// bounded by the configured timeout; failed queries leave their fields
// empty rather than surfacing errors.
func (cc *contextCache) Get(dir string) *DirContext {
	if item := cc.cache.Get(dir); item != nil {
		return item.Value()
	}
	entry := gatherDirContext(dir, cc.timeout)
	cc.cache.Set(dir, entry, ttlcache.DefaultTTL)
	return entry
}

func gatherDirContext(dir string, timeout time.Duration) *DirContext {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entry := &DirContext{}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		out := runQuery(ctx, dir, "git", "branch", "--format=%(refname:short)")
		entry.Branches = splitLines(out)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		out := runQuery(ctx, dir, "git", "status", "--porcelain")
		entry.ModifiedFiles = parsePorcelain(out)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		entry.Scripts = packageScripts(filepath.Join(dir, "package.json"))
		entry.MakeTargets = makefileTargets(filepath.Join(dir, "Makefile"))
		entry.JustRecipes = justfileRecipes(filepath.Join(dir, "justfile"))
		entry.CargoBins = cargoBins(filepath.Join(dir, "Cargo.toml"))
		entry.PyScripts = pyprojectScripts(filepath.Join(dir, "pyproject.toml"))
	}()

	wg.Wait()
	return entry
}

// runQuery runs a command and returns its stdout, or empty string on any
// failure (missing binary, non-repo directory, timeout).
func runQuery(ctx context.Context, dir string, name string, args ...string) string {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(out)
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// parsePorcelain extracts paths from `git status --porcelain` output.
// Renames keep only the new path.
func parsePorcelain(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		if path != "" {
			out = append(out, path)
		}
	}
	return out
}

// packageScripts extracts script names from package.json.
func packageScripts(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}
	names := make([]string, 0, len(pkg.Scripts))
	for name := range pkg.Scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// makefileTargets extracts target names from a Makefile. Recipe lines,
// comments, dot-targets, and assignments are skipped.
func makefileTargets(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var targets []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '\t' || line[0] == '#' || line[0] == '.' {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx <= 0 {
			continue
		}
		if idx+1 < len(line) && line[idx+1] == '=' {
			continue
		}
		target := strings.TrimSpace(line[:idx])
		if strings.ContainsAny(target, "$% ") {
			continue
		}
		if !seen[target] {
			seen[target] = true
			targets = append(targets, target)
		}
	}
	return targets
}

// justfileRecipes extracts recipe names from a justfile.
func justfileRecipes(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var recipes []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		if strings.Contains(line, ":=") {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx <= 0 {
			continue
		}
		recipe := strings.TrimSpace(line[:idx])
		if strings.ContainsAny(recipe, "${}()") {
			continue
		}
		if !seen[recipe] {
			seen[recipe] = true
			recipes = append(recipes, recipe)
		}
	}
	return recipes
}

type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Bin []struct {
		Name string `toml:"name"`
	} `toml:"bin"`
}

// cargoBins extracts the package name and [[bin]] targets from Cargo.toml.
func cargoBins(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil
	}
	var out []string
	if m.Package.Name != "" {
		out = append(out, m.Package.Name)
	}
	for _, bin := range m.Bin {
		if bin.Name != "" {
			out = append(out, bin.Name)
		}
	}
	return out
}

type pyprojectManifest struct {
	Project struct {
		Scripts map[string]string `toml:"scripts"`
	} `toml:"project"`
}

// pyprojectScripts extracts entry-point names from [project.scripts].
func pyprojectScripts(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var m pyprojectManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil
	}
	names := make([]string, 0, len(m.Project.Scripts))
	for name := range m.Project.Scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
