package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{": 1700000000:0;git status", "git status"},
		{": 1700000000:12;make build && make test", "make build && make test"},
		{"ls -la", "ls -la"},
		{"   ", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := parseLine(tc.in); got != tc.want {
			t.Errorf("parseLine(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReadRecentStripsZshPrefixes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zsh_history")
	content := ": 1700000001:0;git status\n: 1700000002:0;make test\nplain command\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got := ReadRecent(path, 10)
	want := []string{"git status", "make test", "plain command"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ReadRecent[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadRecentReturnsTailOldestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bash_history")
	var sb strings.Builder
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&sb, "echo line %d\n", i)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	got := ReadRecent(path, 10)
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got[0] != "echo line 490" || got[9] != "echo line 499" {
		t.Errorf("tail window wrong: first=%q last=%q", got[0], got[9])
	}
}

func TestReadRecentMissingFile(t *testing.T) {
	if got := ReadRecent(filepath.Join(t.TempDir(), "nope"), 5); got != nil {
		t.Errorf("got %v, want nil for missing file", got)
	}
}

func TestResolveFilePathPrefersHistfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom_history")
	if err := os.WriteFile(path, []byte("ls\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HISTFILE", path)
	t.Setenv("HOME", t.TempDir()) // no ~/.zsh_history or ~/.bash_history

	if got := ResolveFilePath(); got != path {
		t.Errorf("ResolveFilePath = %q, want %q", got, path)
	}
}

func TestRedactMasksVariablesAndAssignments(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"echo $SECRET_TOKEN", "echo $REDACTED"},
		{"curl -H \"Auth: ${API_KEY}\"", "curl -H \"Auth: ${REDACTED}\""},
		{"export TOKEN=hunter2", "export TOKEN=***"},
		{"echo $HOME", "echo $HOME"},
		{"echo $?", "echo $?"},
		{"PATH=/usr/bin ls", "PATH=/usr/bin ls"},
	}
	for _, tc := range cases {
		if got := Redact(tc.in); got != tc.want {
			t.Errorf("Redact(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactFallsBackOnUnparseableInput(t *testing.T) {
	// Unterminated quote defeats the parser; the regex pass still masks.
	got := Redact("echo \"$DB_PASSWORD")
	if strings.Contains(got, "DB_PASSWORD") {
		t.Errorf("Redact left the variable name visible: %q", got)
	}
}

// fakeEmbeddings maps commands onto fixed keyword axes so similarity is
// deterministic without an API.
type fakeEmbeddings struct {
	requests []string
}

var keywordAxes = []string{"git", "tar", "docker"}

func keywordVec(text string) []float32 {
	vec := make([]float32, len(keywordAxes)+1)
	vec[len(keywordAxes)] = 0.1 // keep vectors non-zero
	for i, kw := range keywordAxes {
		if strings.Contains(text, kw) {
			vec[i] = 1
		}
	}
	return vec
}

func (f *fakeEmbeddings) Embed(text string) ([]float32, error) {
	f.requests = append(f.requests, text)
	return keywordVec(text), nil
}

func (f *fakeEmbeddings) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		f.requests = append(f.requests, t)
		out[i] = keywordVec(t)
	}
	return out, nil
}

func TestIndexSearchFindsSimilarCommand(t *testing.T) {
	idx := NewIndex(&fakeEmbeddings{})
	err := idx.Build([]string{
		"git push origin main",
		"tar czf backup.tgz data/",
		"docker compose up -d",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	select {
	case <-idx.Ready():
	default:
		t.Fatal("Ready not closed after Build")
	}

	got, err := idx.Search("tar the data directory", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0] != "tar czf backup.tgz data/" {
		t.Errorf("Search = %v, want the tar command", got)
	}
}

func TestIndexBuildSkipsKnownCommands(t *testing.T) {
	emb := &fakeEmbeddings{}
	idx := NewIndex(emb)
	cmds := []string{"git status", "git status", "docker ps"}
	if err := idx.Build(cmds); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 2 {
		t.Errorf("Len = %d, want 2 after dedup", idx.Len())
	}

	before := len(emb.requests)
	if err := idx.Build(cmds); err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if len(emb.requests) != before {
		t.Errorf("second Build re-embedded known commands")
	}
}

func TestIndexRedactsBeforeEmbedding(t *testing.T) {
	emb := &fakeEmbeddings{}
	idx := NewIndex(emb)
	if err := idx.Build([]string{"export API_KEY=hunter2"}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, req := range emb.requests {
		if strings.Contains(req, "hunter2") {
			t.Fatalf("secret sent to embedding API: %q", req)
		}
	}
}

func TestIndexSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")

	src := NewIndex(&fakeEmbeddings{})
	if err := src.Build([]string{"git log --oneline"}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := src.Save(path, "test-model"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := NewIndex(&fakeEmbeddings{})
	if err := dst.Load(path, "test-model"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if dst.Len() != 1 {
		t.Fatalf("Len after Load = %d, want 1", dst.Len())
	}
	got, err := dst.Search("git history", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0] != "git log --oneline" {
		t.Errorf("Search after Load = %v", got)
	}
}

func TestIndexLoadSkipsMismatchedModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	src := NewIndex(&fakeEmbeddings{})
	if err := src.Build([]string{"git log"}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := src.Save(path, "model-a"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := NewIndex(&fakeEmbeddings{})
	if err := dst.Load(path, "model-b"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if dst.Len() != 0 {
		t.Errorf("Len = %d, want 0 for mismatched model", dst.Len())
	}
}
