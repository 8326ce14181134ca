package history

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/coder/hnsw"
)

const embedBatchSize = 32

// Embeddings turns text into vectors. The HTTP client in this package
// implements it; tests substitute a deterministic fake.
type Embeddings interface {
	Embed(text string) ([]float32, error)
	EmbedBatch(texts []string) ([][]float32, error)
}

// Index holds redacted history commands in an HNSW graph so the agent can
// retrieve the ones most similar to a request. All methods are safe for
// concurrent use; Build typically runs in the background while the REPL
// serves input.
type Index struct {
	emb Embeddings

	mu       sync.RWMutex
	graph    *hnsw.Graph[string] // keyed by command hash
	commands map[string]string   // hash -> redacted command

	ready     chan struct{}
	readyOnce sync.Once
}

// NewIndex creates an empty index backed by the given embedding service.
func NewIndex(emb Embeddings) *Index {
	return &Index{
		emb:      emb,
		graph:    hnsw.NewGraph[string](),
		commands: make(map[string]string),
		ready:    make(chan struct{}),
	}
}

// Ready is closed after the first Build or successful Load completes, so
// callers can avoid querying an empty index.
func (idx *Index) Ready() <-chan struct{} { return idx.ready }

func (idx *Index) markReady() {
	idx.readyOnce.Do(func() { close(idx.ready) })
}

// Build redacts and embeds the given commands, adding any the index has
// not seen. Batches that fail to embed are logged and skipped; the rest of
// the build continues.
func (idx *Index) Build(cmds []string) error {
	defer idx.markReady()

	type pending struct {
		hash string
		cmd  string
	}
	var toEmbed []pending
	seen := make(map[string]bool, len(cmds))

	idx.mu.RLock()
	for _, cmd := range cmds {
		redacted := Redact(cmd)
		hash := hashCommand(redacted)
		if seen[hash] {
			continue
		}
		seen[hash] = true
		if _, exists := idx.graph.Lookup(hash); !exists {
			toEmbed = append(toEmbed, pending{hash, redacted})
		}
	}
	idx.mu.RUnlock()

	if len(toEmbed) == 0 {
		return nil
	}

	var nodes []hnsw.Node[string]
	added := make(map[string]string, len(toEmbed))
	for i := 0; i < len(toEmbed); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(toEmbed) {
			end = len(toEmbed)
		}
		batch := toEmbed[i:end]

		texts := make([]string, len(batch))
		for j, p := range batch {
			texts[j] = p.cmd
		}
		vectors, err := idx.emb.EmbedBatch(texts)
		if err != nil {
			slog.Error("history batch embed failed", "error", err)
			continue
		}
		for j, p := range batch {
			nodes = append(nodes, hnsw.MakeNode(p.hash, vectors[j]))
			added[p.hash] = p.cmd
		}
	}

	if len(nodes) > 0 {
		idx.mu.Lock()
		idx.graph.Add(nodes...)
		for k, v := range added {
			idx.commands[k] = v
		}
		idx.mu.Unlock()
	}
	return nil
}

// Search embeds the query and returns up to k of the most similar indexed
// commands, already redacted.
func (idx *Index) Search(query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := idx.emb.Embed(Redact(query))
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.graph.Len() == 0 {
		return nil, nil
	}

	neighbors := idx.graph.Search(vec, k)
	cmds := make([]string, len(neighbors))
	for i, n := range neighbors {
		cmds[i] = idx.commands[n.Key]
	}
	return cmds, nil
}

// Len reports how many commands are indexed.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.commands)
}

type cacheFile struct {
	Model   string       `json:"model"`
	Entries []cacheEntry `json:"entries"`
}

type cacheEntry struct {
	Hash      string    `json:"hash"`
	Command   string    `json:"command"`
	Embedding []float32 `json:"embedding"`
}

// Save writes the indexed commands and their vectors to disk so the next
// session can skip re-embedding.
func (idx *Index) Save(path, model string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := make([]cacheEntry, 0, len(idx.commands))
	for hash, cmd := range idx.commands {
		vec, ok := idx.graph.Lookup(hash)
		if !ok {
			continue
		}
		entries = append(entries, cacheEntry{Hash: hash, Command: cmd, Embedding: vec})
	}

	data, err := json.Marshal(cacheFile{Model: model, Entries: entries})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load restores a saved index. A cache written with a different embedding
// model is skipped silently since its vectors are incompatible.
func (idx *Index) Load(path, model string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return err
	}
	if cf.Model != model {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	nodes := make([]hnsw.Node[string], 0, len(cf.Entries))
	for _, e := range cf.Entries {
		nodes = append(nodes, hnsw.MakeNode(e.Hash, e.Embedding))
		idx.commands[e.Hash] = e.Command
	}
	if len(nodes) > 0 {
		idx.graph.Add(nodes...)
		idx.markReady()
	}
	return nil
}

func hashCommand(cmd string) string {
	h := sha256.Sum256([]byte(cmd))
	return fmt.Sprintf("%x", h)
}
