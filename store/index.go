package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/stefanpietrusky/IEC/types"
)

// ErrEmptyCorpus is returned by Rebuild when no source yields a single chunk.
// The index is cleared in that case; callers log it as a warning, not a failure.
var ErrEmptyCorpus = errors.New("no chunks found, index will not be created")

// Embedder turns a batch of chunk texts into vectors, preserving order:
// row i of the result belongs to texts[i].
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Splitter cuts a source text into bounded token windows.
type Splitter interface {
	SplitIntoBlocks(text string, maxTokens int) []string
}

// IndexStore holds the exact-search vector index together with its two
// positionally aligned companions: per-chunk metadata and raw chunk text.
// The whole set is rebuilt from scratch on every ingestion and mirrored to
// three artifacts on disk so a restart reloads without re-embedding.
type IndexStore struct {
	mu sync.RWMutex

	dir       string
	chunkSize int
	splitter  Splitter
	embedder  Embedder
	logger    *slog.Logger

	dim        int
	embeddings [][]float32
	metadatas  []types.ChunkMeta
	chunks     []string
}

func NewIndexStore(dir string, chunkSize int, splitter Splitter, embedder Embedder) *IndexStore {
	return &IndexStore{
		dir:       dir,
		chunkSize: chunkSize,
		splitter:  splitter,
		embedder:  embedder,
		logger:    slog.Default(),
	}
}

// Count returns the number of indexed chunks.
func (s *IndexStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Dim returns the embedding dimension, 0 when the index is empty.
func (s *IndexStore) Dim() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// Rebuild chunks every source text, embeds all chunks in one ordered batch
// and replaces the index atomically. Sources whose text produces no chunks
// are skipped. With zero chunks overall the index is cleared, the on-disk
// artifacts are removed and ErrEmptyCorpus is returned.
func (s *IndexStore) Rebuild(ctx context.Context, sources map[string]string) error {
	var chunks []string
	var metas []types.ChunkMeta

	for _, fname := range sortedKeys(sources) {
		text := sources[fname]
		blocks := s.splitter.SplitIntoBlocks(text, s.chunkSize)
		for _, block := range blocks {
			chunks = append(chunks, block)
			metas = append(metas, types.ChunkMeta{Source: fname})
		}
	}

	if len(chunks) == 0 {
		s.mu.Lock()
		s.clearLocked()
		s.mu.Unlock()
		s.removeArtifacts()
		return ErrEmptyCorpus
	}

	embeddings, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d rows for %d chunks", len(embeddings), len(chunks))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.embeddings = embeddings
	s.metadatas = metas
	s.chunks = chunks
	s.dim = len(embeddings[0])

	if err := s.persistLocked(); err != nil {
		return err
	}
	s.logger.Info("index rebuilt", "chunks", len(chunks), "dim", s.dim)
	return nil
}

// QueryBySource returns the chunks of one source in their original order.
// This is a metadata filter; at answer time the user has already chosen
// which sources to consult, so no similarity search is involved.
func (s *IndexStore) QueryBySource(source string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for i, m := range s.metadatas {
		if m.Source == source {
			out = append(out, s.chunks[i])
		}
	}
	return out
}

// SearchResult is one nearest-neighbour hit.
type SearchResult struct {
	Chunk    string
	Meta     types.ChunkMeta
	Distance float32
}

// Search runs an exact L2 scan over all embeddings and returns the k nearest
// chunks. An empty index yields no results.
func (s *IndexStore) Search(query []float32, k int) []SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.embeddings) == 0 || k <= 0 {
		return nil
	}

	results := make([]SearchResult, 0, len(s.embeddings))
	for i, row := range s.embeddings {
		results = append(results, SearchResult{
			Chunk:    s.chunks[i],
			Meta:     s.metadatas[i],
			Distance: l2(query, row),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// Sources returns the distinct source names in index order.
func (s *IndexStore) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.metadatas))
	var out []string
	for _, m := range s.metadatas {
		if _, ok := seen[m.Source]; !ok {
			seen[m.Source] = struct{}{}
			out = append(out, m.Source)
		}
	}
	return out
}

func (s *IndexStore) clearLocked() {
	s.embeddings = nil
	s.metadatas = nil
	s.chunks = nil
	s.dim = 0
}

func l2(a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(math.Inf(1))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

func (s *IndexStore) removeArtifacts() {
	for _, name := range []string{indexFile, metaFile, chunksFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("cannot remove index artifact", "file", name, "error", err)
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
