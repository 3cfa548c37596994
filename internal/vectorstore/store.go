// Package vectorstore provides a flat on-disk similarity index over catalog
// text embeddings.
package vectorstore

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/embedding"
)

// ErrEmptyInput indicates a build was attempted over zero texts.
var ErrEmptyInput = errors.New("no texts to index")

// Meta is the arbitrary metadata payload stored alongside each vector.
type Meta map[string]interface{}

// Index is an exact nearest-neighbor index over squared Euclidean distance.
// No quantization, no clustering; acceptable only at small scale.
type Index struct {
	Dimension int
	Vectors   [][]float32
}

// Size returns the number of indexed vectors.
func (ix *Index) Size() int {
	return len(ix.Vectors)
}

// Search returns up to k positions ordered by ascending squared L2 distance
// to the query, with their distances.
func (ix *Index) Search(query []float32, k int) ([]int, []float32) {
	type scored struct {
		pos  int
		dist float32
	}

	results := make([]scored, 0, len(ix.Vectors))
	for i, v := range ix.Vectors {
		results = append(results, scored{pos: i, dist: squaredL2(query, v)})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].dist < results[j].dist
	})

	if k > len(results) {
		k = len(results)
	}

	positions := make([]int, k)
	distances := make([]float32, k)
	for i := 0; i < k; i++ {
		positions[i] = results[i].pos
		distances[i] = results[i].dist
	}
	return positions, distances
}

// Store pairs an embedder with the persisted index and metadata sidecar files.
//
// Every mutation rewrites both files in full, so write cost grows with total
// record count. That is a known scalability limit of this store, kept for its
// simple read contract: load always returns the latest durably written state.
type Store struct {
	mu        sync.Mutex
	embedder  embedding.Embedder
	indexPath string
	metaPath  string
}

// Config holds store configuration.
type Config struct {
	IndexPath string
	MetaPath  string
}

// New creates a store over the given embedder and sidecar paths.
func New(embedder embedding.Embedder, cfg Config) *Store {
	return &Store{
		embedder:  embedder,
		indexPath: cfg.IndexPath,
		metaPath:  cfg.MetaPath,
	}
}

// Embed maps text to a fixed-dimension vector via the configured embedder.
func (s *Store) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedder.EmbedSingle(ctx, text)
}

// Dimension returns the embedder's vector dimension.
func (s *Store) Dimension() int {
	return s.embedder.Dimension()
}

// Build constructs the index over one vector per text and persists it together
// with the metadata list. Position i in metas corresponds to row i in the index.
func (s *Store) Build(ctx context.Context, texts []string, metas []Meta) error {
	if len(texts) == 0 {
		return ErrEmptyInput
	}
	if len(texts) != len(metas) {
		return fmt.Errorf("texts and metas length mismatch: %d != %d", len(texts), len(metas))
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed texts: %w", err)
	}

	index := &Index{
		Dimension: s.embedder.Dimension(),
		Vectors:   vectors,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(index, metas)
}

// Load returns the persisted index and metadata, or (nil, nil, nil) when no
// index file exists yet. Callers must treat a nil index as "no index yet".
func (s *Store) Load() (*Index, []Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add embeds text and appends it to the existing index and metadata. When no
// index exists yet this is equivalent to a single-element Build. Both sidecar
// files are rewritten in full.
func (s *Store) Add(ctx context.Context, text string, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, metas, err := s.load()
	if err != nil {
		return err
	}

	vector, err := s.embedder.EmbedSingle(ctx, text)
	if err != nil {
		return fmt.Errorf("embed text: %w", err)
	}

	if index == nil {
		index = &Index{Dimension: s.embedder.Dimension()}
		metas = nil
	}

	index.Vectors = append(index.Vectors, vector)
	metas = append(metas, meta)

	return s.persist(index, metas)
}

// load reads the sidecar pair. The caller must hold s.mu.
func (s *Store) load() (*Index, []Meta, error) {
	f, err := os.Open(s.indexPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	index := &Index{}
	if err := gob.NewDecoder(f).Decode(index); err != nil {
		return nil, nil, fmt.Errorf("decode index: %w", err)
	}

	data, err := os.ReadFile(s.metaPath)
	if errors.Is(err, os.ErrNotExist) {
		// Half-written pair; treat as no index at all.
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read metadata: %w", err)
	}

	var metas []Meta
	if err := json.Unmarshal(data, &metas); err != nil {
		return nil, nil, fmt.Errorf("decode metadata: %w", err)
	}

	return index, metas, nil
}

// persist rewrites both sidecar files. The caller must hold s.mu.
func (s *Store) persist(index *Index, metas []Meta) error {
	if err := os.MkdirAll(filepath.Dir(s.indexPath), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmpIndex := s.indexPath + ".tmp"
	f, err := os.Create(tmpIndex)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(index); err != nil {
		f.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}

	data, err := json.Marshal(metas)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	tmpMeta := s.metaPath + ".tmp"
	if err := os.WriteFile(tmpMeta, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	if err := os.Rename(tmpIndex, s.indexPath); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	if err := os.Rename(tmpMeta, s.metaPath); err != nil {
		return fmt.Errorf("replace metadata: %w", err)
	}
	return nil
}

func squaredL2(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
