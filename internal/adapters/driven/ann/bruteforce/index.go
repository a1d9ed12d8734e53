// Package bruteforce provides an in-process VectorBackend using exact
// nearest-neighbour search over cosine similarity. O(n) per query, which
// is fine for personal-corpus scale; the port keeps an HNSW or remote
// backend swappable without touching the core.
package bruteforce

import (
	"container/heap"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.VectorBackend = (*Backend)(nil)

// vector is one stored embedding with its display metadata.
type vector struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url,omitempty"`
}

// snapshot is the Serialize wire form.
type snapshot struct {
	Vectors []vector `json:"vectors"`
}

// Backend is an exact-scan vector index.
type Backend struct {
	mu      sync.RWMutex
	byID    map[string]int
	vectors []vector
	token   string
	closed  bool
}

// New creates an empty backend with a fresh identity token.
// A new instance always starts empty: restoring persisted state is the
// caller's job via Load, exactly as with an out-of-process ANN worker.
func New() *Backend {
	return &Backend{
		byID:  make(map[string]int),
		token: uuid.NewString(),
	}
}

// Add inserts or replaces the vector for an entry ID.
func (b *Backend) Add(_ context.Context, id string, embedding []float32, title, url string) error {
	if id == "" || len(embedding) == 0 {
		return fmt.Errorf("add vector: empty id or embedding")
	}

	stored := make([]float32, len(embedding))
	copy(stored, embedding)
	v := vector{ID: id, Embedding: stored, Title: title, URL: url}

	b.mu.Lock()
	defer b.mu.Unlock()
	if pos, ok := b.byID[id]; ok {
		b.vectors[pos] = v
		return nil
	}
	b.byID[id] = len(b.vectors)
	b.vectors = append(b.vectors, v)
	return nil
}

// Search finds the k nearest neighbours by cosine similarity.
// Uses a min-heap so only k results are kept during the scan.
func (b *Backend) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	h := &hitHeap{}
	heap.Init(h)

	for _, v := range b.vectors {
		score := cosineSimilarity(query, v.Embedding)
		if h.Len() < k {
			heap.Push(h, driven.VectorHit{ID: v.ID, Score: score})
		} else if score > (*h)[0].Score {
			heap.Pop(h)
			heap.Push(h, driven.VectorHit{ID: v.ID, Score: score})
		}
	}

	// Drain the min-heap backwards to get descending order.
	hits := make([]driven.VectorHit, h.Len())
	for i := len(hits) - 1; i >= 0; i-- {
		hits[i] = heap.Pop(h).(driven.VectorHit)
	}
	return hits, nil
}

// Serialize returns a JSON snapshot of the whole index.
func (b *Backend) Serialize(_ context.Context) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, err := json.Marshal(snapshot{Vectors: b.vectors})
	if err != nil {
		return nil, fmt.Errorf("serialize index: %w", err)
	}
	return data, nil
}

// Load replaces the in-memory index with a Serialize snapshot.
func (b *Backend) Load(_ context.Context, data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	byID := make(map[string]int, len(snap.Vectors))
	for i, v := range snap.Vectors {
		byID[v.ID] = i
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.vectors = snap.Vectors
	b.byID = byID
	return nil
}

// IdentityToken returns the token minted when this instance was created.
func (b *Backend) IdentityToken() string {
	return b.token
}

// Len returns the number of stored vectors.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.vectors)
}

// Close releases resources.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.vectors = nil
	b.byID = nil
	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// hitHeap is a min-heap of hits ordered by score.
type hitHeap []driven.VectorHit

func (h hitHeap) Len() int            { return len(h) }
func (h hitHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h hitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x interface{}) { *h = append(*h, x.(driven.VectorHit)) }

func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
