package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/ann/bruteforce"
	"github.com/custodia-labs/recall-cli/internal/chunker"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// embedVocab is the fake embedding space: one dimension per word. Texts
// sharing vocabulary land close together under cosine similarity, which
// is enough signal for end-to-end ranking assertions.
var embedVocab = []string{
	"pizza", "order", "invoice", "payment", "meeting",
	"report", "cheese", "delivery", "quantum", "garden",
}

func textVector(text string) []float32 {
	v := make([]float32, len(embedVocab)+1)
	lower := strings.ToLower(text)
	for i, w := range embedVocab {
		v[i] = float32(strings.Count(lower, w))
	}
	// Texts with no vocabulary overlap still get a non-zero vector.
	v[len(embedVocab)] = 0.1
	return v
}

// fakeEmbedder produces deterministic vocabulary-count vectors and counts
// calls. An injected error fails every call until cleared; an optional
// gate blocks EmbedBatch until released, for concurrency tests.
type fakeEmbedder struct {
	mu         sync.Mutex
	embedCalls int
	batchCalls int
	err        error
	gate       chan struct{}
}

func (f *fakeEmbedder) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeEmbedder) calls() (embed, batch int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedCalls, f.batchCalls
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, query bool) ([]float32, error) {
	f.mu.Lock()
	f.embedCalls++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return textVector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, query bool) ([][]float32, error) {
	f.mu.Lock()
	f.batchCalls++
	err := f.err
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = textVector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int   { return len(embedVocab) + 1 }
func (f *fakeEmbedder) ModelName() string { return "fake-vocab-embed" }

func (f *fakeEmbedder) Ping(ctx context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                   { return nil }

// restartableBackend wraps a real brute-force backend and can swap in a
// fresh instance, simulating the compute process being torn down and
// recreated with an empty index and a new identity token.
type restartableBackend struct {
	mu    sync.Mutex
	inner *bruteforce.Backend
}

func newRestartableBackend() *restartableBackend {
	return &restartableBackend{inner: bruteforce.New()}
}

func (b *restartableBackend) Restart() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inner = bruteforce.New()
}

func (b *restartableBackend) get() *bruteforce.Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inner
}

func (b *restartableBackend) Add(ctx context.Context, id string, embedding []float32, title, url string) error {
	return b.get().Add(ctx, id, embedding, title, url)
}

func (b *restartableBackend) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	return b.get().Search(ctx, query, k)
}

func (b *restartableBackend) Serialize(ctx context.Context) ([]byte, error) {
	return b.get().Serialize(ctx)
}

func (b *restartableBackend) Load(ctx context.Context, snapshot []byte) error {
	return b.get().Load(ctx, snapshot)
}

func (b *restartableBackend) IdentityToken() string { return b.get().IdentityToken() }
func (b *restartableBackend) Close() error          { return b.get().Close() }

// testEntry builds a valid entry for store-level tests.
func testEntry(t domain.SourceType, sourceID string, idx, total int, content, title string) domain.Entry {
	return domain.Entry{
		ID:      domain.EntryID(t, sourceID, idx),
		Type:    t,
		Content: content,
		Metadata: domain.EntryMetadata{
			SourceID:    sourceID,
			SourceType:  t,
			Title:       title,
			ChunkIndex:  idx,
			TotalChunks: total,
		},
		Timestamp: time.Now(),
	}
}

// newTestChunker keeps chunks small so multi-chunk sources are easy to
// construct from short test texts.
func newTestChunker() driven.Chunker {
	return chunker.New(chunker.WithChunkSize(80), chunker.WithOverlap(10))
}
