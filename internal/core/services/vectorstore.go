package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/lexical"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Storage namespaces and keys.
const (
	nsMeta      = "meta"
	nsIndex     = "index"
	keySnapshot = "ann-snapshot"
)

// snapshotVersion tags the persisted snapshot envelope so a backend or
// format change is detected instead of silently misparsed.
const snapshotVersion = "recall-ann/v1"

// Debounce intervals for snapshot persistence. Longer while adds are
// still pending, shorter once the store quiesces.
const (
	saveDebounceBusy  = 300 * time.Millisecond
	saveDebounceQuiet = 50 * time.Millisecond
)

// docNamespaces lists every namespace document bodies live in, one per
// source type. HasDocument and index rebuilds scan all of them.
var docNamespaces = []string{
	docNamespace(domain.SourceTypeArticle),
	docNamespace(domain.SourceTypeEmail),
	docNamespace(domain.SourceTypePDF),
}

func docNamespace(t domain.SourceType) string {
	return "docs:" + string(t)
}

// snapshotEnvelope is the persisted form of an ANN index snapshot.
type snapshotEnvelope struct {
	Version    string `json:"version"`
	Compressed bool   `json:"compressed"`
	Payload    []byte `json:"payload"`
}

// storeOp is one queued mutation. The result travels back over reply so
// failures reach the caller instead of being logged and swallowed.
type storeOp struct {
	apply func(ctx context.Context) error
	ctx   context.Context
	reply chan error
}

// VectorStore is the single point of truth for "is this content
// retrievable". It mediates between the semantic backend, the lexical
// index and durable storage, serialising all mutations through one
// operation queue and debouncing snapshot persistence.
//
// The in-memory backend state is not authoritative: the backend can be
// torn down and recreated at any time, which is detected via its identity
// token and answered with a full reload from the durable snapshot plus
// document store.
type VectorStore struct {
	backend    driven.VectorBackend
	kv         driven.KVStore
	compressor driven.Compressor
	lex        *lexical.Index

	qmu     sync.RWMutex
	ops     chan storeOp
	drained chan struct{}

	loadMu    sync.Mutex
	loaded    bool
	loading   chan struct{}
	lastToken string

	pendingAdds atomic.Int32

	saveMu    sync.Mutex
	saveTimer *time.Timer

	closed atomic.Bool
}

// NewVectorStore creates a vector store and starts its operation queue.
// Call Close to stop the queue and flush pending state.
func NewVectorStore(backend driven.VectorBackend, kv driven.KVStore, compressor driven.Compressor) *VectorStore {
	s := &VectorStore{
		backend:    backend,
		kv:         kv,
		compressor: compressor,
		lex:        lexical.New(),
		ops:        make(chan storeOp, 64),
		drained:    make(chan struct{}),
	}
	go s.drain()
	return s
}

// drain applies queued operations strictly in arrival order. One consumer
// means two concurrent Adds can never interleave mid-write.
func (s *VectorStore) drain() {
	defer close(s.drained)
	for op := range s.ops {
		err := op.apply(op.ctx)
		op.reply <- err
	}
}

// submit places an operation on the queue. Returns the reply channel, or
// an error if the store is closed or the context expired before the
// operation was accepted (in which case it will never run).
func (s *VectorStore) submit(ctx context.Context, apply func(context.Context) error) (chan error, error) {
	s.qmu.RLock()
	defer s.qmu.RUnlock()

	if s.closed.Load() {
		return nil, domain.ErrStoreClosed
	}

	op := storeOp{apply: apply, ctx: ctx, reply: make(chan error, 1)}
	select {
	case s.ops <- op:
		return op.reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// enqueue submits an operation and waits for its result.
func (s *VectorStore) enqueue(ctx context.Context, apply func(context.Context) error) error {
	reply, err := s.submit(ctx, apply)
	if err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Add stores an entry with its embedding. The write is queued behind any
// in-flight mutations and applied in order: document body, lexical index,
// semantic backend, then a debounced snapshot save. Errors propagate to
// the caller; the indexing loop decides whether to retry or abort.
func (s *VectorStore) Add(ctx context.Context, entry domain.Entry, embedding []float32) error {
	if entry.ID == "" || !entry.Type.Valid() {
		return fmt.Errorf("%w: entry %q type %q", domain.ErrInvalidInput, entry.ID, entry.Type)
	}

	s.pendingAdds.Add(1)
	reply, err := s.submit(ctx, func(ctx context.Context) error {
		defer s.pendingAdds.Add(-1)

		if err := s.EnsureLoaded(ctx); err != nil {
			return err
		}

		body, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry %s: %w", entry.ID, err)
		}
		if err := s.kv.Put(ctx, docNamespace(entry.Type), entry.ID, body); err != nil {
			return fmt.Errorf("persist entry %s: %w", entry.ID, err)
		}

		s.lex.Add(entry)

		if err := s.backend.Add(ctx, entry.ID, embedding, entry.Metadata.Title, entry.Metadata.SourceURL); err != nil {
			return fmt.Errorf("%w: add %s: %w", domain.ErrBackendUnavailable, entry.ID, err)
		}

		s.scheduleSave()
		return nil
	})
	if err != nil {
		// Never submitted, so the deferred decrement will not run.
		s.pendingAdds.Add(-1)
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Search returns the limit nearest entries to the query embedding, tagged
// as semantic matches. IDs that can no longer be hydrated from durable
// storage are dropped.
func (s *VectorStore) Search(ctx context.Context, queryEmbedding []float32, limit int) ([]domain.SearchResult, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	hits, err := s.backend.Search(ctx, queryEmbedding, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrBackendUnavailable, err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		entry, err := s.hydrate(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("Dropping stale hit %s: no longer in document store", hit.ID)
				continue
			}
			return nil, err
		}
		results = append(results, domain.SearchResult{
			Entry:     *entry,
			Score:     hit.Score,
			MatchType: domain.MatchSemantic,
		})
	}
	return results, nil
}

// SearchKeyword runs a lexical search over the in-memory inverted index.
func (s *VectorStore) SearchKeyword(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.lex.Search(query, limit), nil
}

// hydrate loads a full entry from durable storage by ID. The ID encodes
// its type namespace (type:sourceID:chunk), with a scan across all known
// namespaces as fallback for unrecognised IDs.
func (s *VectorStore) hydrate(ctx context.Context, id string) (*domain.Entry, error) {
	namespaces := docNamespaces
	if t, ok := typeFromEntryID(id); ok {
		namespaces = []string{docNamespace(t)}
	}

	for _, ns := range namespaces {
		body, err := s.kv.Get(ctx, ns, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("hydrate %s: %w", id, err)
		}
		var entry domain.Entry
		if err := json.Unmarshal(body, &entry); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", id, err)
		}
		return &entry, nil
	}
	return nil, domain.ErrNotFound
}

func typeFromEntryID(id string) (domain.SourceType, bool) {
	prefix, _, ok := strings.Cut(id, ":")
	if !ok {
		return "", false
	}
	t := domain.SourceType(prefix)
	return t, t.Valid()
}

// HasDocument reports whether any entry exists for the source. The fast
// path probes the lexical index; the fallback scans the durable document
// namespaces directly, so a freshly constructed store answers correctly
// even before its first load.
func (s *VectorStore) HasDocument(ctx context.Context, sourceID string) bool {
	if err := s.EnsureLoaded(ctx); err != nil {
		logger.Warn("HasDocument load failed: %v", err)
		return false
	}

	if s.lex.HasSource(sourceID) {
		return true
	}

	for _, ns := range docNamespaces {
		records, err := s.kv.GetAll(ctx, ns)
		if err != nil {
			logger.Warn("HasDocument scan %s failed: %v", ns, err)
			continue
		}
		for _, body := range records {
			var entry domain.Entry
			if err := json.Unmarshal(body, &entry); err != nil {
				continue
			}
			if entry.Metadata.SourceID == sourceID {
				return true
			}
		}
	}
	return false
}

// RemoveSource drops a source's entries from durable storage and the
// lexical index, queued like any other mutation. Superseded backend
// vectors disappear at the next rebuild from durable state; until then
// Search drops them as unhydratable.
func (s *VectorStore) RemoveSource(ctx context.Context, sourceID string) error {
	return s.enqueue(ctx, func(ctx context.Context) error {
		if err := s.EnsureLoaded(ctx); err != nil {
			return err
		}

		for _, id := range s.lex.EntryIDs(sourceID) {
			if t, ok := typeFromEntryID(id); ok {
				if err := s.kv.Delete(ctx, docNamespace(t), id); err != nil {
					return fmt.Errorf("delete entry %s: %w", id, err)
				}
			}
			s.lex.Remove(id)
		}

		s.scheduleSave()
		return nil
	})
}

// EnsureLoaded restores in-memory index state from durable storage on
// first use, guarded so only one load runs at a time. It also rechecks
// the backend identity token on every call: a changed token means the
// backend was recreated with an empty index, so the loaded flag is
// dropped and the state reloaded before proceeding.
func (s *VectorStore) EnsureLoaded(ctx context.Context) error {
	for {
		s.loadMu.Lock()

		token := s.backend.IdentityToken()
		if s.loaded && token != s.lastToken {
			logger.Info("Vector backend identity changed, forcing reload")
			s.loaded = false
		}

		if s.loaded {
			s.loadMu.Unlock()
			return nil
		}

		if s.loading != nil {
			waitCh := s.loading
			s.loadMu.Unlock()
			select {
			case <-waitCh:
				// Re-check: the load we waited on may have failed.
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		loadCh := make(chan struct{})
		s.loading = loadCh
		s.loadMu.Unlock()

		err := s.load(ctx)

		s.loadMu.Lock()
		s.loading = nil
		if err == nil {
			s.loaded = true
			s.lastToken = s.backend.IdentityToken()
		}
		s.loadMu.Unlock()
		close(loadCh)

		return err
	}
}

// load restores the backend from the persisted snapshot (if any) and
// rebuilds the lexical index by scanning all stored documents.
func (s *VectorStore) load(ctx context.Context) error {
	logger.Section("Vector Store Load")

	blob, err := s.kv.Get(ctx, nsIndex, keySnapshot)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("No persisted snapshot, starting empty")
	case err != nil:
		return fmt.Errorf("read snapshot: %w", err)
	default:
		payload, err := s.decodeSnapshot(blob)
		if err != nil {
			return err
		}
		if err := s.backend.Load(ctx, payload); err != nil {
			return fmt.Errorf("%w: restore snapshot: %w", domain.ErrBackendUnavailable, err)
		}
		logger.Debug("Restored snapshot (%d bytes)", len(payload))
	}

	s.lex.Clear()
	total := 0
	for _, ns := range docNamespaces {
		records, err := s.kv.GetAll(ctx, ns)
		if err != nil {
			return fmt.Errorf("scan %s: %w", ns, err)
		}
		for id, body := range records {
			var entry domain.Entry
			if err := json.Unmarshal(body, &entry); err != nil {
				logger.Warn("Skipping undecodable entry %s: %v", id, err)
				continue
			}
			s.lex.Add(entry)
			total++
		}
	}
	logger.Info("Lexical index rebuilt: %d entries", total)
	return nil
}

// decodeSnapshot unwraps a snapshot envelope. Blobs that predate the
// envelope are accepted as-is (legacy uncompressed format).
func (s *VectorStore) decodeSnapshot(blob []byte) ([]byte, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(blob, &env); err != nil || env.Version == "" {
		logger.Debug("Snapshot has no envelope, treating as legacy uncompressed")
		return blob, nil
	}
	if env.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: got %q, want %q", domain.ErrSnapshotFormat, env.Version, snapshotVersion)
	}
	if !env.Compressed {
		return env.Payload, nil
	}
	payload, err := s.compressor.Decompress(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	return payload, nil
}

// scheduleSave arms the debounce timer. Bursts of adds coalesce into one
// serialize+compress+write cycle; only the last add in a quiet window
// actually persists.
func (s *VectorStore) scheduleSave() {
	interval := saveDebounceQuiet
	if s.pendingAdds.Load() > 0 {
		interval = saveDebounceBusy
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(interval, func() {
		if s.closed.Load() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.ForceSave(ctx); err != nil {
			logger.Warn("Debounced save failed: %v", err)
		}
	})
}

// ForceSave flushes the current backend state to durable storage
// immediately, bypassing the debounce. Queued like a mutation so it never
// races an in-flight add.
func (s *VectorStore) ForceSave(ctx context.Context) error {
	return s.enqueue(ctx, func(ctx context.Context) error {
		return s.save(ctx)
	})
}

// save serializes, compresses and persists the backend snapshot.
func (s *VectorStore) save(ctx context.Context) error {
	raw, err := s.backend.Serialize(ctx)
	if err != nil {
		return fmt.Errorf("%w: serialize: %w", domain.ErrBackendUnavailable, err)
	}

	compressed, err := s.compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}

	blob, err := json.Marshal(snapshotEnvelope{
		Version:    snapshotVersion,
		Compressed: true,
		Payload:    compressed,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot envelope: %w", err)
	}

	if err := s.kv.Put(ctx, nsIndex, keySnapshot, blob); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}

	logger.Debug("Snapshot saved: %d bytes raw, %d compressed", len(raw), len(compressed))
	return nil
}

// ForceReload drops the loaded flag and reloads from durable storage,
// guaranteeing the next read sees persisted state.
func (s *VectorStore) ForceReload(ctx context.Context) error {
	s.loadMu.Lock()
	s.loaded = false
	s.loadMu.Unlock()
	return s.EnsureLoaded(ctx)
}

// Len returns the number of entries in the lexical index (a proxy for
// indexed entry count once loaded).
func (s *VectorStore) Len() int {
	return s.lex.Len()
}

// Close stops the operation queue. Pending queued operations are applied
// before Close returns; the debounce timer is cancelled (callers wanting
// a final flush should ForceSave first).
func (s *VectorStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.saveMu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveMu.Unlock()

	// Exclude in-flight submitters before closing the channel.
	s.qmu.Lock()
	close(s.ops)
	s.qmu.Unlock()
	<-s.drained
	return nil
}
