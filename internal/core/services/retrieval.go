package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.Retriever = (*RetrievalService)(nil)

// DefaultBatchSize is how many chunks are embedded per batch call.
const DefaultBatchSize = 8

// Progress band reserved for the embed-and-store loop. The edges belong
// to hashing/chunking (below) and metadata persistence (above).
const (
	progressEmbedStart = 20
	progressEmbedEnd   = 90
)

// candidateFactor is how many times the requested limit each index is
// asked for, to give fusion enough material.
const candidateFactor = 3

// queryTypos maps common misspellings to their corrections.
var queryTypos = map[string]string{
	"recieve":    "receive",
	"teh":        "the",
	"adress":     "address",
	"definately": "definitely",
	"seperate":   "separate",
}

// queryExpansions widens terse abbreviations so query embeddings land
// closer to document phrasing.
var queryExpansions = map[string]string{
	"pdf": "pdf document",
	"doc": "document",
	"img": "image",
	"pic": "picture",
}

// indexingFlight tracks one in-flight indexing pass so concurrent callers
// for the same source await it instead of duplicating work.
type indexingFlight struct {
	done  chan struct{}
	stats domain.IndexStats
	err   error
}

// RetrievalService is the top-level orchestrator: content-hash-based
// incremental indexing, per-source de-duplication, hybrid search with
// fusion and rerank, a query result cache, and context assembly for
// downstream generation.
type RetrievalService struct {
	store    *VectorStore
	embedder driven.EmbeddingService
	chunker  driven.Chunker
	kv       driven.KVStore
	cache    *queryCache

	batchSize int

	mu         sync.Mutex
	metaLoaded bool
	metadata   map[string]domain.SourceMetadata
	active     map[string]*indexingFlight
	lastStats  domain.IndexStats
}

// RetrievalOption configures the service.
type RetrievalOption func(*RetrievalService)

// WithBatchSize sets the embedding batch size.
func WithBatchSize(n int) RetrievalOption {
	return func(s *RetrievalService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithCache tunes the query cache.
func WithCache(size int, ttl time.Duration) RetrievalOption {
	return func(s *RetrievalService) {
		s.cache = newQueryCache(size, ttl)
	}
}

// NewRetrievalService creates the orchestrator. The KV store is the same
// durable store backing the vector store; the retrieval service keeps its
// per-source metadata records there.
func NewRetrievalService(
	store *VectorStore,
	embedder driven.EmbeddingService,
	chunker driven.Chunker,
	kv driven.KVStore,
	opts ...RetrievalOption,
) *RetrievalService {
	s := &RetrievalService{
		store:     store,
		embedder:  embedder,
		chunker:   chunker,
		kv:        kv,
		cache:     newQueryCache(defaultCacheSize, defaultCacheTTL),
		batchSize: DefaultBatchSize,
		metadata:  make(map[string]domain.SourceMetadata),
		active:    make(map[string]*indexingFlight),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ensureMetadataLoaded lazily loads all source metadata records from
// durable storage, once. Retried on the next call if it fails.
func (s *RetrievalService) ensureMetadataLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metaLoaded {
		return nil
	}

	records, err := s.kv.GetAll(ctx, nsMeta)
	if err != nil {
		return fmt.Errorf("load source metadata: %w", err)
	}
	for key, body := range records {
		var meta domain.SourceMetadata
		if err := json.Unmarshal(body, &meta); err != nil {
			logger.Warn("Skipping undecodable metadata record %s: %v", key, err)
			continue
		}
		s.metadata[meta.SourceID] = meta
	}
	s.metaLoaded = true
	logger.Debug("Loaded %d source metadata records", len(s.metadata))
	return nil
}

// Index indexes a source's text with no progress reporting.
func (s *RetrievalService) Index(ctx context.Context, text string, meta domain.IndexMetadata) (domain.IndexStats, error) {
	return s.IndexChunks(ctx, text, meta, nil)
}

// IndexChunks chunks, embeds and stores a source's text.
func (s *RetrievalService) IndexChunks(
	ctx context.Context, text string, meta domain.IndexMetadata, onProgress driving.ProgressFunc,
) (domain.IndexStats, error) {
	if meta.SourceID == "" || !meta.SourceType.Valid() {
		return domain.IndexStats{}, fmt.Errorf("%w: sourceID %q type %q",
			domain.ErrInvalidInput, meta.SourceID, meta.SourceType)
	}

	if err := s.ensureMetadataLoaded(ctx); err != nil {
		return domain.IndexStats{}, err
	}

	// De-duplicate concurrent passes for the same source.
	s.mu.Lock()
	if flight, ok := s.active[meta.SourceID]; ok {
		s.mu.Unlock()
		logger.Debug("Awaiting in-flight indexing for %s", meta.SourceID)
		select {
		case <-flight.done:
			return flight.stats, flight.err
		case <-ctx.Done():
			return domain.IndexStats{}, ctx.Err()
		}
	}
	flight := &indexingFlight{done: make(chan struct{})}
	s.active[meta.SourceID] = flight
	s.mu.Unlock()

	stats, err := s.runIndexing(ctx, text, meta, onProgress)

	s.mu.Lock()
	flight.stats = stats
	flight.err = err
	delete(s.active, meta.SourceID)
	s.lastStats = stats
	s.mu.Unlock()
	close(flight.done)

	return stats, err
}

// runIndexing performs one indexing pass. Exactly one runs per source at
// a time.
func (s *RetrievalService) runIndexing(
	ctx context.Context, text string, meta domain.IndexMetadata, onProgress driving.ProgressFunc,
) (domain.IndexStats, error) {
	logger.Section("Indexing " + meta.SourceID)
	start := time.Now()
	stats := domain.IndexStats{SourceID: meta.SourceID}

	report := func(percent int, stage string) {
		if onProgress != nil {
			onProgress(domain.IndexProgress{SourceID: meta.SourceID, Percent: percent, Stage: stage})
		}
	}

	report(0, "hashing")
	hash := ContentHash(text)

	s.mu.Lock()
	prev, hasPrev := s.metadata[meta.SourceID]
	s.mu.Unlock()

	// Hash equality alone is not trusted: a crashed prior pass may have
	// recorded nothing, or the store may have lost the entries. Presence
	// is verified against the actual index.
	if hasPrev && prev.ContentHash == hash && s.store.HasDocument(ctx, meta.SourceID) {
		logger.Info("Source %s unchanged, skipping", meta.SourceID)
		stats.Skipped = true
		stats.SkipReason = domain.SkipUnchanged
		stats.Duration = time.Since(start)
		report(100, "done")
		return stats, nil
	}

	fingerprint := SimHash(text)
	if hasPrev && prev.SimHash != 0 && NearDuplicate(prev.SimHash, fingerprint, 3) {
		logger.Debug("Source %s changed only lightly (hamming %d), re-indexing anyway",
			meta.SourceID, HammingDistance(prev.SimHash, fingerprint))
	}

	report(10, "chunking")
	chunks := s.chunker.ChunkForEmbedding(text, meta.SourceType)
	if len(chunks) == 0 {
		logger.Info("Source %s produced no chunks, skipping", meta.SourceID)
		stats.Skipped = true
		stats.SkipReason = domain.SkipNoChunks
		stats.Duration = time.Since(start)
		report(100, "done")
		return stats, nil
	}

	// Re-indexing changed content: clear the old entries first so a
	// shrunken source leaves no stale chunk tail behind.
	if hasPrev {
		if err := s.store.RemoveSource(ctx, meta.SourceID); err != nil {
			stats.Err = fmt.Errorf("remove stale entries: %w", err)
			stats.Duration = time.Since(start)
			return stats, stats.Err
		}
	}

	now := time.Now()
	entries := make([]domain.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = domain.Entry{
			ID:      domain.EntryID(meta.SourceType, meta.SourceID, chunk.Index),
			Type:    meta.SourceType,
			Content: chunk.Text,
			Metadata: domain.EntryMetadata{
				SourceID:    meta.SourceID,
				SourceURL:   meta.SourceURL,
				SourceType:  meta.SourceType,
				Title:       meta.Title,
				ChunkIndex:  chunk.Index,
				TotalChunks: len(chunks),
			},
			Timestamp: now,
		}
	}

	// Embed and store in batches. A failed batch aborts the pass: the
	// metadata record is only written after every batch succeeds, so a
	// partial pass is retried whole next time.
	for batchStart := 0; batchStart < len(entries); batchStart += s.batchSize {
		batchEnd := batchStart + s.batchSize
		if batchEnd > len(entries) {
			batchEnd = len(entries)
		}
		batch := entries[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, e := range batch {
			texts[i] = e.Content
		}

		embedStart := time.Now()
		vectors, err := s.embedder.EmbedBatch(ctx, texts, false)
		stats.EmbedTime += time.Since(embedStart)
		if err != nil {
			stats.Err = fmt.Errorf("embed batch at chunk %d: %w", batchStart, err)
			stats.Duration = time.Since(start)
			return stats, stats.Err
		}
		if len(vectors) != len(batch) {
			stats.Err = fmt.Errorf("embed batch at chunk %d: got %d vectors for %d texts",
				batchStart, len(vectors), len(batch))
			stats.Duration = time.Since(start)
			return stats, stats.Err
		}

		persistStart := time.Now()
		for i, entry := range batch {
			if err := s.store.Add(ctx, entry, vectors[i]); err != nil {
				stats.PersistTime += time.Since(persistStart)
				stats.Err = fmt.Errorf("store entry %s: %w", entry.ID, err)
				stats.Duration = time.Since(start)
				return stats, stats.Err
			}
		}
		stats.PersistTime += time.Since(persistStart)
		stats.ChunkCount += len(batch)

		span := progressEmbedEnd - progressEmbedStart
		report(progressEmbedStart+span*batchEnd/len(entries), "embedding")
	}

	report(92, "saving")

	// All batches succeeded: record the metadata, flush the snapshot and
	// drop every cached query (new content may affect any of them).
	record := domain.SourceMetadata{
		SourceID:    meta.SourceID,
		ContentHash: hash,
		SimHash:     fingerprint,
		ChunkCount:  len(chunks),
		Timestamp:   time.Now(),
	}
	if err := s.putMetadata(ctx, record); err != nil {
		stats.Err = err
		stats.Duration = time.Since(start)
		return stats, err
	}

	persistStart := time.Now()
	if err := s.store.ForceSave(ctx); err != nil {
		stats.PersistTime += time.Since(persistStart)
		stats.Err = fmt.Errorf("flush vector store: %w", err)
		stats.Duration = time.Since(start)
		return stats, stats.Err
	}
	stats.PersistTime += time.Since(persistStart)

	s.cache.invalidateAll()

	stats.Duration = time.Since(start)
	report(100, "done")
	logger.Info("Indexed %s: %d chunks in %s", meta.SourceID, stats.ChunkCount, stats.Duration)
	return stats, nil
}

// putMetadata stores a metadata record durably and mirrors it in memory.
func (s *RetrievalService) putMetadata(ctx context.Context, record domain.SourceMetadata) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal metadata %s: %w", record.SourceID, err)
	}
	if err := s.kv.Put(ctx, nsMeta, record.SourceID, body); err != nil {
		return fmt.Errorf("persist metadata %s: %w", record.SourceID, err)
	}

	s.mu.Lock()
	s.metadata[record.SourceID] = record
	s.mu.Unlock()
	return nil
}

// IndexSummary indexes a summary as a single high-priority entry under
// the source's summary ID. Idempotent: an existing summary entry skips.
func (s *RetrievalService) IndexSummary(
	ctx context.Context, summary string, meta domain.IndexMetadata,
) (domain.IndexStats, error) {
	if meta.SourceID == "" || !meta.SourceType.Valid() {
		return domain.IndexStats{}, fmt.Errorf("%w: sourceID %q type %q",
			domain.ErrInvalidInput, meta.SourceID, meta.SourceType)
	}

	start := time.Now()
	stats := domain.IndexStats{SourceID: meta.SourceID}
	summaryID := domain.SummarySourceID(meta.SourceID)

	if s.store.HasDocument(ctx, summaryID) {
		stats.Skipped = true
		stats.SkipReason = domain.SkipAlreadyIndexed
		stats.Duration = time.Since(start)
		return stats, nil
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		stats.Skipped = true
		stats.SkipReason = domain.SkipNoChunks
		stats.Duration = time.Since(start)
		return stats, nil
	}

	embedStart := time.Now()
	vector, err := s.embedder.Embed(ctx, summary, false)
	stats.EmbedTime = time.Since(embedStart)
	if err != nil {
		stats.Err = fmt.Errorf("embed summary: %w", err)
		stats.Duration = time.Since(start)
		return stats, stats.Err
	}

	entry := domain.Entry{
		ID:      domain.EntryID(meta.SourceType, summaryID, 0),
		Type:    meta.SourceType,
		Content: summary,
		Metadata: domain.EntryMetadata{
			SourceID:    summaryID,
			SourceURL:   meta.SourceURL,
			SourceType:  meta.SourceType,
			Title:       meta.Title,
			ChunkIndex:  0,
			TotalChunks: 1,
			IsSummary:   true,
		},
		Timestamp: time.Now(),
	}

	persistStart := time.Now()
	if err := s.store.Add(ctx, entry, vector); err != nil {
		stats.PersistTime = time.Since(persistStart)
		stats.Err = fmt.Errorf("store summary: %w", err)
		stats.Duration = time.Since(start)
		return stats, stats.Err
	}
	if err := s.store.ForceSave(ctx); err != nil {
		stats.Err = fmt.Errorf("flush vector store: %w", err)
		stats.Duration = time.Since(start)
		return stats, stats.Err
	}
	stats.PersistTime = time.Since(persistStart)
	stats.ChunkCount = 1

	s.cache.invalidateAll()
	stats.Duration = time.Since(start)

	s.mu.Lock()
	s.lastStats = stats
	s.mu.Unlock()
	return stats, nil
}

// Search runs hybrid search. Failures degrade to an empty result set: a
// conversational caller cannot distinguish "nothing relevant" from "the
// search subsystem broke", which is the accepted trade-off here.
func (s *RetrievalService) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	if limit <= 0 {
		limit = 10
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}
	}

	if cached, ok := s.cache.get(query, limit); ok {
		logger.Debug("Cache hit for %q", query)
		return cached
	}

	processed := preprocessQuery(query)
	logger.Debug("Query %q preprocessed to %q", query, processed)

	fetch := limit * candidateFactor

	// Semantic and lexical legs run in parallel. Either may fail
	// independently; fusion proceeds with whatever survived.
	var semantic, keyword []domain.SearchResult
	var semanticErr, keywordErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		embedding, err := s.embedder.Embed(ctx, processed, true)
		if err != nil {
			semanticErr = fmt.Errorf("embed query: %w", err)
			return
		}
		semantic, semanticErr = s.store.Search(ctx, embedding, fetch)
	}()

	go func() {
		defer wg.Done()
		keyword, keywordErr = s.store.SearchKeyword(ctx, processed, fetch)
	}()

	wg.Wait()

	if semanticErr != nil {
		logger.Warn("Semantic search failed: %v", semanticErr)
	}
	if keywordErr != nil {
		logger.Warn("Keyword search failed: %v", keywordErr)
	}
	if semanticErr != nil && keywordErr != nil {
		return []domain.SearchResult{}
	}

	weights := weightsForQuery(len(strings.Fields(processed)))
	results := fuseResults(semantic, keyword, weights)
	results = rerank(results, processed)

	if len(results) > limit {
		results = results[:limit]
	}

	s.cache.put(query, limit, results)
	return results
}

// SearchWithContext returns concatenated context blocks for the best
// matches, optionally scoped to one source URL. An empty string (not an
// error) means nothing survived filtering.
func (s *RetrievalService) SearchWithContext(
	ctx context.Context, query string, limit int, sourceURL string,
) string {
	if limit <= 0 {
		limit = 5
	}

	results := s.Search(ctx, query, limit*4)
	if sourceURL != "" {
		filtered := results[:0]
		for _, r := range results {
			if urlMatches(r.Entry.Metadata.SourceURL, sourceURL) {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source %d: %s]\n%s", i+1, r.Entry.Metadata.Title, r.Entry.Content)
	}
	return b.String()
}

// urlMatches accepts exact, prefix, or reverse-prefix matches, so a page
// URL with a fragment or query string still scopes to its document.
func urlMatches(entryURL, wanted string) bool {
	if entryURL == "" {
		return false
	}
	return entryURL == wanted ||
		strings.HasPrefix(entryURL, wanted) ||
		strings.HasPrefix(wanted, entryURL)
}

// SearchWithSources returns a numbered context block plus the source list
// a generator needs to produce citation-annotated answers.
func (s *RetrievalService) SearchWithSources(ctx context.Context, query string, limit int) domain.SourcedContext {
	if limit <= 0 {
		limit = 5
	}

	results := s.Search(ctx, query, limit*2)
	if len(results) > limit {
		results = results[:limit]
	}

	out := domain.SourcedContext{Sources: make([]domain.SourceRef, 0, len(results))}
	var b strings.Builder

	for i, r := range results {
		snippet := r.Entry.Content
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		out.Sources = append(out.Sources, domain.SourceRef{
			Index:   i + 1,
			Title:   r.Entry.Metadata.Title,
			URL:     r.Entry.Metadata.SourceURL,
			Type:    r.Entry.Type,
			Score:   r.Score,
			Snippet: snippet,
		})

		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s\n%s", i+1, r.Entry.Metadata.Title, r.Entry.Content)
	}

	out.Context = b.String()
	return out
}

// HasIndexedContent reports whether the source has entries in the store.
func (s *RetrievalService) HasIndexedContent(ctx context.Context, sourceID string) bool {
	return s.store.HasDocument(ctx, sourceID)
}

// LastStats returns the statistics of the most recent indexing pass.
func (s *RetrievalService) LastStats() domain.IndexStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStats
}

// MetadataCount returns the number of sources with metadata records.
func (s *RetrievalService) MetadataCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.metadata)
}

// ActiveIndexingCount returns the number of in-flight indexing passes.
func (s *RetrievalService) ActiveIndexingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// preprocessQuery normalises a query before embedding: lowercase, fix a
// small table of common typos, expand terse abbreviations.
func preprocessQuery(query string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	for i, w := range words {
		if fixed, ok := queryTypos[w]; ok {
			words[i] = fixed
			continue
		}
		if expanded, ok := queryExpansions[w]; ok {
			words[i] = expanded
		}
	}
	return strings.Join(words, " ")
}
