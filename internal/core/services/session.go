package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/lexical"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

var _ driving.SessionRetriever = (*SessionRetrievalService)(nil)

// sessionWeights are fixed: within a single document there is no query
// length signal worth adapting to.
var sessionWeights = fusionWeights{semantic: 0.7, keyword: 0.3}

// SessionRetrievalService searches within one open document. Everything
// lives in memory; replacing the document or clearing the session drops
// all state. No persistence, no cache, no rerank.
type SessionRetrievalService struct {
	embedder driven.EmbeddingService
	chunker  driven.Chunker

	mu          sync.Mutex
	contentHash string
	entries     []domain.Entry
	vectors     [][]float32
	lex         *lexical.Index
}

// NewSessionRetrievalService creates a session retriever.
func NewSessionRetrievalService(embedder driven.EmbeddingService, chunker driven.Chunker) *SessionRetrievalService {
	return &SessionRetrievalService{
		embedder: embedder,
		chunker:  chunker,
		lex:      lexical.New(),
	}
}

// SetDocument indexes the open document, replacing any previous one.
// Setting the same content again (by cheap hash) is a no-op.
func (s *SessionRetrievalService) SetDocument(ctx context.Context, text string, meta domain.IndexMetadata) error {
	if meta.SourceID == "" || !meta.SourceType.Valid() {
		return fmt.Errorf("%w: sourceID %q type %q", domain.ErrInvalidInput, meta.SourceID, meta.SourceType)
	}

	hash := ContentHash(text)

	s.mu.Lock()
	if s.contentHash == hash {
		s.mu.Unlock()
		logger.Debug("Session document unchanged, skipping")
		return nil
	}
	s.mu.Unlock()

	chunks := s.chunker.ChunkForEmbedding(text, meta.SourceType)
	if len(chunks) == 0 {
		s.Clear()
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts, false)
	if err != nil {
		return fmt.Errorf("embed session document: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed session document: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	now := time.Now()
	entries := make([]domain.Entry, len(chunks))
	lex := lexical.New()
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
		lex.Add(entries[i])
	}

	s.mu.Lock()
	s.contentHash = hash
	s.entries = entries
	s.vectors = vectors
	s.lex = lex
	s.mu.Unlock()

	logger.Debug("Session document set: %d chunks", len(chunks))
	return nil
}

// Search runs hybrid search over the session document. Unlike the
// persistent retriever this propagates errors: the caller set the
// document explicitly and should know when the query leg failed.
func (s *SessionRetrievalService) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	s.mu.Lock()
	entries := s.entries
	vectors := s.vectors
	lex := s.lex
	s.mu.Unlock()

	if len(entries) == 0 {
		return []domain.SearchResult{}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query, true)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	semantic := make([]domain.SearchResult, 0, len(entries))
	for i, entry := range entries {
		semantic = append(semantic, domain.SearchResult{
			Entry:     entry,
			Score:     cosineSimilarity(queryVec, vectors[i]),
			MatchType: domain.MatchSemantic,
		})
	}
	sortByScore(semantic)
	if len(semantic) > limit*candidateFactor {
		semantic = semantic[:limit*candidateFactor]
	}

	keyword := lex.Search(query, limit*candidateFactor)

	results := fuseResults(semantic, keyword, sessionWeights)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Clear drops all session state.
func (s *SessionRetrievalService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentHash = ""
	s.entries = nil
	s.vectors = nil
	s.lex = lexical.New()
}

// cosineSimilarity between two vectors; zero for mismatched or zero
// vectors.
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
