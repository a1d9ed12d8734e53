// Package lexical provides an in-memory inverted index with IDF-weighted
// scoring. The index owns no persistence: it is rebuilt from the document
// store whenever the vector store loads.
package lexical

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// minTokenLen filters out tokens too short to be discriminative.
const minTokenLen = 3

// Index maps tokens to the set of entry IDs containing them.
type Index struct {
	mu       sync.RWMutex
	postings map[string]map[string]struct{}
	entries  map[string]domain.Entry
}

// New creates an empty index.
func New() *Index {
	return &Index{
		postings: make(map[string]map[string]struct{}),
		entries:  make(map[string]domain.Entry),
	}
}

// Add tokenises the entry's content and records the entry under each token.
// Adding an entry with an existing ID replaces it.
func (x *Index) Add(entry domain.Entry) {
	tokens := Tokenize(entry.Content)

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, exists := x.entries[entry.ID]; exists {
		x.removeLocked(entry.ID)
	}

	x.entries[entry.ID] = entry
	for _, tok := range tokens {
		set, ok := x.postings[tok]
		if !ok {
			set = make(map[string]struct{})
			x.postings[tok] = set
		}
		set[entry.ID] = struct{}{}
	}
}

// Remove drops an entry from the index. Removing an unknown ID is a no-op.
func (x *Index) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(id)
}

func (x *Index) removeLocked(id string) {
	entry, ok := x.entries[id]
	if !ok {
		return
	}
	delete(x.entries, id)
	for _, tok := range Tokenize(entry.Content) {
		if set, ok := x.postings[tok]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(x.postings, tok)
			}
		}
	}
}

// Search scores every entry matching at least one query token and returns
// the top limit results, tagged as keyword matches.
//
// Per-token weight is log(totalDocs/postingSetSize + 1), an IDF-style
// weight that favours rare terms; the sum is divided by the query token
// count so scores are comparable across queries.
func (x *Index) Search(query string, limit int) []domain.SearchResult {
	tokens := Tokenize(query)
	if len(tokens) == 0 || limit <= 0 {
		return nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	total := float64(len(x.entries))
	scores := make(map[string]float64)

	for _, tok := range tokens {
		set, ok := x.postings[tok]
		if !ok {
			continue
		}
		idf := math.Log(total/float64(len(set)) + 1)
		for id := range set {
			scores[id] += idf
		}
	}

	results := make([]domain.SearchResult, 0, len(scores))
	for id, score := range scores {
		results = append(results, domain.SearchResult{
			Entry:     x.entries[id],
			Score:     score / float64(len(tokens)),
			MatchType: domain.MatchKeyword,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// HasSource reports whether any indexed entry belongs to the source.
func (x *Index) HasSource(sourceID string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, entry := range x.entries {
		if entry.Metadata.SourceID == sourceID {
			return true
		}
	}
	return false
}

// EntryIDs returns the IDs of all indexed entries belonging to a source.
func (x *Index) EntryIDs(sourceID string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var ids []string
	for id, entry := range x.entries {
		if entry.Metadata.SourceID == sourceID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of indexed entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Clear resets all state.
func (x *Index) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.postings = make(map[string]map[string]struct{})
	x.entries = make(map[string]domain.Entry)
}

// Tokenize lowercases text, strips punctuation and drops tokens shorter
// than three characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
