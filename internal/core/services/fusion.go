package services

import (
	"sort"
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/lexical"
)

// Fusion constants.
const (
	// rrfK dampens the influence of top ranks (the usual RRF constant).
	rrfK = 60

	// summaryBoost multiplies the fused contribution of summary entries;
	// a condensed summary beats its own raw chunks for most questions.
	summaryBoost = 1.3

	// Display range for fused scores.
	scoreFloor = 40.0
	scoreCeil  = 100.0

	// rerankDepth bounds how many fused results the literal-term rerank
	// re-examines.
	rerankDepth = 50

	// rerankMaxBonus is the largest score bonus the rerank can add.
	rerankMaxBonus = 10.0
)

// fusionWeights split scoring influence between the two indexes.
type fusionWeights struct {
	semantic float64
	keyword  float64
}

// weightsForQuery adapts fusion weights to query length. Short queries
// are usually keyword lookups ("invoice amount"); long ones read like
// questions, where embeddings carry more signal.
func weightsForQuery(tokenCount int) fusionWeights {
	switch {
	case tokenCount <= 2:
		return fusionWeights{semantic: 0.3, keyword: 0.7}
	case tokenCount >= 8:
		return fusionWeights{semantic: 0.8, keyword: 0.2}
	default:
		return fusionWeights{semantic: 0.6, keyword: 0.4}
	}
}

// fuseResults merges the two ranked candidate lists with Reciprocal Rank
// Fusion: each list contributes weight/(k+rank+1) per entry, summary
// entries get their contribution boosted, and fused scores are rescaled
// into the display range. Rank-based fusion deliberately ignores the raw
// scores, which are not comparable across the two indexes.
func fuseResults(semantic, keyword []domain.SearchResult, w fusionWeights) []domain.SearchResult {
	scores := make(map[string]float64)
	entries := make(map[string]domain.Entry)
	matches := make(map[string]domain.MatchType)

	accumulate := func(list []domain.SearchResult, weight float64, mt domain.MatchType) {
		for rank, r := range list {
			contribution := weight / float64(rrfK+rank+1)
			if r.Entry.Metadata.IsSummary {
				contribution *= summaryBoost
			}
			scores[r.Entry.ID] += contribution
			entries[r.Entry.ID] = r.Entry

			if prev, seen := matches[r.Entry.ID]; seen && prev != mt {
				matches[r.Entry.ID] = domain.MatchHybrid
			} else if !seen {
				matches[r.Entry.ID] = mt
			}
		}
	}

	accumulate(semantic, w.semantic, domain.MatchSemantic)
	accumulate(keyword, w.keyword, domain.MatchKeyword)

	fused := make([]domain.SearchResult, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, domain.SearchResult{
			Entry:     entries[id],
			Score:     score,
			MatchType: matches[id],
		})
	}

	sortByScore(fused)
	rescaleScores(fused)
	return fused
}

// rerank adds a literal-match bonus to the top fused results: the
// fraction of distinct query terms (3+ chars) appearing verbatim in the
// entry text earns up to rerankMaxBonus points. Embeddings occasionally
// surface passages that merely orbit the topic; exact term presence pulls
// direct answers back up.
func rerank(results []domain.SearchResult, query string) []domain.SearchResult {
	terms := dedupe(lexical.Tokenize(query))
	if len(terms) == 0 || len(results) == 0 {
		return results
	}

	depth := len(results)
	if depth > rerankDepth {
		depth = rerankDepth
	}

	for i := 0; i < depth; i++ {
		content := strings.ToLower(results[i].Entry.Content)
		found := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				found++
			}
		}
		results[i].Score += rerankMaxBonus * float64(found) / float64(len(terms))
	}

	sortByScore(results)
	rescaleScores(results)
	return results
}

// sortByScore orders results descending, ties broken by ID for
// deterministic output.
func sortByScore(results []domain.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.ID < results[j].Entry.ID
	})
}

// rescaleScores linearly maps scores into the [scoreFloor, scoreCeil]
// display range. Order is preserved; a single distinct value maps to the
// ceiling.
func rescaleScores(results []domain.SearchResult) {
	if len(results) == 0 {
		return
	}

	minScore, maxScore := results[0].Score, results[0].Score
	for _, r := range results {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	span := maxScore - minScore
	if span == 0 {
		for i := range results {
			results[i].Score = scoreCeil
		}
		return
	}

	for i := range results {
		normalized := (results[i].Score - minScore) / span
		results[i].Score = scoreFloor + normalized*(scoreCeil-scoreFloor)
	}
}

// dedupe removes duplicate tokens preserving order.
func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
