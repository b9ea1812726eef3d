// Package product resolves free-text product mentions against the catalog.
package product

import (
	"strings"

	"github.com/ent0n29/gadgetdesk/internal/catalog"
)

// MatchThreshold is the score a candidate must exceed to be accepted.
const MatchThreshold = 75

// Match is the best-scoring candidate for a query.
type Match struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type candidate struct {
	key  string
	name string
}

// Resolver matches queries against product display names. It is read-only
// after construction.
type Resolver struct {
	candidates []candidate
	scorer     Scorer
}

// NewResolver builds a resolver over products in catalog order. A nil scorer
// selects WeightedRatio.
func NewResolver(products []catalog.Product, scorer Scorer) *Resolver {
	if scorer == nil {
		scorer = WeightedRatio
	}
	cands := make([]candidate, 0, len(products))
	for _, p := range products {
		cands = append(cands, candidate{key: p.Key, name: strings.ToLower(p.Name)})
	}
	return &Resolver{candidates: cands, scorer: scorer}
}

// Best returns the highest-scoring product regardless of the threshold. Ties
// keep the earliest product in catalog order. ok is false for an empty query
// or an empty catalog.
func (r *Resolver) Best(query string) (Match, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(r.candidates) == 0 {
		return Match{}, false
	}
	best := Match{Score: -1}
	for _, c := range r.candidates {
		score := r.scorer.Score(q, c.name)
		if score > best.Score {
			best = Match{Key: c.key, Name: c.name, Score: score}
		}
	}
	return best, true
}

// Resolve returns the product key whose name best matches query when the
// score is above MatchThreshold.
func (r *Resolver) Resolve(query string) (string, bool) {
	m, ok := r.Best(query)
	if !ok || m.Score <= MatchThreshold {
		return "", false
	}
	return m.Key, true
}
