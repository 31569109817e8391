package recall

import (
	"context"
	"math"
	"time"

	"github.com/bobmatnyc/kuzu-memory/internal/memory"
	"github.com/bobmatnyc/kuzu-memory/internal/storage"
)

// candidateLimitMultiplier is the 4x over-fetch factor from spec §4.4.3.
const candidateLimitMultiplier = 4

// temporalTauShort/Long are the decay time constants for query_recent's
// freshness score (spec §4.4.3): 1 hour for working/sensory memories, 1 day
// otherwise.
const (
	temporalTauShort = 3600.0
	temporalTauLong  = 86400.0
)

// generate dispatches to the candidate-generation strategy for q, scoring
// each candidate per spec §4.4.3.
func generate(ctx context.Context, store storage.Store, q Query, strategy Strategy, max int, f storage.Filters) ([]Candidate, error) {
	limit := candidateLimitMultiplier * max
	switch strategy {
	case StrategyEntity:
		return generateEntity(ctx, store, q, limit, f)
	case StrategyTemporal:
		return generateTemporal(ctx, store, limit, f)
	default:
		return generateKeyword(ctx, store, q, limit, f)
	}
}

func generateKeyword(ctx context.Context, store storage.Store, q Query, limit int, f storage.Filters) ([]Candidate, error) {
	scored, err := store.QueryByKeywords(ctx, q.Keywords, limit, f)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, len(scored))
	for i, s := range scored {
		out[i] = Candidate{Memory: s.Memory, BaseScore: weightedJaccard(q.Keywords, s.Memory.Keywords)}
	}
	return out, nil
}

// weightedJaccard scores a candidate's keyword overlap with the query,
// weighting each shared term by its weight in queryTF (spec §4.4.3). NewQuery
// gives every distinct query keyword the same weight, so a term repeated in
// the query counts no more than one used once.
func weightedJaccard(queryTF map[string]float64, candidateKeywords []string) float64 {
	if len(queryTF) == 0 || len(candidateKeywords) == 0 {
		return 0
	}
	candSet := make(map[string]bool, len(candidateKeywords))
	for _, k := range candidateKeywords {
		candSet[k] = true
	}
	var weightedOverlap, totalWeight float64
	for term, w := range queryTF {
		totalWeight += w
		if candSet[term] {
			weightedOverlap += w
		}
	}
	if totalWeight == 0 {
		return 0
	}
	return memory.Clamp01(weightedOverlap / totalWeight)
}

func generateEntity(ctx context.Context, store storage.Store, q Query, limit int, f storage.Filters) ([]Candidate, error) {
	scored, err := store.QueryByEntities(ctx, q.Entities, limit, f)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, len(scored))
	for i, s := range scored {
		out[i] = Candidate{Memory: s.Memory, BaseScore: entityOverlapFraction(q.Entities, s.Memory.Entities)}
	}
	return out, nil
}

// entityOverlapFraction is the fraction of query entities mentioned by the
// candidate (spec §4.4.3).
func entityOverlapFraction(queryEntities, candidateEntities []string) float64 {
	if len(queryEntities) == 0 {
		return 0
	}
	candSet := make(map[string]bool, len(candidateEntities))
	for _, e := range candidateEntities {
		candSet[e] = true
	}
	var hit int
	for _, e := range queryEntities {
		if candSet[e] {
			hit++
		}
	}
	return float64(hit) / float64(len(queryEntities))
}

func generateTemporal(ctx context.Context, store storage.Store, limit int, f storage.Filters) ([]Candidate, error) {
	mems, err := store.QueryRecent(ctx, limit, f)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]Candidate, len(mems))
	for i, m := range mems {
		tau := temporalTauLong
		if m.MemoryType == memory.Working || m.MemoryType == memory.Sensory {
			tau = temporalTauShort
		}
		ageSeconds := now.Sub(m.CreatedAt).Seconds()
		out[i] = Candidate{Memory: m, BaseScore: math.Exp(-ageSeconds / tau)}
	}
	return out, nil
}
