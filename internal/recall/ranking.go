package recall

import (
	"math"
	"time"

	"github.com/bobmatnyc/kuzu-memory/internal/memory"
	"github.com/bobmatnyc/kuzu-memory/internal/storage"
)

// Candidate is a scored storage.Scored enriched with the ranking inputs
// needed by Final (spec §4.4.4).
type Candidate struct {
	Memory    *memory.Memory
	BaseScore float64
}

// weights are the fixed coefficients from spec §4.4.4's ranking formula.
const (
	weightBase        = 0.55
	weightImportance  = 0.20
	weightType        = 0.10
	weightFreshness   = 0.10
	weightAccessCount = 0.05
)

// Final computes the §4.4.4 ranking formula for one candidate.
func Final(c Candidate, now time.Time, maxAccessCount int) float64 {
	freshness := math.Exp(-ageDays(c.Memory.CreatedAt, now) / 30)
	typeWeight := memory.TypeWeight[c.Memory.MemoryType]

	accessTerm := 0.0
	if maxAccessCount > 0 {
		accessTerm = math.Log1p(float64(c.Memory.AccessCount)) / math.Log1p(float64(maxAccessCount))
	}

	score := weightBase*c.BaseScore +
		weightImportance*c.Memory.Importance +
		weightType*typeWeight +
		weightFreshness*freshness +
		weightAccessCount*accessTerm
	return memory.Clamp01(score)
}

func ageDays(t, now time.Time) float64 {
	return now.Sub(t).Hours() / 24
}

// Rank sorts candidates by Final score descending with the spec's
// deterministic tie-break (higher created_at, then lexicographically
// smaller id), truncates to max, and returns the mean score as confidence.
func Rank(candidates []Candidate, now time.Time, max int) (selected []Candidate, confidence float64) {
	if len(candidates) == 0 {
		return nil, 0
	}

	maxAccess := 0
	for _, c := range candidates {
		if c.Memory.AccessCount > maxAccess {
			maxAccess = c.Memory.AccessCount
		}
	}

	byID := make(map[string]Candidate, len(candidates))
	finalByID := make(map[string]float64, len(candidates))
	storageScored := make([]storage.Scored, len(candidates))
	for i, c := range candidates {
		byID[c.Memory.ID] = c
		finalByID[c.Memory.ID] = Final(c, now, maxAccess)
		storageScored[i] = storage.Scored{Memory: c.Memory}
	}
	storage.SortScoredByFinalDesc(storageScored, func(s storage.Scored) float64 {
		return finalByID[s.Memory.ID]
	})

	if max > 0 && len(storageScored) > max {
		storageScored = storageScored[:max]
	}

	selected = make([]Candidate, len(storageScored))
	var sum float64
	for i, s := range storageScored {
		selected[i] = byID[s.Memory.ID]
		sum += finalByID[s.Memory.ID]
	}
	confidence = memory.Clamp01(sum / float64(len(selected)))
	return selected, confidence
}
