// Package recall implements the Recall engine (C7) from spec §4.4:
// fingerprinted queries, auto strategy selection among keyword/entity/
// temporal candidate generation, weighted ranking, and LRU+TTL caching of
// results under a soft 100ms deadline.
package recall

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/bobmatnyc/kuzu-memory/internal/classifier"
	"github.com/bobmatnyc/kuzu-memory/internal/memory"
)

// Strategy names a recall candidate-generation strategy (spec §4.4).
type Strategy string

const (
	StrategyAuto     Strategy = "auto"
	StrategyKeyword  Strategy = "keyword"
	StrategyEntity   Strategy = "entity"
	StrategyTemporal Strategy = "temporal"
	StrategyPartial  Strategy = "partial"
)

// Options configures a single Recall call (spec §4.4).
type Options struct {
	MaxMemories int
	Strategy    Strategy
	UserID      string
	SessionID   string
	MemoryType  memory.Type
}

// Query is the normalised, feature-extracted form of a recall request,
// computed once and reused across strategy selection, candidate scoring,
// and the cache key (spec §4.4.1).
type Query struct {
	Raw         string
	Normalized  string
	Keywords    map[string]float64 // distinct term -> equal share 1/n; repeats in the query do not add weight
	Entities    []string
	Fingerprint string
}

// NewQuery normalises query the same way ingestion normalises content and
// extracts keywords/entities using the classifier's own rules, so recall
// and ingestion never disagree about what a term or entity is.
func NewQuery(raw string, opts Options) Query {
	normalized := memory.NormalizeContent(raw)
	c := classifier.Classify(normalized, classifier.Hints{})

	tf := make(map[string]float64, len(c.Keywords))
	for _, kw := range c.Keywords {
		tf[kw]++
	}
	total := 0.0
	for _, v := range tf {
		total += v
	}
	if total > 0 {
		for k := range tf {
			tf[k] /= total
		}
	}

	q := Query{
		Raw:        raw,
		Normalized: normalized,
		Keywords:   tf,
		Entities:   c.Entities,
	}
	q.Fingerprint = fingerprint(normalized, opts)
	return q
}

// fingerprint computes a stable hash of the normalised query plus options,
// used as the recall_cache/enhance_cache key (spec §4.4.1).
func fingerprint(normalized string, opts Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s|%s|%s",
		normalized, opts.MaxMemories, opts.Strategy, opts.UserID, opts.SessionID, opts.MemoryType)
	return hex.EncodeToString(h.Sum(nil))
}

// hasTemporalCue reports whether the normalised query contains a
// recency-oriented word (spec §4.4.2).
func hasTemporalCue(normalized string) bool {
	lower := strings.ToLower(normalized)
	for _, cue := range []string{"recent", "recently", "today", "just now", "latest"} {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// SelectStrategy implements spec §4.4.2's auto-mode decision tree.
func SelectStrategy(q Query) Strategy {
	if len(q.Entities) >= 1 {
		return StrategyEntity
	}
	if len(q.Keywords) <= 3 && hasTemporalCue(q.Normalized) {
		return StrategyTemporal
	}
	return StrategyKeyword
}

// sortedKeywords returns q's keywords sorted for deterministic iteration
// in tests and logs.
func (q Query) sortedKeywords() []string {
	out := make([]string, 0, len(q.Keywords))
	for k := range q.Keywords {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
