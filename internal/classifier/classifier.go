// Package classifier implements deterministic, side-effect-free rule-based
// classification of ingested content into one of the six memory types
// (spec §4.1). Unlike the teacher's enrichment pipeline, which dispatched to
// an LLM client, this classifier never performs I/O: it is pure given its
// input.
package classifier

import (
	"strings"

	"github.com/bobmatnyc/kuzu-memory/internal/memory"
)

// keywordTopK is the default top-K cutoff for extracted keywords (spec
// §4.1 step 7).
const keywordTopK = 16

// Hints carries optional caller-supplied context that can steer
// classification without overriding the deterministic rule engine (e.g. a
// caller-known source_type). Currently advisory only; reserved for future
// rule extensions.
type Hints struct {
	SourceType memory.Source
}

// Classification is the pure output of Classify: everything the caller
// needs to build a memory.Memory without touching the store.
type Classification struct {
	MemoryType memory.Type
	Importance float64
	Confidence float64
	Keywords   []string
	Entities   []string
	Sentiment  float64
}

// Classify implements spec §4.1: normalise, tokenise, apply ranked pattern
// rules, extract entities/keywords/sentiment, and compute importance.
// Pure and deterministic: identical content always yields an identical
// Classification.
func Classify(content string, _ Hints) Classification {
	normalized := memory.NormalizeContent(content)
	lower := strings.ToLower(normalized)

	mt, base, confDelta := matchRule(lower)
	entities := extractEntities(normalized)
	keywords := extractKeywords(normalized, entities, keywordTopK)
	pol := sentiment(tokenize(normalized))

	confidence := memory.Clamp01(defaultConfidence + confDelta)
	importance := base

	if l := len(normalized); l >= 50 && l <= 300 {
		importance += 0.1
	}
	if hasNumericOrURLOrPath(normalized) {
		importance += 0.05
	}
	if pol > 0.6 || pol < -0.6 {
		importance += 0.15
	}
	importance = memory.Clamp01(importance)

	return Classification{
		MemoryType: mt,
		Importance: importance,
		Confidence: confidence,
		Keywords:   keywords,
		Entities:   entities,
		Sentiment:  pol,
	}
}

// ClassifyBatch classifies each item in order, sharing nothing mutable
// across calls — batch mode must not alter outputs relative to per-item
// mode (spec §4.1). The "shared tokenisation cache" the spec permits is
// not used: each item is tokenised on its own, linear in its length; this
// keeps the function trivially correct rather than introducing a cache
// that could leak state between items.
func ClassifyBatch(contents []string, hints Hints) []Classification {
	out := make([]Classification, len(contents))
	for i, c := range contents {
		out[i] = Classify(c, hints)
	}
	return out
}

func matchRule(lower string) (memory.Type, float64, float64) {
	for _, r := range rules {
		if r.pattern.MatchString(lower) {
			return memory.Type(r.memoryType), r.baseImportance, r.confidenceDelta
		}
	}
	return memory.Semantic, 0.5, 0
}
