// Package dedup implements the deduplication rules from spec §4.2: exact
// content-hash matches, near-duplicate detection via Jaccard similarity on
// keyword sets, and a secrets filter applied before any hashing happens.
package dedup

import (
	"regexp"
	"strings"
)

// DefaultNearDuplicateThreshold is the Jaccard similarity cutoff above
// which two memories of the same type and user are treated as duplicates
// (spec §4.2 rule 2).
const DefaultNearDuplicateThreshold = 0.85

// defaultSecretPatterns mirrors config.LearningConfig.ExcludedPatterns'
// defaults; callers normally supply the configured set via Filter, this is
// only the fallback when none is configured.
var defaultSecretPatterns = []string{
	`(?i)password\s*[:=]`,
	`(?i)api[_-]?key\s*[:=]`,
	`(?i)bearer\s+[a-z0-9._-]+`,
	`(?i)secret\s*[:=]`,
}

// Filter rejects content matching any configured deny-list pattern before
// it reaches hashing (spec §4.2 rule 4).
type Filter struct {
	patterns []*regexp.Regexp
}

// NewFilter compiles patterns into a Filter. A nil or empty patterns slice
// falls back to defaultSecretPatterns so the filter is never silently
// inert.
func NewFilter(patterns []string) (*Filter, error) {
	if len(patterns) == 0 {
		patterns = defaultSecretPatterns
	}
	f := &Filter{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// ContainsSecret reports whether content matches any deny-list pattern.
func (f *Filter) ContainsSecret(content string) bool {
	for _, re := range f.patterns {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

// Jaccard returns the Jaccard similarity of two keyword sets: |A∩B| / |A∪B|.
// Two empty sets are defined as dissimilar (0), matching the spec's intent
// that empty-keyword memories never collapse into one another spuriously.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := toSet(a)
	setB := toSet(b)

	var intersection int
	for k := range setA {
		if setB[k] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = true
	}
	return set
}

// IsNearDuplicate reports whether two keyword sets clear the given
// threshold. threshold<=0 uses DefaultNearDuplicateThreshold.
func IsNearDuplicate(a, b []string, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultNearDuplicateThreshold
	}
	return Jaccard(a, b) >= threshold
}
