package classifier

import (
	"sort"
	"strings"
)

// stopWords is a small, fixed English stop-word set. There is no stemming
// or stop-word library in the corpus this is grounded on, so both the
// stop-word filter and the stemmer below are hand-rolled against the
// stdlib (documented in DESIGN.md).
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "for": true,
	"with": true, "by": true, "from": true, "as": true, "that": true, "this": true,
	"it": true, "we": true, "i": true, "you": true, "they": true, "he": true,
	"she": true, "them": true, "our": true, "my": true, "your": true, "their": true,
	"will": true, "would": true, "can": true, "could": true, "should": true,
	"do": true, "does": true, "did": true, "have": true, "has": true, "had": true,
	"not": true, "no": true, "so": true, "if": true, "then": true, "than": true,
	"about": true, "into": true, "over": true, "after": true, "before": true,
}

// stem applies a minimal Porter-style suffix strip: enough to collapse
// common plural/verb forms without pulling in a stemming dependency.
func stem(token string) string {
	for _, suffix := range []string{"ing", "edly", "ed", "ies", "es", "s"} {
		if strings.HasSuffix(token, suffix) && len(token)-len(suffix) >= 3 {
			return token[:len(token)-len(suffix)]
		}
	}
	return token
}

// tokenize lower-cases and splits on runs of non-alphanumeric characters.
func tokenize(content string) []string {
	var tokens []string
	var cur strings.Builder
	for _, r := range strings.ToLower(content) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// extractKeywords implements spec §4.1 step 7: tokens minus stop-words,
// minus entity tokens, after stemming, keep top-K by term frequency.
func extractKeywords(content string, entities []string, topK int) []string {
	entitySet := make(map[string]bool, len(entities))
	for _, e := range entities {
		for _, t := range tokenize(e) {
			entitySet[t] = true
		}
	}

	freq := make(map[string]int)
	var order []string
	for _, tok := range tokenize(content) {
		if stopWords[tok] || entitySet[tok] || len(tok) < 2 {
			continue
		}
		stemmed := stem(tok)
		if _, seen := freq[stemmed]; !seen {
			order = append(order, stemmed)
		}
		freq[stemmed]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	if len(order) > topK {
		order = order[:topK]
	}
	return order
}
