package classifier

import "regexp"

var (
	capitalizedSeqPattern = regexp.MustCompile(`\b([A-Z][a-zA-Z0-9]*(?:\s+[A-Z][a-zA-Z0-9]*)*)\b`)
	quotedStringPattern   = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
	urlPattern            = regexp.MustCompile(`\bhttps?://[^\s]+`)
	filePathPattern       = regexp.MustCompile(`\b(?:[\w.-]+/)+[\w.-]+\.[a-zA-Z0-9]+\b`)
	versionNumberPattern  = regexp.MustCompile(`\bv?\d+\.\d+(?:\.\d+)?\b`)
)

// extractEntities implements spec §4.1 step 6: a fixed-rule NER over
// capitalised multiword sequences, quoted strings, URLs, paths, and
// version numbers. Order of discovery is preserved; duplicates collapsed.
func extractEntities(content string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, m := range urlPattern.FindAllString(content, -1) {
		add(m)
	}
	for _, m := range filePathPattern.FindAllString(content, -1) {
		add(m)
	}
	for _, m := range versionNumberPattern.FindAllString(content, -1) {
		add(m)
	}
	for _, m := range quotedStringPattern.FindAllStringSubmatch(content, -1) {
		if m[1] != "" {
			add(m[1])
		} else if m[2] != "" {
			add(m[2])
		}
	}
	for _, m := range capitalizedSeqPattern.FindAllString(content, -1) {
		add(m)
	}
	return out
}

// hasNumericOrURLOrPath reports whether content contains a numeric
// identifier, URL, or file path — used by the importance-signal step
// (spec §4.1 step 5).
func hasNumericOrURLOrPath(content string) bool {
	return urlPattern.MatchString(content) ||
		filePathPattern.MatchString(content) ||
		versionNumberPattern.MatchString(content)
}
