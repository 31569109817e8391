package gitimport

import (
	"strings"

	"github.com/bobmatnyc/kuzu-memory/internal/config"
)

// FilterConfig is the subset of config.GitSyncConfig a Filter needs, kept
// separate so filter logic can be unit tested without constructing a full
// config.Config.
type FilterConfig struct {
	SignificantPrefixes  []string
	SkipPatterns         []string
	MinMessageLength     int
	IncludeMergeCommits  bool
	BranchIncludePatterns []string
	BranchExcludePatterns []string
}

// NewFilterConfig adapts a config.GitSyncConfig into a FilterConfig.
func NewFilterConfig(g config.GitSyncConfig) FilterConfig {
	return FilterConfig{
		SignificantPrefixes:   g.SignificantPrefixes,
		SkipPatterns:          g.SkipPatterns,
		MinMessageLength:      g.MinMessageLength,
		IncludeMergeCommits:   g.IncludeMergeCommits,
		BranchIncludePatterns: g.BranchIncludePatterns,
		BranchExcludePatterns: g.BranchExcludePatterns,
	}
}

// Accept implements spec §4.8's include/exclude rule set for one commit.
func (f FilterConfig) Accept(c Commit) bool {
	msg := strings.TrimSpace(c.Message)
	if len(msg) < f.MinMessageLength {
		return false
	}

	lower := strings.ToLower(msg)
	for _, skip := range f.SkipPatterns {
		if strings.Contains(lower, strings.ToLower(skip)) {
			return false
		}
	}

	if c.IsMerge && !f.IncludeMergeCommits {
		return false
	}
	if c.IsMerge && f.IncludeMergeCommits {
		return true
	}

	for _, prefix := range f.SignificantPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// AcceptBranch reports whether branch passes the include/exclude glob
// filters. An empty include list means "all branches included".
func (f FilterConfig) AcceptBranch(branch string) bool {
	if branch == "" {
		return true
	}
	if len(f.BranchExcludePatterns) > 0 && matchesAny(branch, f.BranchExcludePatterns) {
		return false
	}
	if len(f.BranchIncludePatterns) == 0 {
		return true
	}
	return matchesAny(branch, f.BranchIncludePatterns)
}

func matchesAny(branch string, patterns []string) bool {
	for _, p := range patterns {
		if matchGlob(p, branch) {
			return true
		}
	}
	return false
}

// matchGlob supports a single leading or trailing "*" wildcard, which
// covers the documented branch_include/exclude_patterns use cases
// ("release/*", "*-wip") without pulling in a full glob library for one
// string comparison.
func matchGlob(pattern, s string) bool {
	switch {
	case pattern == s:
		return true
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(s, strings.TrimPrefix(pattern, "*"))
	default:
		return false
	}
}
