package gitimport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func defaultFilter() FilterConfig {
	return FilterConfig{
		SignificantPrefixes: []string{"feat:", "fix:", "refactor:", "perf:", "BREAKING CHANGE"},
		SkipPatterns:        []string{"wip", "tmp", "chore:", "style:", "docs:"},
		MinMessageLength:    5,
		IncludeMergeCommits: false,
	}
}

func TestAccept_SignificantPrefixAccepted(t *testing.T) {
	f := defaultFilter()
	assert.True(t, f.Accept(Commit{Message: "feat: add thing", Time: time.Now()}))
}

func TestAccept_SkipPatternRejected(t *testing.T) {
	f := defaultFilter()
	assert.False(t, f.Accept(Commit{Message: "chore: bump deps"}))
}

func TestAccept_TooShortRejected(t *testing.T) {
	f := defaultFilter()
	assert.False(t, f.Accept(Commit{Message: "fix"}))
}

func TestAccept_NoPrefixMatchRejected(t *testing.T) {
	f := defaultFilter()
	assert.False(t, f.Accept(Commit{Message: "update some stuff here"}))
}

func TestAccept_MergeRejectedByDefault(t *testing.T) {
	f := defaultFilter()
	assert.False(t, f.Accept(Commit{Message: "feat: merged work", IsMerge: true}))
}

func TestAccept_MergeAcceptedWhenEnabled(t *testing.T) {
	f := defaultFilter()
	f.IncludeMergeCommits = true
	assert.True(t, f.Accept(Commit{Message: "merge branch into main", IsMerge: true}))
}

func TestAcceptBranch_NoPatternsAcceptsAll(t *testing.T) {
	f := defaultFilter()
	assert.True(t, f.AcceptBranch("main"))
	assert.True(t, f.AcceptBranch(""))
}

func TestAcceptBranch_ExcludeWins(t *testing.T) {
	f := defaultFilter()
	f.BranchExcludePatterns = []string{"wip-*"}
	assert.False(t, f.AcceptBranch("wip-experiment"))
}

func TestAcceptBranch_IncludeRestricts(t *testing.T) {
	f := defaultFilter()
	f.BranchIncludePatterns = []string{"release/*"}
	assert.True(t, f.AcceptBranch("release/1.0"))
	assert.False(t, f.AcceptBranch("main"))
}
