// Package enhance implements the Enhancer (C8) from spec §4's component
// table and §6.3: compose a query plus its recalled memories into a
// stable, testable prompt layout.
package enhance

import (
	"fmt"
	"strings"

	"github.com/bobmatnyc/kuzu-memory/internal/recall"
)

// Result is the enhance tool's payload shape (spec §6.2 enhance()).
type Result struct {
	EnhancedPrompt string
	Memories       []recall.Candidate
	Confidence     float64
	ElapsedMillis  int64
}

// Compose builds the enhanced_prompt layout from spec §6.3. When no
// memories were selected, EnhancedPrompt is byte-for-byte equal to prompt.
func Compose(prompt string, recallResult recall.Result) Result {
	if len(recallResult.Memories) == 0 {
		return Result{
			EnhancedPrompt: prompt,
			Confidence:     recallResult.Confidence,
			ElapsedMillis:  recallResult.ElapsedMillis,
		}
	}

	var b strings.Builder
	b.WriteString("## Relevant Context:\n")
	for i, c := range recallResult.Memories {
		fmt.Fprintf(&b, "%d. %s\n", i+1, oneLine(c.Memory.Content))
	}
	b.WriteString("\n## User Message:\n")
	b.WriteString(prompt)

	return Result{
		EnhancedPrompt: b.String(),
		Memories:       recallResult.Memories,
		Confidence:     recallResult.Confidence,
		ElapsedMillis:  recallResult.ElapsedMillis,
	}
}

// oneLine collapses a memory's content to a single display line so the
// numbered list in §6.3's layout never breaks across lines.
func oneLine(content string) string {
	return strings.Join(strings.Fields(content), " ")
}
