package classifier_test

import (
	"testing"

	"github.com/bobmatnyc/kuzu-memory/internal/classifier"
	"github.com/bobmatnyc/kuzu-memory/internal/memory"
	"github.com/stretchr/testify/assert"
)

func TestClassify_PreferenceCue(t *testing.T) {
	c := classifier.Classify("I prefer tabs over spaces", classifier.Hints{})
	assert.Equal(t, memory.Preference, c.MemoryType)
	assert.GreaterOrEqual(t, c.Importance, 0.7)
}

func TestClassify_EpisodicCue(t *testing.T) {
	c := classifier.Classify("We decided to migrate to Postgres 14 last Tuesday", classifier.Hints{})
	assert.Equal(t, memory.Episodic, c.MemoryType)
}

func TestClassify_ProceduralCue(t *testing.T) {
	c := classifier.Classify("Always run lint before committing", classifier.Hints{})
	assert.Equal(t, memory.Procedural, c.MemoryType)
}

func TestClassify_WorkingCue(t *testing.T) {
	c := classifier.Classify("Currently working on the recall engine", classifier.Hints{})
	assert.Equal(t, memory.Working, c.MemoryType)
}

func TestClassify_SensoryCue(t *testing.T) {
	c := classifier.Classify("The dashboard feels slow today", classifier.Hints{})
	assert.Equal(t, memory.Sensory, c.MemoryType)
}

func TestClassify_DefaultsToSemantic(t *testing.T) {
	c := classifier.Classify("Something unremarkable with no cues at all here.", classifier.Hints{})
	assert.Equal(t, memory.Semantic, c.MemoryType)
}

func TestClassify_NoRuleFiresUsesDefaultConfidence(t *testing.T) {
	c := classifier.Classify("xyz qux wobble frobnicate", classifier.Hints{})
	assert.InDelta(t, 0.4, c.Confidence, 1e-9)
}

func TestClassify_ImportanceClippedTo01(t *testing.T) {
	c := classifier.Classify(
		`I prefer "https://example.com/v2.3.1" and /usr/local/bin/great awesome excellent love perfect padded out to land between fifty and three hundred characters so the length bonus also applies on top of everything else here for good measure truly`,
		classifier.Hints{},
	)
	assert.LessOrEqual(t, c.Importance, 1.0)
	assert.GreaterOrEqual(t, c.Importance, 0.0)
}

func TestClassify_IsDeterministic(t *testing.T) {
	a := classifier.Classify("This project uses Go 1.24 and PostgreSQL", classifier.Hints{})
	b := classifier.Classify("This project uses Go 1.24 and PostgreSQL", classifier.Hints{})
	assert.Equal(t, a, b)
}

func TestClassifyBatch_MatchesPerItem(t *testing.T) {
	inputs := []string{
		"I prefer tabs over spaces",
		"We decided to migrate to Postgres",
		"Always run lint before committing",
	}
	batch := classifier.ClassifyBatch(inputs, classifier.Hints{})
	for i, in := range inputs {
		single := classifier.Classify(in, classifier.Hints{})
		assert.Equal(t, single, batch[i])
	}
}

func TestExtractEntities_CapturesURLsPathsVersionsQuotesCapitalized(t *testing.T) {
	c := classifier.Classify(`This project uses "Go" at v1.24.0, see https://go.dev and cmd/kuzu-memory-mcp/main.go`, classifier.Hints{})
	assert.Contains(t, c.Entities, "https://go.dev")
	assert.Contains(t, c.Entities, "v1.24.0")
	assert.Contains(t, c.Entities, "cmd/kuzu-memory-mcp/main.go")
}

func TestExtractKeywords_ExcludesStopWordsAndEntities(t *testing.T) {
	c := classifier.Classify("This project uses Go and the team likes testing", classifier.Hints{})
	for _, kw := range c.Keywords {
		assert.NotEqual(t, "the", kw)
		assert.NotEqual(t, "and", kw)
	}
}

func TestSentimentDefaultsNeutral(t *testing.T) {
	c := classifier.Classify("A plain factual statement about configuration", classifier.Hints{})
	assert.Equal(t, 0.0, c.Sentiment)
}
