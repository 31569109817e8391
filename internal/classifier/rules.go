package classifier

import "regexp"

// rule is a single pattern-to-type mapping evaluated in order of
// specificity (spec §4.1 step 3). The first rule whose pattern matches the
// lower-cased, normalised content wins.
type rule struct {
	name            string
	pattern         *regexp.Regexp
	memoryType      string
	baseImportance  float64
	confidenceDelta float64
}

// These map 1:1 onto memory.Type string values; matchRule converts them
// with memory.Type when it builds a Classification.
const (
	typeSemantic   = "SEMANTIC"
	typeProcedural = "PROCEDURAL"
	typePreference = "PREFERENCE"
	typeEpisodic   = "EPISODIC"
	typeWorking    = "WORKING"
	typeSensory    = "SENSORY"
)

// rules is ordered from most to least specific, per spec §4.1 step 3's
// examples.
var rules = []rule{
	{
		name:            "preference-cue",
		pattern:         regexp.MustCompile(`^(i prefer|we always|team uses|i like|i always)\b`),
		memoryType:      typePreference,
		baseImportance:  0.7,
		confidenceDelta: 0.3,
	},
	{
		name:            "episodic-decision-cue",
		pattern:         regexp.MustCompile(`\b(we decided|decided to|chose to|migrated to|switched to)\b`),
		memoryType:      typeEpisodic,
		baseImportance:  0.6,
		confidenceDelta: 0.25,
	},
	{
		name:            "procedural-cue",
		pattern:         regexp.MustCompile(`^(always |never |step \d|run .+ before|first,? .+ then)`),
		memoryType:      typeProcedural,
		baseImportance:  0.65,
		confidenceDelta: 0.3,
	},
	{
		name:            "working-cue",
		pattern:         regexp.MustCompile(`\b(currently|i am working on|i'm working on|in progress)\b`),
		memoryType:      typeWorking,
		baseImportance:  0.4,
		confidenceDelta: 0.25,
	},
	{
		name:            "sensory-cue",
		pattern:         regexp.MustCompile(`\b(feels slow|feels fast|looks off|looks wrong|seems slow|seems off)\b`),
		memoryType:      typeSensory,
		baseImportance:  0.3,
		confidenceDelta: 0.2,
	},
	{
		name:            "semantic-identity-cue",
		pattern:         regexp.MustCompile(`\b(is a|is the|this project uses|this repo uses|runs on)\b`),
		memoryType:      typeSemantic,
		baseImportance:  0.5,
		confidenceDelta: 0.2,
	},
}

// defaultConfidence is applied when no rule fires (spec §4.1 step 4).
const defaultConfidence = 0.4
