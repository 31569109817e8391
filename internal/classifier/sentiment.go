package classifier

// lexicon is a small fixed polarity lexicon (spec §4.1 step 8). There is
// no sentiment library in the corpus; this mirrors the classifier's own
// fixed-rule NER in scope and intent (documented in DESIGN.md).
var lexicon = map[string]float64{
	"great": 0.8, "excellent": 0.9, "good": 0.5, "love": 0.8, "like": 0.4,
	"fast": 0.5, "clean": 0.4, "works": 0.3, "nice": 0.4, "perfect": 0.9,
	"bad": -0.5, "slow": -0.5, "broken": -0.7, "fails": -0.6, "hate": -0.8,
	"terrible": -0.9, "awful": -0.9, "ugly": -0.4, "wrong": -0.5, "crash": -0.7,
	"bug": -0.3, "error": -0.4, "issue": -0.3,
}

// sentiment returns a polarity score in [-1,1] for the given lower-cased
// tokens, 0 when no lexicon terms are present (neutral default).
func sentiment(tokens []string) float64 {
	var sum float64
	var n int
	for _, t := range tokens {
		if v, ok := lexicon[t]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	score := sum / float64(n)
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
