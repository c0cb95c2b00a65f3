package service

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Concept is one reasoning concept tracked in a run's chord. Each concept
// carries a distinct prime so a set of concepts maps to a unique product.
type Concept struct {
	Name        string
	Prime       int64
	FrequencyHz float64
	Keywords    []string
}

// ConceptRegistry detects concepts in text and scores how well a set of
// concepts fits together.
type ConceptRegistry struct {
	concepts    []Concept
	byName      map[string]Concept
	patterns    map[string]*regexp.Regexp
	requires    map[string][]string
	forbids     [][2]string
	harmonySets [][]string
	baseFreq    float64
	toleranceHz float64
}

// NewConceptRegistry builds the default registry.
func NewConceptRegistry() *ConceptRegistry {
	r := &ConceptRegistry{
		concepts: []Concept{
			{"evidence", 2, 261.63, []string{"evidence", "data", "study", "studies", "trial", "trials", "measure", "measured"}},
			{"causation", 3, 293.66, []string{"cause", "causes", "causal", "effect", "effects", "improve", "improves", "leads", "impact"}},
			{"correlation", 5, 329.63, []string{"correlation", "correlated", "associated", "association", "linked"}},
			{"mechanism", 7, 349.23, []string{"mechanism", "pathway", "process", "how", "why"}},
			{"uncertainty", 11, 392.00, []string{"uncertain", "uncertainty", "might", "could", "maybe", "unclear", "unknown"}},
			{"prior", 13, 440.00, []string{"prior", "base", "baseline", "expect", "expected", "typical"}},
			{"bias", 17, 493.88, []string{"bias", "biased", "confound", "confounder", "confounding", "selection"}},
			{"value", 19, 277.18, []string{"should", "ought", "moral", "ethical", "good", "bad", "right", "wrong"}},
			{"mind", 23, 311.13, []string{"consciousness", "mind", "cognitive", "cognition", "memory", "attention"}},
			{"prediction", 29, 369.99, []string{"future", "predict", "forecast", "will", "trend"}},
		},
		requires: map[string][]string{
			"causation":  {"evidence"},
			"prediction": {"prior"},
		},
		forbids: [][2]string{
			{"causation", "correlation"},
			{"value", "evidence"},
		},
		harmonySets: [][]string{
			{"evidence", "prior"},
			{"causation", "mechanism"},
			{"bias", "evidence"},
		},
		baseFreq:    261.63,
		toleranceHz: 180,
	}

	r.byName = make(map[string]Concept, len(r.concepts))
	r.patterns = make(map[string]*regexp.Regexp, len(r.concepts))
	for _, c := range r.concepts {
		r.byName[c.Name] = c
		quoted := make([]string, len(c.Keywords))
		for i, kw := range c.Keywords {
			quoted[i] = regexp.QuoteMeta(kw)
		}
		r.patterns[c.Name] = regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	}
	return r
}

// Detect returns the sorted names of concepts whose keywords occur in text.
func (r *ConceptRegistry) Detect(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, c := range r.concepts {
		if r.patterns[c.Name].MatchString(lower) {
			found = append(found, c.Name)
		}
	}
	sort.Strings(found)
	return found
}

// ChordProduct multiplies the primes of the known concepts. Unknown names
// contribute nothing; an empty chord is 1.
func (r *ConceptRegistry) ChordProduct(concepts []string) int64 {
	product := int64(1)
	for _, name := range concepts {
		if c, ok := r.byName[name]; ok {
			if product > math.MaxInt64/c.Prime {
				return product
			}
			product *= c.Prime
		}
	}
	return product
}

// HarmonyKeyDistance is the mean distance of the chord's frequencies from
// the base key, normalized by the tolerance and capped at 1.
func (r *ConceptRegistry) HarmonyKeyDistance(concepts []string) float64 {
	var sum float64
	n := 0
	for _, name := range concepts {
		if c, ok := r.byName[name]; ok {
			sum += math.Abs(c.FrequencyHz - r.baseFreq)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Min(1, (sum/float64(n))/r.toleranceHz)
}

// Dissonance scores rule violations among the concepts, relieved by
// complete harmony sets. It returns the score and one note per violation.
func (r *ConceptRegistry) Dissonance(concepts []string) (float64, []string) {
	if len(concepts) == 0 {
		return 0, nil
	}
	set := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		set[c] = true
	}

	var notes []string
	for concept, required := range r.requires {
		if !set[concept] {
			continue
		}
		var missing []string
		for _, req := range required {
			if !set[req] {
				missing = append(missing, req)
			}
		}
		if len(missing) > 0 {
			notes = append(notes, concept+" missing "+strings.Join(missing, ", "))
		}
	}
	for _, pair := range r.forbids {
		if set[pair[0]] && set[pair[1]] {
			notes = append(notes, pair[0]+" conflicts with "+pair[1])
		}
	}
	sort.Strings(notes)

	hits := 0
	for _, hs := range r.harmonySets {
		complete := true
		for _, c := range hs {
			if !set[c] {
				complete = false
				break
			}
		}
		if complete {
			hits++
		}
	}

	base := math.Min(1, float64(len(notes))/float64(len(concepts)))
	bonus := math.Min(0.3, float64(hits)*0.1)
	return math.Max(0, base-bonus), notes
}

// HarmonyHits counts the harmony sets fully present in concepts.
func (r *ConceptRegistry) HarmonyHits(concepts []string) int {
	set := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		set[c] = true
	}
	hits := 0
	for _, hs := range r.harmonySets {
		ok := true
		for _, c := range hs {
			ok = ok && set[c]
		}
		if ok {
			hits++
		}
	}
	return hits
}
