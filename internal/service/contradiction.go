package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

const (
	// maxClaims bounds the quadratic pair scan.
	maxClaims      = 60
	minClaimWords  = 4
	minSharedTerms = 2
)

var (
	claimSplitPattern = regexp.MustCompile(`[.!?;\n]+`)
	bulletPattern     = regexp.MustCompile(`^\s*([-*•]|\d+[.)])\s*`)
	negationPattern   = regexp.MustCompile(`\b(not|no|never|cannot|neither|nor|none|without)\b|n't\b`)
)

// antonyms pairs words whose presence on opposite sides of two otherwise
// similar claims marks them as incompatible.
var antonyms = [][2]string{
	{"increase", "decrease"},
	{"increases", "decreases"},
	{"raises", "lowers"},
	{"higher", "lower"},
	{"more", "less"},
	{"improves", "impairs"},
	{"improves", "worsens"},
	{"causes", "prevents"},
	{"effective", "ineffective"},
	{"safe", "harmful"},
	{"positive", "negative"},
	{"supports", "contradicts"},
	{"strong", "weak"},
	{"always", "never"},
}

type claim struct {
	text   string
	terms  map[string]struct{}
	words  map[string]struct{}
	negate bool
}

// ScanContradictions cross-references every pair of claims in text and
// flags the pairs that cannot both be true. It reports only.
func ScanContradictions(text string) domain.ContradictionScan {
	claims := extractClaims(text)

	scan := domain.ContradictionScan{
		Claims:         make([]string, len(claims)),
		Contradictions: []domain.ContradictionPair{},
	}
	for i, c := range claims {
		scan.Claims[i] = c.text
	}

	for i := 0; i < len(claims); i++ {
		for j := i + 1; j < len(claims); j++ {
			scan.PairsChecked++
			if pair, ok := comparePair(claims[i], claims[j]); ok {
				scan.Contradictions = append(scan.Contradictions, pair)
			}
		}
	}
	return scan
}

func extractClaims(text string) []claim {
	var out []claim
	for _, raw := range claimSplitPattern.Split(text, -1) {
		s := strings.TrimSpace(bulletPattern.ReplaceAllString(raw, ""))
		s = strings.Trim(s, "*_#> ")
		if len(strings.Fields(s)) < minClaimWords {
			continue
		}

		lower := strings.ToLower(s)
		c := claim{
			text:   s,
			terms:  map[string]struct{}{},
			words:  map[string]struct{}{},
			negate: negationPattern.MatchString(lower),
		}
		for _, w := range strings.Fields(lower) {
			w = strings.Trim(w, ",:()\"'")
			c.words[w] = struct{}{}
			if tok := normalizeToken(w); tok != "" {
				c.terms[tok] = struct{}{}
			}
		}
		out = append(out, c)
		if len(out) == maxClaims {
			break
		}
	}
	return out
}

func comparePair(a, b claim) (domain.ContradictionPair, bool) {
	shared := 0
	for t := range a.terms {
		if _, ok := b.terms[t]; ok {
			shared++
		}
	}
	if shared < minSharedTerms {
		return domain.ContradictionPair{}, false
	}

	union := len(a.terms) + len(b.terms) - shared
	score := float64(shared) / float64(max(1, union))

	if a.negate != b.negate {
		return domain.ContradictionPair{
			ClaimA: a.text,
			ClaimB: b.text,
			Reason: fmt.Sprintf("one claim negates the other across %d shared terms", shared),
			Score:  score,
		}, true
	}

	for _, pair := range antonyms {
		if opposed(a, b, pair[0], pair[1]) || opposed(a, b, pair[1], pair[0]) {
			return domain.ContradictionPair{
				ClaimA: a.text,
				ClaimB: b.text,
				Reason: fmt.Sprintf("opposing terms %q and %q", pair[0], pair[1]),
				Score:  score,
			}, true
		}
	}
	return domain.ContradictionPair{}, false
}

func opposed(a, b claim, x, y string) bool {
	_, ax := a.words[x]
	_, ay := a.words[y]
	_, bx := b.words[x]
	_, by := b.words[y]
	return ax && !ay && by && !bx
}
