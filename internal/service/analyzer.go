package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

// Complexity weights. They sum to 1 so a long, entity-dense, multi-sentence
// query saturates at 1 before the follow-up bonus is added.
const (
	ComplexityWordWeight     = 0.5
	ComplexityEntityWeight   = 0.3
	ComplexitySentenceWeight = 0.2
	ComplexityFollowUpBonus  = 0.1

	complexityWordSaturation     = 60.0
	complexitySentenceSaturation = 3.0

	// Follow-ups with no topic word are only recognised when this short.
	ellipticalMaxWords = 4
)

type patternRule[T any] struct {
	value   T
	pattern *regexp.Regexp
}

var followUpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(go|dig|drill|dive) (deeper|further|down)\b`),
	regexp.MustCompile(`^(tell|show) me more\b`),
	regexp.MustCompile(`^(what|how) about\b`),
	regexp.MustCompile(`^(and|but|so|also) (what|how|why|is|does|do|can)\b`),
	regexp.MustCompile(`^(can|could|would) you (elaborate|expand|explain|clarify|go deeper|say more)\b`),
	regexp.MustCompile(`^(elaborate|expand|explain|clarify)\b`),
	regexp.MustCompile(`^more (on|about|detail)\b`),
	regexp.MustCompile(`^(why|how)( so| is that| does that)?\??$`),
	regexp.MustCompile(`^(what|how) (else|does that|do they|is that|would that)\b`),
	regexp.MustCompile(`^(in what way|like what|such as)\b`),
}

var focusStripPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(why|how)( so| is that| does that)?\??$`),
	regexp.MustCompile(`^(can|could|would) you\s+`),
	regexp.MustCompile(`^(please\s+)?(tell|show) me more\b\s*((about|on|regarding)\b)?\s*`),
	regexp.MustCompile(`^(go|dig|drill|dive) (deeper|further|down)\b\s*((into|on|about|in)\b)?\s*`),
	regexp.MustCompile(`^(what|how) about\b\s*`),
	regexp.MustCompile(`^(and|but|so|also)\s+`),
	regexp.MustCompile(`^(elaborate|expand|explain|clarify|say more)\b\s*((on|about|upon)\b)?\s*`),
	regexp.MustCompile(`^more\b\s*((on|about|detail on|detail about)\b)?\s*`),
	regexp.MustCompile(`^(the|that|this|those|these)\s+`),
}

var domainRules = []patternRule[domain.QueryDomain]{
	{domain.DomainMedical, regexp.MustCompile(`\b(disease\w*|diagnos\w*|treatment\w*|symptom\w*|patient\w*|clinical|drug\w*|medication\w*|cancer|vaccin\w*|surgery|surgical|dosage|medical|medicine|virus|viral|infection\w*|pharma\w*|chronic|physician\w*)\b`)},
	{domain.DomainPsychology, regexp.MustCompile(`\b(memory|memories|cognitive|cognition|behavio\w*|emotion\w*|anxiety|depress\w*|personality|motivation|mental|psycholog\w*|perception|attention|sleep|stress|mood|habit\w*|caffeine)\b`)},
	{domain.DomainEthics, regexp.MustCompile(`\b(moral\w*|ethic\w*|right or wrong|ought|justice|fairness|virtue\w*|permissible|obligation\w*|duty|duties)\b`)},
	{domain.DomainPhilosophy, regexp.MustCompile(`\b(consciousness|free will|existence|metaphysic\w*|epistemolog\w*|ontolog\w*|meaning of life|philosoph\w*|determinism|qualia|nature of reality|personal identity)\b`)},
	{domain.DomainEconomics, regexp.MustCompile(`\b(econom\w*|inflation|markets?|gdp|recession\w*|tax\w*|monetary|fiscal|prices?|wages?|unemployment|tariff\w*|investment\w*|interest rates?)\b`)},
	{domain.DomainTechnology, regexp.MustCompile(`\b(software|algorithm\w*|computer\w*|ai|artificial intelligence|machine learning|neural networks?|internet|programming|technolog\w*|blockchain|robot\w*|llms?|cyber\w*)\b`)},
	{domain.DomainSocialScience, regexp.MustCompile(`\b(societ\w*|social|cultur\w*|politic\w*|education\w*|inequality|demograph\w*|crime|policy|policies|communit\w*|gender|sociolog\w*)\b`)},
	{domain.DomainScience, regexp.MustCompile(`\b(physics|chemistry|chemical\w*|biolog\w*|climate|quantum|evolution\w*|genes?|genetic\w*|species|molecul\w*|planet\w*|scientific|astronom\w*|ecosystem\w*)\b`)},
}

var questionTypeRules = []patternRule[domain.QuestionType]{
	{domain.QuestionMetaAnalytical, metaAnalyticalPattern},
	{domain.QuestionCausal, regexp.MustCompile(`\b(causes?|caused|causal\w*|effects? (of|on)|leads? to|results? in|why (does|do|did|is|are)|impacts? (of|on)|influences?|improves?|increases?|reduces?|affects?|contributes? to)\b`)},
	{domain.QuestionComparative, regexp.MustCompile(`\b(compare\w*|comparison|versus|vs|better than|worse than|difference between|differ\w*|more effective than)\b`)},
	{domain.QuestionDefinitional, regexp.MustCompile(`(^(what is|what are|define)\b)|\b(definition of|what does .+ mean|meaning of)\b`)},
	{domain.QuestionEvaluative, regexp.MustCompile(`\b(should|is it (morally |ethically )?(good|bad|worth|wise|safe|right|wrong|permissible|acceptable)|evaluate|assess\w*|pros and cons|worth it|effectiveness|how good)\b`)},
	{domain.QuestionSpeculative, regexp.MustCompile(`\b(will|might|future|predict\w*|what if|would happen|speculat\w*|forecast\w*|in \d+ years)\b`)},
	{domain.QuestionEmpirical, empiricalPattern},
}

var (
	metaAnalyticalPattern = regexp.MustCompile(`\b(meta-?analys\w*|systematic reviews?|body of evidence|literature reviews?|across studies|evidence synthesis|pooled (data|analysis))\b`)
	empiricalPattern      = regexp.MustCompile(`\b(evidence|data|study|studies|research|measured|measurements?|statistic\w*|trials?|experiments?|rates? of|how many|how much|percentage|sample)\b`)
	philosophyPattern     = regexp.MustCompile(`\b(consciousness|free will|existence|metaphysic\w*|epistemolog\w*|ontolog\w*|philosoph\w*|determinism|qualia|truth|knowledge|mind-body)\b`)
	safetyPattern         = regexp.MustCompile(`\b(suicid\w*|self-harm|overdos\w*|weapons?|bombs?|explosives?|poison\w*|kill\w*|lethal|abuse|hack\w*|exploit\w*|toxic)\b`)
	normativePattern      = regexp.MustCompile(`\b(should|ought|must|better|worse|right|wrong|moral\w*|fair|unfair|good|bad|justified)\b`)
	positivePattern       = regexp.MustCompile(`\b(benefit\w*|improv\w*|help\w*|success\w*|good|positive|advantage\w*|gains?|happ\w*|hope\w*|boost\w*)\b`)
	negativePattern       = regexp.MustCompile(`\b(harm\w*|risk\w*|danger\w*|damag\w*|fail\w*|bad|negative|worse|death|disease\w*|loss\w*|fear\w*|decline\w*)\b`)
	sentencePattern       = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all also am an and any are aren as at be because been
		before being below between both but by can cannot could did does doing down during each even ever every few for
		from further had has have having he her here hers herself him himself his how however into is isn it its itself
		just like make many more most much must my myself near need never nor not now of off often on once only or other
		ought our ours ourselves out over own rather really same shall she should since some such than that their theirs
		them themselves then there these they this those through thus to too under until upon very was were what when
		where whether which while who whom whose why will with within without would you your yours yourself yourselves
		tell show explain please deeper more about know think thing things something anything way ways maybe still
		really actually also does dont doesnt isnt arent wasnt werent cant wont what whats hows`) {
		stopWords[w] = struct{}{}
	}
}

// QueryAnalyzer is the pattern-table QueryClassifier.
type QueryAnalyzer struct{}

// NewQueryAnalyzer creates the default classifier.
func NewQueryAnalyzer() *QueryAnalyzer {
	return &QueryAnalyzer{}
}

var _ domain.QueryClassifier = (*QueryAnalyzer)(nil)

// Analyze classifies query, using conv to detect and enrich follow-ups.
func (a *QueryAnalyzer) Analyze(query string, conv *domain.ConversationContext) domain.QueryAnalysis {
	trimmed := strings.TrimSpace(query)
	lower := strings.ToLower(trimmed)

	isFollowUp := conv != nil && len(conv.PreviousQueries) > 0 && looksLikeFollowUp(lower)

	enriched := trimmed
	var focus, root string
	if isFollowUp {
		focus = extractFocus(lower)
		root = strings.TrimSpace(conv.RootQuestion)
		if root == "" {
			root = strings.TrimSpace(conv.PreviousQueries[len(conv.PreviousQueries)-1])
		}
		if focus != "" {
			enriched = root + " " + focus
		} else {
			enriched = root + " " + trimmed
		}
	}
	enrichedLower := strings.ToLower(enriched)

	entities := extractEntities(enrichedLower)
	if isFollowUp {
		entities = mergeEntities(entities, conv.PreviousEntities)
	}

	var core string
	if isFollowUp && strings.TrimSpace(conv.RootQuestion) != "" {
		core = truncateRunes(strings.TrimSpace(conv.RootQuestion), domain.MaxCoreQuestionLen)
	} else {
		core = extractCoreQuestion(trimmed)
	}

	complexityText := trimmed
	if isFollowUp {
		complexityText = enriched
	}

	qType := firstMatch(questionTypeRules, enrichedLower, domain.QuestionConceptual)
	dom := firstMatch(domainRules, enrichedLower, domain.DomainGeneral)

	return domain.QueryAnalysis{
		Domain:             dom,
		QuestionType:       qType,
		Entities:           entities,
		CoreQuestion:       core,
		Complexity:         computeComplexity(complexityText, len(entities), isFollowUp),
		IsEmpirical:        empiricalPattern.MatchString(enrichedLower) || qType == domain.QuestionEmpirical || qType == domain.QuestionMetaAnalytical,
		IsPhilosophical:    dom == domain.DomainPhilosophy || philosophyPattern.MatchString(enrichedLower),
		IsMetaAnalytical:   metaAnalyticalPattern.MatchString(enrichedLower),
		HasSafetyKeywords:  safetyPattern.MatchString(enrichedLower),
		HasNormativeClaims: normativePattern.MatchString(enrichedLower),
		EmotionalValence:   detectValence(enrichedLower),
		IsFollowUp:         isFollowUp,
		FollowUpFocus:      focus,
	}
}

func looksLikeFollowUp(lower string) bool {
	if lower == "" {
		return false
	}
	for _, p := range followUpPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	// Elliptical: a very short utterance with no topic word of its own.
	words := strings.Fields(lower)
	return len(words) <= ellipticalMaxWords && len(extractEntities(lower)) == 0
}

func extractFocus(lower string) string {
	focus := strings.TrimSpace(lower)
	// Strip repeatedly; "can you tell me more about the X" needs several passes.
	for range 4 {
		before := focus
		for _, p := range focusStripPatterns {
			focus = strings.TrimSpace(p.ReplaceAllString(focus, ""))
		}
		if focus == before {
			break
		}
	}
	focus = strings.TrimRight(focus, "?.! ")
	return strings.TrimSpace(focus)
}

func firstMatch[T any](rules []patternRule[T], text string, fallback T) T {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return r.value
		}
	}
	return fallback
}

// normalizeToken lowercases and keeps letters only. It returns "" for tokens
// that are stop-words or too short to be entities.
func normalizeToken(tok string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(tok) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	w := b.String()
	if utf8.RuneCountInString(w) <= 3 {
		return ""
	}
	if _, stop := stopWords[w]; stop {
		return ""
	}
	return w
}

func extractEntities(text string) []string {
	entities := make([]string, 0, domain.MaxEntities)
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(text) {
		w := normalizeToken(tok)
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		entities = append(entities, w)
		if len(entities) == domain.MaxEntities {
			break
		}
	}
	return entities
}

func mergeEntities(current, previous []string) []string {
	out := make([]string, 0, domain.MaxEntities)
	seen := make(map[string]struct{})
	add := func(w string) {
		if w == "" || len(out) >= domain.MaxEntities {
			return
		}
		if _, dup := seen[w]; dup {
			return
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	for _, e := range current {
		add(e)
	}
	for _, e := range previous {
		add(normalizeToken(e))
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if s != "" && strings.Trim(s, ".!? ") != "" {
			out = append(out, s)
		}
	}
	return out
}

func extractCoreQuestion(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	core := sentences[0]
	for _, s := range sentences {
		if strings.Contains(s, "?") {
			core = s
			break
		}
	}
	return truncateRunes(core, domain.MaxCoreQuestionLen)
}

func computeComplexity(text string, entityCount int, followUp bool) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	wordScore := float64(words) / complexityWordSaturation
	entityScore := float64(entityCount) / float64(domain.MaxEntities)
	sentenceScore := 0.0
	if n := len(splitSentences(text)); n > 1 {
		sentenceScore = float64(n-1) / complexitySentenceSaturation
	}

	c := ComplexityWordWeight*domain.Clamp01(wordScore) +
		ComplexityEntityWeight*domain.Clamp01(entityScore) +
		ComplexitySentenceWeight*domain.Clamp01(sentenceScore)
	if followUp {
		c += ComplexityFollowUpBonus
	}
	return domain.Clamp01(c)
}

func detectValence(lower string) domain.EmotionalValence {
	pos := positivePattern.MatchString(lower)
	neg := negativePattern.MatchString(lower)
	switch {
	case pos && neg:
		return domain.ValenceMixed
	case pos:
		return domain.ValencePositive
	case neg:
		return domain.ValenceNegative
	default:
		return domain.ValenceNeutral
	}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}
