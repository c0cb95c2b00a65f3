package service

import (
	"fmt"
	"strings"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

const analysisSystemPrompt = `You are a careful research analyst. Work through the question in this order:
statistical evidence, causal structure, the wider literature, then a calibrated conclusion.
Think privately inside <think></think> tags first, then write the analysis for the reader.
State effect sizes and uncertainty where they exist. Separate what is known from what is inferred.`

const conversationalSystemPrompt = `You are a knowledgeable assistant. Think privately inside <think></think> tags if useful,
then answer clearly and directly.`

const teacherSystemPrompt = `You are a curriculum teacher for a reasoning model.
You write stepping-stone problems that build the skills a hard question needs.
You never solve the hard question itself.
A stepping stone is judged on whether it is well posed and exercises the right skill,
not on whether you could solve it yourself.`

func withDirectives(base, directives string) string {
	if directives == "" {
		return base
	}
	return base + "\n\n" + directives
}

func describeAnalysis(a domain.QueryAnalysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Domain: %s\nQuestion type: %s\nComplexity: %.2f\n", a.Domain, a.QuestionType, a.Complexity)
	if len(a.Entities) > 0 {
		fmt.Fprintf(&sb, "Key entities: %s\n", strings.Join(a.Entities, ", "))
	}
	if a.IsFollowUp {
		fmt.Fprintf(&sb, "This is a follow-up to: %s\n", a.CoreQuestion)
		if a.FollowUpFocus != "" {
			fmt.Fprintf(&sb, "Focus of the follow-up: %s\n", a.FollowUpFocus)
		}
	}
	if a.HasSafetyKeywords {
		sb.WriteString("The question touches on safety-sensitive material; include appropriate caveats.\n")
	}
	return sb.String()
}

func analysisPrompt(query string, a domain.QueryAnalysis, s domain.Signals) string {
	return fmt.Sprintf(`%s
Planned reasoning depth: %d steps.

Question:
%s`, describeAnalysis(a), int(s.FocusDepth), query)
}

func laymanPrompt(query, analysis string) string {
	return fmt.Sprintf(`Explain the analysis below to a non-specialist.
Say what was tried, what is likely true, how confident we are and why, what could change the conclusion, and who should trust it.

Question: %s

Analysis:
%s`, query, analysis)
}

func reflectionPrompt(query, analysis string) string {
	return fmt.Sprintf(`Critique the analysis below as its harshest honest reviewer.
List the self-critical questions it should have asked, the concrete adjustments it needs,
its least defensible claim, and whether its numbers are stated with appropriate precision.

Question: %s

Analysis:
%s`, query, analysis)
}

func arbitrationPrompt(query, analysis string) string {
	return fmt.Sprintf(`Four analytical engines reviewed this question: statistical, causal, meta-analytic and Bayesian.
Give each engine's position with a confidence between 0 and 1, say whether they reach consensus,
list their disagreements, and state a resolution.

Question: %s

Analysis:
%s`, query, analysis)
}

func truthPrompt(query, analysis string, s domain.Signals) string {
	return fmt.Sprintf(`Assess how likely the analysis below is to be true overall.
Pipeline signals: confidence %.2f, entropy %.2f, dissonance %.2f, health %.2f, risk %.2f, safety %s.
Interpret the signals, then list weaknesses, improvements, blind spots and recommended actions.

Question: %s

Analysis:
%s`, s.Confidence, s.Entropy, s.Dissonance, s.HealthScore, s.RiskScore, s.SafetyState, query, analysis)
}

func teacherPrompt(a domain.QueryAnalysis, numStones, iteration int, prev *domain.SOARReward) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Target question (do NOT solve it): %s\n", a.CoreQuestion)
	sb.WriteString(describeAnalysis(a))
	fmt.Fprintf(&sb, "\nWrite exactly %d stepping-stone problems for iteration %d.\n", numStones, iteration)
	fmt.Fprintf(&sb, "Order them by increasing relative difficulty, from about %.0f%% to about %.0f%% of the target's difficulty.\n",
		StoneDifficultyStart*100, StoneDifficultyEnd*100)
	sb.WriteString("Each stone must name the reasoning skill it exercises and rate its own structural quality between 0 and 1.\n")
	sb.WriteString("Prefer problems that are well posed over problems you are sure you could solve.\n")

	switch {
	case prev == nil:
	case prev.Improved:
		fmt.Fprintf(&sb, "\nThe previous curriculum helped (composite reward %+.3f). Keep its strategy and refine it: target the same skills one notch harder.\n", prev.Composite)
	default:
		fmt.Fprintf(&sb, "\nThe previous curriculum did not help (composite reward %+.3f). Pivot: choose different skills and a different decomposition of the target.\n", prev.Composite)
	}
	return sb.String()
}
