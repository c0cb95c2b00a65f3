package llm

import (
	"github.com/Harshitk-cp/pfc/internal/domain"
)

const jsonOnlyInstruction = `

Respond ONLY with a single JSON object matching the schema below. No markdown, no explanation.
Schema:
`

var shapeSchemas = map[domain.ObjectShape]string{
	domain.ShapeLaymanSummary: `{"what_was_tried":"string","what_is_likely_true":"string","confidence_explanation":"string","what_could_change":"string","who_should_trust":"string"}`,

	domain.ShapeReflection: `{"self_critical_questions":["string"],"adjustments":["string"],"least_defensible_claim":"string","precision_check":"string"}`,

	domain.ShapeArbitration: `{"votes":[{"engine":"statistical|causal|bayesian|meta_analysis","position":"string","confidence":0.0,"key_insight":"string"}],"consensus":true,"disagreements":["string"],"resolution":"string"}`,

	domain.ShapeTruthAssessment: `{"overall_truth_likelihood":0.0,"signal_interpretation":"string","weaknesses":["string"],"improvements":["string"],"blind_spots":["string"],"confidence_calibration":"string","data_vs_model_balance":"string","recommended_actions":["string"]}`,

	domain.ShapeCurriculum: `{"rationale":"string","stones":[{"question":"string","target_skill":"string","relative_difficulty":0.0,"structural_quality":0.0}]}`,
}

// objectSystemPrompt appends the JSON contract for shape to system.
func objectSystemPrompt(system string, shape domain.ObjectShape) string {
	schema, ok := shapeSchemas[shape]
	if !ok {
		schema = `{}`
	}
	return system + jsonOnlyInstruction + schema
}
