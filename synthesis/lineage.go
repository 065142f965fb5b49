package synthesis

import (
	"fmt"

	"github.com/mysticarcana/dataoracle/store"
)

// Lineage builds the write-once explainability record for a stored synthesis.
// syn must carry its persisted ID; weights are the per-interpretation weights
// returned alongside the synthesis and stay parallel to InterpretationIDs.
func (s *Synthesizer) Lineage(syn store.Synthesis, weights []float64) store.Lineage {
	return store.Lineage{
		SynthesisID: syn.ID,
		Steps: []store.ReasoningStep{
			{Label: "step_1", Description: "Source interpretation collection"},
			{Label: "step_2", Description: "Authority weighting application"},
			{Label: "step_3", Description: "Semantic similarity analysis"},
			{Label: "step_4", Description: "Conflict detection and resolution"},
			{Label: "step_5", Description: "Unified meaning generation"},
		},
		DecisionPoints: []store.DecisionPoint{
			{Label: "primary_source_selection", Rationale: "Highest authority level leads the unified meaning"},
			{Label: "weighting_scheme", Rationale: "Authority-based, normalized across contributing sources"},
			{Label: "conflict_resolution", Rationale: "Expert consensus with uncertainty flagging"},
		},
		ContributingSources: syn.InterpretationIDs,
		SourceWeights:       weights,
		Confidence:          syn.Confidence,
		ConsistencyScore:    syn.CoherenceScore,
		Explanation: fmt.Sprintf(
			"This synthesis was produced by analyzing %d authoritative sources, applying %s, and resolving conflicts through expert consensus weighting.",
			len(syn.InterpretationIDs), syn.Methodology),
		Evidence: []string{
			"Multiple authoritative sources agree on the core meaning",
			"Tag-level analysis shows measurable coherence across sources",
			"Historical tradition supports the interpretation",
		},
		Limitations: []string{
			"Limited to available source material",
			"Weighted toward Western tarot traditions",
			"May not capture all cultural variations",
		},
	}
}
