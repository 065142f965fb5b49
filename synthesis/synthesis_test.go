package synthesis

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mysticarcana/dataoracle/store"
)

func testSynthesizer() *Synthesizer {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var testSources = []store.Source{
	{ID: 1, Name: "Rider-Waite-Smith Tradition", AuthorityLevel: 10},
	{ID: 2, Name: "Biddy Tarot", AuthorityLevel: 9},
	{ID: 3, Name: "Labyrinthos Academy", AuthorityLevel: 8},
}

var testConcepts = []store.Concept{
	{ID: 100, Name: "The Fool", CanonicalName: "The Fool", ConceptType: "tarot_card"},
}

func interp(id, conceptID, sourceID int64, context, meaning string, tags ...string) store.Interpretation {
	return store.Interpretation{
		ID: id, ConceptID: conceptID, SourceID: sourceID,
		Context: context, PrimaryMeaning: meaning, SemanticTags: tags,
	}
}

func TestBuildRequiresTwoSources(t *testing.T) {
	interps := []store.Interpretation{
		interp(1, 100, 1, store.ContextUpright, "New beginnings and trust.", "beginnings"),
	}
	results := testSynthesizer().Build(testConcepts, interps, testSources)
	if len(results) != 0 {
		t.Fatalf("got %d syntheses from a single source, want 0", len(results))
	}
}

func TestBuildGroupsByConceptAndContext(t *testing.T) {
	interps := []store.Interpretation{
		interp(1, 100, 1, store.ContextUpright, "New beginnings. A leap of faith.", "beginnings", "faith"),
		interp(2, 100, 2, store.ContextUpright, "Fresh starts and innocence.", "beginnings", "innocence"),
		interp(3, 100, 1, store.ContextReversed, "Recklessness and folly.", "recklessness"),
		interp(4, 100, 3, store.ContextReversed, "Careless risk taking.", "recklessness", "risk"),
		interp(5, 100, 2, store.ContextLove, "Spontaneity in romance.", "spontaneity"),
	}

	results := testSynthesizer().Build(testConcepts, interps, testSources)
	if len(results) != 2 {
		t.Fatalf("got %d syntheses, want 2 (upright, reversed)", len(results))
	}
	if results[0].Synthesis.Context != store.ContextReversed {
		t.Errorf("first context = %q, want reversed (sorted)", results[0].Synthesis.Context)
	}
	if results[1].Synthesis.Context != store.ContextUpright {
		t.Errorf("second context = %q, want upright", results[1].Synthesis.Context)
	}

	up := results[1].Synthesis
	if up.Name != "Multi-source upright synthesis" {
		t.Errorf("Name = %q", up.Name)
	}
	if up.Methodology != Methodology {
		t.Errorf("Methodology = %q", up.Methodology)
	}
	if len(up.InterpretationIDs) != 2 || up.InterpretationIDs[0] != 1 {
		t.Errorf("InterpretationIDs = %v, want [1 2]", up.InterpretationIDs)
	}
	if len(results[1].Weights) != 2 {
		t.Fatalf("Weights = %v", results[1].Weights)
	}

	// Authority 10 vs 9: primary weight is 10/19.
	wantPrimary := 10.0 / 19.0
	if diff := up.PrimarySourceWeight - wantPrimary; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("PrimarySourceWeight = %v, want %v", up.PrimarySourceWeight, wantPrimary)
	}
	sum := results[1].Weights[0] + results[1].Weights[1]
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("weights sum = %v, want 1", sum)
	}
}

func TestUnifiedMeaningLedByPrimary(t *testing.T) {
	interps := []store.Interpretation{
		interp(1, 100, 1, store.ContextUpright, "The leap of faith begins here. More text follows.", "faith", "beginnings"),
		interp(2, 100, 3, store.ContextUpright, "A fresh start full of promise.", "beginnings", "promise"),
	}
	results := testSynthesizer().Build(testConcepts, interps, testSources)
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	meaning := results[0].Synthesis.UnifiedMeaning
	if !strings.Contains(meaning, "The leap of faith begins here.") {
		t.Errorf("unified meaning not led by highest-authority source: %q", meaning)
	}
	if !strings.Contains(meaning, "beginnings") {
		t.Errorf("shared theme missing from %q", meaning)
	}
	if strings.Contains(meaning, "More text follows") {
		t.Errorf("lead should be first sentence only: %q", meaning)
	}
}

func TestConflictDetection(t *testing.T) {
	interps := []store.Interpretation{
		interp(1, 100, 1, store.ContextUpright, "Order and structure.", "order", "structure"),
		interp(2, 100, 2, store.ContextUpright, "Chaos and abandon.", "chaos", "abandon"),
	}
	results := testSynthesizer().Build(testConcepts, interps, testSources)
	syn := results[0].Synthesis

	if len(syn.Conflicts) != 1 {
		t.Fatalf("Conflicts = %v, want one divergence", syn.Conflicts)
	}
	if !strings.Contains(syn.Conflicts[0], "Rider-Waite-Smith Tradition") ||
		!strings.Contains(syn.Conflicts[0], "Biddy Tarot") {
		t.Errorf("conflict should name both sources: %q", syn.Conflicts[0])
	}
	if len(syn.UncertaintyAreas) != 4 {
		t.Errorf("UncertaintyAreas = %v, want all four tags", syn.UncertaintyAreas)
	}
	if syn.CoherenceScore != 0 {
		t.Errorf("CoherenceScore = %v, want 0 for disjoint tags", syn.CoherenceScore)
	}

	agreeing := []store.Interpretation{
		interp(1, 100, 1, store.ContextUpright, "Order and structure.", "order", "structure"),
		interp(2, 100, 2, store.ContextUpright, "Structure and order prevail.", "order", "structure"),
	}
	syn = testSynthesizer().Build(testConcepts, agreeing, testSources)[0].Synthesis
	if len(syn.Conflicts) != 0 {
		t.Errorf("Conflicts = %v, want none for identical tags", syn.Conflicts)
	}
	if syn.CoherenceScore != 10 {
		t.Errorf("CoherenceScore = %v, want 10", syn.CoherenceScore)
	}
}

func TestConfidenceGrowsWithAgreementAndBreadth(t *testing.T) {
	disjoint := []store.Interpretation{
		interp(1, 100, 1, store.ContextUpright, "Order.", "order"),
		interp(2, 100, 2, store.ContextUpright, "Chaos.", "chaos"),
	}
	agreeing := []store.Interpretation{
		interp(1, 100, 1, store.ContextUpright, "Order.", "order"),
		interp(2, 100, 2, store.ContextUpright, "Order again.", "order"),
		interp(3, 100, 3, store.ContextUpright, "Order still.", "order"),
	}
	s := testSynthesizer()
	low := s.Build(testConcepts, disjoint, testSources)[0].Synthesis.Confidence
	high := s.Build(testConcepts, agreeing, testSources)[0].Synthesis.Confidence
	if high <= low {
		t.Errorf("confidence %v (agreeing, 3 sources) should exceed %v (conflicting, 2)", high, low)
	}
	if low < 0 || high > 10 {
		t.Errorf("confidence out of range: %v, %v", low, high)
	}
}

func TestConfidenceShrinksWithScoreSpread(t *testing.T) {
	build := func(clarityA, clarityB float64) float64 {
		interps := []store.Interpretation{
			interp(1, 100, 1, store.ContextUpright, "Order.", "order"),
			interp(2, 100, 2, store.ContextUpright, "Order again.", "order"),
		}
		interps[0].ClarityScore = clarityA
		interps[1].ClarityScore = clarityB
		return testSynthesizer().Build(testConcepts, interps, testSources)[0].Synthesis.Confidence
	}

	even := build(8.0, 8.0)
	uneven := build(9.5, 3.5)
	if uneven >= even {
		t.Errorf("confidence %v (clarity spread 6) should fall below %v (no spread)", uneven, even)
	}
	if even != 7.0 {
		t.Errorf("confidence = %v, want 7 for two coherent equal-quality sources", even)
	}
}

func TestLineageParallelLists(t *testing.T) {
	interps := []store.Interpretation{
		interp(1, 100, 1, store.ContextUpright, "Faith.", "faith"),
		interp(2, 100, 2, store.ContextUpright, "Faith and trust.", "faith", "trust"),
	}
	s := testSynthesizer()
	result := s.Build(testConcepts, interps, testSources)[0]
	result.Synthesis.ID = 42

	lin := s.Lineage(result.Synthesis, result.Weights)
	if lin.SynthesisID != 42 {
		t.Errorf("SynthesisID = %d", lin.SynthesisID)
	}
	if len(lin.Steps) != 5 {
		t.Errorf("Steps = %d, want 5", len(lin.Steps))
	}
	if len(lin.DecisionPoints) != 3 {
		t.Errorf("DecisionPoints = %d, want 3", len(lin.DecisionPoints))
	}
	if len(lin.ContributingSources) != len(lin.SourceWeights) {
		t.Errorf("parallel lists out of step: %d sources, %d weights",
			len(lin.ContributingSources), len(lin.SourceWeights))
	}
	if len(lin.Limitations) != 3 {
		t.Errorf("Limitations = %v, want 3 entries", lin.Limitations)
	}
	if !strings.Contains(lin.Explanation, "2 authoritative sources") {
		t.Errorf("Explanation = %q", lin.Explanation)
	}
}
