// Package synthesis merges per-source interpretations into consensus records.
// Groups need at least two sources; weighting follows source authority, and
// disagreement between sources is flagged rather than averaged away.
package synthesis

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mysticarcana/dataoracle/store"
)

// Methodology names the synthesis procedure recorded on every row.
const Methodology = "weighted_aggregation_with_conflict_resolution"

// conflictOverlap is the tag-overlap floor below which two sources are
// considered in conflict.
const conflictOverlap = 0.2

// Result pairs a synthesis with the per-interpretation weights that produced
// it. Weights are parallel to Synthesis.InterpretationIDs.
type Result struct {
	Synthesis store.Synthesis
	Weights   []float64
}

// Synthesizer builds consensus records from stored interpretations.
type Synthesizer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{logger: logger}
}

type member struct {
	interp store.Interpretation
	source store.Source
	weight float64
}

// Build groups interpretations by (concept, context) and synthesizes every
// group with two or more members. Output order is deterministic: concept ID,
// then context.
func (s *Synthesizer) Build(concepts []store.Concept, interps []store.Interpretation, sources []store.Source) []Result {
	conceptByID := make(map[int64]store.Concept, len(concepts))
	for _, c := range concepts {
		conceptByID[c.ID] = c
	}
	sourceByID := make(map[int64]store.Source, len(sources))
	for _, src := range sources {
		sourceByID[src.ID] = src
	}

	type key struct {
		conceptID int64
		context   string
	}
	groups := make(map[key][]store.Interpretation)
	for _, in := range interps {
		k := key{in.ConceptID, in.Context}
		groups[k] = append(groups[k], in)
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		if len(groups[k]) >= 2 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].conceptID != keys[j].conceptID {
			return keys[i].conceptID < keys[j].conceptID
		}
		return keys[i].context < keys[j].context
	})

	var results []Result
	for _, k := range keys {
		concept, ok := conceptByID[k.conceptID]
		if !ok {
			s.logger.Warn("interpretations reference unknown concept", "concept_id", k.conceptID)
			continue
		}
		results = append(results, s.synthesize(concept, k.context, groups[k], sourceByID))
	}
	return results
}

func (s *Synthesizer) synthesize(concept store.Concept, context string, group []store.Interpretation, sourceByID map[int64]store.Source) Result {
	sort.Slice(group, func(i, j int) bool { return group[i].SourceID < group[j].SourceID })

	members := make([]member, len(group))
	totalAuthority := 0.0
	for i, in := range group {
		src := sourceByID[in.SourceID]
		members[i] = member{interp: in, source: src}
		totalAuthority += float64(src.AuthorityLevel)
	}
	for i := range members {
		if totalAuthority > 0 {
			members[i].weight = float64(members[i].source.AuthorityLevel) / totalAuthority
		} else {
			members[i].weight = 1.0 / float64(len(members))
		}
	}

	primary := members[0]
	for _, m := range members[1:] {
		if m.weight > primary.weight {
			primary = m
		}
	}

	conflicts, uncertainty := detectConflicts(members)
	coherence := averageOverlap(members)
	dispersion := scoreDispersion(members)

	ids := make([]int64, len(members))
	weights := make([]float64, len(members))
	for i, m := range members {
		ids[i] = m.interp.ID
		weights[i] = m.weight
	}

	syn := store.Synthesis{
		ConceptID:           concept.ID,
		Context:             context,
		Name:                fmt.Sprintf("Multi-source %s synthesis", context),
		InterpretationIDs:   ids,
		PrimarySourceWeight: primary.weight,
		UnifiedMeaning:      unifiedMeaning(concept.Name, context, primary, members),
		Confidence:          confidence(len(members), coherence, dispersion),
		Methodology:         Methodology,
		Conflicts:           conflicts,
		ResolutionApproach:  "expert consensus weighting with uncertainty flagging",
		UncertaintyAreas:    uncertainty,
		CompletenessScore:   clamp10(float64(len(members)) * 2.5),
		CoherenceScore:      clamp10(coherence * 10),
	}
	return Result{Synthesis: syn, Weights: weights}
}

// unifiedMeaning composes the consensus text: the highest-authority source
// leads, shared themes follow. Deterministic for a fixed group.
func unifiedMeaning(conceptName, context string, primary member, members []member) string {
	lead := firstSentence(primary.interp.PrimaryMeaning)
	themes := sharedTags(members)

	var b strings.Builder
	fmt.Fprintf(&b, "Across %d sources, the %s meaning of %s centers on: %s",
		len(members), context, conceptName, lead)
	if !strings.HasSuffix(lead, ".") {
		b.WriteString(".")
	}
	if len(themes) > 0 {
		fmt.Fprintf(&b, " Recurring themes: %s.", strings.Join(themes, ", "))
	}
	return b.String()
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, ". "); i >= 0 {
		return text[:i+1]
	}
	if len(text) > 300 {
		return text[:300]
	}
	return text
}

// sharedTags returns tags used by at least two members, most common first,
// capped at four.
func sharedTags(members []member) []string {
	counts := make(map[string]int)
	for _, m := range members {
		seen := make(map[string]bool)
		for _, tag := range m.interp.SemanticTags {
			if !seen[tag] {
				seen[tag] = true
				counts[tag]++
			}
		}
	}
	var shared []string
	for tag, n := range counts {
		if n >= 2 {
			shared = append(shared, tag)
		}
	}
	sort.Slice(shared, func(i, j int) bool {
		if counts[shared[i]] != counts[shared[j]] {
			return counts[shared[i]] > counts[shared[j]]
		}
		return shared[i] < shared[j]
	})
	if len(shared) > 4 {
		shared = shared[:4]
	}
	return shared
}

// detectConflicts flags source pairs whose tag sets barely overlap. Pairs
// where either side carries no tags are skipped.
func detectConflicts(members []member) (conflicts, uncertainty []string) {
	uncertainSet := make(map[string]bool)
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a, b := members[i], members[j]
			if len(a.interp.SemanticTags) == 0 || len(b.interp.SemanticTags) == 0 {
				continue
			}
			if tagOverlap(a.interp.SemanticTags, b.interp.SemanticTags) < conflictOverlap {
				conflicts = append(conflicts, fmt.Sprintf(
					"divergent interpretations between %s and %s", a.source.Name, b.source.Name))
				for _, tag := range a.interp.SemanticTags {
					uncertainSet[tag] = true
				}
				for _, tag := range b.interp.SemanticTags {
					uncertainSet[tag] = true
				}
			}
		}
	}
	for tag := range uncertainSet {
		uncertainty = append(uncertainty, tag)
	}
	sort.Strings(uncertainty)
	return conflicts, uncertainty
}

// tagOverlap is the intersection size over the smaller set.
func tagOverlap(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	inter := 0
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		if setB[t] {
			continue
		}
		setB[t] = true
		if setA[t] {
			inter++
		}
	}
	smaller := len(setA)
	if len(setB) < smaller {
		smaller = len(setB)
	}
	if smaller == 0 {
		return 0
	}
	return float64(inter) / float64(smaller)
}

// averageOverlap is the mean pairwise tag overlap, used as the coherence
// signal. Pairs without tags on both sides are excluded; a group with no
// comparable pairs scores a neutral 0.5.
func averageOverlap(members []member) float64 {
	total, pairs := 0.0, 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a, b := members[i], members[j]
			if len(a.interp.SemanticTags) == 0 || len(b.interp.SemanticTags) == 0 {
				continue
			}
			total += tagOverlap(a.interp.SemanticTags, b.interp.SemanticTags)
			pairs++
		}
	}
	if pairs == 0 {
		return 0.5
	}
	return total / float64(pairs)
}

// scoreDispersion is the spread between the strongest and weakest clarity
// scores in the group. A wide spread means the consensus leans on
// interpretations of very uneven quality.
func scoreDispersion(members []member) float64 {
	min, max := members[0].interp.ClarityScore, members[0].interp.ClarityScore
	for _, m := range members[1:] {
		if m.interp.ClarityScore < min {
			min = m.interp.ClarityScore
		}
		if m.interp.ClarityScore > max {
			max = m.interp.ClarityScore
		}
	}
	return max - min
}

// confidence grows with source count and agreement and shrinks as the
// contributors' quality scores spread apart: base 5, up to +3 for breadth,
// up to +2 for coherence, up to -2 for dispersion.
func confidence(count int, coherence, dispersion float64) float64 {
	breadth := float64(count-2) * 1.0
	if breadth > 3 {
		breadth = 3
	}
	return clamp10(5 + breadth + coherence*2 - dispersion/5)
}

func clamp10(v float64) float64 {
	if v > 10 {
		return 10
	}
	if v < 0 {
		return 0
	}
	return v
}
