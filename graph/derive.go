// Package graph derives relationships between stored concepts from their
// elemental correspondences and trump ordering. Derivation is pure and
// deterministic: the same concept set always yields the same edge set.
package graph

import (
	"sort"

	"github.com/mysticarcana/dataoracle/store"
)

// elementRelation describes how one element relates to another.
type elementRelation struct {
	relation string
	strength float64
}

// elementMatrix encodes the classical elemental dignities. The matrix is
// symmetric, so each unordered pair yields at most one edge.
var elementMatrix = map[string]map[string]elementRelation{
	"fire": {
		"air":   {store.RelComplements, 7.5},
		"water": {store.RelOpposes, 8.0},
		"fire":  {store.RelStrengthens, 6.5},
	},
	"water": {
		"earth": {store.RelComplements, 7.5},
		"fire":  {store.RelOpposes, 8.0},
		"water": {store.RelStrengthens, 6.5},
	},
	"air": {
		"fire":  {store.RelComplements, 7.5},
		"earth": {store.RelOpposes, 8.0},
		"air":   {store.RelStrengthens, 6.5},
	},
	"earth": {
		"water": {store.RelComplements, 7.5},
		"air":   {store.RelOpposes, 8.0},
		"earth": {store.RelStrengthens, 6.5},
	},
}

const evolutionStrength = 6.0

// Derive computes the relationship set for a concept snapshot.
//
// Elemental edges connect every pair whose elements relate in the dignity
// matrix; they are bidirectional and anchored at the lower concept ID.
// Trump-sequence edges connect majors whose ordinals differ by one, directed
// from the lower ordinal to the higher.
func Derive(concepts []store.Concept, establishedBy int64) []store.Relationship {
	sorted := make([]store.Concept, len(concepts))
	copy(sorted, concepts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var rels []store.Relationship
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if a.ID == b.ID {
				continue
			}
			if r, ok := elementEdge(a, b, establishedBy); ok {
				rels = append(rels, r)
			}
			if r, ok := evolutionEdge(a, b, establishedBy); ok {
				rels = append(rels, r)
			}
		}
	}
	return rels
}

func elementEdge(a, b store.Concept, establishedBy int64) (store.Relationship, bool) {
	if a.Element == "" || b.Element == "" {
		return store.Relationship{}, false
	}
	rel, ok := elementMatrix[a.Element][b.Element]
	if !ok {
		return store.Relationship{}, false
	}
	return store.Relationship{
		SourceConceptID: a.ID,
		TargetConceptID: b.ID,
		RelationType:    rel.relation,
		Strength:        rel.strength,
		Bidirectional:   true,
		EstablishedBy:   establishedBy,
	}, true
}

func evolutionEdge(a, b store.Concept, establishedBy int64) (store.Relationship, bool) {
	if a.Properties.Arcana != "major_arcana" || b.Properties.Arcana != "major_arcana" {
		return store.Relationship{}, false
	}
	if a.OrdinalValue == nil || b.OrdinalValue == nil {
		return store.Relationship{}, false
	}

	lower, higher := a, b
	if *b.OrdinalValue < *a.OrdinalValue {
		lower, higher = b, a
	}
	if *higher.OrdinalValue-*lower.OrdinalValue != 1 {
		return store.Relationship{}, false
	}
	return store.Relationship{
		SourceConceptID: lower.ID,
		TargetConceptID: higher.ID,
		RelationType:    store.RelEvolvedFrom,
		Strength:        evolutionStrength,
		Bidirectional:   false,
		EstablishedBy:   establishedBy,
	}, true
}
