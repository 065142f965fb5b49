package graph

import (
	"reflect"
	"testing"

	"github.com/mysticarcana/dataoracle/store"
)

func major(id int64, name string, ordinal int, element string) store.Concept {
	return store.Concept{
		ID:            id,
		Name:          name,
		CanonicalName: name,
		ConceptType:   "tarot_card",
		OrdinalValue:  &ordinal,
		Element:       element,
		Properties:    store.CoreProperties{Number: &ordinal, Arcana: "major_arcana", Element: element},
	}
}

func TestDeriveElementEdges(t *testing.T) {
	tests := []struct {
		name     string
		elemA    string
		elemB    string
		relation string
		strength float64
	}{
		{"fire complements air", "fire", "air", store.RelComplements, 7.5},
		{"fire opposes water", "fire", "water", store.RelOpposes, 8.0},
		{"water complements earth", "water", "earth", store.RelComplements, 7.5},
		{"air opposes earth", "air", "earth", store.RelOpposes, 8.0},
		{"same element strengthens", "water", "water", store.RelStrengthens, 6.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Ordinals far apart so no evolution edge interferes.
			a := major(1, "A", 0, tt.elemA)
			b := major(2, "B", 10, tt.elemB)

			rels := Derive([]store.Concept{b, a}, 99)
			if len(rels) != 1 {
				t.Fatalf("got %d edges, want 1: %+v", len(rels), rels)
			}
			r := rels[0]
			if r.RelationType != tt.relation || r.Strength != tt.strength {
				t.Errorf("edge = %s/%.1f, want %s/%.1f",
					r.RelationType, r.Strength, tt.relation, tt.strength)
			}
			if r.SourceConceptID != 1 || r.TargetConceptID != 2 {
				t.Errorf("edge anchored %d->%d, want lower ID first", r.SourceConceptID, r.TargetConceptID)
			}
			if !r.Bidirectional {
				t.Error("element edge should be bidirectional")
			}
			if r.EstablishedBy != 99 {
				t.Errorf("EstablishedBy = %d, want 99", r.EstablishedBy)
			}
		})
	}
}

func TestDeriveEvolutionEdge(t *testing.T) {
	// Fool(0, air) and Magician(1, air): adjacent trumps sharing an element
	// yield both a strengthens edge and one directed evolution edge.
	fool := major(5, "The Fool", 0, "air")
	magician := major(3, "The Magician", 1, "air")

	rels := Derive([]store.Concept{fool, magician}, 7)
	if len(rels) != 2 {
		t.Fatalf("got %d edges, want 2: %+v", len(rels), rels)
	}

	var evolution *store.Relationship
	for i := range rels {
		if rels[i].RelationType == store.RelEvolvedFrom {
			evolution = &rels[i]
		}
	}
	if evolution == nil {
		t.Fatal("no evolution edge derived")
	}
	if evolution.SourceConceptID != 5 || evolution.TargetConceptID != 3 {
		t.Errorf("evolution %d->%d, want lower ordinal (Fool, ID 5) -> higher (Magician, ID 3)",
			evolution.SourceConceptID, evolution.TargetConceptID)
	}
	if evolution.Bidirectional {
		t.Error("evolution edge must be directional")
	}
	if evolution.Strength != 6.0 {
		t.Errorf("strength = %v, want 6.0", evolution.Strength)
	}
}

func TestDeriveSkipsNonAdjacentAndNonMajor(t *testing.T) {
	ord := 3
	minor := store.Concept{
		ID: 10, Name: "Three of Cups", CanonicalName: "Three of Cups",
		ConceptType: "tarot_card", OrdinalValue: &ord,
		Properties: store.CoreProperties{Arcana: "minor_arcana", Suit: "cups"},
	}
	empress := major(11, "The Empress", 3, "")
	hermit := major(12, "The Hermit", 9, "")

	rels := Derive([]store.Concept{minor, empress, hermit}, 1)
	for _, r := range rels {
		if r.RelationType == store.RelEvolvedFrom {
			t.Errorf("unexpected evolution edge %+v", r)
		}
	}
}

func TestDeriveDeterministic(t *testing.T) {
	concepts := []store.Concept{
		major(1, "The Fool", 0, "air"),
		major(2, "The Magician", 1, "air"),
		major(3, "The High Priestess", 2, "water"),
		major(4, "The Empress", 3, "earth"),
	}
	first := Derive(concepts, 1)

	reversed := []store.Concept{concepts[3], concepts[2], concepts[1], concepts[0]}
	second := Derive(reversed, 1)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("derivation depends on input order:\n%+v\nvs\n%+v", first, second)
	}
}

func TestDeriveNoSelfLoops(t *testing.T) {
	c := major(1, "The Sun", 19, "fire")
	rels := Derive([]store.Concept{c, c}, 1)
	for _, r := range rels {
		if r.SourceConceptID == r.TargetConceptID {
			t.Errorf("self loop derived: %+v", r)
		}
	}
}
