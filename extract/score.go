package extract

import (
	"strings"

	"github.com/mysticarcana/dataoracle/store"
)

// Score rates an extraction on a 0-10 scale: name presence, meaning
// coverage, keyword and symbol richness, and whether the body reads like an
// interpretation at all.
func Score(ext *CardExtraction) float64 {
	var s float64

	if ext.Name != "" {
		s += 2
	}

	// Full meaning credit needs upright plus at least one other context;
	// any single meaning earns half.
	switch {
	case len(ext.Meanings) >= 2 && ext.Meanings[store.ContextUpright] != "":
		s += 3
	case len(ext.Meanings) >= 1:
		s += 1.5
	}

	s += min(float64(len(ext.Keywords))*0.3, 2)
	s += min(float64(len(ext.Symbols))*0.25, 2)

	lower := strings.ToLower(ext.BodyText)
	if strings.Contains(lower, "meaning") || strings.Contains(lower, "interpretation") {
		s += 1
	}

	if s > 10 {
		s = 10
	}
	if s < 0 {
		s = 0
	}
	return s
}
