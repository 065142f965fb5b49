package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// MajorArcana lists the canonical deck names in trump order.
var MajorArcana = []string{
	"The Fool", "The Magician", "The High Priestess", "The Empress",
	"The Emperor", "The Hierophant", "The Lovers", "The Chariot",
	"Strength", "The Hermit", "Wheel of Fortune", "Justice",
	"The Hanged Man", "Death", "Temperance", "The Devil", "The Tower",
	"The Star", "The Moon", "The Sun", "Judgement", "The World",
}

var majorArcanaNumbers = func() map[string]int {
	m := make(map[string]int, len(MajorArcana))
	for i, name := range MajorArcana {
		m[name] = i
	}
	return m
}()

var rankWords = map[string]int{
	"ace": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"page": 11, "knight": 12, "queen": 13, "king": 14,
}

var suitElements = map[string]string{
	"wands":     "fire",
	"cups":      "water",
	"swords":    "air",
	"pentacles": "earth",
	"coins":     "earth",
	"disks":     "earth",
}

var zodiacElements = map[string]string{
	"aries": "fire", "leo": "fire", "sagittarius": "fire",
	"cancer": "water", "scorpio": "water", "pisces": "water",
	"gemini": "air", "libra": "air", "aquarius": "air",
	"taurus": "earth", "virgo": "earth", "capricorn": "earth",
}

var planetElements = map[string]string{
	"mars": "fire", "sun": "fire", "jupiter": "fire", "pluto": "fire",
	"moon": "water", "neptune": "water",
	"mercury": "air", "uranus": "air",
	"venus": "earth", "saturn": "earth",
}

// majorAstrology carries the Golden Dawn planetary and zodiacal
// attributions for the trumps.
var majorAstrology = map[string]string{
	"The Fool":           "uranus",
	"The Magician":       "mercury",
	"The High Priestess": "moon",
	"The Empress":        "venus",
	"The Emperor":        "aries",
	"The Hierophant":     "taurus",
	"The Lovers":         "gemini",
	"The Chariot":        "cancer",
	"Strength":           "leo",
	"The Hermit":         "virgo",
	"Wheel of Fortune":   "jupiter",
	"Justice":            "libra",
	"The Hanged Man":     "neptune",
	"Death":              "scorpio",
	"Temperance":         "sagittarius",
	"The Devil":          "capricorn",
	"The Tower":          "mars",
	"The Star":           "aquarius",
	"The Moon":           "pisces",
	"The Sun":            "sun",
	"Judgement":          "pluto",
	"The World":          "saturn",
}

var astrologyTerms = []string{
	"aries", "taurus", "gemini", "cancer", "leo", "virgo", "libra",
	"scorpio", "sagittarius", "capricorn", "aquarius", "pisces",
	"mars", "venus", "mercury", "jupiter", "saturn", "uranus",
	"neptune", "pluto",
}

var digitRE = regexp.MustCompile(`\d+`)

// numberFor resolves a card's ordinal: explicit digit in the name, then the
// trump table, then a rank word.
func numberFor(name string) *int {
	if m := digitRE.FindString(name); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return &n
		}
	}
	if n, ok := majorArcanaNumbers[name]; ok {
		v := n
		return &v
	}
	first := strings.ToLower(strings.SplitN(name, " ", 2)[0])
	if n, ok := rankWords[first]; ok {
		v := n
		return &v
	}
	return nil
}

func detectSuit(name string) string {
	lower := strings.ToLower(name)
	for suit := range suitElements {
		if strings.Contains(lower, suit) {
			return suit
		}
	}
	return ""
}

// detectElement resolves a card's element: suit table first, then the trump
// attribution, then a body-text scan over element and zodiac words.
func detectElement(lower, name, suit string) string {
	if el, ok := suitElements[suit]; ok {
		return el
	}
	if attr, ok := majorAstrology[name]; ok {
		if el, ok := zodiacElements[attr]; ok {
			return el
		}
		if el, ok := planetElements[attr]; ok {
			return el
		}
	}
	for _, el := range []string{"fire", "water", "air", "earth"} {
		if containsWord(lower, el) {
			return el
		}
	}
	for sign, el := range zodiacElements {
		if containsWord(lower, sign) {
			return el
		}
	}
	return ""
}

// extractAstrology collects astrological terms from the body text, seeded
// with the card's own attribution.
func extractAstrology(lower, name string) []string {
	var out []string
	seen := make(map[string]bool)
	if attr, ok := majorAstrology[name]; ok {
		out = append(out, attr)
		seen[attr] = true
	}
	for _, term := range astrologyTerms {
		if !seen[term] && containsWord(lower, term) {
			out = append(out, term)
			seen[term] = true
		}
	}
	return out
}

// Correspondence is a curated per-card override row loaded from a reference
// workbook. Curated values win over scanned ones.
type Correspondence struct {
	Card      string
	Element   string
	Astrology []string
	Keywords  []string
}

// ApplyOverrides merges a curated correspondence row into an extraction.
// Element is replaced; astrology and keywords are unioned with curated
// entries first, respecting the usual caps.
func ApplyOverrides(ext *CardExtraction, table map[string]Correspondence) {
	row, ok := table[ext.Name]
	if !ok {
		return
	}
	if row.Element != "" {
		ext.Element = row.Element
	}
	if len(row.Astrology) > 0 {
		ext.Astrology = mergeUnique(row.Astrology, ext.Astrology, 0)
	}
	if len(row.Keywords) > 0 {
		ext.Keywords = mergeUnique(row.Keywords, ext.Keywords, maxKeywords)
	}
}

func mergeUnique(first, second []string, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, lst := range [][]string{first, second} {
		for _, v := range lst {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
			if limit > 0 && len(out) == limit {
				return out
			}
		}
	}
	return out
}
