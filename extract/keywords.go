package extract

import (
	"regexp"
	"sort"
	"strings"
)

const (
	maxKeywords = 10
	maxSymbols  = 8
)

// tarotVocabulary is the fixed list of themes scanned for directly.
var tarotVocabulary = []string{
	"new beginnings", "manifestation", "intuition", "creativity",
	"authority", "tradition", "love", "willpower", "strength",
	"introspection", "change", "justice", "sacrifice", "transformation",
	"balance", "temptation", "upheaval", "hope", "illusion", "success",
	"rebirth", "completion", "journey", "wisdom", "spiritual", "growth",
	"healing", "protection",
}

// symbolVocabulary lists the imagery scanned for in card descriptions.
var symbolVocabulary = []string{
	"rose", "lily", "crown", "staff", "sword", "cup", "pentacle",
	"star", "moon", "sun", "tower", "mountain", "water", "fire",
	"angel", "devil", "tree", "serpent", "lion", "eagle", "bull",
	"infinity", "cross", "wolf", "dog", "key", "lantern", "wheel",
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"have": true, "has": true, "had": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true,
	"this": true, "that": true, "these": true, "those": true,
	"you": true, "your": true, "it": true, "its": true, "they": true,
	"their": true, "them": true, "we": true, "us": true, "our": true,
	"when": true, "what": true, "card": true, "cards": true,
	"tarot": true, "meaning": true, "also": true, "more": true,
	"from": true, "into": true, "about": true, "than": true,
}

var meaningfulRE = regexp.MustCompile(
	`spiritual|wisdom|growth|journey|path|energy|power|balance|harmony|transformation|guidance|insight|healing`)

var wordRE = regexp.MustCompile(`\b[a-z]{4,}\b`)

// containsWord reports whether term appears in lower as a whole word (or
// phrase, for multiword terms).
func containsWord(lower, term string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		beforeOK := start == 0 || !isWordByte(lower[start-1])
		afterOK := end == len(lower) || !isWordByte(lower[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// extractKeywords scans the fixed vocabulary, then tops up with frequent
// meaningful words. Capped at ten, vocabulary hits first.
func extractKeywords(lower string) []string {
	var keywords []string
	seen := make(map[string]bool)

	for _, term := range tarotVocabulary {
		if containsWord(lower, term) {
			keywords = append(keywords, term)
			seen[term] = true
		}
	}

	freq := make(map[string]int)
	for _, word := range wordRE.FindAllString(lower, -1) {
		if !stopWords[word] {
			freq[word]++
		}
	}
	var frequent []string
	for word, n := range freq {
		if n >= 2 && meaningfulRE.MatchString(word) && !seen[word] {
			frequent = append(frequent, word)
		}
	}
	sort.Slice(frequent, func(i, j int) bool {
		if freq[frequent[i]] != freq[frequent[j]] {
			return freq[frequent[i]] > freq[frequent[j]]
		}
		return frequent[i] < frequent[j]
	})
	if len(frequent) > 5 {
		frequent = frequent[:5]
	}
	keywords = append(keywords, frequent...)

	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// extractSymbols matches the symbol vocabulary as whole words, capped at
// eight in vocabulary order for determinism.
func extractSymbols(lower string) []string {
	var symbols []string
	for _, sym := range symbolVocabulary {
		if containsWord(lower, sym) {
			symbols = append(symbols, sym)
			if len(symbols) == maxSymbols {
				break
			}
		}
	}
	return symbols
}
