package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NameStrategy extracts a candidate card name from a parsed document.
// Strategies are tried in order; the first candidate that cleans to a valid
// name wins.
type NameStrategy interface {
	Name() string
	Extract(doc *goquery.Document) string
}

type selectorStrategy struct {
	name     string
	selector string
}

func (s selectorStrategy) Name() string { return s.name }

func (s selectorStrategy) Extract(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find(s.selector).First().Text())
}

type ogTitleStrategy struct{}

func (ogTitleStrategy) Name() string { return "og-title" }

func (ogTitleStrategy) Extract(doc *goquery.Document) string {
	content, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	return strings.TrimSpace(content)
}

type titleTagStrategy struct{}

func (titleTagStrategy) Name() string { return "title-tag" }

func (titleTagStrategy) Extract(doc *goquery.Document) string {
	title := doc.Find("title").First().Text()
	if i := strings.Index(title, " - "); i >= 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}

func defaultNameChain() []NameStrategy {
	return []NameStrategy{
		selectorStrategy{"h1", "h1"},
		selectorStrategy{"title-class", ".card-title, .card-name, .entry-title, .post-title"},
		selectorStrategy{"fuzzy-class", `[class*="title"], [class*="heading"], [class*="name"]`},
		ogTitleStrategy{},
		titleTagStrategy{},
		selectorStrategy{"breadcrumb", ".breadcrumb li:last-child, .breadcrumbs li:last-child"},
	}
}

var (
	dashSuffixRE    = regexp.MustCompile(`\s*-\s.*$`)
	pipeSuffixRE    = regexp.MustCompile(`\s*\|\s*.*$`)
	meaningSuffixRE = regexp.MustCompile(`(?i)meaning.*$`)
	tarotSuffixRE   = regexp.MustCompile(`(?i)tarot.*$`)
	orientationRE   = regexp.MustCompile(`(?i)\b(upright|reversed)\b`)
)

// cleanName strips site chrome from a raw candidate: trailing dash or pipe
// segments, "Meaning"/"Tarot" suffixes, orientation words.
func cleanName(raw string) string {
	s := collapseWhitespace(raw)
	s = dashSuffixRE.ReplaceAllString(s, "")
	s = pipeSuffixRE.ReplaceAllString(s, "")
	s = meaningSuffixRE.ReplaceAllString(s, "")
	s = tarotSuffixRE.ReplaceAllString(s, "")
	s = orientationRE.ReplaceAllString(s, "")
	return collapseWhitespace(s)
}

var letterRE = regexp.MustCompile(`[a-zA-Z]`)

func validName(s string) bool {
	return len(s) > 2 && len(s) < 50 && letterRE.MatchString(s)
}

// cardAliases maps lowercase shorthand names to the canonical deck names.
var cardAliases = map[string]string{
	"fool":             "The Fool",
	"magician":         "The Magician",
	"high priestess":   "The High Priestess",
	"empress":          "The Empress",
	"emperor":          "The Emperor",
	"hierophant":       "The Hierophant",
	"lovers":           "The Lovers",
	"chariot":          "The Chariot",
	"strength":         "Strength",
	"hermit":           "The Hermit",
	"wheel of fortune": "Wheel of Fortune",
	"wheel fortune":    "Wheel of Fortune",
	"justice":          "Justice",
	"hanged man":       "The Hanged Man",
	"death":            "Death",
	"temperance":       "Temperance",
	"devil":            "The Devil",
	"tower":            "The Tower",
	"star":             "The Star",
	"moon":             "The Moon",
	"sun":              "The Sun",
	"judgement":        "Judgement",
	"judgment":         "Judgement",
	"world":            "The World",
}

// normalizeCardName maps shorthand to the canonical name, falling back to
// title case.
func normalizeCardName(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "the ")
	if canonical, ok := cardAliases[key]; ok {
		return canonical
	}
	return titleCase(name)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		// Keep small connective words lowercase except at the start.
		if i > 0 && (w == "of" || w == "the" || w == "and") {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
