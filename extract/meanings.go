package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/mysticarcana/dataoracle/store"
)

// minMeaningLen filters out heading fragments and nav text masquerading as a
// meaning.
const minMeaningLen = 20

// contextIndicators is ordered: a heading matching several contexts is
// assigned to the first.
var contextIndicators = []struct {
	context string
	phrases []string
}{
	{store.ContextReversed, []string{"reversed", "inverted", "blocked", "shadow"}},
	{store.ContextUpright, []string{"upright", "general meaning"}},
	{store.ContextLove, []string{"love", "relationship", "romance", "partnership"}},
	{store.ContextCareer, []string{"career", "work", "job", "professional", "business", "money"}},
	{store.ContextSpiritual, []string{"spiritual", "meditation", "soul", "divine", "sacred"}},
}

func matchContext(heading string, taken map[string]bool) string {
	lower := strings.ToLower(heading)
	for _, ci := range contextIndicators {
		if taken[ci.context] {
			continue
		}
		for _, phrase := range ci.phrases {
			if strings.Contains(lower, phrase) {
				return ci.context
			}
		}
	}
	return ""
}

// extractMeanings scans section headings for context indicators and takes the
// text up to the next heading as that context's meaning. Explicit meaning
// classes are checked first. When nothing context-specific is found, the
// readable article text yields a single "general" meaning.
func (e *Extractor) extractMeanings(doc *goquery.Document, htmlContent, sourceURL string) map[string]string {
	meanings := make(map[string]string)
	taken := make(map[string]bool)

	classSelectors := map[string]string{
		store.ContextUpright:  ".meaning-upright, .upright-meaning",
		store.ContextReversed: ".meaning-reversed, .reversed-meaning",
		store.ContextLove:     ".love-meaning, .meaning-love",
		store.ContextCareer:   ".career-meaning, .meaning-career",
	}
	for context, sel := range classSelectors {
		text := collapseWhitespace(doc.Find(sel).First().Text())
		if len(text) > minMeaningLen {
			meanings[context] = text
			taken[context] = true
		}
	}

	doc.Find("h2, h3, h4").Each(func(_ int, heading *goquery.Selection) {
		context := matchContext(heading.Text(), taken)
		if context == "" {
			return
		}
		text := collapseWhitespace(heading.NextUntil("h2, h3, h4").Text())
		if len(text) > minMeaningLen {
			meanings[context] = text
			taken[context] = true
		}
	})

	if len(meanings) == 0 {
		general := e.readableFallback(htmlContent, sourceURL)
		if general == "" {
			general = firstParagraph(doc.Find("body").Text())
		}
		if general != "" {
			meanings[store.ContextGeneral] = general
		}
	}
	return meanings
}

// readableFallback extracts the main article text and returns its first
// substantial paragraph.
func (e *Extractor) readableFallback(htmlContent, sourceURL string) string {
	pageURL, err := url.Parse(sourceURL)
	if err != nil {
		pageURL = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(htmlContent), pageURL)
	if err != nil {
		e.logger.Debug("readability fallback failed", "url", sourceURL, "error", err)
		return ""
	}
	return firstParagraph(article.TextContent)
}

func firstParagraph(text string) string {
	for _, para := range strings.Split(text, "\n") {
		p := collapseWhitespace(para)
		if len(p) > minMeaningLen {
			if len(p) > 600 {
				p = p[:600]
			}
			return p
		}
	}
	return ""
}

// meaningsFromPlainText applies the context scan to curated text documents.
// A short line containing an indicator acts as a heading; the following
// paragraph is the meaning.
func meaningsFromPlainText(text string) map[string]string {
	meanings := make(map[string]string)
	taken := make(map[string]bool)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := collapseWhitespace(strings.TrimLeft(line, "# "))
		if trimmed == "" || len(trimmed) > 60 {
			continue
		}
		context := matchContext(trimmed, taken)
		if context == "" {
			continue
		}
		var body []string
		for _, next := range lines[i+1:] {
			p := collapseWhitespace(next)
			if p == "" {
				if len(body) > 0 {
					break
				}
				continue
			}
			if len(p) < 60 && matchContext(p, nil) != "" {
				break
			}
			body = append(body, p)
		}
		joined := strings.Join(body, " ")
		if len(joined) > minMeaningLen {
			meanings[context] = joined
			taken[context] = true
		}
	}

	if len(meanings) == 0 {
		if general := firstParagraph(text); general != "" {
			meanings[store.ContextGeneral] = general
		}
	}
	return meanings
}
