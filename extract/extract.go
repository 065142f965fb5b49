// Package extract turns raw page HTML (or plain curated text) into a
// structured card extraction: name, arcana, contextual meanings, keywords,
// symbols, and correspondences. Every sub-extractor degrades to an empty
// result; only a fully failed name chain is an error.
package extract

import (
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoCardName means no strategy could recover a plausible card name.
var ErrNoCardName = errors.New("extract: no card name found")

// CardExtraction is the structured result of parsing one source document.
type CardExtraction struct {
	Name      string
	Arcana    string // "major_arcana" or "minor_arcana"
	Suit      string
	Number    *int
	Element   string
	Astrology []string
	Keywords  []string
	Symbols   []string

	// Meanings maps an interpretation context (upright, reversed, love,
	// career, spiritual, general) to its text.
	Meanings map[string]string

	// BodyText is the flattened page text used for scoring.
	BodyText string
}

// Extractor runs the strategy chain over documents. Safe for concurrent use.
type Extractor struct {
	nameChain []NameStrategy
	logger    *slog.Logger
}

// New returns an Extractor with the default name strategy chain.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		nameChain: defaultNameChain(),
		logger:    logger,
	}
}

var whitespaceRE = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}

// Extract parses HTML from sourceURL into a CardExtraction.
func (e *Extractor) Extract(htmlContent, sourceURL string) (*CardExtraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	name := ""
	for _, strat := range e.nameChain {
		candidate := cleanName(strat.Extract(doc))
		if validName(candidate) {
			name = normalizeCardName(candidate)
			e.logger.Debug("card name extracted", "strategy", strat.Name(), "name", name)
			break
		}
	}
	if name == "" {
		if candidate := cleanName(slugName(sourceURL)); validName(candidate) {
			name = normalizeCardName(candidate)
		}
	}
	if name == "" {
		return nil, ErrNoCardName
	}

	bodyText := collapseWhitespace(doc.Find("body").Text())
	if bodyText == "" {
		bodyText = collapseWhitespace(doc.Text())
	}

	ext := &CardExtraction{
		Name:     name,
		BodyText: bodyText,
		Meanings: e.extractMeanings(doc, htmlContent, sourceURL),
	}
	e.fillDerived(ext)
	return ext, nil
}

// ExtractPlain parses curated plain text (or markdown) into a CardExtraction.
// ref names the document for logging; the card name comes from the first
// non-empty line unless a canonical name is embedded there.
func (e *Extractor) ExtractPlain(text, ref string) (*CardExtraction, error) {
	lines := strings.Split(text, "\n")
	name := ""
	for _, line := range lines {
		candidate := cleanName(strings.TrimLeft(strings.TrimSpace(line), "# "))
		if validName(candidate) {
			name = normalizeCardName(candidate)
			break
		}
	}
	if name == "" {
		if candidate := cleanName(slugName(ref)); validName(candidate) {
			name = normalizeCardName(candidate)
		}
	}
	if name == "" {
		return nil, ErrNoCardName
	}

	ext := &CardExtraction{
		Name:     name,
		BodyText: collapseWhitespace(text),
		Meanings: meaningsFromPlainText(text),
	}
	e.fillDerived(ext)
	return ext, nil
}

// fillDerived computes the fields that depend only on name and body text.
func (e *Extractor) fillDerived(ext *CardExtraction) {
	lower := strings.ToLower(ext.BodyText)

	ext.Keywords = extractKeywords(lower)
	ext.Symbols = extractSymbols(lower)
	ext.Number = numberFor(ext.Name)
	ext.Astrology = extractAstrology(lower, ext.Name)

	if _, ok := majorArcanaNumbers[ext.Name]; ok {
		ext.Arcana = "major_arcana"
	} else {
		ext.Arcana = "minor_arcana"
		ext.Suit = detectSuit(ext.Name)
	}

	ext.Element = detectElement(lower, ext.Name, ext.Suit)
}

func slugName(rawURL string) string {
	u, err := url.Parse(rawURL)
	path := rawURL
	if err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.TrimSuffix(strings.TrimRight(path, "/"), ".html")
	path = strings.TrimSuffix(path, ".htm")
	parts := strings.Split(path, "/")
	last := parts[len(parts)-1]
	if i := strings.LastIndex(last, "."); i > 0 {
		last = last[:i]
	}
	return strings.ReplaceAll(last, "-", " ")
}
