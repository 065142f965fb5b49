package dataoracle

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mysticarcana/dataoracle/extract"
	"github.com/mysticarcana/dataoracle/store"
)

// SystemSourceName identifies the pipeline itself as the establishing source
// for derived relationships and syntheses.
const SystemSourceName = "DataOracle System"

// Target is one unit of ingestion work: a remote page for web sources or a
// local document for curated sources.
type Target struct {
	SourceName string
	Card       string // canonical card name when known ahead of fetch
	URL        string // set for web sources
	Document   string // set for curated sources
}

// Ref names the target for logs and error records.
func (t Target) Ref() string {
	if t.URL != "" {
		return t.URL
	}
	return t.Document
}

// SourceSpec couples a bootstrap source with its target plan. Web sources
// carry per-card URLs; curated sources draw targets from the curated
// document directory at run time.
type SourceSpec struct {
	Source   store.Source
	CardURLs map[string]string
}

// SourceRegistry holds the sources a run can ingest from. It is constructed
// explicitly and injected into the engine, never discovered implicitly.
type SourceRegistry struct {
	specs []SourceSpec
}

func NewSourceRegistry(specs []SourceSpec) *SourceRegistry {
	return &SourceRegistry{specs: specs}
}

// Specs returns the registered specs in registration order.
func (r *SourceRegistry) Specs() []SourceSpec {
	return r.specs
}

// Filter returns the specs whose source names appear in names; an empty
// filter keeps everything.
func (r *SourceRegistry) Filter(names []string) []SourceSpec {
	if len(names) == 0 {
		return r.specs
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}
	var out []SourceSpec
	for _, spec := range r.specs {
		if want[strings.ToLower(spec.Source.Name)] {
			out = append(out, spec)
		}
	}
	return out
}

// SourceSlug is the directory name a curated source's documents live under.
func SourceSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// CuratedDirFor resolves where a curated source's documents are expected.
func CuratedDirFor(curatedRoot string, src store.Source) string {
	return filepath.Join(curatedRoot, SourceSlug(src.Name))
}

func cardSlug(card string, keepOf bool) string {
	s := strings.ToLower(card)
	s = strings.TrimPrefix(s, "the ")
	if !keepOf {
		s = strings.ReplaceAll(s, " of ", " ")
	}
	return strings.ReplaceAll(s, " ", "-")
}

func webCardURLs(template string, keepOf bool) map[string]string {
	urls := make(map[string]string, len(extract.MajorArcana))
	for _, card := range extract.MajorArcana {
		urls[card] = fmt.Sprintf(template, cardSlug(card, keepOf))
	}
	return urls
}

// DefaultSources returns the five bootstrap authorities plus the system
// source used to attribute derived records.
func DefaultSources() []SourceSpec {
	return []SourceSpec{
		{
			Source: store.Source{
				Name:             "Biddy Tarot",
				Kind:             store.OriginWeb,
				URL:              "https://www.biddytarot.com",
				AuthorityLevel:   9,
				ReliabilityScore: 9.2,
				ConsistencyScore: 8.8,
				AccessMethod:     "web_scraping",
				UsageRights:      "educational_research",
				Verification:     "expert_reviewed",
			},
			CardURLs: webCardURLs("https://www.biddytarot.com/tarot-card-meanings/major-arcana/%s/", false),
		},
		{
			Source: store.Source{
				Name:             "Labyrinthos Academy",
				Kind:             store.OriginWeb,
				URL:              "https://labyrinthos.co",
				AuthorityLevel:   8,
				ReliabilityScore: 8.7,
				ConsistencyScore: 8.5,
				AccessMethod:     "web_scraping",
				UsageRights:      "educational_research",
				Verification:     "expert_reviewed",
			},
			CardURLs: webCardURLs("https://labyrinthos.co/blogs/tarot-card-meanings-list/%s-meaning-major-arcana-tarot-card-meanings", true),
		},
		{
			Source: store.Source{
				Name:             "Golden Dawn Tarot Tradition",
				Kind:             store.OriginTradition,
				AuthorityLevel:   10,
				ReliabilityScore: 9.8,
				ConsistencyScore: 9.5,
				AccessMethod:     "manual_curation",
				UsageRights:      "public_domain",
				Verification:     "expert_reviewed",
			},
		},
		{
			Source: store.Source{
				Name:             "Rider-Waite-Smith Tradition",
				Kind:             store.OriginTradition,
				AuthorityLevel:   10,
				ReliabilityScore: 10.0,
				ConsistencyScore: 9.8,
				AccessMethod:     "manual_curation",
				UsageRights:      "public_domain",
				Verification:     "expert_reviewed",
			},
		},
		{
			Source: store.Source{
				Name:             "Thirteen Ways",
				Kind:             store.OriginWeb,
				URL:              "https://www.thirteen.org",
				AuthorityLevel:   7,
				ReliabilityScore: 7.5,
				ConsistencyScore: 7.2,
				AccessMethod:     "web_scraping",
				UsageRights:      "educational_research",
				Verification:     "community_reviewed",
			},
		},
	}
}

// systemSource attributes derived relationships, syntheses, and lineage.
func systemSource() store.Source {
	return store.Source{
		Name:             SystemSourceName,
		Kind:             store.OriginManual,
		AuthorityLevel:   5,
		ReliabilityScore: 8.0,
		ConsistencyScore: 9.0,
		AccessMethod:     "derived",
		UsageRights:      "internal",
		Verification:     "automated",
	}
}
