package dataoracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mysticarcana/dataoracle/store"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "kg.db")
	cfg.RequestTimeout = Duration(2 * time.Second)
	cfg.RateLimitDelay = Duration(time.Millisecond)
	cfg.RetryDelay = Duration(time.Millisecond)
	cfg.MaxRetries = 2
	cfg.MinBodyBytes = 10
	cfg.RespectRobots = false
	cfg.MaxConcurrentSources = 1
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, specs []SourceSpec) Engine {
	t.Helper()
	eng, err := New(cfg,
		WithSourceRegistry(NewSourceRegistry(specs)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := eng.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func webSpec(name string, authority int, cardURLs map[string]string) SourceSpec {
	return SourceSpec{
		Source: store.Source{
			Name: name, Kind: store.OriginWeb, AuthorityLevel: authority,
			ReliabilityScore: 8.0, ConsistencyScore: 8.0,
			AccessMethod: "web_scraping", UsageRights: "educational_research",
		},
		CardURLs: cardURLs,
	}
}

func cardPage(name string, withReversed bool) string {
	page := fmt.Sprintf(`<html><head><title>%s - Test Tarot</title></head><body>
<h1>%s</h1>
<h2>Upright Meaning</h2>
<p>%s upright speaks of new beginnings, growth, and a hopeful journey toward
wisdom and healing in every reading.</p>`, name, name, name)
	if withReversed {
		page += fmt.Sprintf(`
<h2>Reversed Meaning</h2>
<p>%s reversed warns of blocked change, illusion, and energy scattered away
from its true path.</p>`, name)
	}
	return page + "\n</body></html>"
}

func TestRunSynthesizesAcrossSources(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a/the-fool", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, cardPage("The Fool", true))
	})
	mux.HandleFunc("/b/the-fool", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, cardPage("The Fool", false))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	eng := newTestEngine(t, testConfig(t), []SourceSpec{
		webSpec("Source Alpha", 10, map[string]string{"The Fool": srv.URL + "/a/the-fool"}),
		webSpec("Source Beta", 8, map[string]string{"The Fool": srv.URL + "/b/the-fool"}),
	})

	metrics, err := eng.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !metrics.Succeeded() {
		t.Fatalf("run did not succeed: state=%s sources=%d", metrics.State, metrics.SourcesProcessed)
	}
	if metrics.SourcesProcessed != 2 || metrics.TargetsSucceeded != 2 {
		t.Errorf("metrics = %+v", metrics)
	}
	if metrics.ConceptsCreated != 1 || metrics.ConceptsUpdated != 1 {
		t.Errorf("concepts created=%d updated=%d, want one create then one merge",
			metrics.ConceptsCreated, metrics.ConceptsUpdated)
	}

	ctx := context.Background()
	syntheses, err := eng.Store().ListSyntheses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(syntheses) != 1 {
		t.Fatalf("syntheses = %d, want exactly 1 (upright has two sources, reversed one)", len(syntheses))
	}
	syn := syntheses[0]
	if syn.Context != store.ContextUpright {
		t.Errorf("synthesis context = %q", syn.Context)
	}
	if len(syn.InterpretationIDs) != 2 {
		t.Errorf("InterpretationIDs = %v, want both sources", syn.InterpretationIDs)
	}

	lineages, err := eng.Store().ListLineages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(lineages) != 1 {
		t.Fatalf("lineages = %d, want 1", len(lineages))
	}
	if len(lineages[0].ContributingSources) != len(lineages[0].SourceWeights) {
		t.Error("lineage parallel lists out of step")
	}
	if metrics.LineagesCreated != 1 {
		t.Errorf("LineagesCreated = %d", metrics.LineagesCreated)
	}
}

func TestRunContinuesPastFetchFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/the-sun", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, cardPage("The Sun", true))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	eng := newTestEngine(t, testConfig(t), []SourceSpec{
		webSpec("Source Alpha", 9, map[string]string{
			"The Moon": srv.URL + "/missing", // 404
			"The Sun":  srv.URL + "/the-sun",
		}),
	})

	metrics, err := eng.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !metrics.Succeeded() {
		t.Fatalf("run should succeed despite item failure: %+v", metrics)
	}
	if metrics.TargetsFailed != 1 || metrics.TargetsSucceeded != 1 {
		t.Errorf("failed=%d succeeded=%d", metrics.TargetsFailed, metrics.TargetsSucceeded)
	}
	if len(metrics.Errors) != 1 {
		t.Fatalf("Errors = %v", metrics.Errors)
	}
	if metrics.Errors[0].Kind != ErrorKindFetch {
		t.Errorf("error kind = %q, want fetch_error", metrics.Errors[0].Kind)
	}
}

func TestRunRecordsParseErrorAndSkipsConcept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><p>plenty of text here but nothing that names a card anywhere</p></body></html>`)
	}))
	defer srv.Close()

	eng := newTestEngine(t, testConfig(t), []SourceSpec{
		// Path slug "xx" is too short to pass name validation.
		webSpec("Source Alpha", 9, map[string]string{"Mystery": srv.URL + "/xx"}),
	})

	metrics, err := eng.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(metrics.Errors) != 1 || metrics.Errors[0].Kind != ErrorKindParse {
		t.Fatalf("Errors = %v, want one parse_error", metrics.Errors)
	}

	concepts, err := eng.Store().ListConcepts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(concepts) != 0 {
		t.Errorf("concepts = %v, want none written", concepts)
	}
}

func TestRunDerivesSingleEvolutionEdge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/the-empress", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, cardPage("The Empress", true))
	})
	mux.HandleFunc("/the-emperor", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, cardPage("The Emperor", true))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	eng := newTestEngine(t, testConfig(t), []SourceSpec{
		webSpec("Source Alpha", 9, map[string]string{
			"The Empress": srv.URL + "/the-empress",
			"The Emperor": srv.URL + "/the-emperor",
		}),
	})

	if _, err := eng.Run(context.Background(), RunOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ctx := context.Background()
	rels, err := eng.Store().ListRelationships(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var evolution []store.Relationship
	for _, r := range rels {
		if r.RelationType == store.RelEvolvedFrom {
			evolution = append(evolution, r)
		}
	}
	if len(evolution) != 1 {
		t.Fatalf("evolution edges = %d, want exactly 1", len(evolution))
	}

	empress, err := eng.Store().GetConceptByCanonicalName(ctx, "the_empress", "tarot_card")
	if err != nil {
		t.Fatal(err)
	}
	emperor, err := eng.Store().GetConceptByCanonicalName(ctx, "the_emperor", "tarot_card")
	if err != nil {
		t.Fatal(err)
	}
	if evolution[0].SourceConceptID != empress.ID || evolution[0].TargetConceptID != emperor.ID {
		t.Errorf("evolution %d->%d, want ordinal 3 (%d) -> ordinal 4 (%d)",
			evolution[0].SourceConceptID, evolution[0].TargetConceptID, empress.ID, emperor.ID)
	}
	if evolution[0].Bidirectional {
		t.Error("evolution edge must be directional")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, cardPage("The Fool", true))
	}))
	defer srv.Close()

	eng := newTestEngine(t, testConfig(t), []SourceSpec{
		webSpec("Source Alpha", 10, map[string]string{"The Fool": srv.URL + "/a/the-fool"}),
		webSpec("Source Beta", 8, map[string]string{"The Fool": srv.URL + "/b/the-fool"}),
	})

	first, err := eng.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := eng.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if first.ConceptsCreated != 1 {
		t.Errorf("first run ConceptsCreated = %d", first.ConceptsCreated)
	}
	if second.ConceptsCreated != 0 || second.ConceptsUpdated != 2 {
		t.Errorf("second run should merge, not create: created=%d updated=%d",
			second.ConceptsCreated, second.ConceptsUpdated)
	}
	if second.RelationshipsCreated != 0 || second.SynthesesCreated != 0 || second.LineagesCreated != 0 {
		t.Errorf("second run re-created derived records: %+v", second)
	}

	ctx := context.Background()
	counts, err := eng.Store().Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["concepts"] != 1 {
		t.Errorf("concepts = %d, want 1", counts["concepts"])
	}
	if counts["interpretations"] != 4 {
		t.Errorf("interpretations = %d, want 4 (2 sources x 2 contexts)", counts["interpretations"])
	}
	if counts["lineage"] != counts["syntheses"] {
		t.Errorf("lineage %d vs syntheses %d, want write-once 1:1",
			counts["lineage"], counts["syntheses"])
	}
}

func TestRunSkipExisting(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		io.WriteString(w, cardPage("The Star", true))
	}))
	defer srv.Close()

	eng := newTestEngine(t, testConfig(t), []SourceSpec{
		webSpec("Source Alpha", 9, map[string]string{"The Star": srv.URL + "/the-star"}),
	})

	if _, err := eng.Run(context.Background(), RunOptions{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	metrics, err := eng.Run(context.Background(), RunOptions{SkipExisting: true})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if metrics.TargetsSkipped != 1 || metrics.TargetsAttempted != 0 {
		t.Errorf("skipped=%d attempted=%d, want 1/0", metrics.TargetsSkipped, metrics.TargetsAttempted)
	}
	if hits != 1 {
		t.Errorf("server hits = %d, want 1 (second run skips the fetch)", hits)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	eng := newTestEngine(t, testConfig(t), []SourceSpec{
		webSpec("Source Alpha", 9, map[string]string{"The Fool": "http://localhost/never-fetched"}),
	})

	metrics, err := eng.Run(context.Background(), RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !metrics.Succeeded() {
		t.Errorf("dry run should succeed: %+v", metrics)
	}
	if metrics.TargetsAttempted != 0 {
		t.Errorf("dry run attempted %d targets", metrics.TargetsAttempted)
	}

	counts, err := eng.Store().Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts["concepts"] != 0 || counts["interpretations"] != 0 {
		t.Errorf("dry run wrote rows: %v", counts)
	}
}

func TestRunCuratedSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.CuratedDir = t.TempDir()

	src := store.Source{
		Name: "Golden Dawn Tarot Tradition", Kind: store.OriginTradition,
		AuthorityLevel: 10, ReliabilityScore: 9.8, ConsistencyScore: 9.5,
		AccessMethod: "manual_curation", UsageRights: "public_domain",
	}
	docDir := CuratedDirFor(cfg.CuratedDir, src)
	if err := os.MkdirAll(docDir, 0755); err != nil {
		t.Fatal(err)
	}
	doc := `# The Magician

Upright
The Magician is the conduit of will, manifestation, and skilled creation,
channeling every element toward a chosen end.
`
	if err := os.WriteFile(filepath.Join(docDir, "the-magician.md"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	eng := newTestEngine(t, cfg, []SourceSpec{{Source: src}})

	metrics, err := eng.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !metrics.Succeeded() || metrics.TargetsSucceeded != 1 {
		t.Fatalf("metrics = %+v", metrics)
	}

	concept, err := eng.Store().GetConceptByCanonicalName(context.Background(), "the_magician", "tarot_card")
	if err != nil {
		t.Fatalf("curated concept missing: %v", err)
	}
	if concept.Properties.Arcana != "major_arcana" {
		t.Errorf("Properties = %+v", concept.Properties)
	}
}

func TestRunBeforeInitialize(t *testing.T) {
	cfg := testConfig(t)
	eng, err := New(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatal(err)
	}
	metrics, err := eng.Run(context.Background(), RunOptions{})
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
	if metrics == nil || metrics.State != StateFailed {
		t.Errorf("metrics = %+v, want failed artifact", metrics)
	}
}

func TestRunNoMatchingSources(t *testing.T) {
	eng := newTestEngine(t, testConfig(t), DefaultSources())
	_, err := eng.Run(context.Background(), RunOptions{Sources: []string{"No Such Source"}})
	if !errors.Is(err, ErrNoSources) {
		t.Fatalf("err = %v, want ErrNoSources", err)
	}
}

func TestInitializeTwice(t *testing.T) {
	eng := newTestEngine(t, testConfig(t), DefaultSources())
	if err := eng.Initialize(context.Background()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("err = %v, want ErrAlreadyInitialized", err)
	}
}

func TestPlanTargetsFiltersAndCaps(t *testing.T) {
	eng := newTestEngine(t, testConfig(t), DefaultSources())

	all := eng.PlanTargets(RunOptions{Sources: []string{"Biddy Tarot"}})
	if len(all) != 22 {
		t.Fatalf("Biddy targets = %d, want 22 majors", len(all))
	}

	capped := eng.PlanTargets(RunOptions{Sources: []string{"Biddy Tarot"}, MaxCards: 5})
	if len(capped) != 5 {
		t.Errorf("capped targets = %d, want 5", len(capped))
	}

	one := eng.PlanTargets(RunOptions{Sources: []string{"Biddy Tarot"}, Cards: []string{"The Fool"}})
	if len(one) != 1 || one[0].Card != "The Fool" {
		t.Fatalf("filtered targets = %+v", one)
	}
	if one[0].URL != "https://www.biddytarot.com/tarot-card-meanings/major-arcana/fool/" {
		t.Errorf("URL = %q", one[0].URL)
	}
}
