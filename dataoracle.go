// Package dataoracle ingests tarot knowledge from configured authorities and
// assembles it into a local knowledge graph: concepts, per-source
// interpretations, derived relationships, multi-source syntheses, and the
// lineage records that explain them.
package dataoracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mysticarcana/dataoracle/curated"
	"github.com/mysticarcana/dataoracle/extract"
	"github.com/mysticarcana/dataoracle/fetch"
	"github.com/mysticarcana/dataoracle/graph"
	"github.com/mysticarcana/dataoracle/store"
	"github.com/mysticarcana/dataoracle/synthesis"
)

// State names the orchestrator's position in the run lifecycle.
type State string

const (
	StateIdle             State = "idle"
	StateInitializing     State = "initializing"
	StateIngesting        State = "ingesting"
	StateRelating         State = "relating"
	StateSynthesizing     State = "synthesizing"
	StateRecordingLineage State = "recording_lineage"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)

const conceptType = "tarot_card"

// RunOptions narrows one run without touching engine configuration.
type RunOptions struct {
	// Sources keeps only the named sources; empty means all registered.
	Sources []string

	// Cards keeps only the named cards (canonical names); empty means all.
	Cards []string

	// MaxCards caps the number of targets per source. Zero means no cap.
	MaxCards int

	// SkipExisting skips targets whose concept is already stored.
	SkipExisting bool

	// DryRun lists planned targets without fetching or writing.
	DryRun bool
}

// Engine is the ingestion pipeline. Construction is cheap and synchronous;
// Initialize opens the store and bootstraps sources and must succeed before
// the first Run.
type Engine interface {
	Initialize(ctx context.Context) error
	Run(ctx context.Context, opts RunOptions) (*RunMetrics, error)
	PlanTargets(opts RunOptions) []Target
	Store() *store.Store
	Close() error
}

// Option customizes engine construction.
type Option func(*engine)

// WithSourceRegistry replaces the default source registry.
func WithSourceRegistry(r *SourceRegistry) Option {
	return func(e *engine) { e.registry = r }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *engine) { e.logger = l }
}

type engine struct {
	cfg       Config
	logger    *slog.Logger
	registry  *SourceRegistry
	fetcher   *fetch.Fetcher
	extractor *extract.Extractor
	loaders   *curated.Registry
	synth     *synthesis.Synthesizer

	mu          sync.Mutex
	state       State
	initialized bool
	st          *store.Store

	correspondences map[string]extract.Correspondence
	sourceIDs       map[string]int64
}

// New constructs an engine from cfg. The store is not touched until
// Initialize.
func New(cfg Config, opts ...Option) (Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &engine{
		cfg:       cfg,
		logger:    slog.Default(),
		registry:  NewSourceRegistry(DefaultSources()),
		state:     StateIdle,
		sourceIDs: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.fetcher = fetch.New(fetch.Options{
		UserAgent:      cfg.UserAgent,
		RequestTimeout: cfg.RequestTimeout.Std(),
		RateLimitDelay: cfg.RateLimitDelay.Std(),
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay.Std(),
		MinBodyBytes:   cfg.MinBodyBytes,
		RespectRobots:  cfg.RespectRobots,
		Logger:         e.logger,
	})
	e.extractor = extract.New(e.logger)
	e.loaders = curated.NewRegistry()
	e.synth = synthesis.New(e.logger)
	return e, nil
}

// Initialize opens the store, runs migrations, bootstraps the configured
// sources, and loads the correspondence overrides.
func (e *engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return ErrAlreadyInitialized
	}
	e.state = StateInitializing

	st, err := store.Open(e.cfg.resolveDBPath())
	if err != nil {
		e.state = StateFailed
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	specs := append(e.registry.Specs(), SourceSpec{Source: systemSource()})
	for _, spec := range specs {
		id, err := st.UpsertSource(ctx, spec.Source)
		if err != nil {
			st.Close()
			e.state = StateFailed
			return fmt.Errorf("bootstrapping source %q: %w", spec.Source.Name, err)
		}
		e.sourceIDs[spec.Source.Name] = id
	}

	table, err := curated.LoadCorrespondences(e.cfg.CorrespondencesPath)
	if err != nil {
		st.Close()
		e.state = StateFailed
		return fmt.Errorf("loading correspondences: %w", err)
	}
	e.correspondences = table

	e.st = st
	e.initialized = true
	e.state = StateIdle
	e.logger.Info("engine initialized",
		"db", e.cfg.resolveDBPath(),
		"sources", len(e.registry.Specs()),
		"correspondences", len(table))
	return nil
}

func (e *engine) Store() *store.Store {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st
}

func (e *engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return nil
	}
	err := e.st.Close()
	e.st = nil
	e.initialized = false
	return err
}

// PlanTargets lists the targets a run with opts would process, in
// deterministic order.
func (e *engine) PlanTargets(opts RunOptions) []Target {
	var plan []Target
	for _, spec := range e.registry.Filter(opts.Sources) {
		plan = append(plan, e.targetsFor(spec, opts)...)
	}
	return plan
}

func (e *engine) targetsFor(spec SourceSpec, opts RunOptions) []Target {
	cardFilter := make(map[string]bool, len(opts.Cards))
	for _, c := range opts.Cards {
		cardFilter[strings.ToLower(strings.TrimSpace(c))] = true
	}
	keep := func(card string) bool {
		return len(cardFilter) == 0 || cardFilter[strings.ToLower(card)]
	}

	var targets []Target
	if spec.Source.AccessMethod == "manual_curation" {
		docs, err := e.loaders.ListDocuments(CuratedDirFor(e.cfg.CuratedDir, spec.Source))
		if err != nil {
			e.logger.Warn("listing curated documents failed",
				"source", spec.Source.Name, "error", err)
		}
		for _, doc := range docs {
			targets = append(targets, Target{SourceName: spec.Source.Name, Document: doc})
		}
	} else {
		cards := make([]string, 0, len(spec.CardURLs))
		for card := range spec.CardURLs {
			cards = append(cards, card)
		}
		sort.Strings(cards)
		for _, card := range cards {
			if keep(card) {
				targets = append(targets, Target{
					SourceName: spec.Source.Name,
					Card:       card,
					URL:        spec.CardURLs[card],
				})
			}
		}
	}

	if opts.MaxCards > 0 && len(targets) > opts.MaxCards {
		targets = targets[:opts.MaxCards]
	}
	return targets
}

// Run executes the full pipeline: ingest every matched source concurrently,
// then derive relationships, synthesize, and record lineage over the stored
// snapshot. Item failures are recorded and skipped; a systemic store failure
// aborts the run. A metrics artifact is always returned.
func (e *engine) Run(ctx context.Context, opts RunOptions) (*RunMetrics, error) {
	metrics := &RunMetrics{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		State:     StateIngesting,
	}

	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		metrics.finalize(StateFailed)
		return metrics, ErrNotInitialized
	}
	st := e.st
	e.mu.Unlock()

	specs := e.registry.Filter(opts.Sources)
	if len(specs) == 0 {
		metrics.finalize(StateFailed)
		return metrics, ErrNoSources
	}

	if e.cfg.RunDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RunDeadline.Std())
		defer cancel()
	}

	logger := e.logger.With("run_id", metrics.RunID)
	logger.Info("run started", "sources", len(specs), "dry_run", opts.DryRun)

	if opts.DryRun {
		for _, spec := range specs {
			targets := e.targetsFor(spec, opts)
			for _, t := range targets {
				logger.Info("planned target", "source", t.SourceName, "target", t.Ref())
			}
			metrics.SourcesProcessed++
			metrics.TargetsSkipped += len(targets)
		}
		metrics.finalize(StateCompleted)
		return metrics, nil
	}

	e.setState(StateIngesting)
	var (
		mergeMu sync.Mutex
		g, gctx = errgroup.WithContext(ctx)
	)
	g.SetLimit(e.cfg.MaxConcurrentSources)

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			partial := &RunMetrics{}
			err := e.ingestSource(gctx, st, spec, opts, partial, logger)
			if err == nil {
				partial.SourcesProcessed++
			}
			mergeMu.Lock()
			metrics.merge(partial)
			mergeMu.Unlock()
			return err
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrRunDeadline, err)
		}
		e.setState(StateFailed)
		metrics.finalize(StateFailed)
		e.logRun(ctx, st, metrics, logger)
		return metrics, err
	}

	if err := e.derivePhases(ctx, st, metrics, logger); err != nil {
		e.setState(StateFailed)
		metrics.finalize(StateFailed)
		e.logRun(ctx, st, metrics, logger)
		return metrics, err
	}

	e.setState(StateCompleted)
	metrics.finalize(StateCompleted)
	e.logRun(ctx, st, metrics, logger)
	logger.Info("run completed",
		"sources_processed", metrics.SourcesProcessed,
		"targets_succeeded", metrics.TargetsSucceeded,
		"targets_failed", metrics.TargetsFailed,
		"average_quality", metrics.AverageQuality,
		"duration", metrics.Duration)
	return metrics, nil
}

func (e *engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// ingestSource runs the fetch/extract/score/store pass for one source.
// Returns an error only for systemic failures.
func (e *engine) ingestSource(ctx context.Context, st *store.Store, spec SourceSpec, opts RunOptions, m *RunMetrics, logger *slog.Logger) error {
	sourceID := e.sourceIDs[spec.Source.Name]
	for _, target := range e.targetsFor(spec, opts) {
		if err := ctx.Err(); err != nil {
			m.recordError(target.Ref(), ErrorKindCancelled, err)
			continue
		}
		if opts.SkipExisting && target.Card != "" {
			exists, err := st.ConceptExists(ctx, canonicalName(target.Card), conceptType)
			if err == nil && exists {
				m.TargetsSkipped++
				continue
			}
		}
		if err := e.ingestTarget(ctx, st, spec, sourceID, target, m, logger); err != nil {
			return err
		}
	}
	return nil
}

// ingestTarget processes a single target end to end. Item-level failures are
// recorded in m and swallowed; only a systemic store outage propagates.
func (e *engine) ingestTarget(ctx context.Context, st *store.Store, spec SourceSpec, sourceID int64, target Target, m *RunMetrics, logger *slog.Logger) error {
	m.TargetsAttempted++

	var (
		ext *extract.CardExtraction
		err error
	)
	if target.URL != "" {
		var body string
		body, err = e.fetcher.Fetch(ctx, target.URL)
		if err != nil {
			kind := ErrorKindFetch
			if ctx.Err() != nil {
				kind = ErrorKindCancelled
			}
			m.recordError(target.Ref(), kind, err)
			return nil
		}
		ext, err = e.extractor.Extract(body, target.URL)
	} else {
		var text string
		text, err = e.loaders.Load(ctx, target.Document)
		if err == nil {
			ext, err = e.extractor.ExtractPlain(text, target.Document)
		}
	}
	if err != nil {
		m.recordError(target.Ref(), ErrorKindParse, err)
		return nil
	}

	extract.ApplyOverrides(ext, e.correspondences)

	score := extract.Score(ext)
	m.recordQuality(score)
	if score < e.cfg.QualityThreshold {
		m.recordError(target.Ref(), ErrorKindQuality,
			fmt.Errorf("quality score %.1f below threshold %.1f", score, e.cfg.QualityThreshold))
		return nil
	}

	conceptID, created, err := st.UpsertConcept(ctx, conceptFrom(ext, score))
	if err != nil {
		return e.storeFailure(ctx, st, m, target, err)
	}
	if created {
		m.ConceptsCreated++
	} else {
		m.ConceptsUpdated++
	}

	contexts := make([]string, 0, len(ext.Meanings))
	for c := range ext.Meanings {
		contexts = append(contexts, c)
	}
	sort.Strings(contexts)
	for _, meaningContext := range contexts {
		meaning := ext.Meanings[meaningContext]
		_, created, err := st.UpsertInterpretation(ctx, store.Interpretation{
			ConceptID:        conceptID,
			SourceID:         sourceID,
			Context:          meaningContext,
			PrimaryMeaning:   meaning,
			DepthScore:       depthScore(meaning),
			OriginalityScore: spec.Source.ConsistencyScore,
			ClarityScore:     score,
			SemanticTags:     ext.Keywords,
		})
		if err != nil {
			return e.storeFailure(ctx, st, m, target, err)
		}
		if created {
			m.InterpretationsCreated++
		} else {
			m.InterpretationsUpdated++
		}
	}

	m.TargetsSucceeded++
	logger.Debug("target ingested",
		"source", spec.Source.Name, "card", ext.Name, "quality", score)
	return nil
}

// storeFailure records a write failure and probes whether the store is still
// reachable. An unreachable store escalates to a systemic abort.
func (e *engine) storeFailure(ctx context.Context, st *store.Store, m *RunMetrics, target Target, err error) error {
	m.recordError(target.Ref(), ErrorKindStore, err)
	if pingErr := st.Ping(ctx); pingErr != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, pingErr)
	}
	return nil
}

// derivePhases runs Relate, Synthesize, and RecordLineage over the stored
// snapshot, strictly after all source passes finished.
func (e *engine) derivePhases(ctx context.Context, st *store.Store, m *RunMetrics, logger *slog.Logger) error {
	systemID := e.sourceIDs[SystemSourceName]

	e.setState(StateRelating)
	concepts, err := st.ListConcepts(ctx)
	if err != nil {
		return fmt.Errorf("listing concepts: %w", err)
	}
	for _, rel := range graph.Derive(concepts, systemID) {
		created, err := st.UpsertRelationship(ctx, rel)
		if err != nil {
			return fmt.Errorf("writing relationship: %w", err)
		}
		if created {
			m.RelationshipsCreated++
		}
	}

	e.setState(StateSynthesizing)
	interps, err := st.ListInterpretations(ctx)
	if err != nil {
		return fmt.Errorf("listing interpretations: %w", err)
	}
	sources, err := st.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}
	results := e.synth.Build(concepts, interps, sources)

	for i := range results {
		id, created, err := st.UpsertSynthesis(ctx, results[i].Synthesis)
		if err != nil {
			return fmt.Errorf("writing synthesis: %w", err)
		}
		results[i].Synthesis.ID = id
		if created {
			m.SynthesesCreated++
		}
	}

	e.setState(StateRecordingLineage)
	for _, result := range results {
		has, err := st.HasLineage(ctx, result.Synthesis.ID)
		if err != nil || has {
			continue
		}
		lin := e.synth.Lineage(result.Synthesis, result.Weights)
		if _, err := st.InsertLineage(ctx, lin); err != nil {
			// Lineage is explanatory; its loss never fails the synthesis.
			logger.Warn("lineage write failed",
				"synthesis_id", result.Synthesis.ID, "error", err)
			continue
		}
		m.LineagesCreated++
	}

	logger.Info("derivation completed",
		"relationships_created", m.RelationshipsCreated,
		"syntheses_created", m.SynthesesCreated,
		"lineages_created", m.LineagesCreated)
	return nil
}

func (e *engine) logRun(ctx context.Context, st *store.Store, m *RunMetrics, logger *slog.Logger) {
	rec := store.RunRecord{
		RunID:            m.RunID,
		State:            string(m.State),
		SourcesProcessed: m.SourcesProcessed,
		ConceptsCreated:  m.ConceptsCreated,
		ErrorCount:       len(m.Errors),
		AverageQuality:   m.AverageQuality,
		DurationMS:       m.Duration.Milliseconds(),
	}
	if err := st.LogRun(ctx, rec); err != nil {
		logger.Warn("recording run in ingest log failed", "error", err)
	}
}

func canonicalName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func conceptFrom(ext *extract.CardExtraction, score float64) store.Concept {
	categoryPath := "tarot/" + ext.Arcana
	if ext.Suit != "" {
		categoryPath += "/" + ext.Suit
	}

	var ordinal *int
	if ext.Arcana == "major_arcana" {
		ordinal = ext.Number
	}

	return store.Concept{
		Name:          ext.Name,
		CanonicalName: canonicalName(ext.Name),
		ConceptType:   conceptType,
		CategoryPath:  categoryPath,
		Properties: store.CoreProperties{
			Number:  ext.Number,
			Arcana:  ext.Arcana,
			Suit:    ext.Suit,
			Element: ext.Element,
		},
		Keywords:          ext.Keywords,
		OrdinalValue:      ordinal,
		Element:           ext.Element,
		Astrology:         ext.Astrology,
		CompletenessScore: score,
		Verification:      "pending_review",
	}
}

// depthScore rates interpretation depth from its length, one point per
// twenty characters, capped at ten.
func depthScore(meaning string) float64 {
	d := float64(len(meaning)) / 20
	if d > 10 {
		d = 10
	}
	return d
}
