package store

// Origin kind constants for sources.
const (
	OriginWeb       = "web"
	OriginTradition = "tradition"
	OriginManual    = "manual"
)

// Relationship type constants. The set is closed; the deriver never emits
// anything outside it.
const (
	RelComplements = "complements"
	RelOpposes     = "opposes"
	RelStrengthens = "strengthens"
	RelEvolvedFrom = "evolved_from"
)

// Interpretation context constants.
const (
	ContextUpright   = "upright"
	ContextReversed  = "reversed"
	ContextGeneral   = "general"
	ContextLove      = "love"
	ContextCareer    = "career"
	ContextSpiritual = "spiritual"
)

// Source is an authority origin configured at bootstrap.
type Source struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Kind             string  `json:"kind"`
	URL              string  `json:"url,omitempty"`
	AuthorityLevel   int     `json:"authority_level"`
	ReliabilityScore float64 `json:"reliability_score"`
	ConsistencyScore float64 `json:"consistency_score"`
	AccessMethod     string  `json:"access_method"`
	UsageRights      string  `json:"usage_rights"`
	Verification     string  `json:"verification"`
}

// CoreProperties are the structural attributes of a card concept. Modeled as
// named fields rather than an open map so invariants stay checkable.
type CoreProperties struct {
	Number  *int   `json:"number,omitempty"`
	Arcana  string `json:"arcana,omitempty"`
	Suit    string `json:"suit,omitempty"`
	Element string `json:"element,omitempty"`
}

// Concept is a canonical domain entity, one row per (canonical_name, type).
type Concept struct {
	ID                int64          `json:"id"`
	Name              string         `json:"name"`
	CanonicalName     string         `json:"canonical_name"`
	ConceptType       string         `json:"concept_type"`
	AlternativeNames  []string       `json:"alternative_names,omitempty"`
	CategoryPath      string         `json:"category_path,omitempty"`
	Properties        CoreProperties `json:"properties"`
	Keywords          []string       `json:"keywords,omitempty"`
	OrdinalValue      *int           `json:"ordinal_value,omitempty"`
	Element           string         `json:"element,omitempty"`
	Astrology         []string       `json:"astrology,omitempty"`
	CompletenessScore float64        `json:"completeness_score"`
	Verification      string         `json:"verification"`
}

// Interpretation is one source's meaning of a concept in one context.
type Interpretation struct {
	ID               int64    `json:"id"`
	ConceptID        int64    `json:"concept_id"`
	SourceID         int64    `json:"source_id"`
	Context          string   `json:"context"`
	PrimaryMeaning   string   `json:"primary_meaning"`
	DepthScore       float64  `json:"depth_score"`
	OriginalityScore float64  `json:"originality_score"`
	ClarityScore     float64  `json:"clarity_score"`
	SemanticTags     []string `json:"semantic_tags,omitempty"`
}

// Relationship is a typed edge between two concepts.
type Relationship struct {
	ID              int64   `json:"id"`
	SourceConceptID int64   `json:"source_concept_id"`
	TargetConceptID int64   `json:"target_concept_id"`
	RelationType    string  `json:"relation_type"`
	Strength        float64 `json:"strength"`
	Bidirectional   bool    `json:"bidirectional"`
	EstablishedBy   int64   `json:"established_by_source_id"`
}

// Synthesis is a consensus record over two or more interpretations sharing
// a (concept, context) pair.
type Synthesis struct {
	ID                  int64    `json:"id"`
	ConceptID           int64    `json:"concept_id"`
	Context             string   `json:"context"`
	Name                string   `json:"name"`
	InterpretationIDs   []int64  `json:"interpretation_ids"`
	PrimarySourceWeight float64  `json:"primary_source_weight"`
	UnifiedMeaning      string   `json:"unified_meaning"`
	Confidence          float64  `json:"confidence"`
	Methodology         string   `json:"methodology"`
	Conflicts           []string `json:"conflicts,omitempty"`
	ResolutionApproach  string   `json:"resolution_approach"`
	UncertaintyAreas    []string `json:"uncertainty_areas,omitempty"`
	CompletenessScore   float64  `json:"completeness_score"`
	CoherenceScore      float64  `json:"coherence_score"`
}

// ReasoningStep is one ordered step in a lineage trace.
type ReasoningStep struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// DecisionPoint records a named decision and the rationale chosen for it.
type DecisionPoint struct {
	Label     string `json:"label"`
	Rationale string `json:"rationale"`
}

// Lineage is the write-once explainability record attached to a synthesis.
// ContributingSources and SourceWeights are parallel lists of equal length.
type Lineage struct {
	ID                  int64           `json:"id"`
	SynthesisID         int64           `json:"synthesis_id"`
	Steps               []ReasoningStep `json:"reasoning_steps"`
	DecisionPoints      []DecisionPoint `json:"decision_points"`
	ContributingSources []int64         `json:"contributing_sources"`
	SourceWeights       []float64       `json:"source_weights"`
	Confidence          float64         `json:"confidence"`
	ConsistencyScore    float64         `json:"consistency_score"`
	Explanation         string          `json:"explanation"`
	Evidence            []string        `json:"evidence,omitempty"`
	Limitations         []string        `json:"limitations,omitempty"`
}

// RunRecord is one row in the ingest log.
type RunRecord struct {
	RunID            string  `json:"run_id"`
	State            string  `json:"state"`
	SourcesProcessed int     `json:"sources_processed"`
	ConceptsCreated  int     `json:"concepts_created"`
	ErrorCount       int     `json:"error_count"`
	AverageQuality   float64 `json:"average_quality"`
	DurationMS       int64   `json:"duration_ms"`
}
