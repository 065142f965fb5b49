package store

// schemaSQL is the DDL for all tables. Upsert keys are expressed as UNIQUE
// constraints so concurrent writers converge on one row per key.
const schemaSQL = `
-- Authority origins, bootstrapped once per deployment
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    url TEXT,
    authority_level INTEGER NOT NULL DEFAULT 5,
    reliability_score REAL NOT NULL DEFAULT 5.0,
    consistency_score REAL NOT NULL DEFAULT 5.0,
    access_method TEXT NOT NULL,
    usage_rights TEXT,
    verification TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Canonical domain entities, one live row per (canonical_name, concept_type)
CREATE TABLE IF NOT EXISTS concepts (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    canonical_name TEXT NOT NULL,
    concept_type TEXT NOT NULL,
    alternative_names JSON,
    category_path TEXT,
    properties JSON,
    keywords JSON,
    ordinal_value INTEGER,
    element TEXT,
    astrology JSON,
    completeness_score REAL NOT NULL DEFAULT 0,
    verification TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(canonical_name, concept_type)
);

-- Per-source, per-context meanings; re-extraction overwrites
CREATE TABLE IF NOT EXISTS interpretations (
    id INTEGER PRIMARY KEY,
    concept_id INTEGER NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
    source_id INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    context TEXT NOT NULL,
    primary_meaning TEXT NOT NULL,
    depth_score REAL NOT NULL DEFAULT 0,
    originality_score REAL NOT NULL DEFAULT 0,
    clarity_score REAL NOT NULL DEFAULT 0,
    semantic_tags JSON,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(concept_id, source_id, context)
);

-- Typed edges between concepts; self-loops rejected at the schema level
CREATE TABLE IF NOT EXISTS relationships (
    id INTEGER PRIMARY KEY,
    source_concept_id INTEGER NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
    target_concept_id INTEGER NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
    relation_type TEXT NOT NULL,
    strength REAL NOT NULL DEFAULT 5.0,
    bidirectional INTEGER NOT NULL DEFAULT 0,
    established_by INTEGER REFERENCES sources(id),
    UNIQUE(source_concept_id, target_concept_id, relation_type),
    CHECK(source_concept_id != target_concept_id)
);

-- Consensus records over >=2 interpretations of one (concept, context)
CREATE TABLE IF NOT EXISTS syntheses (
    id INTEGER PRIMARY KEY,
    concept_id INTEGER NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
    context TEXT NOT NULL,
    name TEXT NOT NULL,
    interpretation_ids JSON NOT NULL,
    primary_source_weight REAL NOT NULL,
    unified_meaning TEXT NOT NULL,
    confidence REAL NOT NULL,
    methodology TEXT,
    conflicts JSON,
    resolution_approach TEXT,
    uncertainty_areas JSON,
    completeness_score REAL NOT NULL DEFAULT 0,
    coherence_score REAL NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(concept_id, context)
);

-- Write-once reasoning traces, one per synthesis
CREATE TABLE IF NOT EXISTS lineage (
    id INTEGER PRIMARY KEY,
    synthesis_id INTEGER NOT NULL REFERENCES syntheses(id) ON DELETE CASCADE,
    reasoning_steps JSON NOT NULL,
    decision_points JSON NOT NULL,
    contributing_sources JSON NOT NULL,
    source_weights JSON NOT NULL,
    confidence REAL NOT NULL,
    consistency_score REAL NOT NULL,
    explanation TEXT,
    evidence JSON,
    limitations JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(synthesis_id)
);

-- Run history for the status command
CREATE TABLE IF NOT EXISTS ingest_log (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL,
    state TEXT NOT NULL,
    sources_processed INTEGER NOT NULL DEFAULT 0,
    concepts_created INTEGER NOT NULL DEFAULT 0,
    error_count INTEGER NOT NULL DEFAULT 0,
    average_quality REAL NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_interpretations_concept
    ON interpretations(concept_id, context);
CREATE INDEX IF NOT EXISTS idx_relationships_source
    ON relationships(source_concept_id);
CREATE INDEX IF NOT EXISTS idx_concepts_canonical
    ON concepts(canonical_name);
`
