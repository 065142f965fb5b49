package store

import (
	"context"
	"database/sql"
	"fmt"
)

// UpsertRelationship writes a typed edge keyed by
// (source_concept_id, target_concept_id, relation_type). Returns whether a
// new edge was created; re-derivation is a no-op for existing edges.
func (s *Store) UpsertRelationship(ctx context.Context, r Relationship) (bool, error) {
	if r.SourceConceptID == r.TargetConceptID {
		return false, fmt.Errorf("self-relationship rejected for concept %d", r.SourceConceptID)
	}

	bidi := 0
	if r.Bidirectional {
		bidi = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM relationships
		WHERE source_concept_id = ? AND target_concept_id = ? AND relation_type = ?
	`, r.SourceConceptID, r.TargetConceptID, r.RelationType).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO relationships (source_concept_id, target_concept_id,
				relation_type, strength, bidirectional, established_by)
			VALUES (?, ?, ?, ?, ?, ?)
		`, r.SourceConceptID, r.TargetConceptID, r.RelationType, r.Strength,
			bidi, r.EstablishedBy)
		if err != nil {
			return false, fmt.Errorf("inserting relationship: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, err
		}
		return true, nil

	case err != nil:
		return false, fmt.Errorf("looking up relationship: %w", err)

	default:
		_, err := tx.ExecContext(ctx, `
			UPDATE relationships SET
				strength = ?,
				bidirectional = ?,
				established_by = ?
			WHERE id = ?
		`, r.Strength, bidi, r.EstablishedBy, id)
		if err != nil {
			return false, fmt.Errorf("updating relationship: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, err
		}
		return false, nil
	}
}

// ListRelationships returns all edges ordered by source, target, type.
func (s *Store) ListRelationships(ctx context.Context) ([]Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_concept_id, target_concept_id, relation_type,
			strength, bidirectional, COALESCE(established_by, 0)
		FROM relationships
		ORDER BY source_concept_id, target_concept_id, relation_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []Relationship
	for rows.Next() {
		var r Relationship
		var bidi int
		if err := rows.Scan(&r.ID, &r.SourceConceptID, &r.TargetConceptID,
			&r.RelationType, &r.Strength, &bidi, &r.EstablishedBy); err != nil {
			return nil, err
		}
		r.Bidirectional = bidi != 0
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// UpsertSynthesis writes a consensus record keyed by (concept_id, context).
// Returns the ID and whether a new row was created.
func (s *Store) UpsertSynthesis(ctx context.Context, syn Synthesis) (int64, bool, error) {
	interpIDs, err := marshalJSON(syn.InterpretationIDs)
	if err != nil {
		return 0, false, fmt.Errorf("encoding interpretation ids: %w", err)
	}
	conflicts, err := marshalJSON(syn.Conflicts)
	if err != nil {
		return 0, false, fmt.Errorf("encoding conflicts: %w", err)
	}
	uncertainty, err := marshalJSON(syn.UncertaintyAreas)
	if err != nil {
		return 0, false, fmt.Errorf("encoding uncertainty areas: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM syntheses WHERE concept_id = ? AND context = ?",
		syn.ConceptID, syn.Context).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx, `
			INSERT INTO syntheses (concept_id, context, name,
				interpretation_ids, primary_source_weight, unified_meaning,
				confidence, methodology, conflicts, resolution_approach,
				uncertainty_areas, completeness_score, coherence_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, syn.ConceptID, syn.Context, syn.Name, interpIDs,
			syn.PrimarySourceWeight, syn.UnifiedMeaning, syn.Confidence,
			syn.Methodology, conflicts, syn.ResolutionApproach, uncertainty,
			syn.CompletenessScore, syn.CoherenceScore)
		if err != nil {
			return 0, false, fmt.Errorf("inserting synthesis: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, false, err
		}
		if err := tx.Commit(); err != nil {
			return 0, false, err
		}
		return id, true, nil

	case err != nil:
		return 0, false, fmt.Errorf("looking up synthesis: %w", err)

	default:
		_, err := tx.ExecContext(ctx, `
			UPDATE syntheses SET
				name = ?,
				interpretation_ids = ?,
				primary_source_weight = ?,
				unified_meaning = ?,
				confidence = ?,
				methodology = ?,
				conflicts = ?,
				resolution_approach = ?,
				uncertainty_areas = ?,
				completeness_score = ?,
				coherence_score = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, syn.Name, interpIDs, syn.PrimarySourceWeight, syn.UnifiedMeaning,
			syn.Confidence, syn.Methodology, conflicts, syn.ResolutionApproach,
			uncertainty, syn.CompletenessScore, syn.CoherenceScore, id)
		if err != nil {
			return 0, false, fmt.Errorf("updating synthesis: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, false, err
		}
		return id, false, nil
	}
}

// ListSyntheses returns all syntheses ordered by concept and context.
func (s *Store) ListSyntheses(ctx context.Context) ([]Synthesis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, concept_id, context, name, interpretation_ids,
			primary_source_weight, unified_meaning, confidence, methodology,
			conflicts, resolution_approach, uncertainty_areas,
			completeness_score, coherence_score
		FROM syntheses ORDER BY concept_id, context
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var syns []Synthesis
	for rows.Next() {
		var syn Synthesis
		var interpIDs, conflicts, uncertainty sql.NullString
		var methodology, resolution sql.NullString
		if err := rows.Scan(&syn.ID, &syn.ConceptID, &syn.Context, &syn.Name,
			&interpIDs, &syn.PrimarySourceWeight, &syn.UnifiedMeaning,
			&syn.Confidence, &methodology, &conflicts, &resolution,
			&uncertainty, &syn.CompletenessScore, &syn.CoherenceScore); err != nil {
			return nil, err
		}
		syn.Methodology = methodology.String
		syn.ResolutionApproach = resolution.String
		if err := unmarshalJSON(interpIDs, &syn.InterpretationIDs); err != nil {
			return nil, fmt.Errorf("decoding interpretation ids: %w", err)
		}
		if err := unmarshalJSON(conflicts, &syn.Conflicts); err != nil {
			return nil, fmt.Errorf("decoding conflicts: %w", err)
		}
		if err := unmarshalJSON(uncertainty, &syn.UncertaintyAreas); err != nil {
			return nil, fmt.Errorf("decoding uncertainty areas: %w", err)
		}
		syns = append(syns, syn)
	}
	return syns, rows.Err()
}

// HasLineage reports whether a lineage record already exists for a synthesis.
// Lineage is write-once: existing records are never replaced.
func (s *Store) HasLineage(ctx context.Context, synthesisID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM lineage WHERE synthesis_id = ?", synthesisID).Scan(&n)
	return n > 0, err
}

// InsertLineage writes a lineage record. The UNIQUE(synthesis_id) constraint
// enforces the write-once rule at the schema level.
func (s *Store) InsertLineage(ctx context.Context, l Lineage) (int64, error) {
	if len(l.ContributingSources) != len(l.SourceWeights) {
		return 0, fmt.Errorf("lineage source list (%d) and weight list (%d) must be equal length",
			len(l.ContributingSources), len(l.SourceWeights))
	}

	steps, err := marshalJSON(l.Steps)
	if err != nil {
		return 0, fmt.Errorf("encoding reasoning steps: %w", err)
	}
	decisions, err := marshalJSON(l.DecisionPoints)
	if err != nil {
		return 0, fmt.Errorf("encoding decision points: %w", err)
	}
	sources, err := marshalJSON(l.ContributingSources)
	if err != nil {
		return 0, fmt.Errorf("encoding contributing sources: %w", err)
	}
	weights, err := marshalJSON(l.SourceWeights)
	if err != nil {
		return 0, fmt.Errorf("encoding source weights: %w", err)
	}
	evidence, err := marshalJSON(l.Evidence)
	if err != nil {
		return 0, fmt.Errorf("encoding evidence: %w", err)
	}
	limitations, err := marshalJSON(l.Limitations)
	if err != nil {
		return 0, fmt.Errorf("encoding limitations: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO lineage (synthesis_id, reasoning_steps, decision_points,
			contributing_sources, source_weights, confidence,
			consistency_score, explanation, evidence, limitations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.SynthesisID, steps, decisions, sources, weights, l.Confidence,
		l.ConsistencyScore, l.Explanation, evidence, limitations)
	if err != nil {
		return 0, fmt.Errorf("inserting lineage: %w", err)
	}
	return res.LastInsertId()
}

// ListLineages returns all lineage records ordered by synthesis.
func (s *Store) ListLineages(ctx context.Context) ([]Lineage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, synthesis_id, reasoning_steps, decision_points,
			contributing_sources, source_weights, confidence,
			consistency_score, explanation, evidence, limitations
		FROM lineage ORDER BY synthesis_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lineages []Lineage
	for rows.Next() {
		var l Lineage
		var steps, decisions, sources, weights, evidence, limitations sql.NullString
		var explanation sql.NullString
		if err := rows.Scan(&l.ID, &l.SynthesisID, &steps, &decisions,
			&sources, &weights, &l.Confidence, &l.ConsistencyScore,
			&explanation, &evidence, &limitations); err != nil {
			return nil, err
		}
		l.Explanation = explanation.String
		for _, pair := range []struct {
			src sql.NullString
			dst interface{}
		}{
			{steps, &l.Steps},
			{decisions, &l.DecisionPoints},
			{sources, &l.ContributingSources},
			{weights, &l.SourceWeights},
			{evidence, &l.Evidence},
			{limitations, &l.Limitations},
		} {
			if err := unmarshalJSON(pair.src, pair.dst); err != nil {
				return nil, fmt.Errorf("decoding lineage field: %w", err)
			}
		}
		lineages = append(lineages, l)
	}
	return lineages, rows.Err()
}

// LogRun appends a run summary to the ingest log.
func (s *Store) LogRun(ctx context.Context, r RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_log (run_id, state, sources_processed,
			concepts_created, error_count, average_quality, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.State, r.SourcesProcessed, r.ConceptsCreated, r.ErrorCount,
		r.AverageQuality, r.DurationMS)
	if err != nil {
		return fmt.Errorf("logging run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent run summaries, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, state, sources_processed, concepts_created,
			error_count, average_quality, duration_ms
		FROM ingest_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.State, &r.SourcesProcessed,
			&r.ConceptsCreated, &r.ErrorCount, &r.AverageQuality,
			&r.DurationMS); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Counts returns row counts per graph table, used for idempotence checks and
// the status command.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"sources", "concepts", "interpretations",
		"relationships", "syntheses", "lineage"} {
		var n int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
