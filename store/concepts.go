package store

import (
	"context"
	"database/sql"
	"fmt"
)

// UpsertConcept inserts or merges a concept keyed by
// (canonical_name, concept_type). The stable ID is preserved on merge; only
// mutable fields (keywords, scores, category path, attributes) are
// overwritten. The whole operation runs in one transaction so a concept is
// either fully written or not at all. Returns the ID and whether a new row
// was created.
func (s *Store) UpsertConcept(ctx context.Context, c Concept) (int64, bool, error) {
	altNames, err := marshalJSON(c.AlternativeNames)
	if err != nil {
		return 0, false, fmt.Errorf("encoding alternative names: %w", err)
	}
	props, err := marshalJSON(c.Properties)
	if err != nil {
		return 0, false, fmt.Errorf("encoding properties: %w", err)
	}
	keywords, err := marshalJSON(c.Keywords)
	if err != nil {
		return 0, false, fmt.Errorf("encoding keywords: %w", err)
	}
	astrology, err := marshalJSON(c.Astrology)
	if err != nil {
		return 0, false, fmt.Errorf("encoding astrology: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM concepts WHERE canonical_name = ? AND concept_type = ?",
		c.CanonicalName, c.ConceptType).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx, `
			INSERT INTO concepts (name, canonical_name, concept_type,
				alternative_names, category_path, properties, keywords,
				ordinal_value, element, astrology, completeness_score, verification)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.Name, c.CanonicalName, c.ConceptType, altNames, c.CategoryPath,
			props, keywords, c.OrdinalValue, nullString(c.Element), astrology,
			c.CompletenessScore, c.Verification)
		if err != nil {
			return 0, false, fmt.Errorf("inserting concept %q: %w", c.CanonicalName, err)
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
		return 0, false, fmt.Errorf("looking up concept %q: %w", c.CanonicalName, err)

	default:
		_, err := tx.ExecContext(ctx, `
			UPDATE concepts SET
				name = ?,
				alternative_names = ?,
				category_path = ?,
				properties = ?,
				keywords = ?,
				ordinal_value = ?,
				element = ?,
				astrology = ?,
				completeness_score = ?,
				verification = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, c.Name, altNames, c.CategoryPath, props, keywords, c.OrdinalValue,
			nullString(c.Element), astrology, c.CompletenessScore, c.Verification, id)
		if err != nil {
			return 0, false, fmt.Errorf("updating concept %q: %w", c.CanonicalName, err)
		}
		if err := tx.Commit(); err != nil {
			return 0, false, err
		}
		return id, false, nil
	}
}

// GetConceptByCanonicalName retrieves a concept by its dedup key.
func (s *Store) GetConceptByCanonicalName(ctx context.Context, canonical, conceptType string) (*Concept, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, canonical_name, concept_type, alternative_names,
			category_path, properties, keywords, ordinal_value, element,
			astrology, completeness_score, verification
		FROM concepts WHERE canonical_name = ? AND concept_type = ?
	`, canonical, conceptType)
	return scanConcept(row)
}

// ConceptExists reports whether a concept row exists for the dedup key.
func (s *Store) ConceptExists(ctx context.Context, canonical, conceptType string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM concepts WHERE canonical_name = ? AND concept_type = ?",
		canonical, conceptType).Scan(&n)
	return n > 0, err
}

// ListConcepts returns all concepts ordered by canonical name.
func (s *Store) ListConcepts(ctx context.Context) ([]Concept, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, canonical_name, concept_type, alternative_names,
			category_path, properties, keywords, ordinal_value, element,
			astrology, completeness_score, verification
		FROM concepts ORDER BY canonical_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concepts []Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, *c)
	}
	return concepts, rows.Err()
}

// rowScanner lets scanConcept work for both QueryRow and Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConcept(row rowScanner) (*Concept, error) {
	c := &Concept{}
	var altNames, props, keywords, astrology sql.NullString
	var categoryPath, element, verification sql.NullString
	var ordinal sql.NullInt64

	err := row.Scan(&c.ID, &c.Name, &c.CanonicalName, &c.ConceptType,
		&altNames, &categoryPath, &props, &keywords, &ordinal, &element,
		&astrology, &c.CompletenessScore, &verification)
	if err != nil {
		return nil, err
	}

	c.CategoryPath = categoryPath.String
	c.Element = element.String
	c.Verification = verification.String
	if ordinal.Valid {
		v := int(ordinal.Int64)
		c.OrdinalValue = &v
	}
	if err := unmarshalJSON(altNames, &c.AlternativeNames); err != nil {
		return nil, fmt.Errorf("decoding alternative names: %w", err)
	}
	if err := unmarshalJSON(props, &c.Properties); err != nil {
		return nil, fmt.Errorf("decoding properties: %w", err)
	}
	if err := unmarshalJSON(keywords, &c.Keywords); err != nil {
		return nil, fmt.Errorf("decoding keywords: %w", err)
	}
	if err := unmarshalJSON(astrology, &c.Astrology); err != nil {
		return nil, fmt.Errorf("decoding astrology: %w", err)
	}
	return c, nil
}

// UpsertInterpretation writes a per-source, per-context meaning keyed by
// (concept_id, source_id, context). Re-ingestion overwrites, never
// duplicates. Returns the ID and whether a new row was created.
func (s *Store) UpsertInterpretation(ctx context.Context, in Interpretation) (int64, bool, error) {
	tags, err := marshalJSON(in.SemanticTags)
	if err != nil {
		return 0, false, fmt.Errorf("encoding semantic tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM interpretations
		WHERE concept_id = ? AND source_id = ? AND context = ?
	`, in.ConceptID, in.SourceID, in.Context).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx, `
			INSERT INTO interpretations (concept_id, source_id, context,
				primary_meaning, depth_score, originality_score, clarity_score,
				semantic_tags)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, in.ConceptID, in.SourceID, in.Context, in.PrimaryMeaning,
			in.DepthScore, in.OriginalityScore, in.ClarityScore, tags)
		if err != nil {
			return 0, false, fmt.Errorf("inserting interpretation: %w", err)
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
		return 0, false, fmt.Errorf("looking up interpretation: %w", err)

	default:
		_, err := tx.ExecContext(ctx, `
			UPDATE interpretations SET
				primary_meaning = ?,
				depth_score = ?,
				originality_score = ?,
				clarity_score = ?,
				semantic_tags = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, in.PrimaryMeaning, in.DepthScore, in.OriginalityScore,
			in.ClarityScore, tags, id)
		if err != nil {
			return 0, false, fmt.Errorf("updating interpretation: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, false, err
		}
		return id, false, nil
	}
}

// ListInterpretations returns all interpretations, ordered for deterministic
// downstream grouping.
func (s *Store) ListInterpretations(ctx context.Context) ([]Interpretation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, concept_id, source_id, context, primary_meaning,
			depth_score, originality_score, clarity_score, semantic_tags
		FROM interpretations ORDER BY concept_id, context, source_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interps []Interpretation
	for rows.Next() {
		var in Interpretation
		var tags sql.NullString
		if err := rows.Scan(&in.ID, &in.ConceptID, &in.SourceID, &in.Context,
			&in.PrimaryMeaning, &in.DepthScore, &in.OriginalityScore,
			&in.ClarityScore, &tags); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(tags, &in.SemanticTags); err != nil {
			return nil, fmt.Errorf("decoding semantic tags: %w", err)
		}
		interps = append(interps, in)
	}
	return interps, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
