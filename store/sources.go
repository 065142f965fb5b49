package store

import (
	"context"
	"database/sql"
	"fmt"
)

// UpsertSource inserts or updates a source by name. Returns the source ID.
func (s *Store) UpsertSource(ctx context.Context, src Source) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (name, kind, url, authority_level, reliability_score,
			consistency_score, access_method, usage_rights, verification)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			kind = excluded.kind,
			url = excluded.url,
			authority_level = excluded.authority_level,
			reliability_score = excluded.reliability_score,
			consistency_score = excluded.consistency_score,
			access_method = excluded.access_method,
			usage_rights = excluded.usage_rights,
			verification = excluded.verification
	`, src.Name, src.Kind, src.URL, src.AuthorityLevel, src.ReliabilityScore,
		src.ConsistencyScore, src.AccessMethod, src.UsageRights, src.Verification)
	if err != nil {
		return 0, fmt.Errorf("upserting source %q: %w", src.Name, err)
	}

	// LastInsertId reports the connection's last INSERT, which is stale when
	// the UPSERT took the UPDATE branch. The unique name resolves the real row.
	var id int64
	row := s.db.QueryRowContext(ctx, "SELECT id FROM sources WHERE name = ?", src.Name)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("resolving source %q id: %w", src.Name, err)
	}
	return id, nil
}

// GetSourceByName retrieves a source by its unique name.
func (s *Store) GetSourceByName(ctx context.Context, name string) (*Source, error) {
	src := &Source{}
	var url sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, url, authority_level, reliability_score,
			consistency_score, access_method, usage_rights, verification
		FROM sources WHERE name = ?
	`, name).Scan(&src.ID, &src.Name, &src.Kind, &url, &src.AuthorityLevel,
		&src.ReliabilityScore, &src.ConsistencyScore, &src.AccessMethod,
		&src.UsageRights, &src.Verification)
	if err != nil {
		return nil, err
	}
	src.URL = url.String
	return src, nil
}

// ListSources returns all sources ordered by authority level, highest first.
func (s *Store) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, url, authority_level, reliability_score,
			consistency_score, access_method, usage_rights, verification
		FROM sources ORDER BY authority_level DESC, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		var url sql.NullString
		if err := rows.Scan(&src.ID, &src.Name, &src.Kind, &url,
			&src.AuthorityLevel, &src.ReliabilityScore, &src.ConsistencyScore,
			&src.AccessMethod, &src.UsageRights, &src.Verification); err != nil {
			return nil, err
		}
		src.URL = url.String
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
