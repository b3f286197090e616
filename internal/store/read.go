package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Record is one stored fixture.
type Record struct {
	// Seq is the logical insertion order.
	Seq int64 `json:"seq"`

	ID       string `json:"id"`
	Template string `json:"template"`

	// Payload is the fixture's canonical JSON.
	Payload string `json:"payload"`

	// Digest is the SHA-256 of the payload, domain-separated by template.
	Digest string `json:"digest"`
}

// ListFixtures returns the records of template, or of every template when
// template is empty, ordered by seq then id.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListFixtures(ctx context.Context, template string) ([]Record, error) {
	query := `
		SELECT seq, id, template, payload, digest
		FROM fixtures
		WHERE ? = '' OR template = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`
	rows, err := s.db.QueryContext(ctx, query, template, template)
	if err != nil {
		return nil, fmt.Errorf("query fixtures: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Seq, &r.ID, &r.Template, &r.Payload, &r.Digest); err != nil {
			return nil, fmt.Errorf("scan fixture: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fixtures: %w", err)
	}
	return records, nil
}

// CountFixtures returns the number of records of template, or of every
// template when template is empty.
func (s *Store) CountFixtures(ctx context.Context, template string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fixtures WHERE ? = '' OR template = ?`,
		template, template).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count fixtures: %w", err)
	}
	return n, nil
}

// GetFixture returns the record with id, or ErrNotFound.
func (s *Store) GetFixture(ctx context.Context, id string) (Record, error) {
	var r Record
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, id, template, payload, digest
		FROM fixtures
		WHERE id = ?
	`, id).Scan(&r.Seq, &r.ID, &r.Template, &r.Payload, &r.Digest)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("get fixture %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get fixture %q: %w", id, err)
	}
	return r, nil
}
