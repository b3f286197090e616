package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/datapreparer/internal/fixture"
)

// ErrNotFound is returned when a fixture record does not exist.
var ErrNotFound = errors.New("fixture record not found")

// InsertFixtures stores values under template in one transaction and returns
// the written records in input order. A duplicate id fails the whole insert.
func (s *Store) InsertFixtures(ctx context.Context, template string, values []fixture.Fixture) ([]Record, error) {
	records := make([]Record, 0, len(values))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, v := range values {
			payload, digest, err := marshalPayload(template, v)
			if err != nil {
				return fmt.Errorf("insert fixture %q: %w", v.FixtureID(), err)
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO fixtures (id, template, payload, digest)
				VALUES (?, ?, ?, ?)
			`, v.FixtureID(), template, payload, digest)
			if err != nil {
				return fmt.Errorf("insert fixture %q: %w", v.FixtureID(), err)
			}
			seq, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("insert fixture %q: %w", v.FixtureID(), err)
			}
			records = append(records, Record{
				Seq:      seq,
				ID:       v.FixtureID(),
				Template: template,
				Payload:  payload,
				Digest:   digest,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteFixtures removes the records with the given ids under template in one
// transaction. An id that is missing, or stored under another template, fails
// the whole delete with ErrNotFound.
func (s *Store) DeleteFixtures(ctx context.Context, template string, ids []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM fixtures WHERE id = ? AND template = ?`, id, template)
			if err != nil {
				return fmt.Errorf("delete fixture %q: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("delete fixture %q: %w", id, err)
			}
			if n == 0 {
				return fmt.Errorf("delete fixture %q of template %q: %w", id, template, ErrNotFound)
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
