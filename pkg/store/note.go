package store

import (
	"context"
	"database/sql"
	"errors"

	apperrors "mkcrawler/pkg/errors"
	"mkcrawler/pkg/models"
)

// UpsertNotes inserts or updates each note, keyed by note_id, and returns
// one outcome per input record in input order.
func (s *Store) UpsertNotes(ctx context.Context, records []models.Note) ([]Outcome, error) {
	const op = "upsert notes"
	if len(records) == 0 {
		return nil, &apperrors.StoreError{Op: op, Err: errEmptyBatch}
	}

	tx, err := s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	outcomes := make([]Outcome, 0, len(records))
	for _, n := range records {
		var rowID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM notes WHERE note_id = ?`, n.NoteID,
		).Scan(&rowID)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx,
				`INSERT INTO notes (note_id, user_id, url, text, created_at, registered_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				n.NoteID, n.UserID, n.URL, n.Text, n.CreatedAt, n.RegisteredAt,
			)
			if err != nil {
				return nil, &apperrors.StoreError{Op: op, Err: err}
			}
			outcomes = append(outcomes, Inserted)
		case err != nil:
			return nil, &apperrors.StoreError{Op: op, Err: err}
		default:
			_, err = tx.ExecContext(ctx,
				`UPDATE notes SET user_id = ?, url = ?, text = ?, created_at = ?, registered_at = ?
				 WHERE id = ?`,
				n.UserID, n.URL, n.Text, n.CreatedAt, n.RegisteredAt, rowID,
			)
			if err != nil {
				return nil, &apperrors.StoreError{Op: op, Err: err}
			}
			outcomes = append(outcomes, Updated)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &apperrors.StoreError{Op: op, Err: err}
	}
	return outcomes, nil
}

// UpsertNoteMaps converts raw field mappings to notes and upserts them
func (s *Store) UpsertNoteMaps(ctx context.Context, records []map[string]any) ([]Outcome, error) {
	converted := make([]models.Note, 0, len(records))
	for _, m := range records {
		n, err := models.NoteFromMap(m)
		if err != nil {
			return nil, &apperrors.StoreError{Op: "upsert notes", Err: err}
		}
		converted = append(converted, n)
	}
	return s.UpsertNotes(ctx, converted)
}

// Notes returns all stored notes in insertion order
func (s *Store) Notes(ctx context.Context) ([]models.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT note_id, user_id, url, text, created_at, registered_at FROM notes ORDER BY id`,
	)
	if err != nil {
		return nil, &apperrors.StoreError{Op: "select notes", Err: err}
	}
	defer rows.Close()

	var result []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.NoteID, &n.UserID, &n.URL, &n.Text, &n.CreatedAt, &n.RegisteredAt); err != nil {
			return nil, &apperrors.StoreError{Op: "select notes", Err: err}
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.StoreError{Op: "select notes", Err: err}
	}
	return result, nil
}
