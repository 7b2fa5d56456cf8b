package store

import (
	"context"
	"database/sql"
	"errors"

	apperrors "mkcrawler/pkg/errors"
	"mkcrawler/pkg/models"
)

// UpsertMedia inserts or updates each media record, keyed by media_id, and
// returns one outcome per input record in input order.
func (s *Store) UpsertMedia(ctx context.Context, records []models.Media) ([]Outcome, error) {
	const op = "upsert media"
	if len(records) == 0 {
		return nil, &apperrors.StoreError{Op: op, Err: errEmptyBatch}
	}

	tx, err := s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	outcomes := make([]Outcome, 0, len(records))
	for _, m := range records {
		var rowID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM media WHERE media_id = ?`, m.MediaID,
		).Scan(&rowID)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx,
				`INSERT INTO media (note_id, media_id, name, type, md5, size, url, created_at, registered_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				m.NoteID, m.MediaID, m.Name, m.Type, m.MD5, m.Size, m.URL, m.CreatedAt, m.RegisteredAt,
			)
			if err != nil {
				return nil, &apperrors.StoreError{Op: op, Err: err}
			}
			outcomes = append(outcomes, Inserted)
		case err != nil:
			return nil, &apperrors.StoreError{Op: op, Err: err}
		default:
			_, err = tx.ExecContext(ctx,
				`UPDATE media SET note_id = ?, name = ?, type = ?, md5 = ?, size = ?, url = ?, created_at = ?, registered_at = ?
				 WHERE id = ?`,
				m.NoteID, m.Name, m.Type, m.MD5, m.Size, m.URL, m.CreatedAt, m.RegisteredAt, rowID,
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

// UpsertMediaMaps converts raw field mappings to media records and upserts them
func (s *Store) UpsertMediaMaps(ctx context.Context, records []map[string]any) ([]Outcome, error) {
	converted := make([]models.Media, 0, len(records))
	for _, m := range records {
		md, err := models.MediaFromMap(m)
		if err != nil {
			return nil, &apperrors.StoreError{Op: "upsert media", Err: err}
		}
		converted = append(converted, md)
	}
	return s.UpsertMedia(ctx, converted)
}

// Media returns all stored media records in insertion order
func (s *Store) Media(ctx context.Context) ([]models.Media, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT note_id, media_id, name, type, md5, size, url, created_at, registered_at FROM media ORDER BY id`,
	)
	if err != nil {
		return nil, &apperrors.StoreError{Op: "select media", Err: err}
	}
	defer rows.Close()

	var result []models.Media
	for rows.Next() {
		var m models.Media
		if err := rows.Scan(&m.NoteID, &m.MediaID, &m.Name, &m.Type, &m.MD5, &m.Size, &m.URL, &m.CreatedAt, &m.RegisteredAt); err != nil {
			return nil, &apperrors.StoreError{Op: "select media", Err: err}
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.StoreError{Op: "select media", Err: err}
	}
	return result, nil
}
