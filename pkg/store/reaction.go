package store

import (
	"context"
	"database/sql"
	"errors"

	apperrors "mkcrawler/pkg/errors"
	"mkcrawler/pkg/models"
)

// UpsertReactions inserts or updates each reaction, keyed by
// (note_id, reaction_id), and returns one outcome per input record in input
// order. An empty batch is a caller error.
func (s *Store) UpsertReactions(ctx context.Context, records []models.Reaction) ([]Outcome, error) {
	const op = "upsert reactions"
	if len(records) == 0 {
		return nil, &apperrors.StoreError{Op: op, Err: errEmptyBatch}
	}

	tx, err := s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	outcomes := make([]Outcome, 0, len(records))
	for _, r := range records {
		var rowID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM reactions WHERE note_id = ? AND reaction_id = ?`,
			r.NoteID, r.ReactionID,
		).Scan(&rowID)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx,
				`INSERT INTO reactions (note_id, reaction_id, type, created_at, registered_at)
				 VALUES (?, ?, ?, ?, ?)`,
				r.NoteID, r.ReactionID, r.Type, r.CreatedAt, r.RegisteredAt,
			)
			if err != nil {
				return nil, &apperrors.StoreError{Op: op, Err: err}
			}
			outcomes = append(outcomes, Inserted)
		case err != nil:
			return nil, &apperrors.StoreError{Op: op, Err: err}
		default:
			_, err = tx.ExecContext(ctx,
				`UPDATE reactions SET type = ?, created_at = ?, registered_at = ? WHERE id = ?`,
				r.Type, r.CreatedAt, r.RegisteredAt, rowID,
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

// UpsertReactionMaps converts raw field mappings to reactions and upserts
// them. A mapping missing a field fails the whole batch before any write.
func (s *Store) UpsertReactionMaps(ctx context.Context, records []map[string]any) ([]Outcome, error) {
	converted := make([]models.Reaction, 0, len(records))
	for _, m := range records {
		r, err := models.ReactionFromMap(m)
		if err != nil {
			return nil, &apperrors.StoreError{Op: "upsert reactions", Err: err}
		}
		converted = append(converted, r)
	}
	return s.UpsertReactions(ctx, converted)
}

// LatestReaction returns the reaction with the highest reaction identity,
// used to seed the fetch watermark. An empty table returns nil.
func (s *Store) LatestReaction(ctx context.Context) (*models.Reaction, error) {
	var r models.Reaction
	err := s.db.QueryRowContext(ctx,
		`SELECT note_id, reaction_id, type, created_at, registered_at
		 FROM reactions ORDER BY reaction_id DESC LIMIT 1`,
	).Scan(&r.NoteID, &r.ReactionID, &r.Type, &r.CreatedAt, &r.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &apperrors.StoreError{Op: "select latest reaction", Err: err}
	}
	return &r, nil
}

// Reactions returns all stored reactions in insertion order
func (s *Store) Reactions(ctx context.Context) ([]models.Reaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT note_id, reaction_id, type, created_at, registered_at FROM reactions ORDER BY id`,
	)
	if err != nil {
		return nil, &apperrors.StoreError{Op: "select reactions", Err: err}
	}
	defer rows.Close()

	var result []models.Reaction
	for rows.Next() {
		var r models.Reaction
		if err := rows.Scan(&r.NoteID, &r.ReactionID, &r.Type, &r.CreatedAt, &r.RegisteredAt); err != nil {
			return nil, &apperrors.StoreError{Op: "select reactions", Err: err}
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.StoreError{Op: "select reactions", Err: err}
	}
	return result, nil
}
