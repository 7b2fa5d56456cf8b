package store

import (
	"context"
	"database/sql"
	"errors"

	apperrors "mkcrawler/pkg/errors"
	"mkcrawler/pkg/models"
)

// UpsertUsers inserts or updates each user, keyed by user_id, and returns
// one outcome per input record in input order.
func (s *Store) UpsertUsers(ctx context.Context, records []models.User) ([]Outcome, error) {
	const op = "upsert users"
	if len(records) == 0 {
		return nil, &apperrors.StoreError{Op: op, Err: errEmptyBatch}
	}

	tx, err := s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	outcomes := make([]Outcome, 0, len(records))
	for _, u := range records {
		var rowID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM users WHERE user_id = ?`, u.UserID,
		).Scan(&rowID)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx,
				`INSERT INTO users (user_id, name, username, avatar_url, is_bot, is_cat, registered_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				u.UserID, u.Name, u.Username, u.AvatarURL, u.IsBot, u.IsCat, u.RegisteredAt,
			)
			if err != nil {
				return nil, &apperrors.StoreError{Op: op, Err: err}
			}
			outcomes = append(outcomes, Inserted)
		case err != nil:
			return nil, &apperrors.StoreError{Op: op, Err: err}
		default:
			_, err = tx.ExecContext(ctx,
				`UPDATE users SET name = ?, username = ?, avatar_url = ?, is_bot = ?, is_cat = ?, registered_at = ?
				 WHERE id = ?`,
				u.Name, u.Username, u.AvatarURL, u.IsBot, u.IsCat, u.RegisteredAt, rowID,
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

// UpsertUserMaps converts raw field mappings to users and upserts them
func (s *Store) UpsertUserMaps(ctx context.Context, records []map[string]any) ([]Outcome, error) {
	converted := make([]models.User, 0, len(records))
	for _, m := range records {
		u, err := models.UserFromMap(m)
		if err != nil {
			return nil, &apperrors.StoreError{Op: "upsert users", Err: err}
		}
		converted = append(converted, u)
	}
	return s.UpsertUsers(ctx, converted)
}

// Users returns all stored users in insertion order
func (s *Store) Users(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, name, username, avatar_url, is_bot, is_cat, registered_at FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, &apperrors.StoreError{Op: "select users", Err: err}
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.UserID, &u.Name, &u.Username, &u.AvatarURL, &u.IsBot, &u.IsCat, &u.RegisteredAt); err != nil {
			return nil, &apperrors.StoreError{Op: "select users", Err: err}
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.StoreError{Op: "select users", Err: err}
	}
	return result, nil
}
