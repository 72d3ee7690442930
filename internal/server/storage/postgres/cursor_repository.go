package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"pinvault/internal/domain/record"
)

// CursorRepository keeps one sync cursor per user. A user with no
// cursor yet reads back as the zero cursor, matching the client's
// first-sync expectation.
type CursorRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewCursorRepository(pool *pgxpool.Pool, log *slog.Logger) *CursorRepository {
	return &CursorRepository{
		pool: pool,
		log:  log.With("component", "cursor_repository"),
	}
}

func (r *CursorRepository) Get(ctx context.Context, userID int64) (record.SyncCursor, error) {
	const query = `
		SELECT last_sync_time, device_id
		FROM sync_cursors
		WHERE user_id = $1`

	var cursor record.SyncCursor
	err := r.pool.QueryRow(ctx, query, userID).Scan(&cursor.LastSyncTime, &cursor.DeviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record.SyncCursor{}, nil
		}
		r.log.Error("failed to get cursor", "user_id", userID, "error", err)
		return record.SyncCursor{}, fmt.Errorf("get cursor: %w", err)
	}
	return cursor, nil
}

func (r *CursorRepository) Put(ctx context.Context, userID int64, cursor record.SyncCursor) error {
	const query = `
		INSERT INTO sync_cursors (user_id, last_sync_time, device_id, server_time)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE SET
			last_sync_time = EXCLUDED.last_sync_time,
			device_id = EXCLUDED.device_id,
			server_time = now()`

	_, err := r.pool.Exec(ctx, query, userID, cursor.LastSyncTime, cursor.DeviceID)
	if err != nil {
		r.log.Error("failed to put cursor", "user_id", userID, "error", err)
		return fmt.Errorf("put cursor: %w", err)
	}
	return nil
}
