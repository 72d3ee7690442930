package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"pinvault/internal/domain/record"
)

// RecordRepository stores one encrypted document per (user, record id).
// PUT is a merge upsert: the row always reflects the caller's latest
// state, tombstones included. server_time is bookkeeping only and never
// participates in conflict resolution.
type RecordRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewRecordRepository(pool *pgxpool.Pool, log *slog.Logger) *RecordRepository {
	return &RecordRepository{
		pool: pool,
		log:  log.With("component", "record_repository"),
	}
}

func (r *RecordRepository) List(ctx context.Context, userID int64) ([]record.CloudRecord, error) {
	const query = `
		SELECT record_id, type, is_private, tags, ciphertext, iv, plaintext,
		       created_at, updated_at, cloud_updated_at, device_id, deleted
		FROM cloud_records
		WHERE user_id = $1
		ORDER BY record_id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("failed to list records", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []record.CloudRecord
	for rows.Next() {
		rec, err := scanCloudRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func (r *RecordRepository) Get(ctx context.Context, userID, recordID int64) (*record.CloudRecord, error) {
	const query = `
		SELECT record_id, type, is_private, tags, ciphertext, iv, plaintext,
		       created_at, updated_at, cloud_updated_at, device_id, deleted
		FROM cloud_records
		WHERE user_id = $1 AND record_id = $2`

	rec, err := scanCloudRecord(r.pool.QueryRow(ctx, query, userID, recordID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.ErrNotFound
		}
		r.log.Error("failed to get record",
			"record_id", recordID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &rec, nil
}

func (r *RecordRepository) Put(ctx context.Context, userID int64, rec record.CloudRecord) error {
	const query = `
		INSERT INTO cloud_records (
			user_id, record_id, type, is_private, tags, ciphertext, iv,
			plaintext, created_at, updated_at, cloud_updated_at, device_id,
			deleted, server_time
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
		ON CONFLICT (user_id, record_id) DO UPDATE SET
			type = EXCLUDED.type,
			is_private = EXCLUDED.is_private,
			tags = EXCLUDED.tags,
			ciphertext = EXCLUDED.ciphertext,
			iv = EXCLUDED.iv,
			plaintext = EXCLUDED.plaintext,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			cloud_updated_at = EXCLUDED.cloud_updated_at,
			device_id = EXCLUDED.device_id,
			deleted = EXCLUDED.deleted,
			server_time = now()`

	_, err := r.pool.Exec(ctx, query,
		userID, rec.ID, rec.Type, rec.IsPrivate, rec.Tags,
		rec.Ciphertext, rec.IV, nullableJSON(rec.Plaintext),
		rec.CreatedAt, rec.UpdatedAt, rec.CloudUpdatedAt, rec.DeviceID,
		rec.Deleted,
	)
	if err != nil {
		r.log.Error("failed to put record",
			"record_id", rec.ID, "user_id", userID, "error", err)
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Delete removes a row for good. Only the tombstone cleanup path calls
// this; regular deletion goes through Put with deleted = true.
func (r *RecordRepository) Delete(ctx context.Context, userID, recordID int64) error {
	const query = `DELETE FROM cloud_records WHERE user_id = $1 AND record_id = $2`

	tag, err := r.pool.Exec(ctx, query, userID, recordID)
	if err != nil {
		r.log.Error("failed to delete record",
			"record_id", recordID, "user_id", userID, "error", err)
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return record.ErrNotFound
	}
	return nil
}

func (r *RecordRepository) Changes(ctx context.Context, userID int64, since time.Time) ([]record.ChangeEvent, error) {
	const query = `
		SELECT record_id, device_id, cloud_updated_at, deleted
		FROM cloud_records
		WHERE user_id = $1 AND cloud_updated_at > $2
		ORDER BY cloud_updated_at`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		r.log.Error("failed to list changes", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var changes []record.ChangeEvent
	for rows.Next() {
		var c record.ChangeEvent
		if err := rows.Scan(&c.RecordID, &c.DeviceID, &c.CloudUpdatedAt, &c.Deleted); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	return changes, nil
}

func scanCloudRecord(row pgx.Row) (record.CloudRecord, error) {
	var rec record.CloudRecord
	var plaintext []byte
	err := row.Scan(
		&rec.ID, &rec.Type, &rec.IsPrivate, &rec.Tags,
		&rec.Ciphertext, &rec.IV, &plaintext,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.CloudUpdatedAt,
		&rec.DeviceID, &rec.Deleted,
	)
	if err != nil {
		return record.CloudRecord{}, err
	}
	rec.Plaintext = plaintext
	return rec, nil
}

// nullableJSON keeps empty plaintext as SQL NULL instead of an invalid
// empty jsonb value.
func nullableJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return data
}
