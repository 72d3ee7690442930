// Package store is the client-side persistence layer: one SQLite file
// holding the encrypted records, the VaultMeta singleton and the local
// sync cursor.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pinvault/internal/domain/record"
	"pinvault/internal/vault/authgate"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrStorage, err)
	}

	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to init tables: %v", ErrStorage, err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY,
			type TEXT NOT NULL,
			is_private BOOLEAN NOT NULL DEFAULT 1,
			tags TEXT NOT NULL DEFAULT '[]',
			ciphertext BLOB,
			iv BLOB,
			plaintext TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_records_type ON records(type);
		CREATE INDEX IF NOT EXISTS idx_records_updated ON records(updated_at);

		CREATE TABLE IF NOT EXISTS vault_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			encrypted_master_key BLOB NOT NULL,
			master_iv BLOB NOT NULL,
			kdf_salt BLOB NOT NULL,
			kdf_iterations INTEGER NOT NULL,
			failed_attempts BLOB NOT NULL,
			lock_until TEXT,
			auto_lock_seconds INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sync_cursor (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_sync_time TEXT NOT NULL,
			device_id TEXT NOT NULL
		);
	`)
	return err
}

// SaveRecord upserts a record row.
func (s *Store) SaveRecord(ctx context.Context, rec *record.Record) error {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("%w: failed to serialize tags: %v", ErrStorage, err)
	}

	var plaintext sql.NullString
	if len(rec.Plaintext) > 0 {
		plaintext = sql.NullString{String: string(rec.Plaintext), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, type, is_private, tags, ciphertext, iv, plaintext, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			is_private = excluded.is_private,
			tags = excluded.tags,
			ciphertext = excluded.ciphertext,
			iv = excluded.iv,
			plaintext = excluded.plaintext,
			updated_at = excluded.updated_at
	`, rec.ID, rec.Type, rec.IsPrivate, string(tags), rec.Ciphertext, rec.IV, plaintext,
		rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: failed to save record: %v", ErrStorage, err)
	}
	return nil
}

// GetRecord returns one record or record.ErrNotFound.
func (s *Store) GetRecord(ctx context.Context, id int64) (*record.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, is_private, tags, ciphertext, iv, plaintext, created_at, updated_at
		FROM records WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get record: %v", ErrStorage, err)
	}
	return rec, nil
}

// ListRecords returns all local records ordered by last update.
func (s *Store) ListRecords(ctx context.Context) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, is_private, tags, ciphertext, iv, plaintext, created_at, updated_at
		FROM records ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list records: %v", ErrStorage, err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan record: %v", ErrStorage, err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate records: %v", ErrStorage, err)
	}
	return out, nil
}

// DeleteRecord removes the local row immediately. Tombstoning the
// remote copy is the sync engine's job.
func (s *Store) DeleteRecord(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete record: %v", ErrStorage, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return record.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*record.Record, error) {
	var rec record.Record
	var tagsJSON string
	var plaintext sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&rec.ID, &rec.Type, &rec.IsPrivate, &tagsJSON,
		&rec.Ciphertext, &rec.IV, &plaintext, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
		return nil, fmt.Errorf("failed to parse tags: %w", err)
	}
	if plaintext.Valid {
		rec.Plaintext = json.RawMessage(plaintext.String)
	}

	var err error
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &rec, nil
}

// LoadMeta implements authgate.MetaStore. Returns (nil, nil) before
// setup.
func (s *Store) LoadMeta(ctx context.Context) (*authgate.VaultMeta, error) {
	var meta authgate.VaultMeta
	var lockUntil sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT encrypted_master_key, master_iv, kdf_salt, kdf_iterations,
		       failed_attempts, lock_until, auto_lock_seconds
		FROM vault_meta WHERE id = 1
	`).Scan(&meta.EncryptedMasterKey, &meta.MasterIV, &meta.KDFSalt, &meta.KDFIterations,
		&meta.FailedAttempts, &lockUntil, &meta.AutoLockSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load vault meta: %v", ErrStorage, err)
	}

	if lockUntil.Valid {
		t, err := time.Parse(time.RFC3339Nano, lockUntil.String)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse lock_until: %v", ErrStorage, err)
		}
		meta.LockUntil = &t
	}
	return &meta, nil
}

// SaveMeta implements authgate.MetaStore.
func (s *Store) SaveMeta(ctx context.Context, meta *authgate.VaultMeta) error {
	var lockUntil sql.NullString
	if meta.LockUntil != nil {
		lockUntil = sql.NullString{String: meta.LockUntil.Format(time.RFC3339Nano), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vault_meta (id, encrypted_master_key, master_iv, kdf_salt, kdf_iterations,
		                        failed_attempts, lock_until, auto_lock_seconds)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			encrypted_master_key = excluded.encrypted_master_key,
			master_iv = excluded.master_iv,
			kdf_salt = excluded.kdf_salt,
			kdf_iterations = excluded.kdf_iterations,
			failed_attempts = excluded.failed_attempts,
			lock_until = excluded.lock_until,
			auto_lock_seconds = excluded.auto_lock_seconds
	`, meta.EncryptedMasterKey, meta.MasterIV, meta.KDFSalt, meta.KDFIterations,
		meta.FailedAttempts, lockUntil, meta.AutoLockSeconds)
	if err != nil {
		return fmt.Errorf("%w: failed to save vault meta: %v", ErrStorage, err)
	}
	return nil
}

// LoadCursor returns the local sync cursor, zero-valued before the
// first sync.
func (s *Store) LoadCursor(ctx context.Context) (record.SyncCursor, error) {
	var cursor record.SyncCursor
	var lastSync string

	err := s.db.QueryRowContext(ctx, `
		SELECT last_sync_time, device_id FROM sync_cursor WHERE id = 1
	`).Scan(&lastSync, &cursor.DeviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return record.SyncCursor{}, nil
	}
	if err != nil {
		return record.SyncCursor{}, fmt.Errorf("%w: failed to load sync cursor: %v", ErrStorage, err)
	}

	cursor.LastSyncTime, err = time.Parse(time.RFC3339Nano, lastSync)
	if err != nil {
		return record.SyncCursor{}, fmt.Errorf("%w: failed to parse last_sync_time: %v", ErrStorage, err)
	}
	return cursor, nil
}

// SaveCursor persists the local sync cursor.
func (s *Store) SaveCursor(ctx context.Context, cursor record.SyncCursor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_cursor (id, last_sync_time, device_id)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_sync_time = excluded.last_sync_time,
			device_id = excluded.device_id
	`, cursor.LastSyncTime.Format(time.RFC3339Nano), cursor.DeviceID)
	if err != nil {
		return fmt.Errorf("%w: failed to save sync cursor: %v", ErrStorage, err)
	}
	return nil
}
