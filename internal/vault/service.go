// Package vault is the application service in front of the local
// store: every record mutation passes through the encryption layer
// here and becomes visible to the sync engine.
package vault

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"pinvault/internal/domain/record"
	"pinvault/internal/sync"
	"pinvault/internal/vault/authgate"
	"pinvault/internal/vault/cipher"
	"pinvault/internal/vault/store"
)

// ExportVersion tags the export snapshot format.
const ExportVersion = 1

// Service owns the mutation path. Writes hit local storage
// synchronously; the cloud sync that follows is best-effort and its
// failure never rolls back the local mutation.
type Service struct {
	store  *store.Store
	gate   *authgate.Gate
	engine *sync.Engine
	log    *slog.Logger
	clock  func() time.Time
	wg     gosync.WaitGroup
}

// Option adjusts service construction.
type Option func(*Service)

// WithClock injects a clock for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func New(st *store.Store, gate *authgate.Gate, engine *sync.Engine, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  st,
		gate:   gate,
		engine: engine,
		log:    log.With("component", "vault"),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordInput carries everything the caller decides about a record.
type RecordInput struct {
	Type      record.RecType
	IsPrivate bool
	Tags      []string
	Payload   record.Payload
}

// CreateRecord encrypts (iff private) and stores a new record, then
// triggers a background sync. The returned record is the stored form.
func (s *Service) CreateRecord(ctx context.Context, input RecordInput) (*record.Record, error) {
	if input.Type != input.Payload.RecordType() {
		return nil, fmt.Errorf("%w: payload type %s does not match %s",
			record.ErrInvalidData, input.Payload.RecordType(), input.Type)
	}

	now := s.clock().UTC()
	rec := &record.Record{
		ID:        s.newRecordID(ctx, now),
		Type:      input.Type,
		IsPrivate: input.IsPrivate,
		Tags:      normalizeTags(input.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.fillBody(rec, input.Payload); err != nil {
		return nil, err
	}
	if err := s.store.SaveRecord(ctx, rec); err != nil {
		return nil, err
	}

	s.gate.Touch()
	s.backgroundSync()
	return rec, nil
}

// UpdateRecord replaces a record's payload and tags. updatedAt is kept
// monotonic per record even against a clock that stepped backwards.
func (s *Service) UpdateRecord(ctx context.Context, id int64, input RecordInput) (*record.Record, error) {
	existing, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Type != input.Payload.RecordType() {
		return nil, fmt.Errorf("%w: payload type %s does not match %s",
			record.ErrInvalidData, input.Payload.RecordType(), input.Type)
	}

	now := s.clock().UTC()
	if !now.After(existing.UpdatedAt) {
		now = existing.UpdatedAt.Add(time.Millisecond)
	}

	rec := &record.Record{
		ID:        existing.ID,
		Type:      input.Type,
		IsPrivate: input.IsPrivate,
		Tags:      normalizeTags(input.Tags),
		CreatedAt: existing.CreatedAt,
		UpdatedAt: now,
	}

	if err := s.fillBody(rec, input.Payload); err != nil {
		return nil, err
	}
	if err := s.store.SaveRecord(ctx, rec); err != nil {
		return nil, err
	}

	s.gate.Touch()
	s.backgroundSync()
	return rec, nil
}

// DeleteRecord removes the local row immediately, then best-effort
// tombstones the remote copy so other devices observe the deletion.
func (s *Service) DeleteRecord(ctx context.Context, id int64) error {
	if err := s.store.DeleteRecord(ctx, id); err != nil {
		return err
	}

	s.gate.Touch()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.engine.TombstoneRecord(ctx, id); err != nil {
			if !errors.Is(err, sync.ErrSyncUnavailable) {
				s.log.Warn("failed to tombstone remote record", "record_id", id, "error", err)
			}
		}
	}()
	return nil
}

// GetRecord returns the stored record and, for private records, the
// decrypted payload. The vault must be unlocked for private reads.
func (s *Service) GetRecord(ctx context.Context, id int64) (*record.Record, record.Payload, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var body []byte
	if rec.IsPrivate {
		key, err := s.gate.Key()
		if err != nil {
			return nil, nil, err
		}
		body, err = cipher.DecryptData(rec.Ciphertext, rec.IV, key)
		if err != nil {
			return nil, nil, err
		}
	} else {
		body = rec.Plaintext
	}

	payload, err := record.UnmarshalPayload(rec.Type, body)
	if err != nil {
		return nil, nil, err
	}

	s.gate.Touch()
	return rec, payload, nil
}

// ListRecords works while locked: tags and timestamps live outside the
// ciphertext exactly so listing does not need the master key.
func (s *Service) ListRecords(ctx context.Context) ([]record.Record, error) {
	return s.store.ListRecords(ctx)
}

// ExportSnapshot is what the external data-portability collaborator
// consumes. The wrap and per-record primitives stay stable and are
// version-tagged by the KDF parameters.
type ExportSnapshot struct {
	Version   int             `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	KDF       ExportKDF       `json:"kdf"`
	Wrapped   ExportWrapped   `json:"wrapped_master"`
	Records   []record.Record `json:"records"`
}

type ExportKDF struct {
	Algo       string `json:"algo"`
	Hash       string `json:"hash"`
	Iterations int    `json:"iterations"`
	Salt       []byte `json:"salt"`
}

type ExportWrapped struct {
	Ciphertext []byte `json:"ciphertext"`
	IV         []byte `json:"iv"`
}

// Export snapshots the wrapped master key and all records in their
// stored (still encrypted) form.
func (s *Service) Export(ctx context.Context) (*ExportSnapshot, error) {
	meta, err := s.store.LoadMeta(ctx)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, authgate.ErrNotConfigured
	}

	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, err
	}

	return &ExportSnapshot{
		Version:   ExportVersion,
		Timestamp: s.clock().UTC(),
		KDF: ExportKDF{
			Algo:       "PBKDF2",
			Hash:       "SHA-256",
			Iterations: meta.KDFIterations,
			Salt:       meta.KDFSalt,
		},
		Wrapped: ExportWrapped{
			Ciphertext: meta.EncryptedMasterKey,
			IV:         meta.MasterIV,
		},
		Records: records,
	}, nil
}

// Wait blocks until background syncs spawned by mutations finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) fillBody(rec *record.Record, payload record.Payload) error {
	body, err := record.MarshalPayload(payload)
	if err != nil {
		return err
	}

	if rec.IsPrivate {
		key, err := s.gate.Key()
		if err != nil {
			return err
		}
		rec.Ciphertext, rec.IV, err = cipher.EncryptData(body, key)
		if err != nil {
			return err
		}
		rec.Plaintext = nil
	} else {
		rec.Plaintext = body
		rec.Ciphertext = nil
		rec.IV = nil
	}
	return nil
}

// backgroundSync fires one best-effort cycle. A rejected re-entrant
// call means a running cycle will pick the mutation up anyway on the
// next pass.
func (s *Service) backgroundSync() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if _, err := s.engine.SyncToCloud(ctx); err != nil {
			if errors.Is(err, sync.ErrSyncInProgress) || errors.Is(err, sync.ErrSyncUnavailable) {
				return
			}
			s.log.Warn("background sync failed", "error", err)
		}
	}()
}

// newRecordID assigns client-side unix-millisecond ids; the id doubles
// as the remote document key, so same-millisecond collisions are
// stepped past.
func (s *Service) newRecordID(ctx context.Context, now time.Time) int64 {
	id := now.UnixMilli()
	for {
		_, err := s.store.GetRecord(ctx, id)
		if errors.Is(err, record.ErrNotFound) {
			return id
		}
		if err != nil {
			return id
		}
		id++
	}
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
