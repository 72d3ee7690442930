package vault

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"pinvault/internal/domain/record"
	"pinvault/internal/remote"
	"pinvault/internal/sync"
	"pinvault/internal/vault/authgate"
	"pinvault/internal/vault/store"
)

const testPIN = "246802"

type serviceEnv struct {
	svc   *Service
	gate  *authgate.Gate
	store *store.Store
	cloud *remote.MemoryStore
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	gate := authgate.New(st, log)

	ctx := context.Background()
	require.NoError(t, gate.Setup(ctx, testPIN))
	ok, err := gate.Authenticate(ctx, testPIN)
	require.NoError(t, err)
	require.True(t, ok)

	cloud := remote.NewMemoryStore()
	engine := sync.NewEngine(st, cloud, "device-test", log)

	svc := New(st, gate, engine, log)
	t.Cleanup(svc.Wait)

	return &serviceEnv{
		svc:   svc,
		gate:  gate,
		store: st,
		cloud: cloud,
	}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func loginInput(username string) RecordInput {
	return RecordInput{
		Type:      record.RecTypeLogin,
		IsPrivate: true,
		Tags:      []string{"work"},
		Payload: &record.LoginPayload{
			Site:     "mail.example.com",
			Username: username,
			Password: "hunter2",
		},
	}
}

func TestServiceCreateAndGetRoundTrip(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateRecord(ctx, loginInput("alice"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.NotEmpty(t, created.Ciphertext, "private record must be stored encrypted")
	assert.Empty(t, created.Plaintext)

	rec, payload, err := env.svc.GetRecord(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, rec.ID)

	login, ok := payload.(*record.LoginPayload)
	require.True(t, ok)
	assert.Equal(t, "alice", login.Username)
	assert.Equal(t, "hunter2", login.Password)
}

func TestServicePublicRecordStoredInClear(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateRecord(ctx, RecordInput{
		Type:      record.RecTypeNote,
		IsPrivate: false,
		Payload:   &record.NotePayload{Title: "wifi", Body: "guest network: cafe-2024"},
	})
	require.NoError(t, err)
	assert.Empty(t, created.Ciphertext)
	assert.Contains(t, string(created.Plaintext), "cafe-2024")

	// Public reads must not require the master key.
	env.gate.Lock()
	_, payload, err := env.svc.GetRecord(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, record.RecTypeNote, payload.RecordType())
}

func TestServiceMutationsRequireUnlock(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateRecord(ctx, loginInput("alice"))
	require.NoError(t, err)

	env.gate.Lock()

	_, err = env.svc.CreateRecord(ctx, loginInput("bob"))
	assert.ErrorIs(t, err, authgate.ErrLocked)

	_, _, err = env.svc.GetRecord(ctx, created.ID)
	assert.ErrorIs(t, err, authgate.ErrLocked)

	// Listing stays available while locked.
	records, err := env.svc.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestServiceUpdateKeepsUpdatedAtMonotonic(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env.svc.clock = func() time.Time { return now }

	created, err := env.svc.CreateRecord(ctx, loginInput("alice"))
	require.NoError(t, err)

	// Clock steps backwards between writes.
	now = now.Add(-time.Hour)

	updated, err := env.svc.UpdateRecord(ctx, created.ID, loginInput("alice-2"))
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt),
		"updatedAt must advance even against a backwards clock")
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestServiceMismatchedPayloadType(t *testing.T) {
	env := newServiceEnv(t)

	_, err := env.svc.CreateRecord(context.Background(), RecordInput{
		Type:      record.RecTypeCard,
		IsPrivate: true,
		Payload:   &record.NotePayload{Title: "x", Body: "y"},
	})
	assert.ErrorIs(t, err, record.ErrInvalidData)
}

func TestServiceCreateTriggersBackgroundSync(t *testing.T) {
	env := newServiceEnv(t)

	created, err := env.svc.CreateRecord(context.Background(), loginInput("alice"))
	require.NoError(t, err)

	env.svc.Wait()

	cloudRec, ok := env.cloud.Record(created.ID)
	require.True(t, ok, "mutation should reach the cloud store")
	assert.Equal(t, "device-test", cloudRec.DeviceID)
}

func TestServiceSyncFailureDoesNotRollBack(t *testing.T) {
	env := newServiceEnv(t)
	env.cloud.SetSignedIn(false)
	ctx := context.Background()

	created, err := env.svc.CreateRecord(ctx, loginInput("alice"))
	require.NoError(t, err, "local write must succeed with the cloud unreachable")

	env.svc.Wait()

	rec, _, err := env.svc.GetRecord(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, rec.ID)
	assert.Equal(t, 0, env.cloud.Len())
}

func TestServiceDeleteTombstonesRemote(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateRecord(ctx, loginInput("alice"))
	require.NoError(t, err)
	env.svc.Wait()

	require.NoError(t, env.svc.DeleteRecord(ctx, created.ID))
	env.svc.Wait()

	_, _, err = env.svc.GetRecord(ctx, created.ID)
	assert.ErrorIs(t, err, record.ErrNotFound)

	cloudRec, ok := env.cloud.Record(created.ID)
	require.True(t, ok, "remote copy becomes a tombstone, not a hard delete")
	assert.True(t, cloudRec.Deleted)
}

func TestServiceExportSnapshot(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateRecord(ctx, loginInput("alice"))
	require.NoError(t, err)

	snap, err := env.svc.Export(ctx)
	require.NoError(t, err)

	assert.Equal(t, ExportVersion, snap.Version)
	assert.Equal(t, "PBKDF2", snap.KDF.Algo)
	assert.Equal(t, "SHA-256", snap.KDF.Hash)
	assert.NotEmpty(t, snap.KDF.Salt)
	assert.NotEmpty(t, snap.Wrapped.Ciphertext)
	require.Len(t, snap.Records, 1)
	assert.NotEmpty(t, snap.Records[0].Ciphertext,
		"exported private records stay in their encrypted form")
}

func TestServiceExportRequiresSetup(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	gate := authgate.New(st, log)
	engine := sync.NewEngine(st, remote.NewMemoryStore(), "device-test", log)
	svc := New(st, gate, engine, log)

	_, err = svc.Export(context.Background())
	assert.ErrorIs(t, err, authgate.ErrNotConfigured)
}
