package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"pinvault/internal/domain/record"
	"pinvault/internal/remote"
	"pinvault/internal/vault/store"
)

func newLocalStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newEngine(t *testing.T, local LocalStore, rem remote.Store, deviceID string) *Engine {
	t.Helper()
	return NewEngine(local, rem, deviceID, slog.Default())
}

func makeRecord(id int64, updatedAt time.Time) *record.Record {
	return &record.Record{
		ID:         id,
		Type:       record.RecTypeNote,
		IsPrivate:  true,
		Tags:       []string{"t"},
		Ciphertext: []byte{0xde, 0xad},
		IV:         []byte("0123456789ab"),
		CreatedAt:  updatedAt.Add(-time.Hour),
		UpdatedAt:  updatedAt,
	}
}

func TestSyncUploadsNewLocalRecords(t *testing.T) {
	local := newLocalStore(t)
	cloud := remote.NewMemoryStore()
	engine := newEngine(t, local, cloud, "device-a")
	ctx := context.Background()

	require.NoError(t, local.SaveRecord(ctx, makeRecord(1, time.Now().UTC())))

	result, err := engine.SyncToCloud(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Uploaded)
	assert.Zero(t, result.Downloaded)
	assert.Zero(t, result.Deleted)

	uploaded, ok := cloud.Record(1)
	require.True(t, ok)
	assert.Equal(t, "device-a", uploaded.DeviceID)
	assert.False(t, uploaded.Deleted)
	assert.False(t, uploaded.CloudUpdatedAt.IsZero())
}

func TestSyncIsIdempotent(t *testing.T) {
	local := newLocalStore(t)
	cloud := remote.NewMemoryStore()
	engine := newEngine(t, local, cloud, "device-a")
	ctx := context.Background()

	require.NoError(t, local.SaveRecord(ctx, makeRecord(1, time.Now().UTC())))

	_, err := engine.SyncToCloud(ctx)
	require.NoError(t, err)

	result, err := engine.SyncToCloud(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Uploaded)
	assert.Zero(t, result.Downloaded)
	assert.Zero(t, result.Deleted)
}

func TestSyncUploadsNewerLocalNeverDowngrades(t *testing.T) {
	local := newLocalStore(t)
	cloud := remote.NewMemoryStore()
	engine := newEngine(t, local, cloud, "device-a")
	ctx := context.Background()

	t1 := time.Now().UTC().Add(-time.Hour)
	t2 := time.Now().UTC()

	// Foreign cloud copy older than the local edit.
	stale := makeRecord(1, t1)
	require.NoError(t, cloud.PutRecord(ctx, record.CloudRecord{
		Record:         *stale,
		CloudUpdatedAt: t1,
		DeviceID:       "device-b",
	}))

	localRec := makeRecord(1, t2)
	localRec.Ciphertext = []byte{0xbe, 0xef}
	require.NoError(t, local.SaveRecord(ctx, localRec))

	result, err := engine.SyncToCloud(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Uploaded)
	assert.Zero(t, result.Downloaded)

	uploaded, ok := cloud.Record(1)
	require.True(t, ok)
	assert.Equal(t, []byte{0xbe, 0xef}, uploaded.Ciphertext)
	assert.Equal(t, "device-a", uploaded.DeviceID)

	got, err := local.GetRecord(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xbe, 0xef}, got.Ciphertext)
}

func TestSyncDownloadsNewerForeignCloud(t *testing.T) {
	local := newLocalStore(t)
	cloud := remote.NewMemoryStore()
	engine := newEngine(t, local, cloud, "device-a")
	ctx := context.Background()

	t1 := time.Now().UTC().Add(-time.Hour)
	t2 := time.Now().UTC()

	require.NoError(t, local.SaveRecord(ctx, makeRecord(1, t1)))

	foreign := makeRecord(1, t2)
	foreign.Ciphertext = []byte{0xca, 0xfe}
	require.NoError(t, cloud.PutRecord(ctx, record.CloudRecord{
		Record:         *foreign,
		CloudUpdatedAt: t2,
		DeviceID:       "device-b",
	}))

	result, err := engine.SyncToCloud(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Downloaded)
	assert.Zero(t, result.Uploaded)

	got, err := local.GetRecord(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca, 0xfe}, got.Ciphertext)
}

func TestSyncAppliesForeignTombstone(t *testing.T) {
	local := newLocalStore(t)
	cloud := remote.NewMemoryStore()
	engine := newEngine(t, local, cloud, "device-a")
	ctx := context.Background()

	require.NoError(t, local.SaveRecord(ctx, makeRecord(1, time.Now().UTC())))
	require.NoError(t, cloud.PutRecord(ctx, record.Tombstone(1, "device-b", time.Now().UTC())))

	result, err := engine.SyncToCloud(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)

	_, err = local.GetRecord(ctx, 1)
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestSyncSkipsCloudOnlyTombstones(t *testing.T) {
	local := newLocalStore(t)
	cloud := remote.NewMemoryStore()
	engine := newEngine(t, local, cloud, "device-a")
	ctx := context.Background()

	require.NoError(t, cloud.PutRecord(ctx, record.Tombstone(7, "device-b", time.Now().UTC())))

	result, err := engine.SyncToCloud(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Downloaded)

	_, err = local.GetRecord(ctx, 7)
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestDeletePropagatesAcrossDevices(t *testing.T) {
	cloud := remote.NewMemoryStore()
	ctx := context.Background()

	localA := newLocalStore(t)
	engineA := newEngine(t, localA, cloud, "device-a")
	localB := newLocalStore(t)
	engineB := newEngine(t, localB, cloud, "device-b")

	// Device A creates and uploads; device B downloads.
	require.NoError(t, localA.SaveRecord(ctx, makeRecord(1, time.Now().UTC())))
	_, err := engineA.SyncToCloud(ctx)
	require.NoError(t, err)
	_, err = engineB.SyncToCloud(ctx)
	require.NoError(t, err)
	_, err = localB.GetRecord(ctx, 1)
	require.NoError(t, err)

	// Device A deletes: local row first, then the remote tombstone.
	require.NoError(t, localA.DeleteRecord(ctx, 1))
	require.NoError(t, engineA.TombstoneRecord(ctx, 1))

	stone, ok := cloud.Record(1)
	require.True(t, ok)
	assert.True(t, stone.Deleted)
	assert.Equal(t, "device-a", stone.DeviceID)

	// Device B observes the tombstone on its next sync.
	result, err := engineB.SyncToCloud(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	_, err = localB.GetRecord(ctx, 1)
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestTwoDeviceConvergence(t *testing.T) {
	cloud := remote.NewMemoryStore()
	ctx := context.Background()

	localA := newLocalStore(t)
	engineA := newEngine(t, localA, cloud, "device-a")
	localB := newLocalStore(t)
	engineB := newEngine(t, localB, cloud, "device-b")

	// Device A adds record 1 while offline.
	require.NoError(t, localA.SaveRecord(ctx, makeRecord(1, time.Now().UTC())))
	cloud.SetSignedIn(false)
	_, err := engineA.SyncToCloud(ctx)
	assert.ErrorIs(t, err, ErrSyncUnavailable)
	cloud.SetSignedIn(true)

	// Device B adds record 2 and syncs.
	require.NoError(t, localB.SaveRecord(ctx, makeRecord(2, time.Now().UTC())))
	_, err = engineB.SyncToCloud(ctx)
	require.NoError(t, err)

	// Both reconnect and sync until quiescent.
	_, err = engineA.SyncToCloud(ctx)
	require.NoError(t, err)
	_, err = engineB.SyncToCloud(ctx)
	require.NoError(t, err)

	for _, local := range []*store.Store{localA, localB} {
		records, err := local.ListRecords(ctx)
		require.NoError(t, err)
		ids := make([]int64, 0, len(records))
		for _, rec := range records {
			ids = append(ids, rec.ID)
		}
		assert.ElementsMatch(t, []int64{1, 2}, ids)
	}
}

// blockingStore stalls ListRecords until released, to hold a sync
// cycle open.
type blockingStore struct {
	*remote.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) ListRecords(ctx context.Context) ([]record.CloudRecord, error) {
	close(b.entered)
	<-b.release
	return b.MemoryStore.ListRecords(ctx)
}

func TestReentrantSyncRejected(t *testing.T) {
	local := newLocalStore(t)
	cloud := &blockingStore{
		MemoryStore: remote.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	engine := newEngine(t, local, cloud, "device-a")
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := engine.SyncToCloud(ctx)
		done <- err
	}()

	<-cloud.entered
	assert.True(t, engine.InFlight())

	_, err := engine.SyncToCloud(ctx)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(cloud.release)
	require.NoError(t, <-done)
	assert.False(t, engine.InFlight())
}

// flakyStore fails PutRecord for one record id.
type flakyStore struct {
	*remote.MemoryStore
	failID int64
}

func (f *flakyStore) PutRecord(ctx context.Context, rec record.CloudRecord) error {
	if rec.ID == f.failID {
		return errors.New("quota exceeded")
	}
	return f.MemoryStore.PutRecord(ctx, rec)
}

func TestOneFailureNeverAbortsBatch(t *testing.T) {
	local := newLocalStore(t)
	cloud := &flakyStore{MemoryStore: remote.NewMemoryStore(), failID: 2}
	engine := newEngine(t, local, cloud, "device-a")
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, local.SaveRecord(ctx, makeRecord(1, now)))
	require.NoError(t, local.SaveRecord(ctx, makeRecord(2, now)))
	require.NoError(t, local.SaveRecord(ctx, makeRecord(3, now)))

	result, err := engine.SyncToCloud(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Uploaded)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, int64(2), result.Errors[0].RecordID)
	assert.Equal(t, "upload", result.Errors[0].Operation)
}

func TestCleanupTombstones(t *testing.T) {
	local := newLocalStore(t)
	cloud := remote.NewMemoryStore()
	engine := newEngine(t, local, cloud, "device-a")
	ctx := context.Background()

	old := time.Now().UTC().Add(-25 * time.Hour)
	fresh := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, cloud.PutRecord(ctx, record.Tombstone(1, "device-b", old)))
	require.NoError(t, cloud.PutRecord(ctx, record.Tombstone(2, "device-b", fresh)))

	removed, err := engine.CleanupTombstones(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok := cloud.Record(1)
	assert.False(t, ok)
	_, ok = cloud.Record(2)
	assert.True(t, ok)
}

func TestSubscribeReceivesResults(t *testing.T) {
	local := newLocalStore(t)
	cloud := remote.NewMemoryStore()
	engine := newEngine(t, local, cloud, "device-a")
	ctx := context.Background()

	results := engine.Subscribe()
	require.NoError(t, local.SaveRecord(ctx, makeRecord(1, time.Now().UTC())))

	_, err := engine.SyncToCloud(ctx)
	require.NoError(t, err)

	select {
	case result := <-results:
		assert.Equal(t, 1, result.Uploaded)
	case <-time.After(time.Second):
		t.Fatal("no result published")
	}
}

func TestCursorPersistedBothSides(t *testing.T) {
	local := newLocalStore(t)
	cloud := remote.NewMemoryStore()
	engine := newEngine(t, local, cloud, "device-a")
	ctx := context.Background()

	_, err := engine.SyncToCloud(ctx)
	require.NoError(t, err)

	localCursor, err := local.LoadCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "device-a", localCursor.DeviceID)
	assert.False(t, localCursor.LastSyncTime.IsZero())

	remoteCursor, err := cloud.GetCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "device-a", remoteCursor.DeviceID)
}
