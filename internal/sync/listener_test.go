package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"pinvault/internal/domain/record"
	"pinvault/internal/remote"
)

func newTestListener(engine *Engine, deviceID string) *Listener {
	l := NewListener(engine, deviceID, slog.Default())
	l.debounce = 20 * time.Millisecond
	return l
}

func waitForRecord(t *testing.T, local LocalStore, id int64) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		records, err := local.ListRecords(context.Background())
		require.NoError(t, err)
		for _, rec := range records {
			if rec.ID == id {
				return
			}
		}
		select {
		case <-deadline:
			t.Fatalf("record %d never arrived", id)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestListenerSyncsOnForeignChange(t *testing.T) {
	cloud := remote.NewMemoryStore()
	local := newLocalStore(t)
	engine := newEngine(t, local, cloud, "device-a")
	listener := newTestListener(engine, "device-a")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := cloud.Watch()
	go listener.Run(ctx, events)

	// A foreign device uploads a record; the listener pulls it down.
	foreign := makeRecord(42, time.Now().UTC())
	require.NoError(t, cloud.PutRecord(ctx, record.CloudRecord{
		Record:         *foreign,
		CloudUpdatedAt: time.Now().UTC(),
		DeviceID:       "device-b",
	}))

	waitForRecord(t, local, 42)
}

func TestListenerIgnoresSelfEchoes(t *testing.T) {
	cloud := remote.NewMemoryStore()
	local := newLocalStore(t)
	engine := newEngine(t, local, cloud, "device-a")
	listener := newTestListener(engine, "device-a")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := engine.Subscribe()
	events := cloud.Watch()
	go listener.Run(ctx, events)

	// Our own upload echoes back; no sync may be scheduled.
	own := makeRecord(1, time.Now().UTC())
	require.NoError(t, cloud.PutRecord(ctx, record.CloudRecord{
		Record:         *own,
		CloudUpdatedAt: time.Now().UTC(),
		DeviceID:       "device-a",
	}))

	select {
	case <-results:
		t.Fatal("self echo triggered a sync")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestListenerDebounceCoalesces(t *testing.T) {
	cloud := remote.NewMemoryStore()
	local := newLocalStore(t)
	engine := newEngine(t, local, cloud, "device-a")
	listener := newTestListener(engine, "device-a")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := engine.Subscribe()
	events := cloud.Watch()
	go listener.Run(ctx, events)

	// A burst of foreign writes inside the debounce window.
	for i := int64(1); i <= 5; i++ {
		rec := makeRecord(i, time.Now().UTC())
		require.NoError(t, cloud.PutRecord(ctx, record.CloudRecord{
			Record:         *rec,
			CloudUpdatedAt: time.Now().UTC(),
			DeviceID:       "device-b",
		}))
	}

	// One coalesced sync downloads everything.
	select {
	case result := <-results:
		assert.Equal(t, 5, result.Downloaded)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced sync never ran")
	}

	select {
	case <-results:
		t.Fatal("burst caused more than one sync")
	case <-time.After(100 * time.Millisecond):
	}
}
