package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/story-grid/pkg/survey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	store, err := NewRedisStorage("redis://"+mr.Addr(), ttl, testLogger())
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis storage: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		mr.Close()
	})
	return store, mr
}

func sampleDoc(id string) survey.Document {
	return survey.Document{
		Values: map[string]string{
			"name":        "Ada",
			"routeMap2-1": `{"topRow":[],"bottomRows":[],"activeStep":1,"totalElements":0}`,
		},
		RespondentID: id,
		Timestamp:    "2025-01-01T00:00:00.000Z",
	}
}

func TestRedisStorage_SaveLoadDelete(t *testing.T) {
	store, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.SaveDraft(ctx, sampleDoc("resp-1")))

	assert.True(t, mr.Exists("draft:resp-1"))
	assert.Equal(t, time.Hour, mr.TTL("draft:resp-1"))

	loaded, err := store.LoadDraft(ctx, "resp-1")
	require.NoError(t, err)
	assert.Equal(t, sampleDoc("resp-1"), loaded)

	require.NoError(t, store.DeleteDraft(ctx, "resp-1"))
	_, err = store.LoadDraft(ctx, "resp-1")
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.ErrorIs(t, store.DeleteDraft(ctx, "resp-1"), ErrDraftNotFound)
}

func TestRedisStorage_Expiry(t *testing.T) {
	store, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.SaveDraft(ctx, sampleDoc("resp-2")))
	mr.FastForward(2 * time.Minute)

	_, err := store.LoadDraft(ctx, "resp-2")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestRedisStorage_BareAddressAndDefaultTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStorage(mr.Addr(), 0, testLogger())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveDraft(ctx, sampleDoc("resp-3")))
	assert.Equal(t, DefaultDraftTTL, mr.TTL("draft:resp-3"))
}

func TestRedisStorage_CorruptDraft(t *testing.T) {
	store, mr := setupTestRedis(t, time.Hour)
	require.NoError(t, mr.Set("draft:bad", "not json"))

	_, err := store.LoadDraft(context.Background(), "bad")
	assert.ErrorIs(t, err, survey.ErrMalformedDocument)
}

func TestRedisStorage_InvalidID(t *testing.T) {
	store, _ := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveDraft(ctx, sampleDoc("../etc")), ErrInvalidRespondentID)
	_, err := store.LoadDraft(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidRespondentID)
}

func TestRedisStorage_WaitForConnection(t *testing.T) {
	store, mr := setupTestRedis(t, time.Hour)
	require.NoError(t, store.WaitForConnection(context.Background(), 3, 10*time.Millisecond))

	mr.Close()
	err := store.WaitForConnection(context.Background(), 2, 10*time.Millisecond)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = store.WaitForConnection(ctx, 5, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
