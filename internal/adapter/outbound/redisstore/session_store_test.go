package redisstore

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gatherline/fulfil/internal/domain/entity"
	"github.com/gatherline/fulfil/internal/domain/fulfilment"
)

// setupMiniRedis starts an in-process Redis server and a store wired to it.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *SessionStore) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewWithClient(client, slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = store.Close() })

	return mr, store
}

func testSession(t *testing.T, ttl time.Duration) *fulfilment.Session {
	t.Helper()
	waitlist, err := entity.NewRecord(entity.KindWaitlist)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	terminal, err := entity.NewRecord(entity.KindTerminal)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	id, err := fulfilment.GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID() error = %v", err)
	}
	now := time.Now().UTC()
	return &fulfilment.Session{
		ID:         id,
		ResourceID: "E1",
		Quantity:   1,
		Entities:   []entity.Record{waitlist, terminal},
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, store := setupMiniRedis(t)
	sess := testSession(t, time.Hour)

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ResourceID != "E1" || len(got.Entities) != 2 {
		t.Errorf("Get() = %+v, want stored session", got)
	}
	if got.Entities[0].Kind != entity.KindWaitlist {
		t.Errorf("first entity kind = %q, want waitlist", got.Entities[0].Kind)
	}
}

func TestSessionStoreKeyTTL(t *testing.T) {
	ctx := context.Background()
	mr, store := setupMiniRedis(t)
	sess := testSession(t, time.Hour)

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	ttl := mr.TTL(keyPrefix + sess.ID)
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("key TTL = %v, want within (0, 1h]", ttl)
	}

	// Redis evicts the key once the TTL elapses.
	mr.FastForward(2 * time.Hour)
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, fulfilment.ErrSessionNotFound) {
		t.Errorf("Get() after eviction error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStoreCreateAlreadyExpired(t *testing.T) {
	ctx := context.Background()
	_, store := setupMiniRedis(t)
	sess := testSession(t, -time.Minute)

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, fulfilment.ErrSessionNotFound) {
		t.Errorf("Get(expired) error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStoreUpdate(t *testing.T) {
	ctx := context.Background()
	_, store := setupMiniRedis(t)
	sess := testSession(t, time.Hour)

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sess.Entities[0].Completed = true
	sess.Entities[0].Waitlist = &entity.WaitlistData{FullName: "Ada", Email: "ada@example.com"}
	sess.CurrentIndex = 1
	if err := store.Update(ctx, sess); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CurrentIndex != 1 || got.Entities[0].Waitlist == nil {
		t.Errorf("Get() after update = %+v, want updated session", got)
	}
}

func TestSessionStoreUpdateMissing(t *testing.T) {
	_, store := setupMiniRedis(t)
	sess := testSession(t, time.Hour)

	err := store.Update(context.Background(), sess)
	if !errors.Is(err, fulfilment.ErrSessionNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStoreDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	_, store := setupMiniRedis(t)
	sess := testSession(t, time.Hour)

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}
