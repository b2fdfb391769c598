// Package integration provides end-to-end tests that verify the engine,
// storage adapters, and HTTP API working together.
package integration

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gatherline/fulfil/internal/adapter/inbound/httpapi"
	"github.com/gatherline/fulfil/internal/adapter/outbound/redisstore"
	"github.com/gatherline/fulfil/internal/adapter/outbound/sqlite"
	"github.com/gatherline/fulfil/internal/config"
	"github.com/gatherline/fulfil/internal/domain/entity"
	"github.com/gatherline/fulfil/internal/domain/fulfilment"
	"github.com/gatherline/fulfil/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// TestSQLiteFullPath runs a complete session flow against the sqlite store
// and verifies the session survives a store reopen, as it would across a
// server restart.
func TestSQLiteFullPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fulfil.db")
	ctx := context.Background()

	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	stats := service.NewStatsService()
	engine := fulfilment.NewService(store, fulfilment.Config{Stats: stats}, testLogger())

	sess, err := engine.Init(ctx, "E1", 2, []entity.Kind{entity.KindFormSubmission, entity.KindPayment})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	err = engine.UpdateFormSubmissionData(ctx, sess.ID, sess.Entities[0].ID,
		entity.FormSubmissionData{FormID: "F1", ResponseID: "R1"})
	if err != nil {
		t.Fatalf("UpdateFormSubmissionData: %v", err)
	}
	if idx, err := engine.Next(ctx, sess.ID); err != nil || idx != 1 {
		t.Fatalf("Next = %d, %v; want 1, nil", idx, err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close sqlite: %v", err)
	}

	// Reopen: a new engine on the same file resumes where the buyer left off.
	store2, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	defer store2.Close()

	engine2 := fulfilment.NewService(store2, fulfilment.Config{Stats: stats}, testLogger())
	resumed, err := engine2.GetInfo(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetInfo after reopen: %v", err)
	}
	if resumed.CurrentIndex != 1 {
		t.Errorf("CurrentIndex after reopen = %d, want 1", resumed.CurrentIndex)
	}
	if !resumed.Entities[0].Completed {
		t.Error("form step lost its completion across reopen")
	}
	if resumed.Entities[0].FormSubmission == nil || resumed.Entities[0].FormSubmission.ResponseID != "R1" {
		t.Errorf("form payload after reopen = %+v", resumed.Entities[0].FormSubmission)
	}

	err = engine2.UpdatePaymentData(ctx, sess.ID, resumed.Entities[1].ID,
		entity.PaymentData{CheckoutRef: "co_900"})
	if err != nil {
		t.Fatalf("UpdatePaymentData after reopen: %v", err)
	}
	if idx, err := engine2.Next(ctx, sess.ID); err != nil || idx != 2 {
		t.Fatalf("Next after reopen = %d, %v; want 2, nil", idx, err)
	}
}

// TestRedisFullPath runs a session flow against the redis store and verifies
// that clock advance past the TTL evicts the session.
func TestRedisFullPath(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := redisstore.NewWithClient(client, testLogger())
	defer store.Close()

	ctx := context.Background()
	engine := fulfilment.NewService(store, fulfilment.Config{TTL: time.Minute}, testLogger())

	sess, err := engine.Init(ctx, "E1", 1, []entity.Kind{entity.KindWaitlist})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	err = engine.UpdateWaitlistData(ctx, sess.ID, sess.Entities[0].ID,
		entity.WaitlistData{FullName: "Ada Lovelace", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("UpdateWaitlistData: %v", err)
	}
	if idx, err := engine.Next(ctx, sess.ID); err != nil || idx != 1 {
		t.Fatalf("Next = %d, %v; want 1, nil", idx, err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := engine.GetInfo(ctx, sess.ID); !errors.Is(err, fulfilment.ErrSessionNotFound) {
		t.Errorf("GetInfo after TTL = %v, want ErrSessionNotFound", err)
	}
}

// TestConfigBoot verifies that a YAML config file drives the engine wiring
// end to end: file -> config -> store selection values.
func TestConfigBoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fulfild.yaml")
	yaml := `server:
  http_addr: "127.0.0.1:9090"
  log_level: warn
session:
  ttl: 45m
  cleanup_interval: 2m
storage:
  backend: sqlite
  sqlite_path: ` + filepath.Join(dir, "fulfil.db") + `
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	config.InitViper(path)
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:9090" {
		t.Errorf("http addr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.SessionTTL() != 45*time.Minute {
		t.Errorf("ttl = %v, want 45m", cfg.SessionTTL())
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("backend = %q, want sqlite", cfg.Storage.Backend)
	}

	// The configured backend actually opens.
	store, err := sqlite.Open(cfg.Storage.SQLitePath)
	if err != nil {
		t.Fatalf("open configured sqlite store: %v", err)
	}
	defer store.Close()
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

// TestHealthCheckReportsStoreFailure verifies /health turns unhealthy when
// the backing store goes away.
func TestHealthCheckReportsStoreFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := redisstore.NewWithClient(client, testLogger())
	defer store.Close()

	hc := httpapi.NewHealthChecker("redis", store, "test")

	resp := hc.Check(context.Background())
	if resp.Status != "healthy" {
		t.Fatalf("status = %q, want healthy", resp.Status)
	}

	mr.Close()

	resp = hc.Check(context.Background())
	if resp.Status != "unhealthy" {
		t.Errorf("status after store loss = %q, want unhealthy", resp.Status)
	}
}
