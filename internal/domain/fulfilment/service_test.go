package fulfilment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gatherline/fulfil/internal/domain/entity"
)

// mockSessionStore is a simple in-memory mock for testing.
type mockSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{
		sessions: make(map[string]*Session),
	}
}

func (m *mockSessionStore) Create(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (m *mockSessionStore) Update(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return ErrSessionNotFound
	}
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func newTestService(store SessionStore, ttl time.Duration) *Service {
	return NewService(store, Config{TTL: ttl}, slog.New(slog.DiscardHandler))
}

func TestServiceInit(t *testing.T) {
	tests := []struct {
		name       string
		resourceID string
		quantity   int
		kinds      []entity.Kind
		wantErr    error
		wantKinds  []entity.Kind
	}{
		{
			name:       "terminal appended when missing",
			resourceID: "E1",
			quantity:   2,
			kinds:      []entity.Kind{entity.KindFormSubmission, entity.KindPayment},
			wantKinds:  []entity.Kind{entity.KindFormSubmission, entity.KindPayment, entity.KindTerminal},
		},
		{
			name:       "terminal kept when already last",
			resourceID: "E1",
			quantity:   1,
			kinds:      []entity.Kind{entity.KindPayment, entity.KindTerminal},
			wantKinds:  []entity.Kind{entity.KindPayment, entity.KindTerminal},
		},
		{
			name:       "terminal alone",
			resourceID: "E1",
			quantity:   1,
			kinds:      []entity.Kind{entity.KindTerminal},
			wantKinds:  []entity.Kind{entity.KindTerminal},
		},
		{
			name:       "empty kinds rejected",
			resourceID: "E1",
			quantity:   1,
			kinds:      nil,
			wantErr:    ErrInvalidArgument,
		},
		{
			name:       "unknown kind rejected",
			resourceID: "E1",
			quantity:   1,
			kinds:      []entity.Kind{entity.KindPayment, entity.Kind("raffle")},
			wantErr:    ErrInvalidArgument,
		},
		{
			name:       "terminal mid-list rejected",
			resourceID: "E1",
			quantity:   1,
			kinds:      []entity.Kind{entity.KindTerminal, entity.KindPayment},
			wantErr:    ErrInvalidArgument,
		},
		{
			name:       "empty resource rejected",
			resourceID: "",
			quantity:   1,
			kinds:      []entity.Kind{entity.KindPayment},
			wantErr:    ErrInvalidArgument,
		},
		{
			name:       "zero quantity rejected",
			resourceID: "E1",
			quantity:   0,
			kinds:      []entity.Kind{entity.KindPayment},
			wantErr:    ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newMockSessionStore(), 0)
			session, err := svc.Init(context.Background(), tt.resourceID, tt.quantity, tt.kinds)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Init() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			if session.CurrentIndex != 0 {
				t.Errorf("CurrentIndex = %d, want 0", session.CurrentIndex)
			}
			got := session.Kinds()
			if len(got) != len(tt.wantKinds) {
				t.Fatalf("Kinds() = %v, want %v", got, tt.wantKinds)
			}
			for i := range got {
				if got[i] != tt.wantKinds[i] {
					t.Errorf("Kinds()[%d] = %q, want %q", i, got[i], tt.wantKinds[i])
				}
			}
			if last := session.Entities[len(session.Entities)-1]; last.Kind != entity.KindTerminal || !last.Completed {
				t.Error("last entity must be a pre-completed terminal")
			}
			if session.ExpiresAt.Sub(session.CreatedAt) != DefaultTTL {
				t.Errorf("TTL = %v, want %v", session.ExpiresAt.Sub(session.CreatedAt), DefaultTTL)
			}
		})
	}
}

func TestServiceInitDoesNotMutateCallerSlice(t *testing.T) {
	svc := newTestService(newMockSessionStore(), 0)
	backing := make([]entity.Kind, 1, 2)
	backing[0] = entity.KindPayment
	if _, err := svc.Init(context.Background(), "E1", 1, backing); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := backing[:cap(backing)][1]; got == entity.KindTerminal {
		t.Error("Init appended terminal into the caller's backing array")
	}
}

func TestServiceGetInfo(t *testing.T) {
	ctx := context.Background()
	store := newMockSessionStore()
	svc := newTestService(store, 0)

	created, err := svc.Init(ctx, "E1", 2, []entity.Kind{entity.KindPayment})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	t.Run("returns live session", func(t *testing.T) {
		got, err := svc.GetInfo(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetInfo() error = %v", err)
		}
		if got.ID != created.ID || got.ResourceID != "E1" || got.Quantity != 2 {
			t.Errorf("GetInfo() = %+v, want session %s", got, created.ID)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		if _, err := svc.GetInfo(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("GetInfo(unknown) error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("expired session reported not found and removed", func(t *testing.T) {
		expired := created.Clone()
		expired.ID = "expired-session"
		expired.ExpiresAt = time.Now().UTC().Add(-time.Second)
		if err := store.Create(ctx, expired); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if _, err := svc.GetInfo(ctx, expired.ID); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("GetInfo(expired) error = %v, want ErrSessionNotFound", err)
		}

		// Lazy expiry deletes the record on access.
		store.mu.RLock()
		_, still := store.sessions[expired.ID]
		store.mu.RUnlock()
		if still {
			t.Error("expired session should have been deleted on access")
		}
	})
}

func TestServiceDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMockSessionStore(), 0)

	session, err := svc.Init(ctx, "E1", 1, []entity.Kind{entity.KindPayment})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if err := svc.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, session.ID); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
	if err := svc.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete(unknown) error = %v, want nil", err)
	}

	if _, err := svc.GetInfo(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetInfo after delete error = %v, want ErrSessionNotFound", err)
	}
}

func TestGenerateSessionID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateSessionID()
		if err != nil {
			t.Fatalf("GenerateSessionID() error = %v", err)
		}
		if len(id) != 64 {
			t.Fatalf("GenerateSessionID() len = %d, want 64", len(id))
		}
		if seen[id] {
			t.Fatalf("GenerateSessionID() generated duplicate ID %s", id)
		}
		seen[id] = true
	}
}
