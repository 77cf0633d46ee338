package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/golden-hour/backend/internal/model/session"
	"github.com/zhouzirui/golden-hour/backend/internal/model/triage"
	"github.com/zhouzirui/golden-hour/backend/internal/storage"
)

const (
	// StorageKey is the namespace holding the whole session list.
	StorageKey = "golden_hour_sessions"
	// MaxSessions is how many of the most recent sessions are kept.
	MaxSessions = 50
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidAction   = errors.New("invalid session action")
)

// Service records one audit entry per finished interaction.
type Service struct {
	store storage.Store
	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// NewService creates a recorder over store. A nil store keeps sessions in memory.
func NewService(store storage.Store) *Service {
	if store == nil {
		store = storage.NewMemoryStore()
	}
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return "session_" + uuid.NewString() },
	}
}

// Save assigns an id and timestamp, prepends the session and keeps the most
// recent MaxSessions. A failed read or write is logged; the record is still
// returned. A failed read never overwrites the stored list.
func (s *Service) Save(ctx context.Context, draft session.Draft) session.EmergencySession {
	if !draft.Action.Valid() {
		draft.Action = session.Pending
	}
	record := draft.Materialize(s.newID(), s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(ctx)
	if err != nil {
		log.Printf("[recorder] skip saving session %s: %v", record.ID, err)
		return record
	}
	sessions = append([]session.EmergencySession{record}, sessions...)
	if len(sessions) > MaxSessions {
		sessions = sessions[:MaxSessions]
	}
	if err := s.persist(ctx, sessions); err != nil {
		log.Printf("[recorder] failed to save session %s: %v", record.ID, err)
	} else {
		log.Printf("[recorder] saved session %s action=%s", record.ID, record.Action)
	}
	return record
}

// List returns the stored sessions, most recent first.
func (s *Service) List(ctx context.Context) []session.EmergencySession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, err := s.load(ctx)
	if err != nil {
		log.Printf("[recorder] list sessions: %v", err)
		return []session.EmergencySession{}
	}
	return sessions
}

// Get finds one session by id.
func (s *Service) Get(ctx context.Context, id string) (session.EmergencySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, err := s.load(ctx)
	if err != nil {
		return session.EmergencySession{}, err
	}
	for _, item := range sessions {
		if item.ID == id {
			return item, nil
		}
	}
	return session.EmergencySession{}, ErrSessionNotFound
}

// UpdateAction rewrites only the action of the matching session. An unknown
// id is a no-op and reports false.
func (s *Service) UpdateAction(ctx context.Context, id string, action session.Action) (bool, error) {
	if !action.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	found := false
	for i := range sessions {
		if sessions[i].ID == id {
			sessions[i].Action = action
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}
	if err := s.persist(ctx, sessions); err != nil {
		log.Printf("[recorder] failed to update session %s: %v", id, err)
	}
	return true, nil
}

// Stats counts stored sessions by action and by presence of a critical symptom.
func (s *Service) Stats(ctx context.Context) session.Stats {
	sessions := s.List(ctx)
	stats := session.Stats{Total: len(sessions)}
	for _, item := range sessions {
		switch item.Action {
		case session.Dispatched:
			stats.Dispatched++
		case session.Cancelled:
			stats.Cancelled++
		}
		if triage.HasCritical(item.SymptomsExtracted) {
			stats.CriticalSymptoms++
		}
	}
	return stats
}

// Clear removes every stored session.
func (s *Service) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, StorageKey); err != nil {
		log.Printf("[recorder] failed to clear sessions: %v", err)
	}
}

// load reads the list. Missing or corrupt data is an empty list; a failed
// read is returned so callers never write over data they could not see.
func (s *Service) load(ctx context.Context) ([]session.EmergencySession, error) {
	data, err := s.store.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []session.EmergencySession{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}

	var sessions []session.EmergencySession
	if err := json.Unmarshal(data, &sessions); err != nil {
		log.Printf("[recorder] stored sessions are corrupt, starting empty: %v", err)
		return []session.EmergencySession{}, nil
	}
	if sessions == nil {
		sessions = []session.EmergencySession{}
	}
	return sessions, nil
}

func (s *Service) persist(ctx context.Context, sessions []session.EmergencySession) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	return s.store.Put(ctx, StorageKey, data)
}
