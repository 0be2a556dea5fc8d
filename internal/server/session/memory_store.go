package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/robfig/cron/v3"
)

// MemoryStore keeps sessions in process memory. Expired records are hidden
// from Get immediately and removed by a cron janitor started with
// StartJanitor.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
	cron     *cron.Cron
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(ctx context.Context, s Session) error {
	if s.ID == "" || s.UserID == 0 {
		return fmt.Errorf("session: missing id or user_id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s: %w", s.ID, common.ErrConflict)
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok || !s.ExpiresAt.After(m.now()) {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Update(ctx context.Context, s Session) error {
	if s.ID == "" {
		return fmt.Errorf("session: missing id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return common.ErrorNotFound
	}
	if !s.ExpiresAt.After(m.now()) {
		delete(m.sessions, s.ID)
		return nil
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// Len returns the number of stored records, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Purge removes expired records and returns how many were dropped.
func (m *MemoryStore) Purge() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// StartJanitor schedules Purge with a cron spec such as "@every 1m".
// onPurge, if non-nil, receives the count after every run.
func (m *MemoryStore) StartJanitor(spec string, onPurge func(int)) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		n := m.Purge()
		if onPurge != nil {
			onPurge(n)
		}
	}); err != nil {
		return fmt.Errorf("session janitor: %w", err)
	}
	c.Start()

	m.mu.Lock()
	m.cron = c
	m.mu.Unlock()
	return nil
}

// Close stops the janitor, waiting for a running purge to finish.
func (m *MemoryStore) Close() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
