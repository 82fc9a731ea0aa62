package page

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/studio-lm/booooks/internal/snapshot"
)

const (
	// idleSessionTTL matches the snapshot TTL: an evicted session can be
	// rebuilt from its snapshot, or expire along with it.
	idleSessionTTL = snapshot.TTL

	cleanupInterval = 10 * time.Minute
)

// Manager hands out one controller per visitor session, hydrating it from
// the snapshot store exactly once however many requests race for it.
type Manager struct {
	mu       sync.RWMutex
	deps     Deps
	flight   singleflight.Group
	sessions map[string]*Controller

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewManager(deps Deps) *Manager {
	m := &Manager{
		deps:        deps,
		sessions:    make(map[string]*Controller),
		stopCleanup: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// NewSessionID mints an id for a visitor without a session cookie.
func (m *Manager) NewSessionID() string {
	return uuid.NewString()
}

// Session returns the controller for the given session id, creating and
// hydrating it on first use. Concurrent first requests for one id share a
// single hydration.
func (m *Manager) Session(ctx context.Context, sessionID string) *Controller {
	m.mu.RLock()
	c, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return c
	}

	v, _, _ := m.flight.Do(sessionID, func() (interface{}, error) {
		m.mu.RLock()
		existing, ok := m.sessions[sessionID]
		m.mu.RUnlock()
		if ok {
			return existing, nil
		}

		created := NewController(sessionID, m.deps)
		created.Hydrate(ctx)

		m.mu.Lock()
		m.sessions[sessionID] = created
		m.mu.Unlock()
		return created, nil
	})

	return v.(*Controller)
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-idleSessionTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.sessions {
		if c.idleSince(cutoff) {
			delete(m.sessions, id)
		}
	}
}

// Close stops the eviction loop and waits for it to finish.
func (m *Manager) Close() error {
	close(m.stopCleanup)
	m.wg.Wait()
	return nil
}
