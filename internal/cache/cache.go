// Package cache provides the snapshot caches: an in-process LRU with TTL and
// a Redis-backed cache shared between processes.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is the keyed store behind the insights snapshot cache. A miss and an
// unreachable backend look the same to callers.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Sweeper is a cache that must be swept for expired entries. Redis expires
// keys on its own and is never registered.
type Sweeper interface {
	CleanExpired() int
}

// Manager sweeps registered in-process caches on a fixed interval.
type Manager struct {
	mu      sync.Mutex
	caches  []Sweeper
	stop    chan struct{}
	done    chan struct{}
	started bool
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Register(c Sweeper) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// StartCleanup launches the sweep loop. Calling it twice is a no-op.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || interval <= 0 {
		return
	}
	m.started = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(interval, m.stop, m.done)
}

func (m *Manager) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				slog.Debug("Expired snapshots removed", "component", "cache", "count", n)
			}
		case <-stop:
			return
		}
	}
}

func (m *Manager) sweep() int {
	m.mu.Lock()
	caches := append([]Sweeper(nil), m.caches...)
	m.mu.Unlock()
	n := 0
	for _, c := range caches {
		n += c.CleanExpired()
	}
	return n
}

// Stop ends the sweep loop and waits for it. Safe when never started.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	stop, done := m.stop, m.done
	m.mu.Unlock()
	close(stop)
	<-done
}
