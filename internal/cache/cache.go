// Package cache holds short-lived read caches and the sweeper that expires
// them in the background.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is a keyed store whose values may disappear at any time.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Clear()
	Size() int
}

// Cleaner evicts expired values and reports how many it removed.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps registered caches on a fixed interval.
type Manager struct {
	caches []Cleaner
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func NewManager() *Manager {
	return &Manager{stop: make(chan struct{})}
}

// Register must be called before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

func (m *Manager) StartCleanup(interval time.Duration) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				if n := m.sweep(); n > 0 {
					slog.Debug("Expired cache entries removed", "count", n)
				}
			}
		}
	}()
}

func (m *Manager) sweep() int {
	n := 0
	for _, c := range m.caches {
		n += c.CleanExpired()
	}
	return n
}

// Stop ends the sweeper and waits for it. It is safe to call more than once
// or without StartCleanup.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.stop) })
	m.wg.Wait()
}
