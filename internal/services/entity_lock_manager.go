package services

import (
	"log/slog"
	"sync"
	"time"
)

// EntityLockManager hands out one mutex per brand id so mutations of the same brand run one at a time
type EntityLockManager struct {
	locks    map[int64]*sync.Mutex
	users    map[int64]int
	locksMux sync.RWMutex
	logger   *slog.Logger
}

// NewEntityLockManager creates a new entity lock manager
func NewEntityLockManager(logger *slog.Logger) *EntityLockManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityLockManager{
		locks:  make(map[int64]*sync.Mutex),
		users:  make(map[int64]int),
		logger: logger,
	}
}

// GetEntityLock returns the mutex of id, creating it on first use
func (m *EntityLockManager) GetEntityLock(id int64) *sync.Mutex {
	m.locksMux.RLock()
	if lock, exists := m.locks[id]; exists {
		m.locksMux.RUnlock()
		return lock
	}
	m.locksMux.RUnlock()

	m.locksMux.Lock()
	defer m.locksMux.Unlock()

	// Another goroutine may have created it meanwhile
	if lock, exists := m.locks[id]; exists {
		return lock
	}

	lock := &sync.Mutex{}
	m.locks[id] = lock
	m.logger.Debug("Created new entity lock", "entity_id", id)
	return lock
}

// WithEntityLock runs fn while holding the lock of id and returns its error
func (m *EntityLockManager) WithEntityLock(id int64, fn func() error) error {
	start := time.Now()
	lock := m.acquire(id)
	defer m.release(id)

	lock.Lock()
	defer lock.Unlock()

	err := fn()

	m.logger.Debug("Entity mutation completed",
		"entity_id", id,
		"duration", time.Since(start).String(),
		"failed", err != nil)
	return err
}

// GetLockStats returns statistics about the lock manager
func (m *EntityLockManager) GetLockStats() map[string]interface{} {
	m.locksMux.RLock()
	defer m.locksMux.RUnlock()

	return map[string]interface{}{
		"total_entity_locks":  len(m.locks),
		"entity_locks_in_use": len(m.users),
		"lock_manager_type":   "per_entity",
	}
}

// CleanupUnusedLocks drops the locks of ids that are no longer listed.
// A lock held or awaited by a running WithEntityLock is kept whatever the list says.
func (m *EntityLockManager) CleanupUnusedLocks(activeIDs map[int64]bool) {
	m.locksMux.Lock()
	defer m.locksMux.Unlock()

	removed := 0
	for id := range m.locks {
		if !activeIDs[id] && m.users[id] == 0 {
			delete(m.locks, id)
			removed++
		}
	}

	if removed > 0 {
		m.logger.Debug("Cleaned up unused entity locks",
			"removed_locks", removed,
			"remaining_locks", len(m.locks))
	}
}

// acquire returns the mutex of id and registers one more user of it
func (m *EntityLockManager) acquire(id int64) *sync.Mutex {
	m.locksMux.Lock()
	defer m.locksMux.Unlock()

	lock, exists := m.locks[id]
	if !exists {
		lock = &sync.Mutex{}
		m.locks[id] = lock
		m.logger.Debug("Created new entity lock", "entity_id", id)
	}
	m.users[id]++
	return lock
}

func (m *EntityLockManager) release(id int64) {
	m.locksMux.Lock()
	defer m.locksMux.Unlock()

	if m.users[id] <= 1 {
		delete(m.users, id)
		return
	}
	m.users[id]--
}
