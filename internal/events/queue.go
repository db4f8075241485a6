package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the kind of notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient, auto-dismissing message about a mutation outcome
type Notification struct {
	ID        string    `json:"id"`
	Offset    int64     `json:"offset"`
	Level     Level     `json:"level"`
	Operation string    `json:"operation"`
	EntityID  int64     `json:"entityId,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NotificationQueue is an offset-addressed, in-memory queue of notifications.
// Renderers poll it from an offset and long-poll for new entries; the core only publishes.
type NotificationQueue struct {
	mu            sync.RWMutex
	notifications []Notification
	dismissed     map[string]bool
	nextOffset    int64
	maxEvents     int
	ttl           time.Duration
	logger        *slog.Logger
	now           func() time.Time
	closed        bool

	waitersMutex sync.Mutex
	waiters      map[int64][]*waiter
}

// QueueConfig holds configuration for the notification queue
type QueueConfig struct {
	MaxEvents int
	TTL       time.Duration
	Logger    *slog.Logger
}

type waiter struct {
	ch   chan struct{}
	once sync.Once
}

func (w *waiter) wake() {
	w.once.Do(func() { close(w.ch) })
}

// NewNotificationQueue creates an empty queue
func NewNotificationQueue(config QueueConfig) *NotificationQueue {
	if config.MaxEvents <= 0 {
		config.MaxEvents = 100
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	q := &NotificationQueue{
		notifications: make([]Notification, 0),
		dismissed:     make(map[string]bool),
		maxEvents:     config.MaxEvents,
		ttl:           config.TTL,
		logger:        config.Logger,
		now:           time.Now,
		waiters:       make(map[int64][]*waiter),
	}

	q.logger.Info("Notification queue initialized",
		"max_events", config.MaxEvents,
		"ttl", config.TTL.String(),
	)
	return q
}

// Publish appends a notification and wakes waiters. It returns the stored notification.
func (q *NotificationQueue) Publish(level Level, operation string, entityID int64, message string) Notification {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return Notification{}
	}
	now := q.now()
	n := Notification{
		ID:        uuid.NewString(),
		Offset:    q.nextOffset,
		Level:     level,
		Operation: operation,
		EntityID:  entityID,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(q.ttl),
	}
	q.nextOffset++
	q.notifications = append(q.notifications, n)

	// Rotate if necessary
	if len(q.notifications) > q.maxEvents {
		keepCount := q.maxEvents * 3 / 4 // Keep 75% of max events
		removed := len(q.notifications) - keepCount
		for _, old := range q.notifications[:removed] {
			delete(q.dismissed, old.ID)
		}
		q.notifications = append([]Notification(nil), q.notifications[removed:]...)

		q.logger.Debug("Notification queue rotated",
			"removed_notifications", removed,
			"remaining_notifications", len(q.notifications),
		)
	}
	q.mu.Unlock()

	q.logger.Debug("Notification published",
		"offset", n.Offset,
		"level", n.Level,
		"operation", n.Operation,
		"entity_id", n.EntityID,
	)

	q.notifyWaiters(n.Offset)
	return n
}

// Success publishes a success notification
func (q *NotificationQueue) Success(operation string, entityID int64, message string) Notification {
	return q.Publish(LevelSuccess, operation, entityID, message)
}

// Failure publishes an error notification
func (q *NotificationQueue) Failure(operation string, entityID int64, message string) Notification {
	return q.Publish(LevelError, operation, entityID, message)
}

// GetNotifications returns live notifications starting at fromOffset, the offset to poll from next
// and whether more are available. Expired and dismissed notifications are skipped.
func (q *NotificationQueue) GetNotifications(fromOffset int64, limit int) ([]Notification, int64, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if limit <= 0 {
		limit = len(q.notifications)
	}

	now := q.now()
	result := make([]Notification, 0)
	nextOffset := fromOffset
	if nextOffset < 0 {
		nextOffset = 0
	}
	hasMore := false

	for _, n := range q.notifications {
		if n.Offset < fromOffset {
			continue
		}
		if len(result) == limit {
			hasMore = true
			break
		}
		nextOffset = n.Offset + 1
		if q.dismissed[n.ID] || !now.Before(n.ExpiresAt) {
			continue
		}
		result = append(result, n)
	}

	return result, nextOffset, hasMore
}

// WaitForNotifications returns a channel closed when a notification at or after fromOffset exists,
// or when timeout elapses
func (q *NotificationQueue) WaitForNotifications(fromOffset int64, timeout time.Duration) <-chan struct{} {
	q.waitersMutex.Lock()
	defer q.waitersMutex.Unlock()

	w := &waiter{ch: make(chan struct{})}

	q.mu.RLock()
	available := q.nextOffset > fromOffset || q.closed
	q.mu.RUnlock()

	if available {
		w.wake()
		return w.ch
	}

	q.waiters[fromOffset] = append(q.waiters[fromOffset], w)
	time.AfterFunc(timeout, func() {
		q.removeWaiter(fromOffset, w)
		w.wake()
	})
	return w.ch
}

// removeWaiter forgets a waiter whose long poll timed out
func (q *NotificationQueue) removeWaiter(fromOffset int64, w *waiter) {
	q.waitersMutex.Lock()
	defer q.waitersMutex.Unlock()

	waiters := q.waiters[fromOffset]
	for i, candidate := range waiters {
		if candidate == w {
			waiters = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(waiters) == 0 {
		delete(q.waiters, fromOffset)
		return
	}
	q.waiters[fromOffset] = waiters
}

// pendingWaiters counts registered long polls
func (q *NotificationQueue) pendingWaiters() int {
	q.waitersMutex.Lock()
	defer q.waitersMutex.Unlock()

	count := 0
	for _, waiters := range q.waiters {
		count += len(waiters)
	}
	return count
}

// Dismiss hides a notification before it expires. It reports whether the id was found.
func (q *NotificationQueue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, n := range q.notifications {
		if n.ID == id {
			q.dismissed[id] = true
			return true
		}
	}
	return false
}

// GetCurrentOffset returns the offset the next notification will get
func (q *NotificationQueue) GetCurrentOffset() int64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.nextOffset
}

// Close wakes every waiter; later publishes are dropped
func (q *NotificationQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.waitersMutex.Lock()
	defer q.waitersMutex.Unlock()
	for offset, waiters := range q.waiters {
		for _, w := range waiters {
			w.wake()
		}
		delete(q.waiters, offset)
	}
	q.logger.Info("Notification queue closed")
}

// notifyWaiters wakes all waiters waiting for notifications at or before the given offset
func (q *NotificationQueue) notifyWaiters(offset int64) {
	q.waitersMutex.Lock()
	defer q.waitersMutex.Unlock()

	for waitOffset, waiters := range q.waiters {
		if waitOffset <= offset {
			for _, w := range waiters {
				w.wake()
			}
			delete(q.waiters, waitOffset)
		}
	}
}
