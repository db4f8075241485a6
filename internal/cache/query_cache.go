package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"brands-console/internal/telemetry"
)

var (
	// ErrNoActiveKey is returned by operations on the active key while none is set
	ErrNoActiveKey = errors.New("no active query key")
	// ErrClosed is returned once the cache has been closed
	ErrClosed = errors.New("query cache closed")
)

// Status is the load state of a cache entry
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Load outcomes reported to telemetry
const (
	OutcomeNetwork        = "network"
	OutcomeShared         = "shared"
	OutcomeStaleDiscarded = "stale_discarded"
	OutcomeSuperseded     = "superseded"
)

// Fetcher loads the data of one key
type Fetcher[T any] func(ctx context.Context, key QueryKey) (T, error)

// Snapshot is a consistent view of one cache entry
type Snapshot[T any] struct {
	Key           QueryKey
	Active        bool
	Data          T
	HasData       bool
	Status        Status
	Err           error
	IsLoading     bool
	LastFetchedAt time.Time
}

type entry[T any] struct {
	data          T
	hasData       bool
	status        Status
	err           error
	lastFetchedAt time.Time

	latest  *pendingLoad[T] // most recently issued load, nil once it settled
	applied uint64          // seq of the newest result written to the entry
}

// pendingLoad is one request for a key's data. Several pending loads share one network call
// when they join an in-flight fetch.
type pendingLoad[T any] struct {
	seq  uint64
	done chan struct{}

	data T
	err  error
}

// flightResult travels through singleflight so joiners learn which load really ran
type flightResult[T any] struct {
	seq  uint64
	data T
}

// QueryCache maps query keys to cached data and deduplicates in-flight fetches.
// Exactly one key is active at a time; only changes of the active entry reach subscribers.
type QueryCache[T any] struct {
	name      string
	fetcher   Fetcher[T]
	telemetry *telemetry.ClientTelemetry
	logger    *slog.Logger

	group singleflight.Group

	mu          sync.Mutex
	entries     map[QueryKey]*entry[T]
	active      QueryKey
	hasActive   bool
	seq         uint64
	subscribers map[int]func(Snapshot[T])
	nextSubID   int
	closed      bool
	stats       map[string]int64

	// serializes subscriber delivery so snapshots arrive in the order they were taken
	notifyMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a QueryCache
type Option func(*options)

type options struct {
	telemetry *telemetry.ClientTelemetry
	logger    *slog.Logger
}

// WithTelemetry records load outcomes through t
func WithTelemetry(t *telemetry.ClientTelemetry) Option {
	return func(o *options) { o.telemetry = t }
}

// WithLogger sets the cache logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewQueryCache creates a cache named after the resource it serves
func NewQueryCache[T any](name string, fetcher Fetcher[T], opts ...Option) *QueryCache[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &QueryCache[T]{
		name:        name,
		fetcher:     fetcher,
		telemetry:   o.telemetry,
		logger:      o.logger,
		entries:     make(map[QueryKey]*entry[T]),
		subscribers: make(map[int]func(Snapshot[T])),
		stats:       make(map[string]int64),
		ctx:         ctx,
		cancel:      cancel,
	}

	c.logger.Debug("Query cache initialized", "cache", name)
	return c
}

// SetKey makes key the active key. Setting the key that is already active does nothing.
// A new key always loads, joining a fetch already in flight for it.
func (c *QueryCache[T]) SetKey(key QueryKey) {
	c.mu.Lock()
	if c.closed || (c.hasActive && c.active == key) {
		c.mu.Unlock()
		return
	}
	c.active = key
	c.hasActive = true
	c.issueLocked(key, false)
	c.mu.Unlock()

	c.logger.Debug("Active query key changed", "cache", c.name, "key", key.String())
	c.notify()
}

// ClearKey deactivates the cache: nothing loads and the snapshot carries no data
func (c *QueryCache[T]) ClearKey() {
	c.mu.Lock()
	if !c.hasActive {
		c.mu.Unlock()
		return
	}
	c.active = QueryKey{}
	c.hasActive = false
	c.mu.Unlock()

	c.notify()
}

// ActiveKey returns the active key and whether one is set
func (c *QueryCache[T]) ActiveKey() (QueryKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.hasActive
}

// Fetch loads key, sharing any fetch already in flight for it, and waits for the result
func (c *QueryCache[T]) Fetch(ctx context.Context, key QueryKey) (T, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		var zero T
		return zero, ErrClosed
	}
	load := c.issueLocked(key, false)
	c.mu.Unlock()

	if c.isActive(key) {
		c.notify()
	}
	return c.wait(ctx, load)
}

// Refetch forces a new network call for the active key, regardless of cached or in-flight
// state, and waits for it
func (c *QueryCache[T]) Refetch(ctx context.Context) (T, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		var zero T
		return zero, ErrClosed
	}
	if !c.hasActive {
		c.mu.Unlock()
		var zero T
		return zero, ErrNoActiveKey
	}
	load := c.issueLocked(c.active, true)
	c.mu.Unlock()

	c.notify()
	return c.wait(ctx, load)
}

// Revalidate is Refetch for callers that only care whether the refresh worked.
// Without an active key there is nothing to revalidate and it returns nil.
func (c *QueryCache[T]) Revalidate(ctx context.Context) error {
	_, err := c.Refetch(ctx)
	if errors.Is(err, ErrNoActiveKey) {
		return nil
	}
	return err
}

// Await blocks until the active key has no load pending and returns its snapshot
func (c *QueryCache[T]) Await(ctx context.Context) (Snapshot[T], error) {
	for {
		c.mu.Lock()
		var pending *pendingLoad[T]
		if c.hasActive {
			if e, ok := c.entries[c.active]; ok {
				pending = e.latest
			}
		}
		c.mu.Unlock()

		if pending == nil {
			return c.Snapshot(), nil
		}

		select {
		case <-pending.done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

// Snapshot returns the state of the active key
func (c *QueryCache[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasActive {
		return Snapshot[T]{Status: StatusIdle}
	}
	return c.snapshotLocked(c.active)
}

// Entry returns the state of any key, active or not
func (c *QueryCache[T]) Entry(key QueryKey) (Snapshot[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return Snapshot[T]{}, false
	}
	return c.snapshotLocked(key), true
}

// Subscribe registers fn for every change of the active entry. fn runs outside the cache lock
// but must not call SetKey, ClearKey or the fetch methods synchronously.
func (c *QueryCache[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// Stats returns cache statistics
func (c *QueryCache[T]) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := map[string]interface{}{
		"name":        c.name,
		"entries":     len(c.entries),
		"subscribers": len(c.subscribers),
		"active_key":  "",
	}
	if c.hasActive {
		stats["active_key"] = c.active.String()
	}
	for k, v := range c.stats {
		stats[k] = v
	}
	return stats
}

// Close stops delivering updates and cancels fetches still running
func (c *QueryCache[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.subscribers = make(map[int]func(Snapshot[T]))
	c.mu.Unlock()

	c.cancel()
	c.logger.Debug("Query cache closed", "cache", c.name)
}

// issueLocked registers a new load for key and hands it to singleflight.
// Must be called with c.mu held; singleflight runs the fetch on its own goroutine.
func (c *QueryCache[T]) issueLocked(key QueryKey, forced bool) *pendingLoad[T] {
	e := c.entryLocked(key)

	c.seq++
	load := &pendingLoad[T]{seq: c.seq, done: make(chan struct{})}
	e.latest = load
	e.status = e.currentStatus()
	c.stats["loads_issued"]++

	flight := key.String()
	if forced {
		c.group.Forget(flight)
	}
	seq := load.seq
	ch := c.group.DoChan(flight, func() (interface{}, error) {
		data, err := c.fetcher(c.ctx, key)
		return flightResult[T]{seq: seq, data: data}, err
	})

	go func() {
		res := <-ch
		c.settle(key, load, res)
	}()

	return load
}

// settle applies a finished load. Results are written in issue order: one older than the
// result already applied is dropped. Loading ends when the most recently issued load settles.
func (c *QueryCache[T]) settle(key QueryKey, load *pendingLoad[T], res singleflight.Result) {
	result, _ := res.Val.(flightResult[T])
	ranSeq := result.seq
	if ranSeq == 0 {
		ranSeq = load.seq
	}

	load.data = result.data
	load.err = res.Err

	c.mu.Lock()
	e := c.entryLocked(key)
	outcome := OutcomeNetwork
	if ranSeq != load.seq {
		outcome = OutcomeShared
	}

	changed := false
	switch {
	case ranSeq > e.applied:
		e.applied = ranSeq
		if res.Err != nil {
			// The last good value stays visible next to the error
			e.err = res.Err
		} else {
			e.data = result.data
			e.hasData = true
			e.err = nil
			e.lastFetchedAt = time.Now()
		}
		changed = true
	case ranSeq < e.applied:
		outcome = OutcomeStaleDiscarded
	}

	if e.latest == load {
		e.latest = nil
		changed = true
	}
	e.status = e.currentStatus()

	active := c.hasActive && c.active == key
	if !active && outcome == OutcomeNetwork {
		outcome = OutcomeSuperseded
	}
	closed := c.closed
	c.stats["outcome_"+outcome]++
	c.mu.Unlock()

	close(load.done)

	c.telemetry.RecordCacheFetch(context.Background(), c.name, outcome)
	if res.Err != nil && !errors.Is(res.Err, context.Canceled) {
		c.logger.Warn("Query load failed", "cache", c.name, "key", key.String(), "error", res.Err)
	} else {
		c.logger.Debug("Query load settled", "cache", c.name, "key", key.String(), "outcome", outcome)
	}

	if changed && active && !closed {
		c.notify()
	}
}

func (c *QueryCache[T]) wait(ctx context.Context, load *pendingLoad[T]) (T, error) {
	select {
	case <-load.done:
		return load.data, load.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (c *QueryCache[T]) isActive(key QueryKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasActive && c.active == key
}

func (e *entry[T]) currentStatus() Status {
	switch {
	case e.latest != nil:
		return StatusLoading
	case e.err != nil:
		return StatusError
	case e.applied > 0:
		return StatusSuccess
	default:
		return StatusIdle
	}
}

// entryLocked returns the entry of key, creating it on first use
func (c *QueryCache[T]) entryLocked(key QueryKey) *entry[T] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{status: StatusIdle}
		c.entries[key] = e
	}
	return e
}

func (c *QueryCache[T]) snapshotLocked(key QueryKey) Snapshot[T] {
	e, ok := c.entries[key]
	snap := Snapshot[T]{
		Key:    key,
		Active: c.hasActive && c.active == key,
		Status: StatusIdle,
	}
	if !ok {
		return snap
	}
	snap.Data = e.data
	snap.HasData = e.hasData
	snap.Status = e.status
	snap.Err = e.err
	snap.IsLoading = e.latest != nil
	snap.LastFetchedAt = e.lastFetchedAt
	return snap
}

func (c *QueryCache[T]) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	var snap Snapshot[T]
	if c.hasActive {
		snap = c.snapshotLocked(c.active)
	} else {
		snap = Snapshot[T]{Status: StatusIdle}
	}
	subs := make([]func(Snapshot[T]), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
