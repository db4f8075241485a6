package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"brands-console/internal/cache"
	"brands-console/internal/client"
	"brands-console/internal/debounce"
	"brands-console/internal/editsession"
	"brands-console/internal/events"
	"brands-console/internal/models"
	"brands-console/internal/telemetry"
	"brands-console/internal/wizard"
)

var (
	// ErrConfirmationRequired is returned by Delete until the user confirmed it
	ErrConfirmationRequired = errors.New("delete requires confirmation")
	// ErrBrandNotFound is returned when an id is not part of the shown list
	ErrBrandNotFound = errors.New("brand is not in the current list")
)

// Query resources of the brands list
const (
	ResourceBrands        = "brands"
	ResourceBrandsByOwner = "brands-by-owner"
)

// BrandsSource is everything the view needs from the remote API
type BrandsSource interface {
	BrandsAPI
	List(ctx context.Context, owner string) ([]models.Brand, error)
	SearchByOwner(ctx context.Context, owner string) ([]models.Brand, error)
}

// KeyForFilter maps a settled owner filter to the query that lists it.
// A blank filter lists everything.
func KeyForFilter(settled string) cache.QueryKey {
	owner := strings.TrimSpace(settled)
	if owner == "" {
		return cache.NewQueryKey(ResourceBrands, nil)
	}
	return cache.NewQueryKey(ResourceBrandsByOwner, map[string]string{"owner": owner})
}

// ViewStats are the summary cards above the table
type ViewStats struct {
	Total        int `json:"total"`
	Approved     int `json:"approved"`
	UniqueOwners int `json:"uniqueOwners"`
}

// ViewState is everything a renderer needs to draw the brands page
type ViewState struct {
	Filter        string            `json:"filter"`
	SettledFilter string            `json:"settledFilter"`
	FilterPending bool              `json:"filterPending"`
	Brands        []models.Brand    `json:"brands"`
	Status        cache.Status      `json:"status"`
	Loading       bool              `json:"loading"`
	Error         string            `json:"error,omitempty"`
	LastFetchedAt *time.Time        `json:"lastFetchedAt,omitempty"`
	Stats         ViewStats         `json:"stats"`
	Editing       editsession.State `json:"editing"`
}

// ViewConfig holds the settings of a BrandsView
type ViewConfig struct {
	Source        BrandsSource
	QuietPeriod   time.Duration
	Notifications *events.NotificationQueue
	DiscardGuard  editsession.DiscardGuard
	Telemetry     *telemetry.ClientTelemetry
	Logger        *slog.Logger
}

// BrandsView is the controller of the brands page. It owns the filter debouncer, the list cache,
// the inline edit session, the creation wizard and the mutation coordinator, and turns their
// combined state into ViewState for whoever renders it.
type BrandsView struct {
	source        BrandsSource
	debouncer     *debounce.Debouncer
	list          *cache.QueryCache[[]models.Brand]
	session       *editsession.Session
	coordinator   *MutationCoordinator
	locks         *EntityLockManager
	wizard        *wizard.Wizard
	notifications *events.NotificationQueue
	logger        *slog.Logger

	unsubscribeList func()

	mu          sync.Mutex
	subscribers map[int]func(ViewState)
	nextSubID   int
	closed      bool
}

// NewBrandsView wires a view around source. Nothing loads until Start.
func NewBrandsView(cfg ViewConfig) *BrandsView {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifications == nil {
		cfg.Notifications = events.NewNotificationQueue(events.QueueConfig{Logger: cfg.Logger})
	}

	v := &BrandsView{
		source:        cfg.Source,
		notifications: cfg.Notifications,
		logger:        cfg.Logger,
		subscribers:   make(map[int]func(ViewState)),
	}

	v.list = cache.NewQueryCache[[]models.Brand](ResourceBrands, v.fetch,
		cache.WithTelemetry(cfg.Telemetry),
		cache.WithLogger(cfg.Logger))

	sessionOpts := []editsession.Option{editsession.WithOnChange(func(editsession.State) { v.publish() })}
	if cfg.DiscardGuard != nil {
		sessionOpts = append(sessionOpts, editsession.WithDiscardGuard(cfg.DiscardGuard))
	}
	v.session = editsession.New(sessionOpts...)

	v.locks = NewEntityLockManager(cfg.Logger)
	v.coordinator = NewMutationCoordinator(CoordinatorConfig{
		API:           cfg.Source,
		List:          v.list,
		Session:       v.session,
		Notifications: cfg.Notifications,
		Locks:         v.locks,
		Telemetry:     cfg.Telemetry,
		Logger:        cfg.Logger,
	})
	v.wizard = wizard.New(v.coordinator, cfg.Logger)
	v.debouncer = debounce.New(cfg.QuietPeriod, v.onFilterSettled)
	v.unsubscribeList = v.list.Subscribe(func(cache.Snapshot[[]models.Brand]) { v.publish() })

	return v
}

// Start shows the unfiltered list right away
func (v *BrandsView) Start() {
	v.debouncer.Flush()
	v.logger.Info("Brands view started")
}

// OnFilterChange records a keystroke in the owner filter. The list follows once typing pauses.
func (v *BrandsView) OnFilterChange(raw string) {
	v.debouncer.OnInputChange(raw)
	v.publish()
}

// ClearFilter empties the owner filter and shows the full list without waiting
func (v *BrandsView) ClearFilter() {
	v.debouncer.OnInputChange("")
	v.debouncer.Flush()
}

// ApplyFilter sets the owner filter, settles it immediately and waits for its list
func (v *BrandsView) ApplyFilter(ctx context.Context, raw string) (ViewState, error) {
	v.debouncer.OnInputChange(raw)
	v.debouncer.Flush()
	if _, err := v.list.Await(ctx); err != nil {
		return v.State(), err
	}
	return v.State(), nil
}

// Refresh reloads the shown list from the server
func (v *BrandsView) Refresh(ctx context.Context) error {
	if err := v.list.Revalidate(ctx); err != nil {
		return fmt.Errorf("failed to refresh brands: %w", err)
	}
	return nil
}

// Await waits until the shown list has no load pending
func (v *BrandsView) Await(ctx context.Context) (ViewState, error) {
	_, err := v.list.Await(ctx)
	return v.State(), err
}

// State returns the current page state
func (v *BrandsView) State() ViewState {
	settled, _ := v.debouncer.Settled()
	snap := v.list.Snapshot()

	state := ViewState{
		Filter:        v.debouncer.Raw(),
		SettledFilter: settled,
		FilterPending: v.debouncer.Pending(),
		Brands:        []models.Brand{},
		Status:        snap.Status,
		Loading:       snap.IsLoading,
		Editing:       v.session.Current(),
	}
	if snap.HasData && snap.Data != nil {
		state.Brands = snap.Data
	}
	if snap.Err != nil {
		state.Error = client.UserMessage(snap.Err)
	}
	if !snap.LastFetchedAt.IsZero() {
		fetched := snap.LastFetchedAt
		state.LastFetchedAt = &fetched
	}
	state.Stats = computeStats(state.Brands)
	return state
}

// StartEdit opens the inline editor on a brand of the shown list
func (v *BrandsView) StartEdit(id int64) error {
	brand, ok := v.findBrand(id)
	if !ok {
		return fmt.Errorf("brand %d: %w", id, ErrBrandNotFound)
	}
	return v.session.Start(brand)
}

// EditName changes the name in the open editor
func (v *BrandsView) EditName(name string) error {
	return v.session.SetName(name)
}

// EditStatus changes the status in the open editor
func (v *BrandsView) EditStatus(status models.BrandStatus) error {
	return v.session.SetStatus(status)
}

// EditDraft changes the draft of id in one step. It fails with editsession.ErrNotEditing
// when id is not the row being edited.
func (v *BrandsView) EditDraft(id int64, name *string, status *models.BrandStatus) error {
	return v.session.UpdateDraft(id, name, status)
}

// CancelEdit closes the editor without saving
func (v *BrandsView) CancelEdit() {
	v.session.Cancel()
}

// SaveEdit sends the changed fields of the open editor. On success the editor closes and
// the list is reloaded; on failure the editor stays open with its draft.
func (v *BrandsView) SaveEdit(ctx context.Context) (*models.Brand, error) {
	id, patch, err := v.session.Changes()
	if err != nil {
		return nil, err
	}
	return v.coordinator.UpdateBrand(ctx, id, patch)
}

// Delete removes a brand once the user confirmed it
func (v *BrandsView) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := v.coordinator.DeleteBrand(ctx, id); err != nil {
		return err
	}

	shown := make(map[int64]bool)
	for _, b := range v.list.Snapshot().Data {
		shown[b.ID] = true
	}
	v.locks.CleanupUnusedLocks(shown)
	return nil
}

// Wizard returns the creation wizard
func (v *BrandsView) Wizard() *wizard.Wizard {
	return v.wizard
}

// Notifications returns the queue mutation outcomes are published to
func (v *BrandsView) Notifications() *events.NotificationQueue {
	return v.notifications
}

// Coordinator returns the mutation coordinator, for callers that mutate without the editor
func (v *BrandsView) Coordinator() *MutationCoordinator {
	return v.coordinator
}

// Stats returns cache and lock statistics for health reporting
func (v *BrandsView) Stats() map[string]interface{} {
	stats := v.list.Stats()
	for k, val := range v.locks.GetLockStats() {
		stats[k] = val
	}
	stats["notification_offset"] = v.notifications.GetCurrentOffset()
	return stats
}

// Subscribe registers fn for every change of the page state
func (v *BrandsView) Subscribe(fn func(ViewState)) (unsubscribe func()) {
	v.mu.Lock()
	id := v.nextSubID
	v.nextSubID++
	v.subscribers[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.subscribers, id)
		v.mu.Unlock()
	}
}

// Close stops the debouncer, the cache and the notification queue
func (v *BrandsView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.subscribers = make(map[int]func(ViewState))
	v.mu.Unlock()

	v.debouncer.Close()
	v.unsubscribeList()
	v.list.Close()
	v.notifications.Close()
	v.logger.Info("Brands view closed")
}

func (v *BrandsView) onFilterSettled(settled string) {
	key := KeyForFilter(settled)
	v.logger.Debug("Owner filter settled", "filter", settled, "key", key.String())
	v.list.SetKey(key)
	v.publish()
}

func (v *BrandsView) fetch(ctx context.Context, key cache.QueryKey) ([]models.Brand, error) {
	switch key.Resource {
	case ResourceBrands:
		return v.source.List(ctx, "")
	case ResourceBrandsByOwner:
		return v.source.SearchByOwner(ctx, key.Param("owner"))
	default:
		return nil, fmt.Errorf("unknown brands query %q", key.String())
	}
}

func (v *BrandsView) findBrand(id int64) (models.Brand, bool) {
	for _, b := range v.list.Snapshot().Data {
		if b.ID == id {
			return b, true
		}
	}
	return models.Brand{}, false
}

func (v *BrandsView) publish() {
	v.mu.Lock()
	if v.closed || len(v.subscribers) == 0 {
		v.mu.Unlock()
		return
	}
	subs := make([]func(ViewState), 0, len(v.subscribers))
	for _, fn := range v.subscribers {
		subs = append(subs, fn)
	}
	v.mu.Unlock()

	state := v.State()
	for _, fn := range subs {
		fn(state)
	}
}

func computeStats(brands []models.Brand) ViewStats {
	stats := ViewStats{Total: len(brands)}
	owners := make(map[string]struct{})
	for _, b := range brands {
		if b.Status == models.BrandStatusApproved {
			stats.Approved++
		}
		if b.Owner.Name != "" {
			owners[b.Owner.Name] = struct{}{}
		}
	}
	stats.UniqueOwners = len(owners)
	return stats
}
