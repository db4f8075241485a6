package editsession

import (
	"errors"
	"sync"

	"brands-console/internal/models"
)

var (
	// ErrNotEditing is returned by draft changes while no row is being edited
	ErrNotEditing = errors.New("no brand is being edited")
	// ErrDiscardVetoed is returned when a discard guard refused to drop the current draft
	ErrDiscardVetoed = errors.New("discarding the current draft was refused")
)

// Draft holds the unsaved values of the row being edited
type Draft struct {
	Name   string             `json:"name"`
	Status models.BrandStatus `json:"status"`
}

// State is a snapshot of the session. EntityID is meaningful only while Editing is true.
type State struct {
	Editing  bool  `json:"editing"`
	EntityID int64 `json:"entityId,omitempty"`
	Draft    Draft `json:"draft"`
	// Original is the entity as it was when editing started
	Original models.Brand `json:"original"`
}

// DiscardGuard is asked before a draft for one entity is dropped to start editing another.
// Returning false keeps the current edit.
type DiscardGuard func(current State, next models.Brand) bool

// Session tracks which single brand, if any, is being edited inline.
// Starting an edit on another brand silently discards the current draft unless a guard is set.
type Session struct {
	mu      sync.Mutex
	state   State
	guard   DiscardGuard
	changed func(State)
}

// Option configures a Session
type Option func(*Session)

// WithDiscardGuard makes switching rows ask guard first
func WithDiscardGuard(guard DiscardGuard) Option {
	return func(s *Session) { s.guard = guard }
}

// WithOnChange calls fn after every transition
func WithOnChange(fn func(State)) Option {
	return func(s *Session) { s.changed = fn }
}

// New creates an idle session
func New(opts ...Option) *Session {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins editing brand with a draft copied from its current values
func (s *Session) Start(brand models.Brand) error {
	s.mu.Lock()
	// The guard runs unlocked; if another edit started meanwhile it is asked again about that one
	for s.state.Editing && s.state.EntityID != brand.ID && s.guard != nil {
		current := s.state
		guard := s.guard
		s.mu.Unlock()

		if !guard(current, brand) {
			return ErrDiscardVetoed
		}

		s.mu.Lock()
		if s.state == current {
			break
		}
	}

	s.state = State{
		Editing:  true,
		EntityID: brand.ID,
		Draft:    Draft{Name: brand.Name, Status: brand.Status},
		Original: brand,
	}
	next := s.state
	s.mu.Unlock()

	s.emit(next)
	return nil
}

// SetName changes the draft name
func (s *Session) SetName(name string) error {
	return s.update(func(d *Draft) { d.Name = name })
}

// SetStatus changes the draft status
func (s *Session) SetStatus(status models.BrandStatus) error {
	return s.update(func(d *Draft) { d.Status = status })
}

// Cancel discards the draft. Cancelling an idle session does nothing.
func (s *Session) Cancel() {
	s.mu.Lock()
	if !s.state.Editing {
		s.mu.Unlock()
		return
	}
	s.state = State{}
	s.mu.Unlock()

	s.emit(State{})
}

// Complete ends the edit of id after a successful save. It reports whether a session for id was active;
// an edit of another brand is left alone.
func (s *Session) Complete(id int64) bool {
	s.mu.Lock()
	if !s.state.Editing || s.state.EntityID != id {
		s.mu.Unlock()
		return false
	}
	s.state = State{}
	s.mu.Unlock()

	s.emit(State{})
	return true
}

// Current returns the session state
func (s *Session) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsEditing reports whether id is the row being edited
func (s *Session) IsEditing(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Editing && s.state.EntityID == id
}

// Changes returns the patch holding only the fields that differ from the original entity
func (s *Session) Changes() (int64, models.UpdateBrandRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Editing {
		return 0, models.UpdateBrandRequest{}, ErrNotEditing
	}

	var patch models.UpdateBrandRequest
	if s.state.Draft.Name != s.state.Original.Name {
		patch.Name = models.StringPtr(s.state.Draft.Name)
	}
	if s.state.Draft.Status != s.state.Original.Status {
		patch.Status = models.StatusPtr(s.state.Draft.Status)
	}
	return s.state.EntityID, patch, nil
}

// UpdateDraft applies the non-nil values to the draft of id. It fails with ErrNotEditing
// unless id is the row being edited, checked under the same lock as the change.
func (s *Session) UpdateDraft(id int64, name *string, status *models.BrandStatus) error {
	return s.updateWhere(func(st State) bool { return st.EntityID == id }, func(d *Draft) {
		if name != nil {
			d.Name = *name
		}
		if status != nil {
			d.Status = *status
		}
	})
}

func (s *Session) update(apply func(*Draft)) error {
	return s.updateWhere(func(State) bool { return true }, apply)
}

func (s *Session) updateWhere(match func(State) bool, apply func(*Draft)) error {
	s.mu.Lock()
	if !s.state.Editing || !match(s.state) {
		s.mu.Unlock()
		return ErrNotEditing
	}
	apply(&s.state.Draft)
	next := s.state
	s.mu.Unlock()

	s.emit(next)
	return nil
}

func (s *Session) emit(state State) {
	if s.changed != nil {
		s.changed(state)
	}
}
