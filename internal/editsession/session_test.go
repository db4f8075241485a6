package editsession

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brands-console/internal/models"
)

var (
	acme   = models.Brand{ID: 1, Name: "Acme", Status: models.BrandStatusApproved, Owner: models.Owner{ID: 5, Name: "acme"}}
	globex = models.Brand{ID: 2, Name: "Globex", Status: models.BrandStatusPending, Owner: models.Owner{ID: 6, Name: "hank"}}
)

func TestSession_StartTakesSnapshot(t *testing.T) {
	s := New()

	brand := acme
	require.NoError(t, s.Start(brand))
	brand.Name = "changed after start"

	state := s.Current()
	assert.True(t, state.Editing)
	assert.Equal(t, int64(1), state.EntityID)
	assert.Equal(t, Draft{Name: "Acme", Status: models.BrandStatusApproved}, state.Draft)
	assert.True(t, s.IsEditing(1))
	assert.False(t, s.IsEditing(2))
}

func TestSession_FieldChangesStayOnSameEntity(t *testing.T) {
	s := New()
	require.NoError(t, s.Start(acme))

	require.NoError(t, s.SetName("Acme Corp"))
	require.NoError(t, s.SetStatus(models.BrandStatusRejected))

	state := s.Current()
	assert.Equal(t, int64(1), state.EntityID)
	assert.Equal(t, Draft{Name: "Acme Corp", Status: models.BrandStatusRejected}, state.Draft)
	assert.Equal(t, acme, state.Original)
}

func TestSession_ChangesWhileIdle(t *testing.T) {
	s := New()

	assert.ErrorIs(t, s.SetName("x"), ErrNotEditing)
	assert.ErrorIs(t, s.SetStatus(models.BrandStatusPending), ErrNotEditing)

	_, _, err := s.Changes()
	assert.ErrorIs(t, err, ErrNotEditing)
}

func TestSession_Transitions(t *testing.T) {
	testCases := []struct {
		name            string
		run             func(s *Session)
		expectedEditing bool
		expectedID      int64
	}{
		{
			name:            "cancel discards the draft",
			run:             func(s *Session) { s.Start(acme); s.SetName("draft"); s.Cancel() },
			expectedEditing: false,
		},
		{
			name:            "cancel while idle stays idle",
			run:             func(s *Session) { s.Cancel() },
			expectedEditing: false,
		},
		{
			name:            "complete clears the matching session",
			run:             func(s *Session) { s.Start(acme); s.Complete(acme.ID) },
			expectedEditing: false,
		},
		{
			name:            "complete of another id leaves the session alone",
			run:             func(s *Session) { s.Start(acme); s.Complete(globex.ID) },
			expectedEditing: true,
			expectedID:      acme.ID,
		},
		{
			name:            "starting another row switches silently",
			run:             func(s *Session) { s.Start(acme); s.SetName("lost"); s.Start(globex) },
			expectedEditing: true,
			expectedID:      globex.ID,
		},
		{
			name:            "restarting the same row resets the draft",
			run:             func(s *Session) { s.Start(acme); s.SetName("lost"); s.Start(acme) },
			expectedEditing: true,
			expectedID:      acme.ID,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			tc.run(s)

			state := s.Current()
			assert.Equal(t, tc.expectedEditing, state.Editing)
			if tc.expectedEditing {
				assert.Equal(t, tc.expectedID, state.EntityID)
				assert.NotEqual(t, "lost", state.Draft.Name)
			} else {
				assert.Equal(t, State{}, state)
			}
		})
	}
}

func TestSession_CompleteReportsWhetherItCleared(t *testing.T) {
	s := New()
	assert.False(t, s.Complete(1))

	require.NoError(t, s.Start(acme))
	assert.False(t, s.Complete(2))
	assert.True(t, s.Complete(1))
}

func TestSession_DiscardGuard(t *testing.T) {
	var asked []State
	veto := true
	s := New(WithDiscardGuard(func(current State, next models.Brand) bool {
		asked = append(asked, current)
		return !veto
	}))

	require.NoError(t, s.Start(acme))
	require.NoError(t, s.SetName("unsaved"))

	// Same row never asks
	require.NoError(t, s.SetName("unsaved"))
	err := s.Start(globex)
	assert.ErrorIs(t, err, ErrDiscardVetoed)
	require.Len(t, asked, 1)
	assert.Equal(t, "unsaved", asked[0].Draft.Name)

	state := s.Current()
	assert.Equal(t, acme.ID, state.EntityID)
	assert.Equal(t, "unsaved", state.Draft.Name)

	veto = false
	require.NoError(t, s.Start(globex))
	assert.Equal(t, globex.ID, s.Current().EntityID)
	assert.Len(t, asked, 2)
}

func TestSession_Changes(t *testing.T) {
	testCases := []struct {
		name     string
		edit     func(s *Session)
		expected string
	}{
		{"no change", func(s *Session) {}, `{}`},
		{"status only", func(s *Session) { s.SetStatus(models.BrandStatusRejected) }, `{"status":"RECHAZADA"}`},
		{"name only", func(s *Session) { s.SetName("Acme Corp") }, `{"name":"Acme Corp"}`},
		{"both", func(s *Session) { s.SetName("Acme Corp"); s.SetStatus(models.BrandStatusPending) }, `{"name":"Acme Corp","status":"PENDIENTE"}`},
		{"changed back", func(s *Session) { s.SetName("x"); s.SetName("Acme") }, `{}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			require.NoError(t, s.Start(acme))
			tc.edit(s)

			id, patch, err := s.Changes()
			require.NoError(t, err)
			assert.Equal(t, acme.ID, id)

			body, err := json.Marshal(patch)
			require.NoError(t, err)
			assert.JSONEq(t, tc.expected, string(body))
		})
	}
}

func TestSession_OnChange(t *testing.T) {
	var states []State
	s := New(WithOnChange(func(st State) { states = append(states, st) }))

	s.Start(acme)
	s.SetName("Acme Corp")
	s.Cancel()

	require.Len(t, states, 3)
	assert.True(t, states[0].Editing)
	assert.Equal(t, "Acme Corp", states[1].Draft.Name)
	assert.False(t, states[2].Editing)
}

func TestSession_DiscardGuardAskedAgainWhenAnotherEditStarted(t *testing.T) {
	initech := models.Brand{ID: 3, Name: "Initech", Status: models.BrandStatusRejected, Owner: models.Owner{ID: 6, Name: "hank"}}

	type question struct{ from, to int64 }
	var asked []question
	var s *Session
	s = New(WithDiscardGuard(func(current State, next models.Brand) bool {
		asked = append(asked, question{current.EntityID, next.ID})
		switch len(asked) {
		case 1:
			// Another caller switches to initech while this guard is deciding
			require.NoError(t, s.Start(initech))
			return true
		case 2:
			return true
		default:
			return false
		}
	}))

	require.NoError(t, s.Start(acme))
	require.NoError(t, s.SetName("unsaved"))

	err := s.Start(globex)

	assert.ErrorIs(t, err, ErrDiscardVetoed)
	assert.Equal(t, []question{{1, 2}, {1, 3}, {3, 2}}, asked)
	assert.Equal(t, initech.ID, s.Current().EntityID)
}

func TestSession_UpdateDraft(t *testing.T) {
	s := New()
	require.NoError(t, s.Start(acme))

	rejected := models.BrandStatusRejected
	assert.ErrorIs(t, s.UpdateDraft(globex.ID, models.StringPtr("wrong row"), &rejected), ErrNotEditing)
	assert.Equal(t, Draft{Name: "Acme", Status: models.BrandStatusApproved}, s.Current().Draft)

	require.NoError(t, s.UpdateDraft(acme.ID, models.StringPtr("Acme Corp"), &rejected))
	assert.Equal(t, Draft{Name: "Acme Corp", Status: models.BrandStatusRejected}, s.Current().Draft)

	require.NoError(t, s.UpdateDraft(acme.ID, nil, nil))
	assert.Equal(t, "Acme Corp", s.Current().Draft.Name)

	s.Cancel()
	assert.ErrorIs(t, s.UpdateDraft(acme.ID, models.StringPtr("x"), nil), ErrNotEditing)
}
