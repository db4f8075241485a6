package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brands-console/internal/client"
	"brands-console/internal/editsession"
	"brands-console/internal/events"
	"brands-console/internal/logging"
	"brands-console/internal/models"
	"brands-console/internal/services"
	"brands-console/internal/testutils"
	"brands-console/internal/wizard"
)

const testAPIKey = "demo"

type consoleFixture struct {
	router   *mux.Router
	view     *services.BrandsView
	api      *testutils.FakeBrandsAPI
	fixtures *testutils.BrandFixtures
}

func newConsoleFixture(t *testing.T) *consoleFixture {
	t.Helper()
	fixtures := testutils.GetBrandFixtures()
	api := testutils.NewFakeBrandsAPI(t, fixtures.All()...)

	view := services.NewBrandsView(services.ViewConfig{
		Source:      client.NewBrandsClient(client.NewExecutor(api.URL(), client.WithLogger(logging.Discard()))),
		QuietPeriod: 30 * time.Millisecond,
		Notifications: events.NewNotificationQueue(events.QueueConfig{
			TTL:    time.Minute,
			Logger: logging.Discard(),
		}),
		Logger: logging.Discard(),
	})
	t.Cleanup(view.Close)

	view.Start()
	_, err := view.Await(context.Background())
	require.NoError(t, err)
	api.ResetCalls()

	return &consoleFixture{
		router: NewRouter(RouterConfig{
			View:        view,
			ConsoleKeys: []string{testAPIKey},
			Logger:      logging.Discard(),
		}),
		view:     view,
		api:      api,
		fixtures: fixtures,
	}
}

func (f *consoleFixture) do(t *testing.T, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req, err := testutils.CreateHTTPRequestWithAuth(method, url, testAPIKey, body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRouter_RequiresAPIKey(t *testing.T) {
	f := newConsoleFixture(t)

	req, err := testutils.CreateHTTPRequest("GET", "/v1/view", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	testutils.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestHealthHandler(t *testing.T) {
	f := newConsoleFixture(t)

	req, err := testutils.CreateHTTPRequest("GET", "/health", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp models.HealthResponse
	testutils.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceName, resp.Service)
	assert.Equal(t, "brands", resp.Cache["active_key"])
	assert.EqualValues(t, 1, resp.Cache["entries"])
}

func TestViewHandler_GetView(t *testing.T) {
	f := newConsoleFixture(t)

	var state services.ViewState
	testutils.AssertJSONResponse(t, f.do(t, "GET", "/v1/view", nil), http.StatusOK, &state)

	assert.Len(t, state.Brands, 3)
	assert.Equal(t, services.ViewStats{Total: 3, Approved: 1, UniqueOwners: 2}, state.Stats)
	assert.Empty(t, f.api.Calls(), "reading the view never fetches")
}

func TestViewHandler_GetViewWaitsForChange(t *testing.T) {
	f := newConsoleFixture(t)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- f.do(t, "GET", "/v1/view?wait=5", nil)
	}()

	// the waiting request may not have subscribed yet, so keep nudging the view
	require.Eventually(t, func() bool {
		f.view.OnFilterChange("hank")
		select {
		case w := <-done:
			var state services.ViewState
			testutils.AssertJSONResponse(t, w, http.StatusOK, &state)
			assert.Equal(t, "hank", state.Filter)
			return true
		default:
			return false
		}
	}, 3*time.Second, 20*time.Millisecond)
}

func TestViewHandler_SetFilter(t *testing.T) {
	t.Run("debounced", func(t *testing.T) {
		f := newConsoleFixture(t)

		var state services.ViewState
		testutils.AssertJSONResponse(t, f.do(t, "PUT", "/v1/view/filter", FilterRequest{Filter: "hank"}),
			http.StatusAccepted, &state)
		assert.Equal(t, "hank", state.Filter)
		assert.True(t, state.FilterPending)

		require.Eventually(t, func() bool {
			s := f.view.State()
			return s.SettledFilter == "hank" && !s.Loading && len(s.Brands) == 2
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("applied", func(t *testing.T) {
		f := newConsoleFixture(t)

		var state services.ViewState
		testutils.AssertJSONResponse(t,
			f.do(t, "PUT", "/v1/view/filter", FilterRequest{Filter: "acme", Apply: true}),
			http.StatusOK, &state)
		assert.Equal(t, "acme", state.SettledFilter)
		require.Len(t, state.Brands, 1)
		assert.Equal(t, f.fixtures.Acme, state.Brands[0])

		testutils.AssertJSONResponse(t, f.do(t, "DELETE", "/v1/view/filter", nil), http.StatusOK, &state)
		assert.Equal(t, "", state.SettledFilter)
	})

	t.Run("invalid json", func(t *testing.T) {
		f := newConsoleFixture(t)
		req, err := http.NewRequest("PUT", "/v1/view/filter", strings.NewReader("{not json"))
		require.NoError(t, err)
		req.Header.Set("X-API-Key", testAPIKey)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		testutils.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
	})
}

func TestViewHandler_RefreshFailure(t *testing.T) {
	f := newConsoleFixture(t)
	f.api.Respond("GET", "/brands", http.StatusServiceUnavailable, "upstream down")

	resp := testutils.AssertErrorResponse(t, f.do(t, "POST", "/v1/view/refresh", nil),
		http.StatusBadGateway, "upstream_unknown_server")
	assert.Equal(t, "HTTP 503", resp.Message)
	assert.Len(t, f.view.State().Brands, 3, "the last list stays visible")
}

func TestBrandsHandler_EditAndSave(t *testing.T) {
	f := newConsoleFixture(t)

	var editing editsession.State
	testutils.AssertJSONResponse(t, f.do(t, "POST", "/v1/brands/1/edit", nil), http.StatusOK, &editing)
	assert.True(t, editing.Editing)
	assert.Equal(t, int64(1), editing.EntityID)

	testutils.AssertJSONResponse(t,
		f.do(t, "PATCH", "/v1/brands/1/edit", DraftRequest{Status: models.StringPtr("rechazada")}),
		http.StatusOK, &editing)
	assert.Equal(t, models.BrandStatusRejected, editing.Draft.Status)

	var updated models.Brand
	testutils.AssertJSONResponse(t, f.do(t, "POST", "/v1/brands/1/edit/save", nil), http.StatusOK, &updated)
	assert.Equal(t, models.BrandStatusRejected, updated.Status)

	state := f.view.State()
	assert.False(t, state.Editing.Editing)
	assert.Equal(t, 1, f.api.CallCount("GET", "/brands"))
}

func TestBrandsHandler_EditErrors(t *testing.T) {
	testCases := []struct {
		name           string
		setup          func(t *testing.T, f *consoleFixture)
		method         string
		url            string
		body           interface{}
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "unknown brand",
			method:         "POST",
			url:            "/v1/brands/42/edit",
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "bad id",
			method:         "POST",
			url:            "/v1/brands/abc/edit",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "bad_request",
		},
		{
			name:           "draft for a brand not being edited",
			method:         "PATCH",
			url:            "/v1/brands/2/edit",
			body:           DraftRequest{Name: models.StringPtr("x")},
			expectedStatus: http.StatusConflict,
			expectedCode:   "not_editing",
		},
		{
			name:           "invalid status",
			setup:          func(t *testing.T, f *consoleFixture) { require.NoError(t, f.view.StartEdit(2)) },
			method:         "PATCH",
			url:            "/v1/brands/2/edit",
			body:           DraftRequest{Status: models.StringPtr("activo")},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "bad_request",
		},
		{
			name:           "save without changes",
			setup:          func(t *testing.T, f *consoleFixture) { require.NoError(t, f.view.StartEdit(2)) },
			method:         "POST",
			url:            "/v1/brands/2/edit/save",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "empty_patch",
		},
		{
			name: "server rejects blank name",
			setup: func(t *testing.T, f *consoleFixture) {
				require.NoError(t, f.view.StartEdit(2))
				require.NoError(t, f.view.EditName(""))
			},
			method:         "POST",
			url:            "/v1/brands/2/edit/save",
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "upstream_validation",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newConsoleFixture(t)
			if tc.setup != nil {
				tc.setup(t, f)
			}
			testutils.AssertErrorResponse(t, f.do(t, tc.method, tc.url, tc.body), tc.expectedStatus, tc.expectedCode)
		})
	}
}

func TestBrandsHandler_RejectedSaveCarriesFieldDetails(t *testing.T) {
	f := newConsoleFixture(t)
	require.NoError(t, f.view.StartEdit(2))
	require.NoError(t, f.view.EditName(" "))

	resp := testutils.AssertErrorResponse(t, f.do(t, "POST", "/v1/brands/2/edit/save", nil),
		http.StatusUnprocessableEntity, "upstream_validation")
	assert.Equal(t, "required", resp.Message)
	assert.Equal(t, []models.ErrorDetail{{Field: "name", Issue: "required"}}, resp.Details)
	assert.True(t, f.view.State().Editing.Editing, "the draft survives a rejection")
}

func TestBrandsHandler_CancelEdit(t *testing.T) {
	f := newConsoleFixture(t)
	require.NoError(t, f.view.StartEdit(1))

	w := f.do(t, "DELETE", "/v1/brands/1/edit", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, f.view.State().Editing.Editing)
}

func TestBrandsHandler_Delete(t *testing.T) {
	f := newConsoleFixture(t)

	testutils.AssertErrorResponse(t, f.do(t, "DELETE", "/v1/brands/3", nil),
		http.StatusPreconditionRequired, "confirmation_required")
	assert.Empty(t, f.api.Calls())

	w := f.do(t, "DELETE", "/v1/brands/3?confirm=true", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, f.view.State().Brands, 2)

	resp := testutils.AssertErrorResponse(t, f.do(t, "DELETE", "/v1/brands/3?confirm=true", nil),
		http.StatusNotFound, "upstream_not_found_or_conflict")
	assert.Equal(t, "Brand not found", resp.Message)
}

func TestWizardHandler_Flow(t *testing.T) {
	f := newConsoleFixture(t)

	var state wizard.State
	testutils.AssertErrorResponse(t, f.do(t, "POST", "/v1/wizard/next", nil), http.StatusBadRequest, "incomplete_step")

	testutils.AssertJSONResponse(t,
		f.do(t, "PUT", "/v1/wizard/fields", WizardFieldsRequest{BrandName: models.StringPtr("Hooli")}),
		http.StatusOK, &state)
	assert.True(t, state.CanContinue)

	testutils.AssertJSONResponse(t, f.do(t, "POST", "/v1/wizard/next", nil), http.StatusOK, &state)
	assert.Equal(t, wizard.StepOwner, state.Step)

	testutils.AssertErrorResponse(t, f.do(t, "POST", "/v1/wizard/submit", nil), http.StatusConflict, "wizard_state")

	f.do(t, "PUT", "/v1/wizard/fields", WizardFieldsRequest{OwnerName: models.StringPtr("gavin")})
	testutils.AssertJSONResponse(t, f.do(t, "POST", "/v1/wizard/next", nil), http.StatusOK, &state)
	assert.Equal(t, wizard.StepSummary, state.Step)

	testutils.AssertJSONResponse(t, f.do(t, "POST", "/v1/wizard/submit", nil), http.StatusCreated, &state)
	assert.Equal(t, wizard.StepBrand, state.Step)
	require.NotNil(t, state.LastOutcome)
	assert.True(t, state.LastOutcome.Success)
	assert.Len(t, f.view.State().Brands, 4)
}

func TestWizardHandler_SubmitRejected(t *testing.T) {
	f := newConsoleFixture(t)

	f.do(t, "PUT", "/v1/wizard/fields", WizardFieldsRequest{
		BrandName: models.StringPtr("Acme"),
		OwnerName: models.StringPtr("acme"),
	})
	f.do(t, "POST", "/v1/wizard/next", nil)
	f.do(t, "POST", "/v1/wizard/next", nil)

	var state wizard.State
	testutils.AssertJSONResponse(t, f.do(t, "POST", "/v1/wizard/submit", nil), http.StatusUnprocessableEntity, &state)
	assert.Equal(t, wizard.StepSummary, state.Step)
	require.NotNil(t, state.LastOutcome)
	assert.False(t, state.LastOutcome.Success)
	assert.Equal(t, "brand already registered", state.LastOutcome.Message)
	assert.Equal(t, 0, f.api.ListCalls())

	var back wizard.State
	testutils.AssertJSONResponse(t, f.do(t, "POST", "/v1/wizard/prev", nil), http.StatusOK, &back)
	assert.Equal(t, wizard.StepOwner, back.Step)
	require.NotNil(t, back.LastOutcome)

	// The reset body omits lastOutcome, so it must be decoded into a fresh value
	var reset wizard.State
	testutils.AssertJSONResponse(t, f.do(t, "DELETE", "/v1/wizard", nil), http.StatusOK, &reset)
	assert.Equal(t, wizard.State{Step: wizard.StepBrand}, reset)
	assert.Nil(t, f.view.Wizard().State().LastOutcome)
}

func TestNotificationsHandler(t *testing.T) {
	f := newConsoleFixture(t)

	require.NoError(t, f.view.Delete(context.Background(), 3, true))

	var resp NotificationsResponse
	testutils.AssertJSONResponse(t, f.do(t, "GET", "/v1/notifications?offset=0", nil), http.StatusOK, &resp)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, events.LevelSuccess, resp.Notifications[0].Level)
	assert.Equal(t, services.MessageDeleted, resp.Notifications[0].Message)
	assert.Equal(t, int64(1), resp.NextOffset)

	id := resp.Notifications[0].ID
	assert.Equal(t, http.StatusNoContent, f.do(t, "DELETE", "/v1/notifications/"+id, nil).Code)
	testutils.AssertErrorResponse(t, f.do(t, "DELETE", "/v1/notifications/"+id+"x", nil), http.StatusNotFound, "not_found")

	testutils.AssertJSONResponse(t, f.do(t, "GET", "/v1/notifications?offset=0", nil), http.StatusOK, &resp)
	assert.Equal(t, 0, resp.Count)

	testutils.AssertErrorResponse(t, f.do(t, "GET", "/v1/notifications?offset=-1", nil), http.StatusBadRequest, "bad_request")
}

func TestNotificationsHandler_LongPoll(t *testing.T) {
	f := newConsoleFixture(t)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- f.do(t, "GET", "/v1/notifications?offset=0&wait=5", nil)
	}()

	select {
	case <-done:
		t.Fatal("long poll returned before anything was published")
	case <-time.After(50 * time.Millisecond):
	}

	_, err := f.view.Coordinator().CreateBrand(context.Background(),
		models.CreateBrandRequest{BrandName: "Hooli", OwnerName: "gavin"})
	require.NoError(t, err)

	select {
	case w := <-done:
		var resp NotificationsResponse
		testutils.AssertJSONResponse(t, w, http.StatusOK, &resp)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, services.MessageCreated, resp.Notifications[0].Message)
	case <-time.After(3 * time.Second):
		t.Fatal("long poll was not woken by the create")
	}
}
