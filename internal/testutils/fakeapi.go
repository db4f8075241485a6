package testutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"brands-console/internal/models"
)

// RecordedCall is one request received by the fake brands API
type RecordedCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	Header http.Header
}

// Owner returns the owner query parameter of the call
func (c RecordedCall) Owner() string {
	return c.Query.Get("owner")
}

// CannedResponse replaces the next response of a route
type CannedResponse struct {
	Status int
	Body   string
}

// Gate holds matching requests until released
type Gate struct {
	match   func(RecordedCall) bool
	release chan struct{}
	arrived chan RecordedCall
	once    sync.Once
}

// Release lets every held and future matching request through
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// WaitArrived blocks until a matching request reached the server
func (g *Gate) WaitArrived(t *testing.T) RecordedCall {
	t.Helper()
	select {
	case call := <-g.arrived:
		return call
	case <-time.After(2 * time.Second):
		t.Fatalf("Timeout waiting for a held request")
		return RecordedCall{}
	}
}

// FakeBrandsAPI is an in-memory stand-in for the remote brands REST API, served over httptest.
// It is mounted under /api so clients exercise base URL joining.
type FakeBrandsAPI struct {
	Server *httptest.Server

	mu      sync.Mutex
	brands  []models.Brand
	owners  map[string]int64
	nextID  int64
	calls   []RecordedCall
	gates   []*Gate
	canned  map[string][]CannedResponse
	latency time.Duration
}

// NewFakeBrandsAPI starts a fake API seeded with brands. The server is closed on test cleanup.
func NewFakeBrandsAPI(t *testing.T, brands ...models.Brand) *FakeBrandsAPI {
	t.Helper()

	f := &FakeBrandsAPI{
		owners: make(map[string]int64),
		canned: make(map[string][]CannedResponse),
	}
	f.SetBrands(brands...)

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.Use(f.record)
	api.HandleFunc("/brands", f.handleList).Methods("GET")
	api.HandleFunc("/brands/by-owner", f.handleSearch).Methods("GET")
	api.HandleFunc("/brand", f.handleCreate).Methods("POST")
	api.HandleFunc("/brand/{id}/update", f.handleUpdate).Methods("PATCH")
	api.HandleFunc("/brand/{id}", f.handleDelete).Methods("DELETE")

	f.Server = httptest.NewServer(router)
	t.Cleanup(f.Close)
	return f
}

// URL returns the base URL clients should be configured with
func (f *FakeBrandsAPI) URL() string {
	return f.Server.URL + "/api"
}

// Close releases every gate and stops the server
func (f *FakeBrandsAPI) Close() {
	f.mu.Lock()
	gates := f.gates
	f.gates = nil
	f.mu.Unlock()

	for _, g := range gates {
		g.Release()
	}
	f.Server.Close()
}

// SetBrands replaces the stored brands
func (f *FakeBrandsAPI) SetBrands(brands ...models.Brand) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.brands = append([]models.Brand(nil), brands...)
	f.nextID = 0
	for _, b := range brands {
		if b.ID > f.nextID {
			f.nextID = b.ID
		}
		f.owners[strings.ToLower(b.Owner.Name)] = b.Owner.ID
	}
}

// Brands returns a copy of the stored brands
func (f *FakeBrandsAPI) Brands() []models.Brand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Brand(nil), f.brands...)
}

// SetLatency delays every response by d
func (f *FakeBrandsAPI) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

// Respond queues a canned response for the next call to method and path (path without the /api prefix)
func (f *FakeBrandsAPI) Respond(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := routeKey(method, path)
	f.canned[key] = append(f.canned[key], CannedResponse{Status: status, Body: body})
}

// Hold blocks every request matching match until the returned gate is released
func (f *FakeBrandsAPI) Hold(match func(RecordedCall) bool) *Gate {
	g := &Gate{
		match:   match,
		release: make(chan struct{}),
		arrived: make(chan RecordedCall, 32),
	}
	f.mu.Lock()
	f.gates = append(f.gates, g)
	f.mu.Unlock()
	return g
}

// MatchRoute matches calls by method and path
func MatchRoute(method, path string) func(RecordedCall) bool {
	return func(c RecordedCall) bool {
		return c.Method == method && c.Path == path
	}
}

// MatchOwner matches list and search calls filtered by owner
func MatchOwner(owner string) func(RecordedCall) bool {
	return func(c RecordedCall) bool {
		return c.Method == http.MethodGet && c.Owner() == owner
	}
}

// Calls returns every recorded call in arrival order
func (f *FakeBrandsAPI) Calls() []RecordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedCall(nil), f.calls...)
}

// CallsTo returns the recorded calls for method and path
func (f *FakeBrandsAPI) CallsTo(method, path string) []RecordedCall {
	var out []RecordedCall
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// CallCount counts calls to method and path
func (f *FakeBrandsAPI) CallCount(method, path string) int {
	return len(f.CallsTo(method, path))
}

// ListCalls counts the GET calls of both list endpoints
func (f *FakeBrandsAPI) ListCalls() int {
	return f.CallCount(http.MethodGet, "/brands") + f.CallCount(http.MethodGet, "/brands/by-owner")
}

// ResetCalls forgets the recorded calls
func (f *FakeBrandsAPI) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FakeBrandsAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		call := RecordedCall{
			Method: r.Method,
			Path:   strings.TrimPrefix(r.URL.Path, "/api"),
			Query:  r.URL.Query(),
			Body:   body,
			Header: r.Header.Clone(),
		}

		f.mu.Lock()
		f.calls = append(f.calls, call)
		latency := f.latency
		var held []*Gate
		for _, g := range f.gates {
			if g.match(call) {
				held = append(held, g)
			}
		}
		var canned *CannedResponse
		key := routeKey(call.Method, call.Path)
		if queue := f.canned[key]; len(queue) > 0 {
			canned = &queue[0]
			f.canned[key] = queue[1:]
		}
		f.mu.Unlock()

		for _, g := range held {
			select {
			case g.arrived <- call:
			default:
			}
			select {
			case <-g.release:
			case <-r.Context().Done():
				return
			}
		}
		if latency > 0 {
			time.Sleep(latency)
		}

		if canned != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(canned.Status)
			w.Write([]byte(canned.Body))
			return
		}

		r.Body = io.NopCloser(strings.NewReader(string(body)))
		next.ServeHTTP(w, r)
	})
}

func (f *FakeBrandsAPI) handleList(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, "Brands retrieved", f.filter(r.URL.Query().Get("owner")), nil)
}

func (f *FakeBrandsAPI) handleSearch(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		writeEnvelope(w, http.StatusBadRequest, "Validation error", nil, map[string][]string{"owner": {"required"}})
		return
	}
	writeEnvelope(w, http.StatusOK, "Brands retrieved", f.filter(owner), nil)
}

func (f *FakeBrandsAPI) filter(owner string) []models.Brand {
	f.mu.Lock()
	defer f.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(owner))
	out := make([]models.Brand, 0, len(f.brands))
	for _, b := range f.brands {
		if needle == "" || strings.Contains(strings.ToLower(b.Owner.Name), needle) {
			out = append(out, b)
		}
	}
	return out
}

func (f *FakeBrandsAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid JSON", nil, nil)
		return
	}

	fieldErrors := map[string][]string{}
	if strings.TrimSpace(req.BrandName) == "" {
		fieldErrors["brand_name"] = []string{"required"}
	}
	if strings.TrimSpace(req.OwnerName) == "" {
		fieldErrors["owner_name"] = []string{"required"}
	}
	if len(fieldErrors) > 0 {
		writeEnvelope(w, http.StatusBadRequest, "Validation error", nil, fieldErrors)
		return
	}

	f.mu.Lock()
	for _, b := range f.brands {
		if strings.EqualFold(b.Name, req.BrandName) {
			f.mu.Unlock()
			writeEnvelope(w, http.StatusBadRequest, "Validation error", nil,
				map[string][]string{"brand_name": {"brand already registered"}})
			return
		}
	}
	ownerID, ok := f.owners[strings.ToLower(req.OwnerName)]
	if !ok {
		ownerID = int64(len(f.owners) + 100)
		f.owners[strings.ToLower(req.OwnerName)] = ownerID
	}
	f.nextID++
	brand := models.Brand{
		ID:     f.nextID,
		Name:   req.BrandName,
		Status: models.BrandStatusPending,
		Owner:  models.Owner{ID: ownerID, Name: req.OwnerName},
	}
	f.brands = append(f.brands, brand)
	f.mu.Unlock()

	writeEnvelope(w, http.StatusCreated, "Brand created", models.CreatedBrand{
		Name:      brand.Name,
		Status:    brand.Status,
		OwnerName: brand.Owner.Name,
	}, nil)
}

func (f *FakeBrandsAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := brandID(w, r)
	if !ok {
		return
	}

	var req models.UpdateBrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid JSON", nil, nil)
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeEnvelope(w, http.StatusBadRequest, "Validation error", nil, map[string][]string{"name": {"required"}})
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		writeEnvelope(w, http.StatusBadRequest, "Validation error", nil, map[string][]string{"status": {"invalid status"}})
		return
	}

	f.mu.Lock()
	idx := f.indexOf(id)
	if idx < 0 {
		f.mu.Unlock()
		writeEnvelope(w, http.StatusNotFound, "Brand not found", nil, nil)
		return
	}
	if req.Name != nil {
		f.brands[idx].Name = *req.Name
	}
	if req.Status != nil {
		f.brands[idx].Status = *req.Status
	}
	updated := f.brands[idx]
	f.mu.Unlock()

	writeEnvelope(w, http.StatusOK, "Brand updated", updated, nil)
}

func (f *FakeBrandsAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := brandID(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	idx := f.indexOf(id)
	if idx < 0 {
		f.mu.Unlock()
		writeEnvelope(w, http.StatusNotFound, "Brand not found", nil, nil)
		return
	}
	f.brands = append(f.brands[:idx], f.brands[idx+1:]...)
	f.mu.Unlock()

	writeEnvelope(w, http.StatusOK, "Brand deleted", nil, nil)
}

// indexOf must be called with f.mu held
func (f *FakeBrandsAPI) indexOf(id int64) int {
	for i, b := range f.brands {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func brandID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeEnvelope(w, http.StatusNotFound, "Brand not found", nil, nil)
		return 0, false
	}
	return id, true
}

func writeEnvelope(w http.ResponseWriter, status int, msg string, data any, fieldErrors map[string][]string) {
	body := map[string]any{
		"success": status < 300,
		"msg":     msg,
		"data":    data,
		"errors":  nil,
	}
	if len(fieldErrors) > 0 {
		body["errors"] = fieldErrors
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func routeKey(method, path string) string {
	return method + " " + path
}

// ErrorEnvelope renders a failure body the way the remote API does
func ErrorEnvelope(msg string, fieldErrors map[string][]string) string {
	errorsJSON := "null"
	if fieldErrors != nil {
		raw, _ := json.Marshal(fieldErrors)
		errorsJSON = string(raw)
	}
	return fmt.Sprintf(`{"success":false,"msg":%q,"data":null,"errors":%s}`, msg, errorsJSON)
}
