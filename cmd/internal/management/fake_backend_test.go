package management

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/backend"
)

// fakeBackend serves the collection endpoints from memory.
type fakeBackend struct {
	mu sync.Mutex

	// status forces every response to this code when non-zero.
	status int

	collections map[string][]map[string]any
	hits        map[string]int
	writes      []write
}

type write struct {
	Method string
	Path   string
	Body   map[string]any
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		collections: map[string][]map[string]any{},
		hits:        map[string]int{},
	}
}

func (f *fakeBackend) seed(collection string, items ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		raw, _ := json.Marshal(it)
		var m map[string]any
		_ = json.Unmarshal(raw, &m)
		f.collections[collection] = append(f.collections[collection], m)
	}
}

func (f *fakeBackend) hitCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func (f *fakeBackend) recorded() []write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]write(nil), f.writes...)
}

func (f *fakeBackend) setStatus(code int) {
	f.mu.Lock()
	f.status = code
	f.mu.Unlock()
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hits[r.Method+" "+r.URL.Path]++
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `{"error":{"status":0,"name":"Error","message":"forced"}}`)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/")
	name, id, _ := strings.Cut(rest, "/")

	if r.Method == http.MethodPost || r.Method == http.MethodPut {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.writes = append(f.writes, write{Method: r.Method, Path: r.URL.Path, Body: body})
	}

	if name == "auth" && id == "local/register" {
		writeFake(w, http.StatusOK, map[string]any{
			"jwt":  "new-account-token",
			"user": map[string]any{"id": 77, "documentId": "acct-77"},
		})
		return
	}
	if name == "users" {
		writeFake(w, http.StatusOK, map[string]any{"id": 7})
		return
	}

	items := f.collections[name]
	switch {
	case r.Method == http.MethodGet && id == "":
		writeFake(w, http.StatusOK, map[string]any{
			"data": items,
			"meta": map[string]any{"pagination": map[string]any{"page": 1, "pageSize": 100, "pageCount": 1, "total": len(items)}},
		})
	case r.Method == http.MethodGet:
		for _, it := range items {
			if it["documentId"] == id {
				writeFake(w, http.StatusOK, map[string]any{"data": it})
				return
			}
		}
		writeFake(w, http.StatusNotFound, map[string]any{"error": map[string]any{"status": 404, "message": "Not Found"}})
	case r.Method == http.MethodPost:
		writeFake(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": 100, "documentId": "created"}})
	case r.Method == http.MethodPut:
		writeFake(w, http.StatusOK, map[string]any{"data": map[string]any{"id": 100, "documentId": id}})
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeFake(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var testNow = time.Date(2025, time.May, 14, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, fb *fakeBackend) *Service {
	t.Helper()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	bcfg := backend.DefaultConfig()
	bcfg.BaseURL = srv.URL
	api, err := backend.New(bcfg, log)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Location = time.UTC
	svc, err := NewService(api, cfg, log)
	require.NoError(t, err)
	svc.now = func() time.Time { return testNow }
	return svc
}

func privileged() session.Snapshot {
	return session.Snapshot{
		State:   session.StateAuthenticated,
		Token:   "admin-token",
		Account: &session.Account{ID: 1, DocumentID: "u1", Username: "admin"},
	}
}

func linked(employeeDocID string) session.Snapshot {
	return session.Snapshot{
		State:   session.StateAuthenticated,
		Token:   "employee-token",
		Account: &session.Account{ID: 2, DocumentID: "u2", Username: "maria"},
		Profile: &session.Profile{ID: 9, DocumentID: employeeDocID, FirstName: "Maria", LastName: "Papadopoulou"},
	}
}

func ref(docID string) *backend.Employee {
	return &backend.Employee{DocumentID: docID}
}
