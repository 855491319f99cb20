package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-configadmin/pkg/functional"
)

// APIRequest is one request received by FakeConfigAPI.
type APIRequest struct {
	Method        string
	Path          string
	Authorization string
	Body          string
}

// FakeConfigAPI serves GET/PUT /{profile} and GET /history/{profile} from
// memory. A successful PUT replaces the stored configuration.
type FakeConfigAPI struct {
	Server *httptest.Server

	mu            sync.Mutex
	profile       string
	configuration functional.FunctionalConfiguration
	history       []functional.HistoryEntry
	putStatus     int
	putResult     string
	historyStatus int
	requests      []APIRequest
	release       chan struct{}
}

// NewFakeConfigAPI starts a server for profile seeded with cfg. It is closed
// when the test ends.
func NewFakeConfigAPI(t *testing.T, profile string, cfg functional.FunctionalConfiguration) *FakeConfigAPI {
	t.Helper()
	api := &FakeConfigAPI{
		profile:       profile,
		configuration: cfg,
		putStatus:     http.StatusOK,
		putResult:     functional.ResultUpdated,
		historyStatus: http.StatusOK,
	}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Server.Close)
	return api
}

// URL is the base URL to configure clients with.
func (a *FakeConfigAPI) URL() string { return a.Server.URL }

// SetHistory replaces the served history.
func (a *FakeConfigAPI) SetHistory(entries ...functional.HistoryEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = entries
}

// FailHistory makes GET /history answer with status.
func (a *FakeConfigAPI) FailHistory(status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.historyStatus = status
}

// RespondToPut sets the status and text body of the next PUT responses.
func (a *FakeConfigAPI) RespondToPut(status int, result string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.putStatus = status
	a.putResult = result
}

// HoldPuts blocks PUT handlers until the returned function is called.
func (a *FakeConfigAPI) HoldPuts() (release func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ch := make(chan struct{})
	a.release = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Configuration returns the stored configuration.
func (a *FakeConfigAPI) Configuration() functional.FunctionalConfiguration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.configuration
}

// Requests returns a copy of the received requests.
func (a *FakeConfigAPI) Requests() []APIRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]APIRequest(nil), a.requests...)
}

// Count returns how many requests used method.
func (a *FakeConfigAPI) Count(method string) int {
	count := 0
	for _, req := range a.Requests() {
		if req.Method == method {
			count++
		}
	}
	return count
}

func (a *FakeConfigAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	a.mu.Lock()
	a.requests = append(a.requests, APIRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Body:          string(body),
	})
	release := a.release
	a.mu.Unlock()

	switch {
	case r.URL.Path == "/history/"+a.profile && r.Method == http.MethodGet:
		a.mu.Lock()
		status, entries := a.historyStatus, a.history
		a.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, entries)
	case r.URL.Path == "/"+a.profile && r.Method == http.MethodGet:
		writeJSON(w, a.Configuration())
	case r.URL.Path == "/"+a.profile && r.Method == http.MethodPut:
		if release != nil {
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		var cfg functional.FunctionalConfiguration
		if err := json.Unmarshal(body, &cfg); err != nil {
			http.Error(w, functional.ResultUpdateFailed, http.StatusBadRequest)
			return
		}
		a.mu.Lock()
		status, result := a.putStatus, a.putResult
		if status < 300 && !strings.HasPrefix(result, functional.ResultNothingToUpdate) {
			a.configuration = cfg
		}
		a.mu.Unlock()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, result)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}
