package services_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/iotp2c/ditto-twin/internal/models"
	"github.com/iotp2c/ditto-twin/internal/utils"
	"github.com/iotp2c/ditto-twin/pkg/ditto"
)

type dittoCall struct {
	Method  string
	Path    string
	Command string
	At      time.Time
}

// fakeDitto is an in-memory stand-in for the Ditto HTTP API that records every call.
type fakeDitto struct {
	t   *testing.T
	srv *httptest.Server

	mu          sync.Mutex
	calls       []dittoCall
	notReady    int // number of readiness probes answered 503 before 200
	policies    map[string]json.RawMessage
	things      map[string]json.RawMessage
	connections map[string]models.Connection
}

func newFakeDitto(t *testing.T) *fakeDitto {
	t.Helper()

	f := &fakeDitto{
		t:           t,
		policies:    map[string]json.RawMessage{},
		things:      map[string]json.RawMessage{},
		connections: map[string]models.Connection{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeDitto) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	user, pass, _ := r.BasicAuth()
	call := dittoCall{Method: r.Method, Path: r.URL.Path, At: time.Now()}

	switch {
	case strings.HasPrefix(r.URL.Path, "/devops/"):
		if user != "devops" || pass != "foobar" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req models.PiggybackRequest
		if err := json.Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		call.Command = req.PiggybackCommand.Type
		f.calls = append(f.calls, call)
		f.piggyback(w, req)
		return
	case user != "ditto" || pass != "ditto":
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	f.calls = append(f.calls, call)

	switch {
	case r.URL.Path == "/api/2/things" && r.Method == http.MethodGet:
		if f.notReady > 0 {
			f.notReady--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("[]"))

	case strings.HasPrefix(r.URL.Path, "/api/2/policies/") && r.Method == http.MethodPut:
		id := strings.TrimPrefix(r.URL.Path, "/api/2/policies/")
		_, existed := f.policies[id]
		f.policies[id] = body
		if existed {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusCreated)
		}
		_, _ = w.Write(body)

	case strings.HasPrefix(r.URL.Path, "/api/2/things/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/2/things/")
		thing, exists := f.things[id]
		switch r.Method {
		case http.MethodGet:
			if !exists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(thing)
		case http.MethodPut:
			f.things[id] = body
			if exists {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(body)
		case http.MethodDelete:
			if !exists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(f.things, id)
			w.WriteHeader(http.StatusNoContent)
		}

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeDitto) piggyback(w http.ResponseWriter, req models.PiggybackRequest) {
	switch req.PiggybackCommand.Type {
	case "connectivity.commands:createConnection":
		if req.PiggybackCommand.Connection == nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.connections[req.PiggybackCommand.Connection.ID] = *req.PiggybackCommand.Connection
		w.WriteHeader(http.StatusOK)
	case "connectivity.commands:deleteConnection":
		if _, ok := f.connections[req.PiggybackCommand.ConnectionID]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.connections, req.PiggybackCommand.ConnectionID)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

// count returns how many recorded calls match method and path prefix.
func (f *fakeDitto) count(method, pathPrefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c.Method == method && strings.HasPrefix(c.Path, pathPrefix) {
			n++
		}
	}
	return n
}

// countCommand returns how many piggyback calls carried the command type.
func (f *fakeDitto) countCommand(command string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c.Command == command {
			n++
		}
	}
	return n
}

func (f *fakeDitto) recorded() []dittoCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dittoCall(nil), f.calls...)
}

func (f *fakeDitto) thingsClient() *ditto.ThingsClient {
	c, err := ditto.NewThingsClient(f.srv.URL, ditto.Credentials{Username: "ditto", Password: "ditto"}, time.Second, zerolog.Nop())
	require.NoError(f.t, err)
	return c
}

func (f *fakeDitto) devOpsClient() *ditto.DevOpsClient {
	c, err := ditto.NewDevOpsClient(f.srv.URL, ditto.Credentials{Username: "devops", Password: "foobar"}, time.Second, 10*time.Second, zerolog.Nop())
	require.NoError(f.t, err)
	return c
}

func testConfig() *utils.Config {
	return utils.DefaultConfig()
}
