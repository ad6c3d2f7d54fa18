package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cora/internal/tool"
)

// fakeStore is an in-memory PostgREST-style server backing the relay
// tables. It records every status transition per command.
type fakeStore struct {
	mu          sync.Mutex
	commands    []map[string]any
	transitions map[string][]string
	results     map[string]any
	heartbeats  int
	lastAPIKey  string
	lastBearer  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transitions: make(map[string][]string),
		results:     make(map[string]any),
	}
}

func (f *fakeStore) addCommand(id, name string, params map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, map[string]any{
		"id":         id,
		"command":    name,
		"params":     params,
		"status":     "pending",
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (f *fakeStore) statusOf(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.commands {
		if c["id"] == id {
			return c["status"].(string)
		}
	}
	return ""
}

func (f *fakeStore) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.lastAPIKey = r.Header.Get("apikey")
		f.lastBearer = r.Header.Get("Authorization")

		switch {
		case strings.HasPrefix(r.URL.Path, "/rest/v1/cora_status"):
			f.heartbeats++
			w.Write([]byte("[]"))

		case strings.HasPrefix(r.URL.Path, "/rest/v1/cora_commands") && r.Method == http.MethodGet:
			var pending []map[string]any
			for _, c := range f.commands {
				if c["status"] == "pending" {
					pending = append(pending, c)
				}
				if len(pending) == 5 {
					break
				}
			}
			json.NewEncoder(w).Encode(pending)

		case strings.HasPrefix(r.URL.Path, "/rest/v1/cora_commands") && r.Method == http.MethodPatch:
			id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
			var patch map[string]any
			json.NewDecoder(r.Body).Decode(&patch)

			for _, c := range f.commands {
				if c["id"] == id {
					status := patch["status"].(string)
					c["status"] = status
					f.transitions[id] = append(f.transitions[id], status)
					if result, ok := patch["result"]; ok {
						f.results[id] = result
					}
				}
			}
			w.Write([]byte("[]"))

		default:
			http.NotFound(w, r)
		}
	})
}

func newTestRelay(t *testing.T, store *fakeStore) (*Relay, *tool.Registry) {
	t.Helper()

	server := httptest.NewServer(store.handler())
	t.Cleanup(server.Close)

	registry := tool.NewRegistry(nil)
	executor := tool.NewExecutor(registry, nil)

	r := New(NewStore(server.URL, "test-key"), executor, "anchor-test",
		func(ctx context.Context) map[string]any {
			return map[string]any{"hostname": "test"}
		}, nil, Options{
			PollInterval:      10 * time.Millisecond,
			HeartbeatInterval: 30 * time.Second,
		})
	return r, registry
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestRelay_StartRequiresConfiguration(t *testing.T) {
	registry := tool.NewRegistry(nil)
	executor := tool.NewExecutor(registry, nil)
	r := New(NewStore("", ""), executor, "anchor", nil, nil, Options{})

	err := r.Start()
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, r.Running())
}

func TestRelay_StartAndStopAreIdempotent(t *testing.T) {
	store := newFakeStore()
	r, _ := newTestRelay(t, store)

	require.NoError(t, r.Start())
	require.NoError(t, r.Start())
	assert.True(t, r.Running())

	r.Stop()
	r.Stop()
	assert.False(t, r.Running())
}

func TestRelay_ExecutesCommandToDone(t *testing.T) {
	store := newFakeStore()
	r, registry := newTestRelay(t, store)

	registry.Register(&tool.Spec{
		Name: "echo",
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			return map[string]any{"echoed": args.String("text", "")}, nil
		},
	})
	store.addCommand("cmd-1", "echo", map[string]any{"text": "hi"})

	require.NoError(t, r.Start())
	defer r.Stop()

	waitFor(t, 2*time.Second, func() bool { return store.statusOf("cmd-1") == "done" })

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, []string{"running", "done"}, store.transitions["cmd-1"])
	result := store.results["cmd-1"].(map[string]any)
	assert.Equal(t, "hi", result["echoed"])
}

func TestRelay_FailingHandlerIsMarkedError(t *testing.T) {
	store := newFakeStore()
	r, registry := newTestRelay(t, store)

	registry.Register(&tool.Spec{
		Name: "boom",
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			panic("kaboom")
		},
	})
	store.addCommand("cmd-2", "boom", nil)

	require.NoError(t, r.Start())
	defer r.Stop()

	waitFor(t, 2*time.Second, func() bool { return store.statusOf("cmd-2") == "error" })

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, []string{"running", "error"}, store.transitions["cmd-2"])
	result := store.results["cmd-2"].(map[string]any)
	assert.NotEmpty(t, result["error"])
}

func TestRelay_UnknownToolIsMarkedError(t *testing.T) {
	store := newFakeStore()
	r, _ := newTestRelay(t, store)
	store.addCommand("cmd-3", "no_such_tool", nil)

	require.NoError(t, r.Start())
	defer r.Stop()

	waitFor(t, 2*time.Second, func() bool { return store.statusOf("cmd-3") == "error" })

	store.mu.Lock()
	defer store.mu.Unlock()
	result := store.results["cmd-3"].(map[string]any)
	assert.Equal(t, "Unknown tool: no_such_tool", result["error"])
}

func TestRelay_CommandsRunInFetchOrder(t *testing.T) {
	store := newFakeStore()
	r, registry := newTestRelay(t, store)

	var mu sync.Mutex
	var order []string
	registry.Register(&tool.Spec{
		Name: "track",
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			mu.Lock()
			order = append(order, args.String("label", ""))
			mu.Unlock()
			return "ok", nil
		},
	})

	for _, label := range []string{"first", "second", "third"} {
		store.addCommand("cmd-"+label, "track", map[string]any{"label": label})
	}

	require.NoError(t, r.Start())
	defer r.Stop()

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestRelay_SendsHeartbeatWithAuthHeaders(t *testing.T) {
	store := newFakeStore()
	r, _ := newTestRelay(t, store)

	require.NoError(t, r.Start())
	defer r.Stop()

	waitFor(t, 2*time.Second, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.heartbeats > 0
	})

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "test-key", store.lastAPIKey)
	assert.Equal(t, "Bearer test-key", store.lastBearer)
}
