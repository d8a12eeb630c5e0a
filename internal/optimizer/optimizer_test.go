package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/rankforge/linkmesh/internal/events"
	"github.com/rankforge/linkmesh/internal/model"
)

func TestHTTPCreator_CreateOptimization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/optimizations" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		if req["conflict_id"] != "cf-1" || req["conflict_type"] != "redirect_loop" {
			t.Errorf("request = %v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"optimization_id":"opt-42"}`))
	}))
	defer srv.Close()

	creator := NewHTTPCreator(srv.URL, "")
	id, err := creator.CreateOptimization(context.Background(), &model.Conflict{
		ID:        "cf-1",
		NetworkID: "net-1",
		Type:      model.TypeRedirectLoop,
		Severity:  model.SeverityCritical,
		NodeAID:   "se-a",
		Members:   []string{"se-a", "se-b"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "opt-42" {
		t.Errorf("optimization ID = %q, want opt-42", id)
	}
}

func TestHTTPCreator_EmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	creator := NewHTTPCreator(srv.URL, "")
	_, err := creator.CreateOptimization(context.Background(), &model.Conflict{ID: "cf-1"})
	if err == nil {
		t.Error("expected error for empty optimization_id")
	}
}

func TestHTTPCreator_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"conflict already has a task"}`))
	}))
	defer srv.Close()

	creator := NewHTTPCreator(srv.URL, "")
	_, err := creator.CreateOptimization(context.Background(), &model.Conflict{ID: "cf-1"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}

// mockCompleter records completion calls.
type mockCompleter struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func (m *mockCompleter) CompleteOptimization(ctx context.Context, optimizationID, actor string) (*model.Conflict, error) {
	m.mu.Lock()
	m.calls = append(m.calls, optimizationID+"/"+actor)
	m.mu.Unlock()
	select {
	case m.done <- struct{}{}:
	default:
	}
	return &model.Conflict{ID: "cf-1", Status: model.StatusResolved}, nil
}

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestWatcher_CompletesOnEvent(t *testing.T) {
	url := startTestNATS(t)

	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	completer := &mockCompleter{done: make(chan struct{}, 1)}
	w := NewWatcher(sub, completer, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("starting watcher: %v", err)
	}
	defer w.Stop()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting publisher: %v", err)
	}
	defer nc.Close()

	payload, _ := json.Marshal(events.OptimizationCompleted{
		OptimizationID: "opt-7",
		CompletedBy:    "alex",
	})
	if err := nc.Publish(events.TopicOptimizationCompleted, payload); err != nil {
		t.Fatalf("publishing: %v", err)
	}
	nc.Flush()

	select {
	case <-completer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion call")
	}

	completer.mu.Lock()
	defer completer.mu.Unlock()
	if len(completer.calls) != 1 || completer.calls[0] != "opt-7/alex" {
		t.Errorf("calls = %v", completer.calls)
	}
}

func TestWatcher_IgnoresMalformedEvents(t *testing.T) {
	url := startTestNATS(t)

	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	completer := &mockCompleter{done: make(chan struct{}, 1)}
	w := NewWatcher(sub, completer, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("starting watcher: %v", err)
	}
	defer w.Stop()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting publisher: %v", err)
	}
	defer nc.Close()

	// Neither of these should reach the completer.
	nc.Publish(events.TopicOptimizationCompleted, []byte(`not json`))
	nc.Publish(events.TopicOptimizationCompleted, []byte(`{"completed_by":"alex"}`))
	nc.Flush()

	time.Sleep(100 * time.Millisecond)

	completer.mu.Lock()
	defer completer.mu.Unlock()
	if len(completer.calls) != 0 {
		t.Errorf("calls = %v, want none", completer.calls)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	url := startTestNATS(t)

	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	w := NewWatcher(sub, &mockCompleter{done: make(chan struct{}, 1)}, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("starting watcher: %v", err)
	}

	w.Stop()
	w.Stop()
}
