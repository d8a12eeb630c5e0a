package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rankforge/linkmesh/internal/detect"
	"github.com/rankforge/linkmesh/internal/events"
	"github.com/rankforge/linkmesh/internal/lifecycle"
	"github.com/rankforge/linkmesh/internal/metrics"
	"github.com/rankforge/linkmesh/internal/model"
	"github.com/rankforge/linkmesh/internal/store"
)

// mockStore is an in-memory store.Store for handler tests.
type mockStore struct {
	mu        sync.Mutex
	conflicts map[string]*model.Conflict
	events    []*model.AuditEvent
	nextEvent int64
}

func newMockStore() *mockStore {
	return &mockStore{conflicts: make(map[string]*model.Conflict)}
}

func (m *mockStore) CreateConflict(ctx context.Context, c *model.Conflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.conflicts {
		if existing.Status.IsOpen() && existing.Fingerprint() == c.Fingerprint() {
			return store.ErrDuplicateOpen
		}
	}
	clone := *c
	m.conflicts[c.ID] = &clone
	return nil
}

func (m *mockStore) GetConflict(ctx context.Context, id string) (*model.Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conflicts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *mockStore) ListConflicts(ctx context.Context, filter model.ConflictFilter) ([]*model.Conflict, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Conflict
	for _, c := range m.conflicts {
		if filter.NetworkID != "" && c.NetworkID != filter.NetworkID {
			continue
		}
		if len(filter.Status) > 0 {
			ok := false
			for _, s := range filter.Status {
				if c.Status == s {
					ok = true
				}
			}
			if !ok {
				continue
			}
		}
		if len(filter.Severity) > 0 {
			ok := false
			for _, s := range filter.Severity {
				if c.Severity == s {
					ok = true
				}
			}
			if !ok {
				continue
			}
		}
		if filter.ActiveSince != nil {
			resolvedInWindow := c.ResolvedAt != nil && !c.ResolvedAt.Before(*filter.ActiveSince)
			if c.DetectedAt.Before(*filter.ActiveSince) && !resolvedInWindow {
				continue
			}
		}
		clone := *c
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	total := len(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *mockStore) OpenByFingerprint(ctx context.Context, fp model.Fingerprint) (*model.Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conflicts {
		if c.Status.IsOpen() && c.Fingerprint() == fp {
			clone := *c
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockStore) LatestTerminalByFingerprint(ctx context.Context, fp model.Fingerprint, since time.Time) (*model.Conflict, error) {
	return nil, nil
}

func (m *mockStore) TransitionConflict(ctx context.Context, id string, from []model.Status, to model.Status, actor string, at time.Time) (*model.Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conflicts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	allowed := false
	for _, s := range from {
		if c.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return nil, store.ErrInvalidState
	}
	c.Status = to
	if to == model.StatusResolved {
		t := at
		c.ResolvedAt = &t
	}
	if to.IsTerminal() {
		c.ResolvedBy = actor
		t := at
		c.ClosedAt = &t
	}
	clone := *c
	return &clone, nil
}

func (m *mockStore) LinkOptimization(ctx context.Context, id, optimizationID string) (*model.Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conflicts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if c.Status != model.StatusDetected || c.LinkedOptimizationID != "" {
		return nil, store.ErrInvalidState
	}
	c.LinkedOptimizationID = optimizationID
	c.Status = model.StatusUnderReview
	clone := *c
	return &clone, nil
}

func (m *mockStore) GetByOptimizationID(ctx context.Context, optimizationID string) (*model.Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conflicts {
		if c.LinkedOptimizationID == optimizationID {
			clone := *c
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) RecordEvent(ctx context.Context, event *model.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEvent++
	event.ID = m.nextEvent
	event.CreatedAt = time.Now().UTC()
	m.events = append(m.events, event)
	return nil
}

func (m *mockStore) GetEvents(ctx context.Context, conflictID string) ([]*model.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AuditEvent
	for _, e := range m.events {
		if e.ConflictID == conflictID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

// mockSource serves fixed entries per network.
type mockSource struct {
	networks map[string][]*model.StructureEntry
}

func (s *mockSource) ListNetworkIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id := range s.networks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *mockSource) ListEntries(ctx context.Context, networkID string) ([]*model.StructureEntry, error) {
	return s.networks[networkID], nil
}

func (s *mockSource) Close() error { return nil }

// mockCreator returns sequential optimization IDs.
type mockCreator struct {
	mu sync.Mutex
	n  int
}

func (c *mockCreator) CreateOptimization(ctx context.Context, conflict *model.Conflict) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return fmt.Sprintf("opt-%d", c.n), nil
}

func (c *mockCreator) Close() error { return nil }

func brokenNetwork(networkID string) []*model.StructureEntry {
	mk := func(id string, tier int, role model.DomainRole, target string) *model.StructureEntry {
		return &model.StructureEntry{
			ID: id, NetworkID: networkID, Domain: id + ".example",
			Tier: tier, Role: role, TargetEntryID: target,
			IndexStatus: model.IndexStatusIndex, RedirectType: model.RedirectNone,
		}
	}
	return []*model.StructureEntry{
		mk("se-main", 0, model.RoleMain, ""),
		mk("se-a", 1, model.RoleSupport, "se-main"),
		mk("se-b", 1, model.RoleSupport, ""),
	}
}

type testEnv struct {
	store   *mockStore
	manager *lifecycle.Manager
	handler http.Handler
}

func newTestEnv(t *testing.T, withCreator bool, authToken string) *testEnv {
	t.Helper()
	st := newMockStore()
	src := &mockSource{networks: map[string][]*model.StructureEntry{
		"net-1": brokenNetwork("net-1"),
		"net-2": brokenNetwork("net-2"),
	}}
	opts := lifecycle.Options{}
	if withCreator {
		opts.Creator = &mockCreator{}
	}
	mgr := lifecycle.NewManager(st, src, detect.New(detect.Config{}), &events.NoopPublisher{}, opts)
	agg := metrics.NewAggregator(st, nil)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := NewConflictServer(mgr, st, agg, logger)
	return &testEnv{store: st, manager: mgr, handler: srv.NewHTTPHandler(authToken)}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// detectOne runs detection over net-1 and returns the created conflict ID.
func (e *testEnv) detectOne(t *testing.T) string {
	t.Helper()
	if _, err := e.manager.RunDetection(context.Background(), "net-1", "test"); err != nil {
		t.Fatalf("seeding detection run: %v", err)
	}
	conflicts, _, err := e.store.ListConflicts(context.Background(), model.ConflictFilter{NetworkID: "net-1"})
	if err != nil || len(conflicts) == 0 {
		t.Fatalf("seeding conflicts: %v (%d)", err, len(conflicts))
	}
	return conflicts[0].ID
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false, "")
	w := env.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, false, "sekrit")

	// Health is exempt.
	if w := env.do(t, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}

	// No token.
	if w := env.do(t, http.MethodGet, "/conflicts/stored", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no-token status = %d, want 401", w.Code)
	}

	// Wrong token.
	w := env.do(t, http.MethodGet, "/conflicts/stored", "", map[string]string{"Authorization": "Bearer nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad-token status = %d, want 401", w.Code)
	}

	// Correct token.
	w = env.do(t, http.MethodGet, "/conflicts/stored", "", map[string]string{"Authorization": "Bearer sekrit"})
	if w.Code != http.StatusOK {
		t.Errorf("good-token status = %d, want 200", w.Code)
	}
}

func TestDetect_SingleNetwork(t *testing.T) {
	env := newTestEnv(t, false, "")
	w := env.do(t, http.MethodGet, "/conflicts/detect?network_id=net-1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp detectResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Summaries) != 1 || resp.Summaries[0].NetworkID != "net-1" {
		t.Fatalf("summaries = %+v", resp.Summaries)
	}
	if resp.Summaries[0].Created != 1 {
		t.Errorf("created = %d, want 1", resp.Summaries[0].Created)
	}
}

func TestDetect_AllNetworks(t *testing.T) {
	env := newTestEnv(t, false, "")
	w := env.do(t, http.MethodGet, "/conflicts/detect", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp detectResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Summaries) != 2 {
		t.Fatalf("summaries = %+v", resp.Summaries)
	}
}

func TestListStored(t *testing.T) {
	env := newTestEnv(t, false, "")
	env.detectOne(t)

	w := env.do(t, http.MethodGet, "/conflicts/stored?network_id=net-1&status=detected", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 || len(resp.Conflicts) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Conflicts[0].Type != model.TypeOrphan {
		t.Errorf("conflict = %+v", resp.Conflicts[0])
	}
}

func TestListStored_InvalidStatus(t *testing.T) {
	env := newTestEnv(t, false, "")
	w := env.do(t, http.MethodGet, "/conflicts/stored?status=bogus", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListStored_EmptyIsNotNull(t *testing.T) {
	env := newTestEnv(t, false, "")
	w := env.do(t, http.MethodGet, "/conflicts/stored", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"conflicts":[]`) {
		t.Errorf("body = %s, want empty array", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, false, "")
	env.detectOne(t)

	w := env.do(t, http.MethodGet, "/conflicts/metrics?days=7&network_id=net-1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var m model.ConflictMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.WindowDays != 7 || m.TotalConflicts != 1 || m.OpenCount != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestMetricsEndpoint_BadDays(t *testing.T) {
	env := newTestEnv(t, false, "")
	w := env.do(t, http.MethodGet, "/conflicts/metrics?days=soon", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetConflict(t *testing.T) {
	env := newTestEnv(t, false, "")
	id := env.detectOne(t)

	w := env.do(t, http.MethodGet, "/conflicts/"+id, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var c model.Conflict
	if err := json.Unmarshal(w.Body.Bytes(), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.ID != id {
		t.Errorf("id = %q, want %q", c.ID, id)
	}

	if w := env.do(t, http.MethodGet, "/conflicts/cf-missing", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}
}

func TestGetConflictEvents(t *testing.T) {
	env := newTestEnv(t, false, "")
	id := env.detectOne(t)

	w := env.do(t, http.MethodGet, "/conflicts/"+id+"/events", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Events []*model.AuditEvent `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Topic != events.TopicConflictDetected {
		t.Errorf("events = %+v", resp.Events)
	}

	if w := env.do(t, http.MethodGet, "/conflicts/cf-missing/events", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}
}

func TestResolve(t *testing.T) {
	env := newTestEnv(t, false, "")
	id := env.detectOne(t)

	w := env.do(t, http.MethodPost, "/conflicts/"+id+"/resolve", "", map[string]string{"X-Actor": "alex"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var c model.Conflict
	if err := json.Unmarshal(w.Body.Bytes(), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Status != model.StatusResolved || c.ResolvedBy != "alex" {
		t.Errorf("conflict = %+v", c)
	}

	// Resolving a terminal conflict is a 409.
	if w := env.do(t, http.MethodPost, "/conflicts/"+id+"/resolve", "", nil); w.Code != http.StatusConflict {
		t.Errorf("second resolve status = %d, want 409", w.Code)
	}
}

func TestIgnore_ActorFromBody(t *testing.T) {
	env := newTestEnv(t, false, "")
	id := env.detectOne(t)

	w := env.do(t, http.MethodPost, "/conflicts/"+id+"/ignore", `{"actor":"sam"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var c model.Conflict
	if err := json.Unmarshal(w.Body.Bytes(), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Status != model.StatusIgnored || c.ResolvedBy != "sam" {
		t.Errorf("conflict = %+v", c)
	}
}

func TestCreateOptimization(t *testing.T) {
	env := newTestEnv(t, true, "")
	id := env.detectOne(t)

	w := env.do(t, http.MethodPost, "/conflicts/"+id+"/create-optimization", "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var c model.Conflict
	if err := json.Unmarshal(w.Body.Bytes(), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Status != model.StatusUnderReview || c.LinkedOptimizationID == "" {
		t.Errorf("conflict = %+v", c)
	}

	// Already linked.
	if w := env.do(t, http.MethodPost, "/conflicts/"+id+"/create-optimization", "", nil); w.Code != http.StatusConflict {
		t.Errorf("second link status = %d, want 409", w.Code)
	}
}

func TestCreateOptimization_NoCreator(t *testing.T) {
	env := newTestEnv(t, false, "")
	id := env.detectOne(t)

	w := env.do(t, http.MethodPost, "/conflicts/"+id+"/create-optimization", "", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

func TestBulkCreateOptimizations(t *testing.T) {
	env := newTestEnv(t, true, "")
	env.detectOne(t)

	w := env.do(t, http.MethodPost, "/conflicts/create-optimizations", `{"network_id":"net-1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var result lifecycle.BulkTaskResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Created != 1 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}
}
