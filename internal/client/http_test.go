package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rankforge/linkmesh/internal/model"
)

// newTestServer starts an httptest server with the given handler and returns
// a client pointed at it.
func newTestServer(t *testing.T, token string, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, token)
}

func TestDetect(t *testing.T) {
	c := newTestServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conflicts/detect" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("network_id"); got != "net-1" {
			t.Errorf("network_id = %q", got)
		}
		if got := r.Header.Get("X-Actor"); got != "alex" {
			t.Errorf("X-Actor = %q", got)
		}
		json.NewEncoder(w).Encode(DetectResponse{
			Summaries: []*RunSummary{{NetworkID: "net-1", Candidates: 3, Created: 2, SkippedOpen: 1}},
		})
	})

	resp, err := c.Detect(context.Background(), "net-1", "alex")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(resp.Summaries) != 1 || resp.Summaries[0].Created != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestListStored_QueryParams(t *testing.T) {
	c := newTestServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("status") != "detected,under_review" {
			t.Errorf("status = %q", q.Get("status"))
		}
		if q.Get("severity") != "high" {
			t.Errorf("severity = %q", q.Get("severity"))
		}
		if q.Get("limit") != "10" {
			t.Errorf("limit = %q", q.Get("limit"))
		}
		json.NewEncoder(w).Encode(ListConflictsResponse{
			Conflicts: []*model.Conflict{{ID: "cf-1"}},
			Total:     42,
		})
	})

	resp, err := c.ListStored(context.Background(), &ListConflictsRequest{
		Status:   []string{"detected", "under_review"},
		Severity: []string{"high"},
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("ListStored: %v", err)
	}
	if resp.Total != 42 || len(resp.Conflicts) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetConflict_NotFound(t *testing.T) {
	c := newTestServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "conflict not found"})
	})

	_, err := c.GetConflict(context.Background(), "cf-missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "conflict not found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestResolve_SendsActor(t *testing.T) {
	c := newTestServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/conflicts/cf-1/resolve" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Actor"); got != "sam" {
			t.Errorf("X-Actor = %q", got)
		}
		json.NewEncoder(w).Encode(model.Conflict{ID: "cf-1", Status: model.StatusResolved, ResolvedBy: "sam"})
	})

	conflict, err := c.Resolve(context.Background(), "cf-1", "sam")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if conflict.Status != model.StatusResolved || conflict.ResolvedBy != "sam" {
		t.Errorf("conflict = %+v", conflict)
	}
}

func TestBulkCreateOptimizations(t *testing.T) {
	c := newTestServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["network_id"] != "net-1" {
			t.Errorf("body = %v", body)
		}
		json.NewEncoder(w).Encode(BulkOptimizationResult{
			Created: 2,
			Failed:  1,
			Items: []TaskReport{
				{ConflictID: "cf-1", OptimizationID: "opt-1"},
				{ConflictID: "cf-2", OptimizationID: "opt-2"},
				{ConflictID: "cf-3", Error: "optimizer unavailable"},
			},
		})
	})

	result, err := c.BulkCreateOptimizations(context.Background(), "net-1", "alex")
	if err != nil {
		t.Fatalf("BulkCreateOptimizations: %v", err)
	}
	if result.Created != 2 || result.Failed != 1 || len(result.Items) != 3 {
		t.Errorf("result = %+v", result)
	}
}

func TestMetrics(t *testing.T) {
	c := newTestServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("days") != "7" || q.Get("network_id") != "net-1" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode(model.ConflictMetrics{WindowDays: 7, TotalConflicts: 5})
	})

	m, err := c.Metrics(context.Background(), "net-1", 7)
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if m.WindowDays != 7 || m.TotalConflicts != 5 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestAuthHeader(t *testing.T) {
	c := newTestServer(t, "sekrit", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if status != "ok" {
		t.Errorf("status = %q", status)
	}
}

func TestAPIError_PlainBody(t *testing.T) {
	c := newTestServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream broke"))
	})

	_, err := c.Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "upstream broke" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}
