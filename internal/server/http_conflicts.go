package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rankforge/linkmesh/internal/lifecycle"
	"github.com/rankforge/linkmesh/internal/model"
	"github.com/rankforge/linkmesh/internal/store"
)

// actorFrom resolves the acting identity: the X-Actor header wins, then the
// actor field of the JSON body (already decoded by the caller), then
// "unknown".
func actorFrom(r *http.Request, bodyActor string) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	if bodyActor != "" {
		return bodyActor
	}
	return "unknown"
}

// writeStoreError maps store sentinels and input errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	var ie inputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidState), errors.Is(err, store.ErrDuplicateOpen):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, lifecycle.ErrNoCreator):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// actorBody is the optional JSON body of transition endpoints.
type actorBody struct {
	Actor string `json:"actor,omitempty"`
}

// decodeActorBody tolerates an empty body.
func decodeActorBody(r *http.Request) (actorBody, error) {
	var in actorBody
	if r.Body == nil {
		return in, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		return in, err
	}
	return in, nil
}

// handleDetect handles GET /conflicts/detect. An omitted network_id runs
// detection over every network.
func (s *ConflictServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r, "")
	networkID := r.URL.Query().Get("network_id")

	if networkID != "" {
		summary, err := s.manager.RunDetection(r.Context(), networkID, actor)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detectResponse{
			Summaries: []*lifecycle.RunSummary{summary},
		})
		return
	}

	summaries, failures, err := s.manager.RunAll(r.Context(), actor)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detectResponse{Summaries: summaries, Errors: failures})
}

type detectResponse struct {
	Summaries []*lifecycle.RunSummary  `json:"summaries"`
	Errors    []lifecycle.NetworkError `json:"errors,omitempty"`
}

// handleListStored handles GET /conflicts/stored.
func (s *ConflictServer) handleListStored(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ConflictFilter{NetworkID: q.Get("network_id")}

	if v := q.Get("status"); v != "" {
		for _, raw := range strings.Split(v, ",") {
			status := model.Status(raw)
			if !status.IsValid() {
				writeError(w, http.StatusBadRequest, "invalid status: "+raw)
				return
			}
			filter.Status = append(filter.Status, status)
		}
	}
	if v := q.Get("type"); v != "" {
		for _, raw := range strings.Split(v, ",") {
			typ := model.ConflictType(raw)
			if !typ.IsValid() {
				writeError(w, http.StatusBadRequest, "invalid conflict type: "+raw)
				return
			}
			filter.Type = append(filter.Type, typ)
		}
	}
	if v := q.Get("severity"); v != "" {
		for _, raw := range strings.Split(v, ",") {
			sev := model.Severity(raw)
			if !sev.IsValid() {
				writeError(w, http.StatusBadRequest, "invalid severity: "+raw)
				return
			}
			filter.Severity = append(filter.Severity, sev)
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	conflicts, total, err := s.store.ListConflicts(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if conflicts == nil {
		conflicts = []*model.Conflict{}
	}
	writeJSON(w, http.StatusOK, listResponse{Conflicts: conflicts, Total: total})
}

type listResponse struct {
	Conflicts []*model.Conflict `json:"conflicts"`
	Total     int               `json:"total"`
}

// handleMetrics handles GET /conflicts/metrics.
func (s *ConflictServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := 0
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid days: "+v)
			return
		}
		days = n
	}

	m, err := s.aggregator.Compute(r.Context(), days, q.Get("network_id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleGetConflict handles GET /conflicts/{id}.
func (s *ConflictServer) handleGetConflict(w http.ResponseWriter, r *http.Request) {
	conflict, err := s.store.GetConflict(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conflict)
}

// handleGetEvents handles GET /conflicts/{id}/events.
func (s *ConflictServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	// 404 for an unknown conflict rather than an empty trail.
	if _, err := s.store.GetConflict(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	events, err := s.store.GetEvents(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if events == nil {
		events = []*model.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleResolve handles POST /conflicts/{id}/resolve.
func (s *ConflictServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	in, err := decodeActorBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	conflict, err := s.manager.Resolve(r.Context(), r.PathValue("id"), actorFrom(r, in.Actor))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conflict)
}

// handleIgnore handles POST /conflicts/{id}/ignore.
func (s *ConflictServer) handleIgnore(w http.ResponseWriter, r *http.Request) {
	in, err := decodeActorBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	conflict, err := s.manager.Ignore(r.Context(), r.PathValue("id"), actorFrom(r, in.Actor))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conflict)
}

// handleCreateOptimization handles POST /conflicts/{id}/create-optimization.
func (s *ConflictServer) handleCreateOptimization(w http.ResponseWriter, r *http.Request) {
	in, err := decodeActorBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	conflict, err := s.manager.CreateTaskFor(r.Context(), r.PathValue("id"), actorFrom(r, in.Actor))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conflict)
}

// bulkOptimizationInput is the body of the bulk task-link endpoint.
type bulkOptimizationInput struct {
	NetworkID string `json:"network_id,omitempty"`
	Actor     string `json:"actor,omitempty"`
}

// handleBulkCreateOptimizations handles POST /conflicts/create-optimizations.
func (s *ConflictServer) handleBulkCreateOptimizations(w http.ResponseWriter, r *http.Request) {
	var in bulkOptimizationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.NetworkID == "" {
		in.NetworkID = r.URL.Query().Get("network_id")
	}

	result, err := s.manager.CreateTasksForNetwork(r.Context(), in.NetworkID, actorFrom(r, in.Actor))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
