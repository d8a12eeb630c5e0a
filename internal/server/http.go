package server

import (
	"encoding/json"
	"net/http"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /health) must include a
// valid Authorization: Bearer <token> header.
func (s *ConflictServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /conflicts/detect", s.handleDetect)
	mux.HandleFunc("GET /conflicts/stored", s.handleListStored)
	mux.HandleFunc("GET /conflicts/metrics", s.handleMetrics)
	mux.HandleFunc("GET /conflicts/{id}", s.handleGetConflict)
	mux.HandleFunc("GET /conflicts/{id}/events", s.handleGetEvents)
	mux.HandleFunc("POST /conflicts/{id}/create-optimization", s.handleCreateOptimization)
	mux.HandleFunc("POST /conflicts/create-optimizations", s.handleBulkCreateOptimizations)
	mux.HandleFunc("POST /conflicts/{id}/resolve", s.handleResolve)
	mux.HandleFunc("POST /conflicts/{id}/ignore", s.handleIgnore)
	mux.HandleFunc("GET /health", s.handleHealth)

	var handler http.Handler = mux
	handler = AuthMiddleware(authToken, handler)
	handler = LoggingMiddleware(s.logger, handler)
	handler = RecoveryMiddleware(s.logger, handler)
	return handler
}

// handleHealth handles GET /health.
func (s *ConflictServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
