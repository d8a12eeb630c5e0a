// Package server exposes the conflict engine over HTTP/JSON.
package server

import (
	"log/slog"

	"github.com/rankforge/linkmesh/internal/lifecycle"
	"github.com/rankforge/linkmesh/internal/metrics"
	"github.com/rankforge/linkmesh/internal/store"
)

// ConflictServer wires the lifecycle manager, metrics aggregator, and store
// behind the HTTP surface.
type ConflictServer struct {
	manager    *lifecycle.Manager
	store      store.Store
	aggregator *metrics.Aggregator
	logger     *slog.Logger
}

// NewConflictServer returns a server backed by the given collaborators.
func NewConflictServer(m *lifecycle.Manager, st store.Store, agg *metrics.Aggregator, logger *slog.Logger) *ConflictServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConflictServer{
		manager:    m,
		store:      st,
		aggregator: agg,
		logger:     logger,
	}
}

// inputError indicates invalid user input. The transport layer maps it to a
// 400 response.
type inputError string

func (e inputError) Error() string { return string(e) }
