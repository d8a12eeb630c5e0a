package optimizer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/rankforge/linkmesh/internal/events"
	"github.com/rankforge/linkmesh/internal/model"
)

// Completer closes out conflicts whose linked optimization finished.
// Implemented by lifecycle.Manager.
type Completer interface {
	CompleteOptimization(ctx context.Context, optimizationID, actor string) (*model.Conflict, error)
}

// Watcher consumes optimization completion events from the bus and resolves
// the linked conflicts.
type Watcher struct {
	sub       events.Subscriber
	completer Completer
	logger    *slog.Logger

	mu     sync.Mutex
	cancel func()
	done   chan struct{}
}

// NewWatcher creates a watcher over the given subscriber. Events are
// dispatched to the completer until Stop is called.
func NewWatcher(sub events.Subscriber, completer Completer, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{sub: sub, completer: completer, logger: logger}
}

// Start subscribes to the completion topic and begins dispatching events.
func (w *Watcher) Start(ctx context.Context) error {
	ch, cancel, err := w.sub.Subscribe(events.TopicOptimizationCompleted)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.run(ctx, ch)
	return nil
}

func (w *Watcher) run(ctx context.Context, ch <-chan []byte) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			w.handle(ctx, data)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, data []byte) {
	var evt events.OptimizationCompleted
	if err := json.Unmarshal(data, &evt); err != nil {
		w.logger.Warn("discarding malformed optimization event", "error", err)
		return
	}
	if evt.OptimizationID == "" {
		w.logger.Warn("discarding optimization event without optimization_id")
		return
	}

	actor := evt.CompletedBy
	conflict, err := w.completer.CompleteOptimization(ctx, evt.OptimizationID, actor)
	if err != nil {
		w.logger.Warn("failed to complete optimization",
			"optimization_id", evt.OptimizationID, "error", err)
		return
	}
	w.logger.Info("conflict resolved via optimization",
		"conflict_id", conflict.ID, "optimization_id", evt.OptimizationID)
}

// Stop unsubscribes and waits for the dispatch loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
