package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankforge/linkmesh/internal/config"
	"github.com/rankforge/linkmesh/internal/detect"
	"github.com/rankforge/linkmesh/internal/events"
	"github.com/rankforge/linkmesh/internal/lifecycle"
	"github.com/rankforge/linkmesh/internal/metrics"
	"github.com/rankforge/linkmesh/internal/optimizer"
	"github.com/rankforge/linkmesh/internal/server"
	"github.com/rankforge/linkmesh/internal/store/postgres"
	"github.com/rankforge/linkmesh/internal/structure"
	meshsync "github.com/rankforge/linkmesh/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the linkmesh conflict server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create a client connection.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Connect to Postgres.
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		// Load detection rules.
		rules, err := detect.LoadConfig(cfg.RulesFile)
		if err != nil {
			store.Close()
			return err
		}
		detector := detect.New(rules)

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (LINKMESH_NATS_URL not set)")
		}

		// Structure source and optional optimizer creator.
		source := structure.NewHTTPSource(cfg.StructureURL, cfg.StructureToken)
		opts := lifecycle.Options{Logger: logger}
		if cfg.OptimizerURL != "" {
			opts.Creator = optimizer.NewHTTPCreator(cfg.OptimizerURL, cfg.OptimizerToken)
			logger.Info("optimizer enabled", "url", cfg.OptimizerURL)
		} else {
			logger.Info("task creation disabled (LINKMESH_OPTIMIZER_URL not set)")
		}

		manager := lifecycle.NewManager(store, source, detector, publisher, opts)
		aggregator := metrics.NewAggregator(store, nil)

		// Start HTTP server.
		conflictServer := server.NewConflictServer(manager, store, aggregator, logger)
		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: conflictServer.NewHTTPHandler(cfg.AuthToken),
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start the optimizer completion watcher if NATS is available.
		var (
			watcher    *optimizer.Watcher
			watcherSub events.Subscriber
		)
		if cfg.NATSURL != "" {
			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				logger.Error("failed to create completion subscriber", "err", err)
			} else {
				watcher = optimizer.NewWatcher(sub, manager, logger)
				if err := watcher.Start(context.Background()); err != nil {
					logger.Error("failed to start completion watcher", "err", err)
					watcher = nil
					sub.Close()
				} else {
					watcherSub = sub
					logger.Info("completion watcher started")
				}
			}
		}

		// Start sync scheduler if any destinations are configured.
		var scheduler *meshsync.Scheduler
		if cfg.SyncInterval > 0 {
			var dests []meshsync.Destination

			if cfg.SyncS3Bucket != "" {
				s3Dest, err := meshsync.NewS3Destination(
					context.Background(),
					cfg.SyncS3Bucket,
					cfg.SyncS3Key,
					cfg.SyncS3Region,
					cfg.SyncS3Endpoint,
				)
				if err != nil {
					logger.Error("failed to create S3 sync destination", "err", err)
				} else {
					dests = append(dests, s3Dest)
					logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
				}
			}

			if cfg.SyncGitRepo != "" {
				gitDest := meshsync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch)
				dests = append(dests, gitDest)
				logger.Info("sync git destination enabled", "repo", cfg.SyncGitRepo, "file", cfg.SyncGitFile)
			}

			if len(dests) > 0 {
				scheduler = meshsync.NewScheduler(store, dests, cfg.SyncInterval, logger)
				scheduler.Start()
				logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
			}
		}

		logger.Info("linkmesh server started", "http_addr", cfg.HTTPAddr)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		if watcher != nil {
			watcher.Stop()
			watcherSub.Close()
			logger.Info("completion watcher stopped")
		}

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		source.Close()
		if opts.Creator != nil {
			opts.Creator.Close()
		}
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
