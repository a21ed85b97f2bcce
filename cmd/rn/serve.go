package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/relaynotes/internal/config"
	"github.com/alfredjeanlab/relaynotes/internal/events"
	"github.com/alfredjeanlab/relaynotes/internal/identity"
	"github.com/alfredjeanlab/relaynotes/internal/ingest"
	"github.com/alfredjeanlab/relaynotes/internal/metrics"
	"github.com/alfredjeanlab/relaynotes/internal/model"
	"github.com/alfredjeanlab/relaynotes/internal/relay"
	"github.com/alfredjeanlab/relaynotes/internal/server"
	"github.com/alfredjeanlab/relaynotes/internal/store"
	"github.com/alfredjeanlab/relaynotes/internal/store/postgres"
	"github.com/alfredjeanlab/relaynotes/internal/store/sqlite"
	notesync "github.com/alfredjeanlab/relaynotes/internal/sync"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the relay bridge",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Override PersistentPreRunE so we don't build an HTTP client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level, _ := cfg.Level()
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		lis, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, cfg, lis, logger)
	},
}

// runServer runs the bridge on lis until ctx is cancelled. It owns lis.
func runServer(ctx context.Context, cfg *config.Config, lis net.Listener, logger *slog.Logger) error {
	id, err := identity.LoadOrCreate(cfg.KeyFile, identity.WithPersist(cfg.PersistKey))
	if err != nil {
		lis.Close()
		return err
	}
	if id.Generated() {
		logger.Info("generated new identity", "key_file", cfg.KeyFile, "persisted", cfg.PersistKey)
	}

	s, err := openStore(cfg)
	if err != nil {
		lis.Close()
		return err
	}

	stored, err := s.Count(ctx, model.Filter{Kinds: []model.Kind{model.KindTextNote}})
	if err != nil {
		logger.Warn("counting stored notes failed", "err", err)
	}
	logger.Info("identity loaded", "npub", id.NPub(), "stored_text_notes", stored, "store", cfg.StoreBackend())

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		s.Close()
		lis.Close()
		return err
	}

	sess := relay.NewSession(cfg.RelayURL, id,
		relay.WithLogger(logger),
		relay.WithWaitForAck(cfg.WaitForAck),
		relay.WithPublishTimeout(cfg.PublishTimeout),
		relay.WithStateHook(func(st relay.State) {
			metrics.RelayState.Set(float64(st))
			if err := publisher.Publish(context.Background(), events.TopicRelayState, events.RelayState{URL: cfg.RelayURL, State: st.String()}); err != nil {
				logger.Warn("publishing relay state failed", "err", err)
			}
		}),
	)

	sub, err := connectAndSubscribe(ctx, sess, id.PublicKey())
	if err != nil {
		sess.Close()
		publisher.Close()
		s.Close()
		lis.Close()
		return err
	}

	// Ingest everything the relay sends for our own notes.
	loop := ingest.New(s, publisher, logger)
	ingestDone := make(chan error, 1)
	go func() {
		err := loop.Run(ctx, sub.Notifications())
		if ctx.Err() == nil {
			logger.Warn("relay subscription ended", "state", sess.State(), "stored", loop.Stats().Stored)
		}
		ingestDone <- err
	}()

	notes := server.NewNotesServer(s, sess, publisher, server.WithLogger(logger))
	httpServer := &http.Server{
		Handler:           notes.NewHTTPHandler(cfg.AuthToken),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "addr", lis.Addr().String())
		if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "err", err)
		}
	}()

	scheduler := startSync(ctx, cfg, s, logger)

	logger.Info("relaynotes started", "http_addr", lis.Addr().String(), "relay", cfg.RelayURL)

	<-ctx.Done()
	logger.Info("shutting down")

	if scheduler != nil {
		scheduler.Stop()
		logger.Info("sync scheduler stopped")
	}

	// In-flight requests finish before the relay session closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}
	logger.Info("HTTP server stopped")

	if err := sess.Close(); err != nil {
		logger.Error("relay session close error", "err", err)
	}
	if err := <-ingestDone; err != nil {
		logger.Error("ingestion loop error", "err", err)
	}
	st := loop.Stats()
	logger.Info("ingestion stopped", "received", st.Received, "stored", st.Stored, "duplicates", st.Duplicates, "failed", st.Failed)

	if err := publisher.Close(); err != nil {
		logger.Error("error closing publisher", "err", err)
	}
	if err := s.Close(); err != nil {
		logger.Error("error closing store", "err", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreBackend() == "postgres" {
		s, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("events disabled (RN_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("events enabled", "nats_url", cfg.NATSURL)
	return pub, nil
}

// connectAndSubscribe opens the relay session and subscribes to text notes
// authored by pubkey from now on.
func connectAndSubscribe(ctx context.Context, sess *relay.Session, pubkey string) (*relay.Subscription, error) {
	if err := sess.Connect(ctx); err != nil {
		return nil, err
	}
	since := time.Now()
	return sess.Subscribe(ctx, model.Filter{
		Authors: []string{pubkey},
		Kinds:   []model.Kind{model.KindTextNote},
		Since:   &since,
	})
}

// startSync starts the export scheduler when a destination is configured.
// A destination that fails to initialise is logged and skipped.
func startSync(ctx context.Context, cfg *config.Config, s store.Store, logger *slog.Logger) *notesync.Scheduler {
	if !cfg.Sync.Enabled() {
		return nil
	}

	var dests []notesync.Destination
	if cfg.Sync.S3Bucket != "" {
		s3Dest, err := notesync.NewS3Destination(ctx, cfg.Sync.S3Bucket, cfg.Sync.S3Key, cfg.Sync.S3Region, cfg.Sync.S3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 sync destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("sync S3 destination enabled", "bucket", cfg.Sync.S3Bucket, "key", cfg.Sync.S3Key)
		}
	}
	if cfg.Sync.GitRepo != "" {
		dests = append(dests, notesync.NewGitDestination(cfg.Sync.GitRepo, cfg.Sync.GitFile, cfg.Sync.GitBranch))
		logger.Info("sync git destination enabled", "repo", cfg.Sync.GitRepo, "file", cfg.Sync.GitFile)
	}
	if len(dests) == 0 {
		return nil
	}

	scheduler := notesync.NewScheduler(s, dests, cfg.Sync.Interval, logger)
	scheduler.Start(ctx)
	logger.Info("sync scheduler started", "interval", cfg.Sync.Interval)
	return scheduler
}
