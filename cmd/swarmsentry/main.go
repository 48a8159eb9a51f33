package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"swarmsentry/internal/config"
	"swarmsentry/internal/gate"
	"swarmsentry/internal/membership"
	"swarmsentry/internal/relay"
	"swarmsentry/internal/server"
	"swarmsentry/internal/swarm"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level %q: %v", cfg.LogLevel, err)
	}
	logrus.SetLevel(level)
	if cfg.LogJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	var set membership.Set
	switch cfg.MembershipBackend {
	case membership.BackendBloom:
		set = membership.NewBloomSet(cfg.BloomCapacity, cfg.BloomFPRate)
	default:
		set = membership.NewExactSet()
	}

	metrics := swarm.NewMetrics()
	defer metrics.Close()

	engine := swarm.New(swarm.Config{
		Gate: gate.Config{
			MinReportCount:     cfg.MinReportCount,
			MinTimeSpanSeconds: cfg.MinTimeSpan.Seconds(),
			MinDistinctSources: cfg.MinDistinctSources,
		},
		Set:             set,
		MailboxCapacity: cfg.MailboxCapacity,
		Metrics:         metrics,
	})

	srv, err := server.New(engine)
	if err != nil {
		logrus.Fatalf("Failed to create boundary server: %v", err)
	}

	var snapshotRelay *relay.Relay
	if cfg.NATSURL != "" {
		snapshotRelay, err = relay.New(engine, relay.Config{
			URL:     cfg.NATSURL,
			Stream:  cfg.NATSStream,
			Subject: cfg.NATSSubject,
		})
		if err != nil {
			logrus.Fatalf("Failed to create NATS relay: %v", err)
		}
		snapshotRelay.Start(ctx)
	}

	if err := srv.Start(ctx, cfg.ListenAddr()); err != nil {
		logrus.Fatalf("Failed to start boundary server: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"addr":    cfg.ListenAddr(),
		"backend": cfg.MembershipBackend,
	}).Info("Swarm consensus engine listening")

	// Wait for shutdown signal
	<-sigChan
	logrus.Info("Shutting down...")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		if snapshotRelay != nil {
			snapshotRelay.Close()
		}
		if err := srv.Stop(); err != nil {
			logrus.WithError(err).Error("Error during shutdown")
		}
	}()

	select {
	case <-shutdownDone:
	case <-time.After(cfg.ShutdownTimeout):
		logrus.Warn("Shutdown timed out")
	}
}
