// Package relay republishes consensus snapshots onto a NATS JetStream
// stream. It behaves like any other subscriber: it owns a bounded
// mailbox on the aggregator and drains it into NATS, so broker slowness
// can never back-pressure ingestion.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"swarmsentry/internal/swarm"
)

const subscriberID = "nats-relay"

// Config holds the JetStream target for snapshot republication.
type Config struct {
	URL     string
	Stream  string
	Subject string
	// MaxAge bounds snapshot retention in the stream; older snapshots
	// are superseded anyway.
	MaxAge time.Duration
}

// Relay drains one subscriber mailbox into a JetStream stream.
type Relay struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	engine  *swarm.Aggregator
	config  Config
	log     *logrus.Entry
	started bool
	done    chan struct{}
}

// New connects to NATS and ensures the snapshot stream exists.
func New(engine *swarm.Aggregator, config Config) (*Relay, error) {
	nc, err := nats.Connect(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	maxAge := config.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     config.Stream,
		Subjects: []string{config.Subject},
		MaxAge:   maxAge,
	}); err != nil && err != nats.ErrStreamNameAlreadyInUse {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &Relay{
		nc:     nc,
		js:     js,
		engine: engine,
		config: config,
		log:    logrus.WithField("component", "relay"),
		done:   make(chan struct{}),
	}, nil
}

// Start subscribes to the aggregator and republishes every snapshot it
// receives until ctx is done or the engine closes the mailbox. Publish
// failures are logged and dropped; the next snapshot supersedes them.
func (r *Relay) Start(ctx context.Context) {
	mailbox := r.engine.Subscribe(subscriberID)
	r.started = true

	go func() {
		defer close(r.done)
		for {
			select {
			case data, ok := <-mailbox:
				if !ok {
					return
				}
				r.publish(data)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *Relay) publish(data []byte) {
	msg := &nats.Msg{
		Subject: r.config.Subject,
		Data:    data,
		Header: nats.Header{
			"Content-Type": []string{"application/json"},
		},
	}

	if _, err := r.js.PublishMsg(msg); err != nil {
		r.log.WithError(err).Error("Failed to publish snapshot to JetStream")
	}
}

// Close unsubscribes from the aggregator, waits for the drain loop to
// finish, and closes the NATS connection.
func (r *Relay) Close() {
	if r.started {
		r.engine.Unsubscribe(subscriberID)
		<-r.done
	}
	r.nc.Close()
}
