// Package server is the transport boundary of the engine: it accepts
// inbound IOC reports over HTTP, exposes health and metrics, and serves
// the persistent WebSocket subscription endpoint that drains subscriber
// mailboxes onto the wire.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"swarmsentry/internal/protocol"
	"swarmsentry/internal/swarm"
)

// Server handles the HTTP/WebSocket boundary and its lifecycle
type Server struct {
	engine *swarm.Aggregator
	compat *protocol.CompatChecker

	upgrader websocket.Upgrader
	server   *http.Server
	log      *logrus.Entry

	// Connection tracking
	activeConns sync.WaitGroup
}

// New creates a boundary server in front of the given engine.
func New(engine *swarm.Aggregator) (*Server, error) {
	compat, err := protocol.NewCompatChecker()
	if err != nil {
		return nil, err
	}

	return &Server{
		engine: engine,
		compat: compat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Subscribers are server-side enterprise clients, not browsers.
				return true
			},
		},
		log: logrus.WithField("component", "server"),
	}, nil
}

// Start begins serving on listenAddr and shuts down when ctx is done.
func (s *Server) Start(ctx context.Context, listenAddr string) error {
	s.server = &http.Server{
		Addr:    listenAddr,
		Handler: s.Handler(),
	}

	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.log.WithError(err).Error("Boundary server error")
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.log.WithError(err).Error("Error stopping boundary server")
		}
	}()

	return nil
}

// Stop closes all subscriber mailboxes, waits for their connections to
// finish, and shuts the HTTP server down.
func (s *Server) Stop() error {
	s.engine.Close()
	s.activeConns.Wait()

	if s.server != nil {
		return s.server.Shutdown(context.Background())
	}
	return nil
}

// Handler returns the boundary mux. Tests drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleSubscribe)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// generateSubscriberID creates a random 16-byte subscriber identifier
// for clients that connect without one.
func generateSubscriberID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
