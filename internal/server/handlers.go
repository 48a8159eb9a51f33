package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"swarmsentry/internal/protocol"
)

// handleIngest accepts a single IOC report over POST and feeds it to the
// engine. The boundary owns request validation and timestamp defaulting;
// the engine never sees a zero timestamp.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var report protocol.IOCReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := report.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}

	added := s.engine.IngestReport(report)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"accepted":        true,
		"added_to_filter": added,
	})
}

// handleHealth reports the engine status from its read-only accessors.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.engine.Status())
}

// handleSubscribe upgrades the connection and binds it to a subscriber
// mailbox. The client may carry an `id` query param (a fresh random id
// is issued otherwise) and a `version` param checked against the minimum
// protocol version this engine still serves.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	compatible, err := s.compat.IsCompatible(r.URL.Query().Get("version"))
	if err != nil {
		http.Error(w, "Invalid protocol version", http.StatusBadRequest)
		return
	}
	if !compatible {
		http.Error(w, "Protocol version no longer served", http.StatusBadRequest)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		id = generateSubscriberID()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	s.activeConns.Add(1)
	defer func() {
		conn.Close()
		s.activeConns.Done()
	}()

	mailbox := s.engine.Subscribe(id)
	defer s.engine.Release(id, mailbox)

	log := s.log.WithField("subscriber", id)
	log.Info("Subscriber connected")
	defer log.Info("Subscriber disconnected")

	// New subscribers start from the current state rather than waiting
	// for the next admission.
	if snapshot, err := s.engine.Snapshot(); err != nil {
		log.WithError(err).Error("Failed to serialize initial snapshot")
	} else if err := conn.WriteMessage(websocket.TextMessage, snapshot); err != nil {
		return
	}

	// The read pump only detects the peer closing; subscribers never
	// send payloads upstream.
	readClosed := make(chan struct{})
	go func() {
		defer close(readClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case data, ok := <-mailbox:
			if !ok {
				// Engine teardown or a re-subscribe under the same id.
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription closed"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-readClosed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
