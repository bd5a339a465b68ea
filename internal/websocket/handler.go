package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// serveWS upgrades the request and starts the client pumps. The hub sends
// the current snapshot as soon as the client is registered.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"error":  err,
			"origin": r.Header.Get("Origin"),
		}).Warn("websocket upgrade failed")
		return
	}

	c := newClient(s.hub, conn, s.log)
	if !s.hub.add(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	c.readPump()
}

// rootHandler serves websocket upgrades on / and answers plain requests with
// 426 Upgrade Required.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.serveWS(w, r)
		return
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Upgrade", "websocket")
	w.Header().Set("Connection", "Upgrade")
	w.WriteHeader(http.StatusUpgradeRequired)
	if _, err := w.Write([]byte("426 Upgrade Required")); err != nil {
		s.log.WithField("error", err).Warn("failed to write upgrade required response")
	}
}

// stateHandler returns the current snapshot as JSON.
func (s *Server) stateHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(newSnapshot(s.feed.State(), time.Now())); err != nil {
		s.log.WithField("error", err).Warn("failed to write state response")
	}
}

// healthHandler responds to container health checks.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		s.log.WithField("error", err).Warn("failed to write health check response")
	}
}
