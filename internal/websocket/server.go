// Package websocket publishes the poller's display state to UI clients.
package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"skidoodle/lastfm-rpc/internal/poller"
)

const shutdownTimeout = 10 * time.Second

// Feed is the source of display states.
type Feed interface {
	State() poller.DisplayState
	Refresh() <-chan struct{}
}

// Server serves the status feed over HTTP and WebSocket.
type Server struct {
	addr     string
	feed     Feed
	hub      *Hub
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

// NewServer creates a status server. An empty allowedOrigins accepts every origin.
func NewServer(addr string, allowedOrigins []string, feed Feed, log logrus.FieldLogger) *Server {
	originChecker := func(r *http.Request) bool {
		if len(allowedOrigins) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, allowed := range allowedOrigins {
			if allowed == origin {
				return true
			}
		}
		return false
	}

	return &Server{
		addr: addr,
		feed: feed,
		hub:  NewHub(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker,
		},
		log: log,
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/state", s.stateHandler)
	mux.HandleFunc("/", s.rootHandler)
	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	s.start(ctx, &wg)

	go func() {
		<-ctx.Done()
		s.log.Info("shutdown signal received, stopping http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.WithField("error", err).Error("http server shutdown error")
		}
	}()

	s.log.WithField("addr", s.addr).Info("http server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	wg.Wait()
	return nil
}

// start runs the hub and the relay from the feed to the hub.
func (s *Server) start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.hub.Run(ctx)
	}()

	go func() {
		defer wg.Done()
		s.relay(ctx)
	}()
}

// relay broadcasts the current state once, then again on every refresh.
func (s *Server) relay(ctx context.Context) {
	for {
		msg, err := encodeSnapshot(s.feed.State())
		if err != nil {
			s.log.WithField("error", err).Error("failed to encode state")
		} else if !s.hub.Broadcast(msg) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-s.feed.Refresh():
		}
	}
}
