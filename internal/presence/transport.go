package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrHostNotRunning is returned by a Host when the presence host process
	// cannot be found. The connection is retried on the next poll.
	ErrHostNotRunning = errors.New("presence host not running")
	// ErrTransportFailure wraps any other connect, push or close failure.
	ErrTransportFailure = errors.New("presence transport failure")
)

// Host is a connection to the process that renders presence.
type Host interface {
	Connect(ctx context.Context) error
	Push(ctx context.Context, p Payload) error
	Clear(ctx context.Context) error
	Close() error
}

// Transport owns the connection lifecycle to a Host. None of its methods
// return errors: failures are logged and the state is left as it was.
type Transport struct {
	host Host
	log  logrus.FieldLogger
	now  func() time.Time

	mu        sync.Mutex
	connected bool
	since     time.Time
}

// NewTransport creates a disconnected Transport for host.
func NewTransport(host Host, log logrus.FieldLogger) *Transport {
	return &Transport{
		host: host,
		log:  log,
		now:  time.Now,
	}
}

// Enable connects to the host unless already connected.
func (t *Transport) Enable(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected {
		return
	}

	if err := t.host.Connect(ctx); err != nil {
		if errors.Is(err, ErrHostNotRunning) {
			t.log.WithField("error", err).Warn("discord not found, will retry in next cycle")
			return
		}
		t.log.WithField("error", err).Error("failed to connect to discord")
		return
	}

	t.connected = true
	t.since = t.now()
	t.log.Info("connected to discord")
}

// Disable clears the published status and closes the connection.
func (t *Transport) Disable(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return
	}

	if err := t.host.Clear(ctx); err != nil {
		t.log.WithField("error", err).Error("failed to clear presence")
	}
	if err := t.host.Close(); err != nil {
		t.log.WithField("error", err).Error("failed to close discord connection")
	}

	t.connected = false
	t.since = time.Time{}
	t.log.Info("disconnected from discord")
}

// Update pushes p to the host. It is skipped while disconnected, and a
// failed push does not change the connection state.
func (t *Transport) Update(ctx context.Context, p Payload) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		t.log.Debug("presence update skipped, not connected")
		return
	}

	if err := t.host.Push(ctx, p); err != nil {
		t.log.WithField("error", err).Error("failed to update presence")
	}
}

// State reports whether the transport is connected and since when.
func (t *Transport) State() (bool, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected, t.since
}
