// Package discord talks to a local Discord client over its IPC socket.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"skidoodle/lastfm-rpc/internal/presence"
)

// DefaultClientID is the application whose name and assets the presence card shows.
const DefaultClientID = "702984897496875072"

const ioTimeout = 5 * time.Second

var errNotConnected = errors.New("not connected")

// Client is a presence.Host backed by the Discord IPC socket.
// It is safe for concurrent use, but calls are serialized.
type Client struct {
	clientID string
	paths    func() []string
	pid      int
	log      logrus.FieldLogger

	mu   sync.Mutex
	conn net.Conn
}

// New creates a Client for the given application id.
func New(clientID string, log logrus.FieldLogger) *Client {
	if clientID == "" {
		clientID = DefaultClientID
	}
	return &Client{
		clientID: clientID,
		paths:    socketPaths,
		pid:      os.Getpid(),
		log:      log,
	}
}

// Connect dials the first Discord socket that accepts a connection and
// performs the handshake. presence.ErrHostNotRunning is returned when no
// socket accepts.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	if err := c.handshake(ctx, conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %w", presence.ErrTransportFailure, err)
	}

	c.conn = conn
	return nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	for _, path := range c.paths() {
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: no ipc socket accepted a connection", presence.ErrHostNotRunning)
}

func (c *Client) handshake(ctx context.Context, conn net.Conn) error {
	setDeadline(ctx, conn)

	if err := writeFrame(conn, opHandshake, handshake{Version: 1, ClientID: c.clientID}); err != nil {
		return err
	}

	resp, err := c.readResponse(conn)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	if resp.Evt != "READY" {
		return fmt.Errorf("handshake: unexpected event %q", resp.Evt)
	}
	return nil
}

// Push publishes p as the current activity.
func (c *Client) Push(ctx context.Context, p presence.Payload) error {
	return c.setActivity(ctx, newActivity(p))
}

// Clear removes the current activity.
func (c *Client) Clear(ctx context.Context) error {
	return c.setActivity(ctx, nil)
}

func (c *Client) setActivity(ctx context.Context, a *activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("%w: %w", presence.ErrTransportFailure, errNotConnected)
	}

	setDeadline(ctx, c.conn)

	cmd := command{
		Cmd:   "SET_ACTIVITY",
		Args:  commandArgs{PID: c.pid, Activity: a},
		Nonce: uuid.NewString(),
	}
	if err := writeFrame(c.conn, opFrame, cmd); err != nil {
		return fmt.Errorf("%w: %w", presence.ErrTransportFailure, err)
	}

	// Replies to earlier commands that timed out may still be queued.
	for {
		resp, err := c.readResponse(c.conn)
		if err != nil {
			return fmt.Errorf("%w: set activity: %w", presence.ErrTransportFailure, err)
		}
		if resp.Nonce != cmd.Nonce {
			c.log.WithFields(logrus.Fields{
				"cmd":   resp.Cmd,
				"evt":   resp.Evt,
				"nonce": resp.Nonce,
			}).Debug("skipping stale discord reply")
			continue
		}
		if resp.Evt == "ERROR" {
			return fmt.Errorf("%w: set activity: %s (%d)", presence.ErrTransportFailure, resp.Data.Message, resp.Data.Code)
		}
		return nil
	}
}

// readResponse reads frames until a reply arrives, answering pings.
func (c *Client) readResponse(conn net.Conn) (*response, error) {
	for {
		op, body, err := readFrame(conn)
		if err != nil {
			return nil, err
		}

		switch op {
		case opPing:
			var pong any = struct{}{}
			if len(body) > 0 {
				pong = json.RawMessage(body)
			}
			if err := writeFrame(conn, opPong, pong); err != nil {
				return nil, err
			}
		case opClose:
			var msg closeMessage
			_ = json.Unmarshal(body, &msg)
			return nil, fmt.Errorf("closed by discord: %s (%d)", msg.Message, msg.Code)
		case opFrame:
			var resp response
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			if resp.Evt == "ERROR" && resp.Cmd == "DISPATCH" {
				return nil, fmt.Errorf("%s (%d)", resp.Data.Message, resp.Data.Code)
			}
			return &resp, nil
		default:
			c.log.WithField("op", op).Debug("ignoring discord frame with unknown opcode")
		}
	}
}

// Close says goodbye to Discord and closes the socket.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(ioTimeout))
	_ = writeFrame(c.conn, opClose, struct{}{})

	err := c.conn.Close()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("%w: %w", presence.ErrTransportFailure, err)
	}
	return nil
}

func setDeadline(ctx context.Context, conn net.Conn) {
	deadline := time.Now().Add(ioTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
}
