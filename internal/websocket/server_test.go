package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skidoodle/lastfm-rpc/internal/poller"
)

type fakeFeed struct {
	mu      sync.Mutex
	state   poller.DisplayState
	refresh chan struct{}
}

func newFakeFeed(label string) *fakeFeed {
	return &fakeFeed{
		state:   poller.DisplayState{TrackLabel: label},
		refresh: make(chan struct{}, 1),
	}
}

func (f *fakeFeed) State() poller.DisplayState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeFeed) Refresh() <-chan struct{} {
	return f.refresh
}

func (f *fakeFeed) set(s poller.DisplayState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
	select {
	case f.refresh <- struct{}{}:
	default:
	}
}

func startServer(t *testing.T, origins []string, feed Feed) (*httptest.Server, context.CancelFunc) {
	t.Helper()
	log, _ := test.NewNullLogger()
	s := NewServer("", origins, feed, log)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	s.start(ctx, &wg)
	ts := httptest.NewServer(s.Handler())

	t.Cleanup(func() {
		cancel()
		wg.Wait()
		ts.Close()
	})
	return ts, cancel
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
}

func dial(t *testing.T, ts *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) Snapshot {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var s Snapshot
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func TestHealthHandler(t *testing.T) {
	ts, _ := startServer(t, nil, newFakeFeed(poller.NoTrackLabel))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestStateHandler(t *testing.T) {
	n := int64(42)
	feed := newFakeFeed("")
	feed.set(poller.DisplayState{TrackLabel: "Now playing: A - B", Artist: "A", ArtistScrobbles: &n})
	ts, _ := startServer(t, nil, feed)

	resp, err := http.Get(ts.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var s Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, "Now playing: A - B", s.TrackLabel)
	assert.Equal(t, "A", s.Artist)
	require.NotNil(t, s.ArtistScrobbles)
	assert.Equal(t, int64(42), *s.ArtistScrobbles)
	assert.NotZero(t, s.Timestamp)
}

func TestRootRequiresUpgrade(t *testing.T) {
	ts, _ := startServer(t, nil, newFakeFeed(poller.NoTrackLabel))

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	assert.Equal(t, "websocket", resp.Header.Get("Upgrade"))

	resp2, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestWebsocketSendsCurrentThenRefreshed(t *testing.T) {
	feed := newFakeFeed(poller.NoTrackLabel)
	ts, _ := startServer(t, nil, feed)
	conn := dial(t, ts, nil)

	first := readSnapshot(t, conn)
	assert.Equal(t, poller.NoTrackLabel, first.TrackLabel)
	assert.False(t, first.Connected)

	feed.set(poller.DisplayState{TrackLabel: "Now playing: A - B", Connected: true})

	second := readSnapshot(t, conn)
	assert.Equal(t, "Now playing: A - B", second.TrackLabel)
	assert.True(t, second.Connected)
}

func TestWebsocketLateClientGetsLatest(t *testing.T) {
	feed := newFakeFeed(poller.NoTrackLabel)
	ts, _ := startServer(t, nil, feed)

	early := dial(t, ts, nil)
	readSnapshot(t, early)
	feed.set(poller.DisplayState{TrackLabel: "Now playing: C - D"})
	assert.Equal(t, "Now playing: C - D", readSnapshot(t, early).TrackLabel)

	late := dial(t, ts, nil)
	assert.Equal(t, "Now playing: C - D", readSnapshot(t, late).TrackLabel)
}

func TestWebsocketOriginCheck(t *testing.T) {
	ts, _ := startServer(t, []string{"https://allowed.example"}, newFakeFeed(poller.NoTrackLabel))

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	conn := dial(t, ts, http.Header{"Origin": {"https://allowed.example"}})
	assert.Equal(t, poller.NoTrackLabel, readSnapshot(t, conn).TrackLabel)
}

func TestWebsocketClosedOnShutdown(t *testing.T) {
	ts, cancel := startServer(t, nil, newFakeFeed(poller.NoTrackLabel))
	conn := dial(t, ts, nil)
	readSnapshot(t, conn)

	cancel()

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}
