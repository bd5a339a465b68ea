package websocket

import (
	"encoding/json"
	"time"

	"skidoodle/lastfm-rpc/internal/poller"
)

// Snapshot is the client-facing status message.
type Snapshot struct {
	poller.DisplayState
	Timestamp int64 `json:"timestamp"`
}

// newSnapshot stamps a display state with the time it was sent.
func newSnapshot(state poller.DisplayState, now time.Time) Snapshot {
	return Snapshot{
		DisplayState: state,
		Timestamp:    now.UnixMilli(),
	}
}

func encodeSnapshot(state poller.DisplayState) ([]byte, error) {
	return json.Marshal(newSnapshot(state, time.Now()))
}
