package poller

import "time"

// Default labels shown by UI collaborators.
const (
	NoTrackLabel    = "No track detected"
	nowPlayingLabel = "Now playing: %s - %s"
)

// DisplayState is the read model published for UI collaborators. A new value
// is published on every change; published values are never modified.
type DisplayState struct {
	TrackLabel      string     `json:"track_label"`
	Connected       bool       `json:"connected"`
	ConnectedSince  *time.Time `json:"connected_since,omitempty"`
	Artist          string     `json:"artist,omitempty"`
	ArtistScrobbles *int64     `json:"artist_scrobbles,omitempty"`
}

