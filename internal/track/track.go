// Package track holds the data shared between track sources, the presence
// payload builder and the poller.
package track

import (
	"context"
	"errors"
)

// ErrSourceUnavailable wraps every auth, network or malformed-response failure
// reported by a track, profile or library service.
var ErrSourceUnavailable = errors.New("source unavailable")

// NowPlaying is the track a source reports as currently playing.
// Empty Album and Artwork mean the source had none.
type NowPlaying struct {
	Identity string
	Title    string
	Artist   string
	Album    string
	Artwork  string
	// TimeRemaining is the raw value reported by the source (milliseconds).
	TimeRemaining float64
}

// Key identifies a track for change detection.
type Key struct {
	Artist string
	Title  string
}

// Key returns the change-detection key of the track.
func (np *NowPlaying) Key() Key {
	return Key{Artist: np.Artist, Title: np.Title}
}

// UserSnapshot is the profile header of a Last.fm user.
type UserSnapshot struct {
	DisplayName string
	Username    string
	AvatarURL   string
	Scrobbles   int64
	Artists     int64
	LovedTracks int64
}

// LibrarySnapshot holds the user's play counts for the artist and track that
// are playing. A nil ArtistPlayCount means the artist was never scrobbled.
type LibrarySnapshot struct {
	ArtistPlayCount *int64
	TrackCount      *int64
}

// Source reports the track that is currently playing.
// A nil track with a nil error means nothing is playing.
type Source interface {
	NowPlaying(ctx context.Context) (*NowPlaying, error)
}

// Profiles fetches user profile snapshots.
type Profiles interface {
	User(ctx context.Context, username string) (*UserSnapshot, error)
}

// Library fetches the user's library counts for an artist and title.
type Library interface {
	Stats(ctx context.Context, username, artist, title string) (*LibrarySnapshot, error)
}
