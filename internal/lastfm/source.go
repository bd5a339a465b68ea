// Package lastfm reads the now playing track and profile statistics of a
// Last.fm user.
package lastfm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shkh/lastfm-go/lastfm"

	"skidoodle/lastfm-rpc/internal/track"
)

type recentTracksAPI interface {
	GetRecentTracks(args map[string]interface{}) (lastfm.UserGetRecentTracks, error)
}

type trackInfoAPI interface {
	GetInfo(args map[string]interface{}) (lastfm.TrackGetInfo, error)
}

// Source reports the track a Last.fm user is scrobbling right now.
type Source struct {
	user     recentTracksAPI
	track    trackInfoAPI
	username string
}

// NewAPI creates the Last.fm API client shared by Source instances.
func NewAPI(apiKey, apiSecret string) *lastfm.Api {
	return lastfm.New(apiKey, apiSecret)
}

// NewSource creates a Source for username backed by api.
func NewSource(api *lastfm.Api, username string) *Source {
	return &Source{
		user:     api.User,
		track:    api.Track,
		username: username,
	}
}

// NowPlaying returns the track currently marked as now playing, or nil.
func (s *Source) NowPlaying(ctx context.Context) (*track.NowPlaying, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := s.user.GetRecentTracks(lastfm.P{
		"user":  s.username,
		"limit": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get recent tracks: %w", track.ErrSourceUnavailable, err)
	}

	if len(res.Tracks) == 0 {
		return nil, nil
	}
	t := res.Tracks[0]
	if t.NowPlaying != "true" {
		return nil, nil
	}

	np := &track.NowPlaying{
		Identity: t.Artist.Name + " - " + t.Name,
		Title:    t.Name,
		Artist:   t.Artist.Name,
		Album:    t.Album.Name,
	}
	for _, img := range t.Images {
		if img.Url != "" {
			np.Artwork = img.Url
		}
	}

	// A missing duration only costs the end timestamp.
	info, err := s.track.GetInfo(lastfm.P{
		"artist": np.Artist,
		"track":  np.Title,
	})
	if err == nil {
		np.TimeRemaining = parseDuration(info.Duration)
	}

	return np, nil
}

func parseDuration(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
