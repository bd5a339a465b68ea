// Package spotify reads the currently playing track from the Spotify player.
package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify"
	"golang.org/x/oauth2"

	"skidoodle/lastfm-rpc/internal/track"
)

const tokenURL = "https://accounts.spotify.com/api/token"

type player interface {
	PlayerCurrentlyPlaying() (*spotify.CurrentlyPlaying, error)
}

// Source is a track.Source backed by the Spotify player of one account.
type Source struct {
	player player
}

// NewSource creates a Source using the refresh token flow. The token source
// refreshes access tokens on its own and is safe for concurrent use.
func NewSource(ctx context.Context, clientID, clientSecret, refreshToken string) *Source {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: tokenURL,
		},
	}

	token := &oauth2.Token{
		RefreshToken: refreshToken,
	}

	client := spotify.NewClient(oauth2.NewClient(ctx, conf.TokenSource(ctx, token)))
	return &Source{player: &client}
}

// NowPlaying returns the playing track, or nil when the player is paused or idle.
func (s *Source) NowPlaying(ctx context.Context) (*track.NowPlaying, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, err := s.player.PlayerCurrentlyPlaying()
	if err != nil {
		return nil, fmt.Errorf("%w: currently playing: %w", track.ErrSourceUnavailable, err)
	}
	return nowPlaying(current), nil
}

func nowPlaying(current *spotify.CurrentlyPlaying) *track.NowPlaying {
	if current == nil || !current.Playing || current.Item == nil {
		return nil
	}
	item := current.Item

	np := &track.NowPlaying{
		Identity: string(item.ID),
		Title:    item.Name,
		Album:    item.Album.Name,
	}
	if len(item.Artists) > 0 {
		np.Artist = item.Artists[0].Name
	}
	if len(item.Album.Images) > 0 {
		np.Artwork = item.Album.Images[0].URL
	}
	if remaining := item.Duration - current.Progress; remaining > 0 {
		np.TimeRemaining = float64(remaining)
	}
	return np
}
