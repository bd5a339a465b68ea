package lastfm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"skidoodle/lastfm-rpc/internal/track"
)

const (
	// DefaultBaseURL is the Last.fm JSON API endpoint.
	DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"
	// DefaultAvatarURL is the avatar Last.fm serves for users without one.
	DefaultAvatarURL = "https://lastfm.freetls.fastly.net/i/u/avatar170s/818148bf682d429dc215c1705eb27b98.png"
)

// StatsClient reads profile and library statistics from the Last.fm JSON API.
// It serves both track.Profiles and track.Library.
type StatsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        logrus.FieldLogger
}

// NewStatsClient creates a StatsClient. A nil httpClient gets a client with
// a 10 second timeout.
func NewStatsClient(httpClient *http.Client, baseURL, apiKey string, log logrus.FieldLogger) *StatsClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &StatsClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		log:        log,
	}
}

// count decodes Last.fm numbers, which arrive as strings or numbers.
type count int64

func (c *count) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*c = 0
		return nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("parse count %q: %w", b, err)
	}
	*c = count(v)
	return nil
}

type image struct {
	Size string `json:"size"`
	URL  string `json:"#text"`
}

// apiError is the body Last.fm sends instead of a result.
type apiError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("last.fm error %d: %s", e.Code, e.Message)
}

type userInfoResponse struct {
	User struct {
		Name        string  `json:"name"`
		RealName    string  `json:"realname"`
		PlayCount   count   `json:"playcount"`
		ArtistCount count   `json:"artist_count"`
		Images      []image `json:"image"`
	} `json:"user"`
}

type lovedTracksResponse struct {
	LovedTracks struct {
		Attr struct {
			Total count `json:"total"`
		} `json:"@attr"`
	} `json:"lovedtracks"`
}

type artistInfoResponse struct {
	Artist struct {
		Stats struct {
			UserPlayCount count `json:"userplaycount"`
		} `json:"stats"`
	} `json:"artist"`
}

type trackInfoResponse struct {
	Track struct {
		UserPlayCount count `json:"userplaycount"`
	} `json:"track"`
}

// User fetches the profile header of username.
func (c *StatsClient) User(ctx context.Context, username string) (*track.UserSnapshot, error) {
	var info userInfoResponse
	if err := c.call(ctx, url.Values{"method": {"user.getinfo"}, "user": {username}}, &info); err != nil {
		return nil, fmt.Errorf("%w: get user info: %w", track.ErrSourceUnavailable, err)
	}

	var loved lovedTracksResponse
	if err := c.call(ctx, url.Values{"method": {"user.getlovedtracks"}, "user": {username}, "limit": {"1"}}, &loved); err != nil {
		return nil, fmt.Errorf("%w: get loved tracks: %w", track.ErrSourceUnavailable, err)
	}

	u := &track.UserSnapshot{
		DisplayName: info.User.RealName,
		Username:    username,
		AvatarURL:   DefaultAvatarURL,
		Scrobbles:   int64(info.User.PlayCount),
		Artists:     int64(info.User.ArtistCount),
		LovedTracks: int64(loved.LovedTracks.Attr.Total),
	}
	if u.DisplayName == "" {
		u.DisplayName = info.User.Name
	}
	if u.DisplayName == "" {
		u.DisplayName = username
	}
	for _, img := range info.User.Images {
		if img.URL != "" {
			u.AvatarURL = img.URL
		}
	}
	return u, nil
}

// Stats fetches how often username played artist and the given title.
func (c *StatsClient) Stats(ctx context.Context, username, artist, title string) (*track.LibrarySnapshot, error) {
	var a artistInfoResponse
	err := c.call(ctx, url.Values{"method": {"artist.getinfo"}, "artist": {artist}, "username": {username}, "autocorrect": {"1"}}, &a)
	if err != nil {
		return nil, fmt.Errorf("%w: get artist info: %w", track.ErrSourceUnavailable, err)
	}

	lib := &track.LibrarySnapshot{}
	if n := int64(a.Artist.Stats.UserPlayCount); n > 0 {
		lib.ArtistPlayCount = &n
	}

	var t trackInfoResponse
	err = c.call(ctx, url.Values{"method": {"track.getinfo"}, "artist": {artist}, "track": {title}, "username": {username}}, &t)
	var apiErr *apiError
	switch {
	case err == nil:
		if n := int64(t.Track.UserPlayCount); n > 0 {
			lib.TrackCount = &n
		}
	case errors.As(err, &apiErr):
		c.log.WithFields(logrus.Fields{"artist": artist, "title": title, "error": apiErr}).Debug("track not in library")
	default:
		return nil, fmt.Errorf("%w: get track info: %w", track.ErrSourceUnavailable, err)
	}

	return lib, nil
}

func (c *StatsClient) call(ctx context.Context, params url.Values, v any) error {
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.WithField("error", err).Warn("failed to close last.fm api response body")
		}
	}()

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode %s response (status %d): %w", params.Get("method"), resp.StatusCode, err)
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		return &apiErr
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", params.Get("method"), resp.StatusCode)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s response: %w", params.Get("method"), err)
	}
	return nil
}
