package lastfm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skidoodle/lastfm-rpc/internal/track"
)

// newTestServer answers each Last.fm method with the body registered for it.
func newTestServer(t *testing.T, bodies map[string]string) *StatsClient {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("api_key"))
		assert.Equal(t, "json", q.Get("format"))

		body, ok := bodies[q.Get("method")]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":8,"message":"Operation failed"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	log, _ := test.NewNullLogger()
	return NewStatsClient(srv.Client(), srv.URL+"/2.0/", "key", log)
}

func TestStatsClient_User(t *testing.T) {
	c := newTestServer(t, map[string]string{
		"user.getinfo": `{"user":{"name":"someone","realname":"Some One","playcount":"12345","artist_count":678,
			"image":[{"size":"small","#text":"https://img.example/s.png"},{"size":"extralarge","#text":"https://img.example/xl.png"},{"size":"mega","#text":""}]}}`,
		"user.getlovedtracks": `{"lovedtracks":{"track":[],"@attr":{"user":"someone","page":"1","total":"42"}}}`,
	})

	u, err := c.User(context.Background(), "someone")

	require.NoError(t, err)
	assert.Equal(t, &track.UserSnapshot{
		DisplayName: "Some One",
		Username:    "someone",
		AvatarURL:   "https://img.example/xl.png",
		Scrobbles:   12345,
		Artists:     678,
		LovedTracks: 42,
	}, u)
}

func TestStatsClient_UserDefaults(t *testing.T) {
	c := newTestServer(t, map[string]string{
		"user.getinfo":        `{"user":{"name":"someone","realname":"","playcount":"0","image":[]}}`,
		"user.getlovedtracks": `{"lovedtracks":{"@attr":{"total":"0"}}}`,
	})

	u, err := c.User(context.Background(), "someone")

	require.NoError(t, err)
	assert.Equal(t, "someone", u.DisplayName)
	assert.Equal(t, DefaultAvatarURL, u.AvatarURL)
}

func TestStatsClient_UserError(t *testing.T) {
	c := newTestServer(t, map[string]string{
		"user.getinfo": `{"error":6,"message":"User not found"}`,
	})

	u, err := c.User(context.Background(), "nobody")

	assert.Nil(t, u)
	assert.ErrorIs(t, err, track.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "User not found")
}

func TestStatsClient_Stats(t *testing.T) {
	c := newTestServer(t, map[string]string{
		"artist.getinfo": `{"artist":{"name":"Artist","stats":{"listeners":"100","playcount":"1000","userplaycount":"120"}}}`,
		"track.getinfo":  `{"track":{"name":"Song","duration":"215000","userplaycount":"15"}}`,
	})

	lib, err := c.Stats(context.Background(), "someone", "Artist", "Song")

	require.NoError(t, err)
	require.NotNil(t, lib.ArtistPlayCount)
	require.NotNil(t, lib.TrackCount)
	assert.EqualValues(t, 120, *lib.ArtistPlayCount)
	assert.EqualValues(t, 15, *lib.TrackCount)
}

func TestStatsClient_StatsFirstTime(t *testing.T) {
	c := newTestServer(t, map[string]string{
		"artist.getinfo": `{"artist":{"name":"Artist","stats":{"listeners":"100","playcount":"1000"}}}`,
		"track.getinfo":  `{"error":6,"message":"Track not found"}`,
	})

	lib, err := c.Stats(context.Background(), "someone", "Artist", "Song")

	require.NoError(t, err)
	assert.Nil(t, lib.ArtistPlayCount)
	assert.Nil(t, lib.TrackCount)
}

func TestStatsClient_StatsArtistError(t *testing.T) {
	c := newTestServer(t, map[string]string{})

	lib, err := c.Stats(context.Background(), "someone", "Artist", "Song")

	assert.Nil(t, lib)
	assert.ErrorIs(t, err, track.ErrSourceUnavailable)
}

func TestStatsClient_MalformedResponse(t *testing.T) {
	c := newTestServer(t, map[string]string{
		"user.getinfo": `<lfm status="ok">`,
	})

	_, err := c.User(context.Background(), "someone")

	assert.ErrorIs(t, err, track.ErrSourceUnavailable)
}

func TestCount_UnmarshalJSON(t *testing.T) {
	var c count
	require.NoError(t, c.UnmarshalJSON([]byte(`"15"`)))
	assert.EqualValues(t, 15, c)
	require.NoError(t, c.UnmarshalJSON([]byte(`7`)))
	assert.EqualValues(t, 7, c)
	require.NoError(t, c.UnmarshalJSON([]byte(`""`)))
	assert.EqualValues(t, 0, c)
	assert.Error(t, c.UnmarshalJSON([]byte(`"many"`)))
}
