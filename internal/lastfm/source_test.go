package lastfm

import (
	"context"
	"encoding/xml"
	"errors"
	"testing"

	"github.com/shkh/lastfm-go/lastfm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skidoodle/lastfm-rpc/internal/track"
)

type fakeRecentTracks struct {
	xml  string
	err  error
	args map[string]interface{}
}

func (f *fakeRecentTracks) GetRecentTracks(args map[string]interface{}) (lastfm.UserGetRecentTracks, error) {
	f.args = args
	var res lastfm.UserGetRecentTracks
	if f.err != nil {
		return res, f.err
	}
	err := xml.Unmarshal([]byte(f.xml), &res)
	return res, err
}

type fakeTrackInfo struct {
	duration string
	err      error
}

func (f *fakeTrackInfo) GetInfo(map[string]interface{}) (lastfm.TrackGetInfo, error) {
	var res lastfm.TrackGetInfo
	res.Duration = f.duration
	return res, f.err
}

const nowPlayingXML = `<recenttracks user="someone" page="1" perPage="1" totalPages="10" total="10">
  <track nowplaying="true">
    <artist mbid="">Artist</artist>
    <name>Song</name>
    <album mbid="">Album</album>
    <image size="small">https://img.example/s.png</image>
    <image size="extralarge">https://img.example/xl.png</image>
  </track>
</recenttracks>`

const scrobbledXML = `<recenttracks user="someone">
  <track>
    <artist mbid="">Artist</artist>
    <name>Song</name>
    <album mbid=""></album>
    <date uts="1700000000">14 Nov 2023, 22:13</date>
  </track>
</recenttracks>`

func TestSource_NowPlaying(t *testing.T) {
	recent := &fakeRecentTracks{xml: nowPlayingXML}
	s := &Source{user: recent, track: &fakeTrackInfo{duration: "215000"}, username: "someone"}

	np, err := s.NowPlaying(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &track.NowPlaying{
		Identity:      "Artist - Song",
		Title:         "Song",
		Artist:        "Artist",
		Album:         "Album",
		Artwork:       "https://img.example/xl.png",
		TimeRemaining: 215000,
	}, np)
	assert.Equal(t, "someone", recent.args["user"])
}

func TestSource_NothingPlaying(t *testing.T) {
	for _, doc := range []string{scrobbledXML, `<recenttracks user="someone"></recenttracks>`} {
		s := &Source{user: &fakeRecentTracks{xml: doc}, track: &fakeTrackInfo{}, username: "someone"}

		np, err := s.NowPlaying(context.Background())

		require.NoError(t, err)
		assert.Nil(t, np)
	}
}

func TestSource_MissingDuration(t *testing.T) {
	s := &Source{
		user:     &fakeRecentTracks{xml: nowPlayingXML},
		track:    &fakeTrackInfo{err: errors.New("track not found")},
		username: "someone",
	}

	np, err := s.NowPlaying(context.Background())

	require.NoError(t, err)
	assert.Zero(t, np.TimeRemaining)
}

func TestSource_Error(t *testing.T) {
	s := &Source{user: &fakeRecentTracks{err: errors.New("connection reset")}, track: &fakeTrackInfo{}, username: "someone"}

	np, err := s.NowPlaying(context.Background())

	assert.Nil(t, np)
	assert.ErrorIs(t, err, track.ErrSourceUnavailable)
}
