package presence

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"skidoodle/lastfm-rpc/internal/track"
)

const (
	// NightCover and DayCover replace missing album art depending on the hour.
	NightCover = "https://i.imgur.com/GOVbNaF.png"
	DayCover   = "https://i.imgur.com/kvGS4Pa.png"

	// placeholderAsset is the application asset key shown when a track has
	// neither album nor remaining time.
	placeholderAsset = "artwork"

	trackURLTemplate  = "https://www.last.fm/user/%s/library/music/%s/_/%s"
	searchURLTemplate = "https://music.youtube.com/search?q=%s"

	firstTimeText = "First time listening!"
)

// PrepareArtworkStatus resolves the large image and its hover lines. Without
// artwork a day or night cover is chosen from hour (0-23).
func PrepareArtworkStatus(artwork string, hour int, lib track.LibrarySnapshot) (string, []Line) {
	var lines []Line

	if artwork == "" {
		if hour >= 18 || hour < 9 {
			artwork = NightCover
			lines = append(lines, Line{Key: KeyTheme, Value: "Night Mode Cover"})
		} else {
			artwork = DayCover
			lines = append(lines, Line{Key: KeyTheme, Value: "Day Mode Cover"})
		}
	}

	if lib.ArtistPlayCount != nil && *lib.ArtistPlayCount > 0 {
		text := fmt.Sprintf("Scrobbles: %d", *lib.ArtistPlayCount)
		if lib.TrackCount != nil && *lib.TrackCount > 0 {
			text = fmt.Sprintf("Scrobbles: %d/%d", *lib.ArtistPlayCount, *lib.TrackCount)
		}
		lines = append(lines, Line{Key: KeyArtistScrobbles, Value: text})
	} else {
		lines = append(lines, Line{Key: KeyFirstTime, Value: firstTimeText})
	}

	return artwork, lines
}

// Buttons returns the two presence buttons: the track in the user's Last.fm
// library and a YouTube Music search for the album.
func Buttons(username, artist, title, album string) []Button {
	return []Button{
		{
			Label: "View Track",
			URL:   fmt.Sprintf(trackURLTemplate, url.PathEscape(username), url.PathEscape(artist), url.PathEscape(title)),
		},
		{
			Label: "Search on YouTube Music",
			URL:   fmt.Sprintf(searchURLTemplate, url.QueryEscape(album)),
		},
	}
}

// ProfileLines returns the small image hover lines for a user.
func ProfileLines(user track.UserSnapshot) []Line {
	return []Line{
		{Key: "name", Value: fmt.Sprintf("%s (@%s)", user.DisplayName, user.Username)},
		{Key: "scrobbles", Value: "Scrobbles: " + humanize.Comma(user.Scrobbles)},
		{Key: "artists", Value: "Artists: " + humanize.Comma(user.Artists)},
		{Key: "loved_tracks", Value: "Loved Tracks: " + humanize.Comma(user.LovedTracks)},
	}
}

// Builder turns a track and the matching profile and library snapshots into
// a presence payload.
type Builder struct {
	limit int
	pad   rune
	now   func() time.Time
}

// NewBuilder creates a Builder with Discord's line limit and padding rune.
func NewBuilder() *Builder {
	return &Builder{
		limit: LineLimit,
		pad:   PadChar,
		now:   time.Now,
	}
}

// WithClock returns a copy of the builder that reads the time from now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	c := *b
	c.now = now
	return &c
}

// Build assembles the payload. It uses nothing but its arguments and the clock.
func (b *Builder) Build(np track.NowPlaying, user track.UserSnapshot, lib track.LibrarySnapshot) Payload {
	now := b.now()

	title := np.Title
	if utf8.RuneCountInString(title) < 2 {
		title += " "
	}

	hasAlbum := np.Album != ""
	hasTime := np.TimeRemaining > 0

	artwork, largeLines := PrepareArtworkStatus(np.Artwork, now.Hour(), lib)

	p := Payload{
		Details: title,
		State:   np.Artist,
		LargeImage: Image{
			URL:  artwork,
			Text: FormatImageText(largeLines, b.limit, b.pad),
		},
		SmallImage: Image{
			URL:  user.AvatarURL,
			Text: FormatImageText(ProfileLines(user), b.limit, b.pad),
		},
		Buttons: Buttons(user.Username, np.Artist, title, np.Album),
	}

	if !hasTime && !hasAlbum {
		p.LargeImage.URL = placeholderAsset
	}

	if hasTime {
		p.State = np.Artist + " - " + np.Album
		secs := truncateRemaining(np.TimeRemaining)
		p.End = now.Add(time.Duration(secs * float64(time.Second)))
	}

	return p
}

// truncateRemaining keeps the first three characters of the decimal form of
// v. For millisecond durations between 100s and 999s this yields seconds.
func truncateRemaining(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if len(s) > 3 {
		s = s[:3]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
