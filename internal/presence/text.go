package presence

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// LineLimit is the visual width a hover line is padded to.
	LineLimit = 26
	// PadChar fills hover lines. Discord collapses regular whitespace, an EN QUAD survives.
	PadChar = '\u2000'

	maxImageText    = 128
	maxSecondaryPad = 20
)

// Line keys that are always padded when they share the text with other lines.
const (
	KeyTheme           = "theme"
	KeyArtistScrobbles = "artist_scrobbles"
	KeyFirstTime       = "first_time"
)

// Line is one named line of hover text.
type Line struct {
	Key   string
	Value string
}

func isPrimary(key string) bool {
	switch key {
	case KeyTheme, KeyArtistScrobbles, KeyFirstTime:
		return true
	}
	return false
}

// FormatImageText renders lines into a single hover text. Each line is padded
// with pad up to limit so that Discord wraps one line per row. If the result
// is longer than Discord accepts, all padding is dropped again.
func FormatImageText(lines []Line, limit int, pad rune) string {
	if len(lines) == 1 {
		return lines[0].Value + " "
	}

	var b strings.Builder
	for _, l := range lines {
		line := l.Value + " "
		length := utf8.RuneCountInString(line)

		n := limit - length - countUpper(line)
		if n < 0 {
			n = 0
		}
		suffix := strings.Repeat(string(pad), n)

		b.WriteString(line)
		if isPrimary(l.Key) || length <= maxSecondaryPad {
			b.WriteString(suffix)
		}
		b.WriteByte(' ')
	}

	result := b.String()
	if utf8.RuneCountInString(result) > maxImageText {
		result = strings.ReplaceAll(result, string(pad), "")
	}
	return result
}

// countUpper counts upper case characters; they render wider than the rest.
func countUpper(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			n++
		}
	}
	return n
}
