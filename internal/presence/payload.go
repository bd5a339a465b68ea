// Package presence builds rich presence payloads from track data and keeps
// the connection to the presence host.
package presence

import "time"

// Image is an asset shown on the presence card. URL is either an external
// image URL or an asset key registered with the application.
type Image struct {
	URL  string
	Text string
}

// Button is a link shown under the presence card.
type Button struct {
	Label string
	URL   string
}

// Payload is a complete presence status. It is replaced wholesale on every
// track change and never mutated after Build returns it.
type Payload struct {
	Details    string
	State      string
	LargeImage Image
	SmallImage Image
	Buttons    []Button
	// End is the zero time when the track has no known remaining time.
	End time.Time
}

// HasEnd reports whether the payload carries an end timestamp.
func (p Payload) HasEnd() bool {
	return !p.End.IsZero()
}
