// Package poller mirrors the now playing track of a source into presence.
package poller

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"skidoodle/lastfm-rpc/internal/presence"
	"skidoodle/lastfm-rpc/internal/track"
)

const shutdownTimeout = 2 * time.Second

// Transport is the presence connection the poller drives.
type Transport interface {
	Enable(ctx context.Context)
	Disable(ctx context.Context)
	Update(ctx context.Context, p presence.Payload)
	State() (bool, time.Time)
}

// Config holds the poller timings and the Last.fm user the profile data is
// read for.
type Config struct {
	Username string
	// UpdateInterval is the pause between two polls.
	UpdateInterval time.Duration
	// TrackCheckInterval is added to the pause after a presence update.
	TrackCheckInterval time.Duration
	// Cooldown is reported in logs when the source fails.
	Cooldown time.Duration
}

// Poller polls a track source and keeps the presence in sync with it.
// Run and Tick must only be called from one goroutine; State and Refresh
// are safe for concurrent use.
type Poller struct {
	cfg       Config
	source    track.Source
	profiles  track.Profiles
	library   track.Library
	transport Transport
	builder   *presence.Builder
	log       logrus.FieldLogger
	sleep     func(ctx context.Context, d time.Duration) bool

	playing     bool
	lastKey     track.Key
	lastPayload *presence.Payload

	state   atomic.Pointer[DisplayState]
	refresh chan struct{}
}

// New creates a Poller.
func New(cfg Config, source track.Source, profiles track.Profiles, library track.Library, transport Transport, log logrus.FieldLogger) *Poller {
	p := &Poller{
		cfg:       cfg,
		source:    source,
		profiles:  profiles,
		library:   library,
		transport: transport,
		builder:   presence.NewBuilder(),
		log:       log,
		sleep:     sleep,
		refresh:   make(chan struct{}, 1),
	}
	p.state.Store(&DisplayState{TrackLabel: NoTrackLabel})
	return p
}

// State returns the latest published display state.
func (p *Poller) State() DisplayState {
	return *p.state.Load()
}

// Refresh signals that a new display state was published. Signals coalesce.
func (p *Poller) Refresh() <-chan struct{} {
	return p.refresh
}

// Run polls until ctx is cancelled, then clears the presence.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("poller started")
	defer p.log.Info("poller stopped")

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		p.transport.Disable(shutdownCtx)
	}()

	for {
		wait := p.cfg.UpdateInterval
		if p.Tick(ctx) {
			wait += p.cfg.TrackCheckInterval
		}
		if !p.sleep(ctx, wait) {
			return
		}
	}
}

// Tick performs one poll and reports whether a new payload was pushed.
func (p *Poller) Tick(ctx context.Context) (updated bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("panic", r).Error("unexpected error in poll loop")
			updated = false
		}
	}()

	np, err := p.source.NowPlaying(ctx)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"error":    err,
			"cooldown": p.cfg.Cooldown,
		}).Error("failed to get now playing track, will retry after cooldown")
	}

	if np == nil {
		p.stopped(ctx)
		return false
	}
	return p.playingTrack(ctx, np)
}

func (p *Poller) stopped(ctx context.Context) {
	if !p.playing {
		return
	}

	p.playing = false
	p.lastKey = track.Key{}
	p.lastPayload = nil

	p.transport.Disable(ctx)
	p.publish(DisplayState{TrackLabel: NoTrackLabel})
	p.log.Info("no track detected")
}

func (p *Poller) playingTrack(ctx context.Context, np *track.NowPlaying) bool {
	p.playing = true
	key := np.Key()
	label := fmt.Sprintf(nowPlayingLabel, np.Artist, np.Title)

	if p.lastPayload != nil && key == p.lastKey {
		p.log.WithField("track", label).Debug("polling")
		p.reconnect(ctx)
		return false
	}

	p.transport.Enable(ctx)
	if p.State().TrackLabel != label {
		p.publishPlaying(label, np.Artist, nil)
	}

	user, err := p.profiles.User(ctx, p.cfg.Username)
	if err != nil {
		p.log.WithFields(logrus.Fields{"error": err, "track": label}).Error("failed to get user data, skipping update")
		return false
	}
	lib, err := p.library.Stats(ctx, p.cfg.Username, np.Artist, np.Title)
	if err != nil {
		p.log.WithFields(logrus.Fields{"error": err, "track": label}).Error("failed to get library data, skipping update")
		return false
	}

	payload := p.builder.Build(*np, *user, *lib)
	p.transport.Update(ctx, payload)

	p.lastKey = key
	p.lastPayload = &payload

	p.publishPlaying(label, np.Artist, lib.ArtistPlayCount)
	p.log.WithFields(logrus.Fields{
		"track":    np.Identity,
		"album":    np.Album,
		"end":      payload.End,
		"artwork":  payload.LargeImage.URL,
		"hasEnd":   payload.HasEnd(),
		"hasAlbum": np.Album != "",
	}).Info(label)
	return true
}

// reconnect retries the connection for an unchanged track and pushes the
// last payload once the host is reachable again.
func (p *Poller) reconnect(ctx context.Context) {
	if connected, _ := p.transport.State(); connected {
		return
	}

	p.transport.Enable(ctx)
	if connected, _ := p.transport.State(); !connected {
		return
	}

	p.transport.Update(ctx, *p.lastPayload)
	cur := p.State()
	p.publishPlaying(cur.TrackLabel, cur.Artist, cur.ArtistScrobbles)
}

func (p *Poller) publishPlaying(label, artist string, scrobbles *int64) {
	s := DisplayState{
		TrackLabel:      label,
		Artist:          artist,
		ArtistScrobbles: scrobbles,
	}
	if connected, since := p.transport.State(); connected {
		s.Connected = true
		s.ConnectedSince = &since
	}
	p.publish(s)
}

func (p *Poller) publish(s DisplayState) {
	p.state.Store(&s)
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
