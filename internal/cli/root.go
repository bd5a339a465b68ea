// Package cli implements the lastfm-rpc command.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"skidoodle/lastfm-rpc/internal/config"
	"skidoodle/lastfm-rpc/internal/discord"
	"skidoodle/lastfm-rpc/internal/lastfm"
	"skidoodle/lastfm-rpc/internal/logging"
	"skidoodle/lastfm-rpc/internal/poller"
	"skidoodle/lastfm-rpc/internal/presence"
	"skidoodle/lastfm-rpc/internal/spotify"
	"skidoodle/lastfm-rpc/internal/track"
	"skidoodle/lastfm-rpc/internal/websocket"
)

var (
	configPath string
	logLevel   string
	statusAddr string
)

var rootCmd = &cobra.Command{
	Use:   "lastfm-rpc",
	Short: "Show your Last.fm now playing track as Discord rich presence",
	Long: `lastfm-rpc polls the track you are scrobbling on Last.fm and mirrors it
to your Discord profile, together with artwork, play counts and links.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx)
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&statusAddr, "status-addr", "", "address of the status feed, disabled when empty")

	rootCmd.AddCommand(versionCmd)
}

func run(ctx context.Context) error {
	log := logging.New(os.Stdout, logrus.InfoLevel)

	cfg, err := config.Load(configPath, log)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logging.ParseLevel(logLevel)
	}
	if statusAddr != "" {
		cfg.StatusAddr = statusAddr
	}
	log.SetLevel(cfg.LogLevel)

	source := newSource(ctx, cfg)
	stats := lastfm.NewStatsClient(nil, "", cfg.Lastfm.APIKey, log.WithField("component", "lastfm"))
	transport := presence.NewTransport(discord.New(cfg.Discord.ClientID, log.WithField("component", "discord")), log.WithField("component", "presence"))

	p := poller.New(poller.Config{
		Username:           cfg.Lastfm.Username,
		UpdateInterval:     cfg.UpdateInterval,
		TrackCheckInterval: cfg.TrackCheckInterval,
		Cooldown:           cfg.Cooldown,
	}, source, stats, stats, transport, log.WithField("component", "poller"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if cfg.StatusAddr != "" {
		srv := websocket.NewServer(cfg.StatusAddr, cfg.AllowedOrigins, p, log.WithField("component", "status"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				log.WithField("error", err).Error("status server failed")
				cancel()
			}
		}()
	}

	log.WithFields(logrus.Fields{
		"user":   cfg.Lastfm.Username,
		"source": cfg.Source,
	}).Info("starting lastfm-rpc")

	p.Run(ctx)
	wg.Wait()
	return nil
}

func newSource(ctx context.Context, cfg *config.Config) track.Source {
	if cfg.Source == config.SourceSpotify {
		return spotify.NewSource(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RefreshToken)
	}
	return lastfm.NewSource(lastfm.NewAPI(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret), cfg.Lastfm.Username)
}
