package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"skidoodle/lastfm-rpc/internal/logging"
)

// Track sources.
const (
	SourceLastfm  = "lastfm"
	SourceSpotify = "spotify"
)

const (
	appName        = "lastfm-rpc"
	configFileName = "config.yaml"
)

// Config holds the application configuration.
type Config struct {
	Source             string
	LogLevel           logrus.Level
	StatusAddr         string
	AllowedOrigins     []string
	UpdateInterval     time.Duration
	TrackCheckInterval time.Duration
	Cooldown           time.Duration
	Lastfm             struct {
		Username  string
		APIKey    string
		APISecret string
	}
	Spotify struct {
		ClientID     string
		ClientSecret string
		RefreshToken string
	}
	Discord struct {
		ClientID string
	}
}

// file mirrors config.yaml. Durations are in seconds.
type file struct {
	User struct {
		Username string `yaml:"USERNAME"`
	} `yaml:"USER"`
	API struct {
		Key    string `yaml:"KEY"`
		Secret string `yaml:"SECRET"`
	} `yaml:"API"`
	App struct {
		Source             string `yaml:"SOURCE"`
		LogLevel           string `yaml:"LOG_LEVEL"`
		UpdateInterval     int    `yaml:"UPDATE_INTERVAL"`
		TrackCheckInterval int    `yaml:"TRACK_CHECK_INTERVAL"`
		Cooldown           int    `yaml:"COOLDOWN"`
	} `yaml:"APP"`
	Discord struct {
		ClientID string `yaml:"CLIENT_ID"`
	} `yaml:"DISCORD"`
	Spotify struct {
		ClientID     string `yaml:"CLIENT_ID"`
		ClientSecret string `yaml:"CLIENT_SECRET"`
		RefreshToken string `yaml:"REFRESH_TOKEN"`
	} `yaml:"SPOTIFY"`
	Status struct {
		Addr           string   `yaml:"ADDR"`
		AllowedOrigins []string `yaml:"ALLOWED_ORIGINS"`
	} `yaml:"STATUS"`
}

// searchPaths lists the config files tried when no path is given.
var searchPaths = func() []string {
	paths := []string{configFileName}
	if p, err := xdg.SearchConfigFile(appName + "/" + configFileName); err == nil {
		paths = append(paths, p)
	}
	return paths
}

// Load loads the configuration from path, or from the first config file
// found when path is empty, and applies environment overrides.
func Load(path string, log logrus.FieldLogger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file found, using environment variables")
	}

	var f file
	if path != "" {
		if err := readFile(path, &f); err != nil {
			return nil, err
		}
	} else {
		for _, p := range searchPaths() {
			err := readFile(p, &f)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			log.WithField("path", p).Info("configuration loaded")
			break
		}
	}

	cfg := &Config{
		Source:             or(os.Getenv("SOURCE"), f.App.Source, SourceLastfm),
		StatusAddr:         or(os.Getenv("STATUS_ADDR"), f.Status.Addr),
		AllowedOrigins:     f.Status.AllowedOrigins,
		LogLevel:           logging.ParseLevel(or(os.Getenv("LOG_LEVEL"), f.App.LogLevel)),
		UpdateInterval:     seconds(f.App.UpdateInterval, 2),
		TrackCheckInterval: seconds(f.App.TrackCheckInterval, 5),
		Cooldown:           seconds(f.App.Cooldown, 6),
	}
	cfg.Source = strings.ToLower(cfg.Source)

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}

	cfg.Lastfm.Username = or(os.Getenv("LASTFM_USERNAME"), f.User.Username)
	cfg.Lastfm.APIKey = or(os.Getenv("LASTFM_API_KEY"), f.API.Key)
	cfg.Lastfm.APISecret = or(os.Getenv("LASTFM_API_SECRET"), f.API.Secret)

	cfg.Spotify.ClientID = or(os.Getenv("SPOTIFY_CLIENT_ID"), f.Spotify.ClientID)
	cfg.Spotify.ClientSecret = or(os.Getenv("SPOTIFY_CLIENT_SECRET"), f.Spotify.ClientSecret)
	cfg.Spotify.RefreshToken = or(os.Getenv("SPOTIFY_REFRESH_TOKEN"), f.Spotify.RefreshToken)

	cfg.Discord.ClientID = or(os.Getenv("DISCORD_CLIENT_ID"), f.Discord.ClientID)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Lastfm.Username == "" || c.Lastfm.APIKey == "" || c.Lastfm.APISecret == "" {
		return fmt.Errorf("configuration incomplete: last.fm username, api key and api secret are required")
	}

	switch c.Source {
	case SourceLastfm:
	case SourceSpotify:
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
			return fmt.Errorf("spotify credentials are not set")
		}
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	return nil
}

func readFile(path string, f *file) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return fmt.Errorf("failed to parse YAML from %s: %w", path, err)
	}
	return nil
}

func seconds(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}

// or returns the first non-empty value.
func or(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
