// Package config loads archiveplayer settings from TOML, .env and the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARCHIVEPLAYER_"

// Config is the full archiveplayer configuration.
type Config struct {
	Source  Source  `toml:"source"`
	HTTP    HTTP    `toml:"http"`
	Player  Player  `toml:"player"`
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
}

// Source locates the item in the asset store.
type Source struct {
	BaseURL string `toml:"base_url" validate:"required,url"`
	ItemID  string `toml:"item_id"`
}

// HTTP tunes outgoing requests.
type HTTP struct {
	FetchTimeout       string `toml:"fetch_timeout" validate:"required,duration"`
	ProbeTimeout       string `toml:"probe_timeout" validate:"required,duration"`
	UserAgent          string `toml:"user_agent"`
	MaxProbeDownloadMB int64  `toml:"max_probe_download_mb" validate:"gte=1"`
}

// Player tunes the playback session and the audio device.
type Player struct {
	ProgressInterval string  `toml:"progress_interval" validate:"required,duration"`
	DefaultSpan      string  `toml:"default_span" validate:"required,duration"`
	InitialVolume    float64 `toml:"initial_volume" validate:"gte=0,lte=1"`
	SampleRate       int     `toml:"sample_rate" validate:"oneof=22050 32000 44100 48000 96000"`
	Buffer           string  `toml:"buffer" validate:"required,duration"`
}

// Server configures `archiveplayer serve`.
type Server struct {
	Addr        string   `toml:"addr" validate:"required,hostname_port"`
	CORSOrigins []string `toml:"cors_origins" validate:"dive,required"`
	RateLimit   float64  `toml:"rate_limit" validate:"gte=0"`
	RateBurst   int      `toml:"rate_burst" validate:"gte=1"`
}

// Logging configures the slog handler.
type Logging struct {
	Level  string `toml:"level" validate:"oneof=debug info warn warning error"`
	Format string `toml:"format" validate:"oneof=auto text json"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/archiveplayer/config.toml")
}

// Load reads .env, the TOML file at path (or the default location) and the
// ARCHIVEPLAYER_* environment, then validates the result. It returns the
// config file path and whether that file existed. A missing file is not an
// error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, "", false, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return "", false, err
		}
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

// applyEnv overrides fields from ARCHIVEPLAYER_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"BASE_URL":          &c.Source.BaseURL,
		"ITEM_ID":           &c.Source.ItemID,
		"FETCH_TIMEOUT":     &c.HTTP.FetchTimeout,
		"PROBE_TIMEOUT":     &c.HTTP.ProbeTimeout,
		"USER_AGENT":        &c.HTTP.UserAgent,
		"PROGRESS_INTERVAL": &c.Player.ProgressInterval,
		"DEFAULT_SPAN":      &c.Player.DefaultSpan,
		"SERVER_ADDR":       &c.Server.Addr,
		"LOG_LEVEL":         &c.Logging.Level,
		"LOG_FORMAT":        &c.Logging.Format,
	}
	for key, field := range str {
		if v, ok := lookup(EnvPrefix + key); ok {
			*field = v
		}
	}

	if v, ok := lookup(EnvPrefix + "INITIAL_VOLUME"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%sINITIAL_VOLUME: %w", EnvPrefix, err)
		}
		c.Player.InitialVolume = f
	}
	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, origin)
			}
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Source.BaseURL = strings.TrimSpace(c.Source.BaseURL)
	c.Source.ItemID = strings.TrimSpace(c.Source.ItemID)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// RequireItem reports an error when no item id is configured.
func (c *Config) RequireItem() error {
	if c.Source.ItemID == "" {
		return errors.New("no item id: pass --item or set source.item_id")
	}
	return nil
}

// FetchTimeout returns the manifest fetch timeout.
func (c *Config) FetchTimeout() time.Duration { return mustDuration(c.HTTP.FetchTimeout) }

// ProbeTimeout returns the per-disk duration probe timeout.
func (c *Config) ProbeTimeout() time.Duration { return mustDuration(c.HTTP.ProbeTimeout) }

// MaxProbeDownload returns the probe download cap in bytes.
func (c *Config) MaxProbeDownload() int64 { return c.HTTP.MaxProbeDownloadMB << 20 }

// ProgressInterval returns how often progress is reported while playing.
func (c *Config) ProgressInterval() time.Duration { return mustDuration(c.Player.ProgressInterval) }

// DefaultSpan returns the sprite length of tracks with unknown duration.
func (c *Config) DefaultSpan() time.Duration { return mustDuration(c.Player.DefaultSpan) }

// AudioBuffer returns the speaker buffer length.
func (c *Config) AudioBuffer() time.Duration { return mustDuration(c.Player.Buffer) }

// mustDuration parses a duration that Validate already accepted.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// Sample returns the commented sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
