package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"
)

// Build metadata, injected via -ldflags "-X ...".
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

// Config is the on-disk server configuration (streamrec.yaml).
// Every field has a default; the file only needs to list overrides.
// Upstream credentials come from the environment (CLIENT_ID, CLIENT_SECRET),
// optionally seeded from a .env file next to the binary.
type Config struct {
	Server struct {
		Address       string `yaml:"address"        default:"127.0.0.1"`
		Port          string `yaml:"port"           default:"5001"`
		SessionSecret string `yaml:"session_secret" default:""`
		// SessionBackend is "cookie" or "redis" (shares settings.redis_address).
		SessionBackend string `yaml:"session_backend" default:"cookie"`
		MaxStarts      int    `yaml:"max_concurrent_starts" default:"8"`
	} `yaml:"server"`

	// Root is the working directory holding recorded/, processed/ and conf/.
	Root string `yaml:"root" default:"."`

	Settings struct {
		Backend   string `yaml:"backend"    default:"file"` // "file" | "redis"
		Path      string `yaml:"path"       default:"conf/settings.json"`
		Watch     bool   `yaml:"watch"      default:"true"`
		RedisAddr string `yaml:"redis_address" default:"localhost:6379"`
		RedisDB   int    `yaml:"redis_db"   default:"0"`
	} `yaml:"settings"`

	Upstream struct {
		APIURL       string        `yaml:"api_url"   default:"https://api.twitch.tv/helix/streams"`
		TokenURL     string        `yaml:"token_url" default:"https://id.twitch.tv/oauth2/token"`
		Timeout      time.Duration `yaml:"timeout"   default:"15s"`
		ClientID     string        `yaml:"-"`
		ClientSecret string        `yaml:"-"`
	} `yaml:"upstream"`

	Capture struct {
		Binary     string        `yaml:"binary"      default:"streamlink"`
		StreamURL  string        `yaml:"stream_url"  default:"twitch.tv/%s"`
		Quality    string        `yaml:"quality"     default:"best"`
		DisableAds bool          `yaml:"disable_ads" default:"true"`
		StartWait  time.Duration `yaml:"start_wait"  default:"5s"`
		StartPoll  time.Duration `yaml:"start_poll"  default:"500ms"`
		StopGrace  time.Duration `yaml:"stop_grace"  default:"500ms"`
	} `yaml:"capture"`

	Transcode struct {
		Binary        string `yaml:"binary"         default:"ffmpeg"`
		MaxConcurrent int64  `yaml:"max_concurrent" default:"2"`
	} `yaml:"transcode"`

	Reconcile struct {
		Interval time.Duration `yaml:"interval" default:"10s"`
		MinAge   time.Duration `yaml:"min_age"  default:"5s"`
	} `yaml:"reconcile"`
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	var cfg Config
	defaults.SetDefaults(&cfg)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.Upstream.ClientID = os.Getenv("CLIENT_ID")
	cfg.Upstream.ClientSecret = os.Getenv("CLIENT_SECRET")

	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Root == "" {
		return errors.New("root is required")
	}
	switch c.Settings.Backend {
	case "file":
		if c.Settings.Path == "" {
			return errors.New("settings.path is required for the file backend")
		}
	case "redis":
		if c.Settings.RedisAddr == "" {
			return errors.New("settings.redis_address is required for the redis backend")
		}
	default:
		return fmt.Errorf("settings.backend: unknown backend %q", c.Settings.Backend)
	}
	switch c.Server.SessionBackend {
	case "cookie", "redis":
	default:
		return fmt.Errorf("server.session_backend: unknown backend %q", c.Server.SessionBackend)
	}
	if c.Server.SessionSecret != "" && len(c.Server.SessionSecret) < 32 {
		return errors.New("server.session_secret must be at least 32 bytes")
	}
	if c.Upstream.ClientID == "" || c.Upstream.ClientSecret == "" {
		return errors.New("CLIENT_ID and CLIENT_SECRET must be set")
	}
	if !strings.Contains(c.Capture.StreamURL, "%s") {
		return errors.New("capture.stream_url must contain %s for the channel name")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be positive")
	}
	if c.Reconcile.Interval <= 0 {
		return errors.New("reconcile.interval must be positive")
	}
	if c.Transcode.MaxConcurrent <= 0 {
		return errors.New("transcode.max_concurrent must be positive")
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return c.Server.Address + ":" + c.Server.Port
}
