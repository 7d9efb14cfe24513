// Package config loads meetsync settings from defaults, a config file, a .env
// file and MEETSYNC_ environment variables, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jwulff/meetsync/internal/db"
	"github.com/jwulff/meetsync/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. MEETSYNC_API_BASE_URL.
const EnvPrefix = "MEETSYNC"

// Config is the full application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api" toml:"api"`
	Live     LiveConfig     `mapstructure:"live" toml:"live"`
	Capture  CaptureConfig  `mapstructure:"capture" toml:"capture"`
	Playback PlaybackConfig `mapstructure:"playback" toml:"playback"`
	Store    StoreConfig    `mapstructure:"store" toml:"store"`
	Log      logging.Config `mapstructure:"log" toml:"log"`
}

// APIConfig points at the meeting backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" toml:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout" validate:"gt=0"`
}

// LiveConfig configures the live transcript channel.
type LiveConfig struct {
	Addr         string        `mapstructure:"addr" toml:"addr" validate:"required"`
	PollInterval time.Duration `mapstructure:"poll_interval" toml:"poll_interval" validate:"gt=0"`
	BackoffBase  time.Duration `mapstructure:"backoff_base" toml:"backoff_base" validate:"gt=0"`
	BackoffMax   time.Duration `mapstructure:"backoff_max" toml:"backoff_max" validate:"gtefield=BackoffBase"`
}

// CaptureConfig configures microphone capture.
type CaptureConfig struct {
	FFmpeg        string        `mapstructure:"ffmpeg" toml:"ffmpeg" validate:"required"`
	InputFormat   string        `mapstructure:"input_format" toml:"input_format"`
	Input         string        `mapstructure:"input" toml:"input"`
	SampleRate    int           `mapstructure:"sample_rate" toml:"sample_rate" validate:"oneof=8000 16000 22050 44100 48000"`
	Channels      int           `mapstructure:"channels" toml:"channels" validate:"min=1,max=2"`
	ChunkInterval time.Duration `mapstructure:"chunk_interval" toml:"chunk_interval" validate:"gt=0"`
	TickInterval  time.Duration `mapstructure:"tick_interval" toml:"tick_interval" validate:"gt=0"`
	StartTimeout  time.Duration `mapstructure:"start_timeout" toml:"start_timeout" validate:"gt=0"`
	OutputDir     string        `mapstructure:"output_dir" toml:"output_dir"`
}

// PlaybackConfig configures transcript review.
type PlaybackConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval" toml:"tick_interval" validate:"gt=0"`
	SeekStep     time.Duration `mapstructure:"seek_step" toml:"seek_step" validate:"gt=0"`
}

// StoreConfig locates the local transcript cache.
type StoreConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// defaults are applied before any file or environment source.
var defaults = map[string]any{
	"api.base_url":           "http://localhost:5000",
	"api.timeout":            "120s",
	"live.addr":              "ws://localhost:5000/ws",
	"live.poll_interval":     "5s",
	"live.backoff_base":      "1s",
	"live.backoff_max":       "30s",
	"capture.ffmpeg":         "ffmpeg",
	"capture.input_format":   "",
	"capture.input":          "",
	"capture.sample_rate":    16000,
	"capture.channels":       1,
	"capture.chunk_interval": "1s",
	"capture.tick_interval":  "1s",
	"capture.start_timeout":  "5s",
	"capture.output_dir":     "",
	"playback.tick_interval": "100ms",
	"playback.seek_step":     "5s",
	"store.path":             "",
	"log.level":              "info",
	"log.format":             "console",
	"log.output":             "",
	"log.no_color":           false,
	"log.timestamp":          true,
}

type options struct {
	configFile string
	envFile    string
	searchDirs []string
}

// Option customizes Load.
type Option func(*options)

// WithConfigFile loads path instead of searching for meetsync.{toml,yaml}.
func WithConfigFile(path string) Option {
	return func(o *options) { o.configFile = path }
}

// WithEnvFile loads path instead of ./.env.
func WithEnvFile(path string) Option {
	return func(o *options) { o.envFile = path }
}

// WithSearchDirs replaces the directories searched for a config file.
func WithSearchDirs(dirs ...string) Option {
	return func(o *options) { o.searchDirs = dirs }
}

// SearchDirs returns the default config file locations in search order.
func SearchDirs() []string {
	dirs := []string{"."}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "meetsync"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "meetsync"))
	}
	return dirs
}

// Load resolves the configuration and validates it.
func Load(opts ...Option) (*Config, error) {
	o := options{envFile: ".env", searchDirs: SearchDirs()}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", o.configFile, err)
		}
	} else {
		v.SetConfigName("meetsync")
		for _, dir := range o.searchDirs {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// godotenv never overrides variables already set, so the real
	// environment keeps precedence over .env.
	if o.envFile != "" {
		if _, err := os.Stat(o.envFile); err == nil {
			if err := godotenv.Load(o.envFile); err != nil {
				return nil, fmt.Errorf("load env file %s: %w", o.envFile, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills values that depend on the environment.
func (c *Config) ApplyDefaults() {
	if c.Store.Path == "" {
		c.Store.Path = db.DefaultDBPath()
	}
	if c.Capture.OutputDir == "" {
		c.Capture.OutputDir = defaultOutputDir()
	}
	c.Log.ApplyDefaults()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s failed %q validation (got: %v)", fieldKey(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// fieldKey turns "Config.Live.BackoffMax" into "Live.BackoffMax".
func fieldKey(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

// TOML renders the effective configuration.
func (c *Config) TOML() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return buf.String(), nil
}

func defaultOutputDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Recordings", "meetsync")
	}
	return "."
}
