// Package config loads termscape settings from defaults, an optional YAML
// file, TERMSCAPE_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/WessleyAI/termscape/engine/domain"
)

// EnvPrefix is prepended to every environment override, e.g.
// TERMSCAPE_HTTP_ADDR.
const EnvPrefix = "TERMSCAPE"

// DefaultCorpusURL is the Alice in Wonderland text the demos were built
// around.
const DefaultCorpusURL = "https://gist.githubusercontent.com/phillipj/4944029/raw/75ba2243dd5ec2875f629bf5d79f6c1e4b5a8b46/alice_in_wonderland.txt"

// DefaultTerms are searched when no terms are configured. Each is a single
// token so it can actually match.
var DefaultTerms = []domain.Term{
	{Text: "rabbit", Label: "White Rabbit", Category: "red", Color: "#ff0000"},
	{Text: "cat", Label: "Cheshire Cat", Category: "green", Color: "#00ff00"},
	{Text: "queen", Label: "Queen of Hearts", Category: "blue", Color: "#0000ff"},
}

// Config is the effective configuration.
type Config struct {
	Corpus    CorpusConfig    `mapstructure:"corpus" yaml:"corpus"`
	Terms     []domain.Term   `mapstructure:"terms" yaml:"terms"`
	Placement PlacementConfig `mapstructure:"placement" yaml:"placement"`
	Fetch     FetchConfig     `mapstructure:"fetch" yaml:"fetch"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	NATS      NATSConfig      `mapstructure:"nats" yaml:"nats"`
	Frame     FrameConfig     `mapstructure:"frame" yaml:"frame"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type CorpusConfig struct {
	URL       string `mapstructure:"url" yaml:"url"`
	CacheSize int    `mapstructure:"cache_size" yaml:"cache_size"`
}

type PlacementConfig struct {
	Repeat int    `mapstructure:"repeat" yaml:"repeat"`
	Seed   uint64 `mapstructure:"seed" yaml:"seed"` // 0 seeds from the clock
}

type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Interval  time.Duration `mapstructure:"interval" yaml:"interval"`
	Retries   int           `mapstructure:"retries" yaml:"retries"`
	MaxBytes  int64         `mapstructure:"max_bytes" yaml:"max_bytes"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	// AllowLocal lets serve read corpora from local paths and file:// URLs,
	// including ones sent to POST /populate. The CLI commands always may.
	AllowLocal bool `mapstructure:"allow_local" yaml:"allow_local"`
}

type HTTPConfig struct {
	Addr       string `mapstructure:"addr" yaml:"addr"`
	CORSOrigin string `mapstructure:"cors_origin" yaml:"cors_origin"`
}

type NATSConfig struct {
	URL    string `mapstructure:"url" yaml:"url"` // empty disables publishing in serve
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

type FrameConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json or text
}

// New returns a viper instance with every default registered and
// environment overrides enabled. Callers may bind flags before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("corpus.url", DefaultCorpusURL)
	v.SetDefault("corpus.cache_size", 16)
	v.SetDefault("terms", DefaultTerms)
	v.SetDefault("placement.repeat", 5)
	v.SetDefault("placement.seed", uint64(0))
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.interval", time.Second)
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.max_bytes", int64(8<<20))
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.allow_local", false)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origin", "*")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.prefix", "scene.placements")
	v.SetDefault("frame.interval", 33*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (or termscape.yaml from the working directory or
// $HOME/.termscape when file is empty) into v, then decodes and validates
// the result. A missing default file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("termscape")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.termscape")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	for i := range cfg.Terms {
		cfg.Terms[i].Text = domain.NormalizeTerm(cfg.Terms[i].Text)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and the term list.
func (c *Config) Validate() error {
	if len(c.Terms) == 0 {
		return domain.NewValidationError("terms", "", domain.ErrInvalidArgument)
	}
	if _, err := c.TermSet(); err != nil {
		return fmt.Errorf("config: terms: %w", err)
	}
	switch {
	case c.Placement.Repeat < 0:
		return domain.NewValidationError("placement.repeat", fmt.Sprint(c.Placement.Repeat), domain.ErrInvalidArgument)
	case c.Corpus.CacheSize < 0:
		return domain.NewValidationError("corpus.cache_size", fmt.Sprint(c.Corpus.CacheSize), domain.ErrInvalidArgument)
	case c.Fetch.Timeout <= 0:
		return domain.NewValidationError("fetch.timeout", c.Fetch.Timeout.String(), domain.ErrInvalidArgument)
	case c.Fetch.Retries < 0:
		return domain.NewValidationError("fetch.retries", fmt.Sprint(c.Fetch.Retries), domain.ErrInvalidArgument)
	case c.Frame.Interval <= 0:
		return domain.NewValidationError("frame.interval", c.Frame.Interval.String(), domain.ErrInvalidArgument)
	case c.HTTP.Addr == "":
		return domain.NewValidationError("http.addr", "", domain.ErrInvalidArgument)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return domain.NewValidationError("log.level", c.Log.Level, domain.ErrInvalidArgument)
	}
	if f := c.Log.Format; f != "json" && f != "text" {
		return domain.NewValidationError("log.format", f, domain.ErrInvalidArgument)
	}
	return nil
}

// TermSet freezes the configured terms.
func (c *Config) TermSet() (domain.TermSet, error) {
	return domain.NewTermSet(c.Terms...)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(l.Level))
	return lvl, err
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
