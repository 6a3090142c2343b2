package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds every tunable of the fetch and clean commands
type Config struct {
	Fetch        FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Wiktionary   WiktionaryConfig `yaml:"wiktionary" mapstructure:"wiktionary"`
	HTTP         HTTPConfig       `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig  `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Clean        CleanConfig      `yaml:"clean" mapstructure:"clean"`
	Log          LogConfig        `yaml:"log" mapstructure:"log"`
}

// FetchConfig names the files the fetcher reads and writes
type FetchConfig struct {
	Input  string `yaml:"input" mapstructure:"input"`
	Output string `yaml:"output" mapstructure:"output"`
	Resume bool   `yaml:"resume" mapstructure:"resume"`
}

// WiktionaryConfig selects the dictionary host and language section
type WiktionaryConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Language string `yaml:"language" mapstructure:"language" validate:"required"` // REST language code, e.g. "en"
	Section  string `yaml:"section" mapstructure:"section" validate:"required"`   // parse-API heading id, e.g. "English"
}

// HTTPConfig configures the outbound client
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
	MaxRedirects int           `yaml:"max_redirects" mapstructure:"max_redirects" validate:"gte=0"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy" validate:"omitempty,url"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy" validate:"omitempty,url"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"` // comma-separated hosts
	IgnoreRobots bool          `yaml:"ignore_robots" mapstructure:"ignore_robots"`
}

// RateLimitConfig controls spacing between requests
type RateLimitConfig struct {
	Delay time.Duration `yaml:"delay" mapstructure:"delay" validate:"gte=0"`
}

// CacheConfig controls the optional lookup cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir" validate:"required_if=Enabled true"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl" validate:"gte=0"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl" validate:"gte=0"`
}

// CleanConfig names the cleaner's files and reference patterns. An empty
// Output means <stem>_final<ext> beside the input.
type CleanConfig struct {
	Input    string   `yaml:"input" mapstructure:"input"`
	Output   string   `yaml:"output,omitempty" mapstructure:"output"`
	Patterns []string `yaml:"patterns" mapstructure:"patterns" validate:"dive,required"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json"`
}

// DefaultReferencePatterns mark definitions that only point at another entry
var DefaultReferencePatterns = []string{
	"Synonym of",
	"Alternative form",
	"Alternative spelling",
	"Alternative term",
	"Another form of",
	"Another term for",
	"See also",
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	patterns := make([]string, len(DefaultReferencePatterns))
	copy(patterns, DefaultReferencePatterns)

	return &Config{
		Fetch: FetchConfig{
			Input:  "wiktionary.txt",
			Output: "wiktionary.csv",
		},
		Wiktionary: WiktionaryConfig{
			BaseURL:  "https://en.wiktionary.org",
			Language: "en",
			Section:  "English",
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Idiom-Collector/1.0 (+https://github.com/ppiankov/idiomfetch)",
			MaxRedirects: 3,
		},
		RateLimiting: RateLimitConfig{
			Delay: time.Second,
		},
		Cache: CacheConfig{
			Enabled:   false,
			Dir:       ".idiomfetch-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Clean: CleanConfig{
			Input:    "wiktionary.csv",
			Patterns: patterns,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration and reports every invalid field
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
