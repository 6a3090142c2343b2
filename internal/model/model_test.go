package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultReferencePatterns, cfg.Clean.Patterns)

	// callers may edit the patterns without touching the package default
	cfg.Clean.Patterns[0] = "changed"
	assert.Equal(t, "Synonym of", DefaultReferencePatterns[0])
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.RateLimiting.Delay = -time.Second },
			wantErr: "rate_limiting.delay: failed gte=0",
		},
		{
			name:    "bad base url",
			mutate:  func(c *Config) { c.Wiktionary.BaseURL = "not a url" },
			wantErr: "wiktionary.base_url: failed url",
		},
		{
			name:    "empty language",
			mutate:  func(c *Config) { c.Wiktionary.Language = "" },
			wantErr: "wiktionary.language: failed required",
		},
		{
			name: "cache enabled without dir",
			mutate: func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.Dir = ""
			},
			wantErr: "cache.dir: failed required_if",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log.format: failed oneof",
		},
		{
			name:    "empty pattern",
			mutate:  func(c *Config) { c.Clean.Patterns = append(c.Clean.Patterns, "") },
			wantErr: "clean.patterns[7]: failed required",
		},
		{
			name:    "bad proxy",
			mutate:  func(c *Config) { c.HTTP.HTTPSProxy = "::nope" },
			wantErr: "http.https_proxy: failed url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateReportsEveryField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.UserAgent = ""
	cfg.HTTP.MaxRedirects = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.user_agent")
	assert.Contains(t, err.Error(), "http.max_redirects")
}

func TestTermSet(t *testing.T) {
	s := NewTermSet()
	s.Add("  Break the Ice ")
	s.Add("break the ice")
	s.Add("hit the sack")

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("BREAK THE ICE"))
	assert.True(t, s.Has("hit the sack "))
	assert.False(t, s.Has("break a leg"))
}

func TestProgress(t *testing.T) {
	p := Progress{LastProcessedIdx: 4}
	p.Stamp(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC))

	assert.Equal(t, "2026-01-02 15:04:05", p.Timestamp)
	assert.Equal(t, 5, p.ResumeOffset())
}
