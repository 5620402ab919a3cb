package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	claudeteamerrors "github.com/penwyp/claudeteam/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, NewValidator().Validate(cfg))

	assert.Equal(t, 5*time.Hour, cfg.Window.Duration)
	assert.Equal(t, 2*time.Hour, cfg.Window.ActivityGrace)
	assert.Equal(t, 30*time.Minute, cfg.Window.TrailingGrace)
	assert.Equal(t, 30*time.Second, cfg.Window.SelectorTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.GroupMetadataTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.PeerWindowTTL)
	assert.Equal(t, 2*time.Hour, cfg.Cache.ThresholdTTL)
	assert.Equal(t, "dynamic", cfg.Limits.PricingMethod)
}

func TestValidatorRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window duration", func(c *Config) { c.Window.Duration = 0 }},
		{"negative activity grace", func(c *Config) { c.Window.ActivityGrace = -time.Minute }},
		{"zero selector ttl", func(c *Config) { c.Window.SelectorTTL = 0 }},
		{"zero peer ttl", func(c *Config) { c.Cache.PeerWindowTTL = 0 }},
		{"zero refresh interval", func(c *Config) { c.Store.RefreshInterval = 0 }},
		{"zero retry attempts", func(c *Config) { c.Store.RetryAttempts = 0 }},
		{"unknown pricing method", func(c *Config) { c.Limits.PricingMethod = "oracle" }},
		{"fixed without limit", func(c *Config) { c.Limits.PricingMethod = "fixed" }},
		{"warn threshold above one", func(c *Config) { c.Limits.WarnThreshold = 1.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, NewValidator().Validate(cfg))
		})
	}
}

func TestLoaderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claudeteam.yaml")

	content := `
group:
  group_id: g1
  actor_id: alice
  exclude_self_from_peers: true
window:
  selector_ttl: 45s
limits:
  pricing_method: fixed
  fixed_token_limit: 5000000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "g1", cfg.Group.GroupID)
	assert.Equal(t, "alice", cfg.Group.ActorID)
	assert.True(t, cfg.Group.ExcludeSelfFromPeers)
	assert.Equal(t, 45*time.Second, cfg.Window.SelectorTTL)
	assert.Equal(t, "fixed", cfg.Limits.PricingMethod)
	assert.Equal(t, 5_000_000, cfg.Limits.FixedTokenLimit)

	// Fields absent from the file keep their defaults
	assert.Equal(t, 5*time.Hour, cfg.Window.Duration)
	assert.Equal(t, 3, cfg.Store.RetryAttempts)
}

func TestLoaderRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claudeteam.yaml")

	require.NoError(t, os.WriteFile(path, []byte("window:\n  duration: -1h\n"), 0o644))

	_, err := NewLoader(path).Load()
	require.Error(t, err)

	// Validation failures carry the config classification so callers can
	// tell an operator mistake from a transient failure
	var re *claudeteamerrors.RecoverableError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, claudeteamerrors.ErrorTypeConfig, re.Type)
	assert.Equal(t, claudeteamerrors.SeverityCritical, re.Severity)
}

func TestLoaderMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Hour, cfg.Window.Duration)
}
