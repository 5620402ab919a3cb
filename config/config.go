package config

import (
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App    AppConfig    `yaml:"app" json:"app" mapstructure:"app"`
	Group  GroupConfig  `yaml:"group" json:"group" mapstructure:"group"`
	Window WindowConfig `yaml:"window" json:"window" mapstructure:"window"`
	Cache  CacheConfig  `yaml:"cache" json:"cache" mapstructure:"cache"`
	Store  StoreConfig  `yaml:"store" json:"store" mapstructure:"store"`
	Limits LimitsConfig `yaml:"limits" json:"limits" mapstructure:"limits"`
}

// AppConfig contains general application settings
type AppConfig struct {
	Name     string `yaml:"name" json:"name" mapstructure:"name"`
	LogLevel string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	LogFile  string `yaml:"log_file" json:"log_file" mapstructure:"log_file"`
}

// GroupConfig identifies the pool this actor participates in
type GroupConfig struct {
	GroupID              string `yaml:"group_id" json:"group_id" mapstructure:"group_id"`
	ActorID              string `yaml:"actor_id" json:"actor_id" mapstructure:"actor_id"`
	DisplayName          string `yaml:"display_name" json:"display_name" mapstructure:"display_name"`
	ExcludeSelfFromPeers bool   `yaml:"exclude_self_from_peers" json:"exclude_self_from_peers" mapstructure:"exclude_self_from_peers"`
}

// WindowConfig tunes the window predicate and selector. The grace bounds
// are configurable because call sites historically disagreed on them; one
// documented set now applies everywhere.
type WindowConfig struct {
	Duration      time.Duration `yaml:"duration" json:"duration" mapstructure:"duration"`
	ActivityGrace time.Duration `yaml:"activity_grace" json:"activity_grace" mapstructure:"activity_grace"`
	TrailingGrace time.Duration `yaml:"trailing_grace" json:"trailing_grace" mapstructure:"trailing_grace"`
	SelectorTTL   time.Duration `yaml:"selector_ttl" json:"selector_ttl" mapstructure:"selector_ttl"`
}

// CacheConfig tunes the tiered remote cache TTLs
type CacheConfig struct {
	GroupMetadataTTL time.Duration `yaml:"group_metadata_ttl" json:"group_metadata_ttl" mapstructure:"group_metadata_ttl"`
	PeerWindowTTL    time.Duration `yaml:"peer_window_ttl" json:"peer_window_ttl" mapstructure:"peer_window_ttl"`
	ThresholdTTL     time.Duration `yaml:"threshold_ttl" json:"threshold_ttl" mapstructure:"threshold_ttl"`
	SnapshotDir      string        `yaml:"snapshot_dir" json:"snapshot_dir" mapstructure:"snapshot_dir"`
}

// StoreConfig locates the remote table store and tunes sync behavior
type StoreConfig struct {
	Path            string        `yaml:"path" json:"path" mapstructure:"path"`
	RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval" mapstructure:"refresh_interval"`
	SyncInterval    time.Duration `yaml:"sync_interval" json:"sync_interval" mapstructure:"sync_interval"`
	RetryAttempts   int           `yaml:"retry_attempts" json:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay" json:"retry_delay" mapstructure:"retry_delay"`
}

// LimitsConfig overrides threshold resolution locally
type LimitsConfig struct {
	PricingMethod    string  `yaml:"pricing_method" json:"pricing_method" mapstructure:"pricing_method"`
	FixedTokenLimit  int     `yaml:"fixed_token_limit" json:"fixed_token_limit" mapstructure:"fixed_token_limit"`
	TargetUSD        float64 `yaml:"target_usd" json:"target_usd" mapstructure:"target_usd"`
	BurnRateHigh     float64 `yaml:"burn_rate_high" json:"burn_rate_high" mapstructure:"burn_rate_high"`
	BurnRateModerate float64 `yaml:"burn_rate_moderate" json:"burn_rate_moderate" mapstructure:"burn_rate_moderate"`
	WarnThreshold    float64 `yaml:"warn_threshold" json:"warn_threshold" mapstructure:"warn_threshold"`
}

// ConfigPaths returns the default configuration file paths in order of
// precedence
func ConfigPaths() []string {
	return []string{
		"./claudeteam.yaml",
		"$HOME/.config/claudeteam/config.yaml",
		"$HOME/.claudeteam/config.yaml",
	}
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "claudeteam",
			LogLevel: "info",
			LogFile:  "claudeteam.log",
		},
		Window: WindowConfig{
			Duration:      5 * time.Hour,
			ActivityGrace: 2 * time.Hour,
			TrailingGrace: 30 * time.Minute,
			SelectorTTL:   30 * time.Second,
		},
		Cache: CacheConfig{
			GroupMetadataTTL: 5 * time.Minute,
			PeerWindowTTL:    30 * time.Second,
			ThresholdTTL:     2 * time.Hour,
			SnapshotDir:      "$HOME/.cache/claudeteam/snapshots",
		},
		Store: StoreConfig{
			Path:            "$HOME/.local/share/claudeteam/pool.db",
			RefreshInterval: 10 * time.Second,
			SyncInterval:    30 * time.Second,
			RetryAttempts:   3,
			RetryDelay:      2 * time.Second,
		},
		Limits: LimitsConfig{
			PricingMethod: "dynamic",
			TargetUSD:     140.0,
			WarnThreshold: 0.80,
		},
	}
}
