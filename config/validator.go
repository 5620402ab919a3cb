package config

import (
	"fmt"
)

// Validator checks a loaded configuration for values the runtime cannot
// work with
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns the first problem found, or nil
func (v *Validator) Validate(cfg *Config) error {
	if cfg.Window.Duration <= 0 {
		return fmt.Errorf("window.duration must be positive, got %v", cfg.Window.Duration)
	}
	if cfg.Window.ActivityGrace < 0 {
		return fmt.Errorf("window.activity_grace cannot be negative")
	}
	if cfg.Window.TrailingGrace < 0 {
		return fmt.Errorf("window.trailing_grace cannot be negative")
	}
	if cfg.Window.SelectorTTL <= 0 {
		return fmt.Errorf("window.selector_ttl must be positive")
	}

	if cfg.Cache.GroupMetadataTTL <= 0 || cfg.Cache.PeerWindowTTL <= 0 || cfg.Cache.ThresholdTTL <= 0 {
		return fmt.Errorf("cache TTLs must all be positive")
	}

	if cfg.Store.RefreshInterval <= 0 {
		return fmt.Errorf("store.refresh_interval must be positive")
	}
	if cfg.Store.SyncInterval <= 0 {
		return fmt.Errorf("store.sync_interval must be positive")
	}
	if cfg.Store.RetryAttempts < 1 {
		return fmt.Errorf("store.retry_attempts must be at least 1")
	}

	switch cfg.Limits.PricingMethod {
	case "", "fixed", "dynamic":
	default:
		return fmt.Errorf("limits.pricing_method must be 'fixed' or 'dynamic', got %q", cfg.Limits.PricingMethod)
	}

	if cfg.Limits.PricingMethod == "fixed" && cfg.Limits.FixedTokenLimit <= 0 {
		return fmt.Errorf("limits.fixed_token_limit must be positive when pricing method is fixed")
	}

	if cfg.Limits.WarnThreshold < 0 || cfg.Limits.WarnThreshold > 1 {
		return fmt.Errorf("limits.warn_threshold must be between 0 and 1")
	}

	return nil
}
