package pricing

import (
	"context"
	"math"
	"sync"

	"github.com/penwyp/claudeteam/cache"
	"github.com/penwyp/claudeteam/logging"
	"github.com/penwyp/claudeteam/models"
)

// Settings is the remote static pricing configuration consulted before any
// network lookup. It lives in the remote store's system_config table.
type Settings struct {
	Method           models.PricingMethod `json:"method"`
	FixedTokenLimit  int                  `json:"fixed_token_limit"`
	TargetUSD        float64              `json:"target_usd"`
	BurnRateHigh     float64              `json:"burn_rate_high"`
	BurnRateModerate float64              `json:"burn_rate_moderate"`
	WarnThreshold    float64              `json:"warn_threshold"`
}

// SettingsSource provides the remote pricing settings
type SettingsSource interface {
	PricingSettings(ctx context.Context) (Settings, error)
}

// SettingsSourceFunc adapts a function to the SettingsSource interface
type SettingsSourceFunc func(ctx context.Context) (Settings, error)

func (f SettingsSourceFunc) PricingSettings(ctx context.Context) (Settings, error) {
	return f(ctx)
}

// DefaultSettings returns the hardcoded settings used when the remote
// config cannot be read
func DefaultSettings() Settings {
	return Settings{
		Method:           models.PricingDynamic,
		TargetUSD:        models.DefaultDynamicTargetUSD,
		BurnRateHigh:     models.DefaultBurnRateHigh,
		BurnRateModerate: models.DefaultBurnRateModerate,
		WarnThreshold:    models.DefaultWarnThreshold,
	}
}

// Resolver produces the effective token threshold and burn-rate bands via
// the fallback chain: fixed remote config, cached dynamic threshold, fresh
// oracle lookup, persisted snapshot, hardcoded default. A successful
// derivation is cached for the threshold TTL; failures are never cached so
// the next call retries immediately.
type Resolver struct {
	settings  SettingsSource
	provider  Provider
	store     *cache.TieredStore
	snapshots *SnapshotStore
	logger    *logging.Logger

	// Serializes check-then-populate on the threshold cache so concurrent
	// refresh cycles cannot duplicate the expensive lookup.
	mu sync.Mutex
}

// NewResolver creates a resolver. snapshots may be nil to disable the
// persisted fallback.
func NewResolver(settings SettingsSource, provider Provider, store *cache.TieredStore, snapshots *SnapshotStore, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewTestLogger()
	}
	return &Resolver{
		settings:  settings,
		provider:  provider,
		store:     store,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Resolve returns the full effective configuration. It never fails:
// every step in the chain has a safe fallback.
func (r *Resolver) Resolve(ctx context.Context) models.ResolvedConfig {
	settings := r.loadSettings(ctx)

	resolved := models.ResolvedConfig{
		PricingMethod:    settings.Method,
		BurnRateHigh:     settings.BurnRateHigh,
		BurnRateModerate: settings.BurnRateModerate,
		WarnThreshold:    settings.WarnThreshold,
	}

	resolved.TokenLimit = r.tokenThreshold(ctx, settings)

	if err := resolved.Validate(); err != nil {
		r.logger.Warnf("Resolved config invalid (%v), using defaults", err)
		defaults := DefaultSettings()
		resolved.BurnRateHigh = defaults.BurnRateHigh
		resolved.BurnRateModerate = defaults.BurnRateModerate
		resolved.WarnThreshold = defaults.WarnThreshold
		if resolved.TokenLimit <= 0 {
			resolved.TokenLimit = models.DefaultTokenLimit
		}
	}

	return resolved
}

// TokenThreshold resolves just the effective token threshold
func (r *Resolver) TokenThreshold(ctx context.Context) int {
	return r.tokenThreshold(ctx, r.loadSettings(ctx))
}

func (r *Resolver) loadSettings(ctx context.Context) Settings {
	if r.settings == nil {
		return DefaultSettings()
	}

	settings, err := r.settings.PricingSettings(ctx)
	if err != nil {
		r.logger.Warnf("Failed to load remote pricing settings: %v", err)
		return DefaultSettings()
	}

	defaults := DefaultSettings()
	if settings.Method == "" {
		settings.Method = defaults.Method
	}
	if settings.TargetUSD <= 0 || math.IsNaN(settings.TargetUSD) {
		settings.TargetUSD = defaults.TargetUSD
	}
	if settings.BurnRateHigh <= 0 || math.IsNaN(settings.BurnRateHigh) {
		settings.BurnRateHigh = defaults.BurnRateHigh
	}
	if settings.BurnRateModerate <= 0 || math.IsNaN(settings.BurnRateModerate) {
		settings.BurnRateModerate = defaults.BurnRateModerate
	}
	if settings.WarnThreshold <= 0 || settings.WarnThreshold > 1 {
		settings.WarnThreshold = defaults.WarnThreshold
	}

	return settings
}

func (r *Resolver) tokenThreshold(ctx context.Context, settings Settings) int {
	// Fixed method skips all network lookups
	if settings.Method == models.PricingFixed && settings.FixedTokenLimit > 0 {
		return settings.FixedTokenLimit
	}

	// The lock spans check-and-populate so two concurrent resolution
	// calls cannot both run the oracle fetch.
	r.mu.Lock()
	defer r.mu.Unlock()

	if tokens, ok := r.store.GetThreshold(); ok {
		return tokens
	}

	tokens, model, err := r.deriveThreshold(ctx, settings.TargetUSD)
	if err != nil {
		r.logger.Warnf("Dynamic threshold lookup failed, falling back to default %d: %v", models.DefaultTokenLimit, err)
		return models.DefaultTokenLimit
	}

	r.store.SetThreshold(tokens)
	if r.snapshots != nil {
		if err := r.snapshots.SaveThreshold(tokens, model); err != nil {
			r.logger.Debugf("Failed to persist threshold snapshot: %v", err)
		}
	}

	return tokens
}

// deriveThreshold fetches the pricing table and converts the target dollar
// amount into a token count using the first available reference model.
func (r *Resolver) deriveThreshold(ctx context.Context, targetUSD float64) (int, string, error) {
	table, err := r.provider.Fetch(ctx)
	if err != nil {
		table, err = r.snapshotFallback(err)
		if err != nil {
			return 0, "", err
		}
	} else if r.snapshots != nil {
		if saveErr := r.snapshots.SavePricing(r.provider.Name(), table); saveErr != nil {
			r.logger.Debugf("Failed to persist pricing snapshot: %v", saveErr)
		}
	}

	for _, model := range models.ReferenceModels {
		pricing, ok := table[model]
		if !ok {
			continue
		}
		if err := models.ValidatePricing(pricing); err != nil {
			r.logger.Debugf("Skipping reference model %s: %v", model, err)
			continue
		}

		// Prices are per million tokens; average input and output to get
		// the per-token unit price.
		avgPerToken := (pricing.Input + pricing.Output) / 2 / 1_000_000
		tokens := int(math.Round(targetUSD / avgPerToken))
		if tokens <= 0 {
			continue
		}
		return tokens, model, nil
	}

	return 0, "", models.PricingError{Message: "no usable reference model in pricing table"}
}

// snapshotFallback tries the persisted table when the live fetch fails
func (r *Resolver) snapshotFallback(fetchErr error) (map[string]models.ModelPricing, error) {
	if r.snapshots == nil {
		return nil, fetchErr
	}

	snapshot, err := r.snapshots.LoadPricing()
	if err != nil {
		return nil, fetchErr
	}

	r.logger.Infof("Price oracle unavailable (%v), using pricing snapshot from %s", fetchErr, snapshot.UpdatedAt.Format(models.DisplayTimeFormat))
	return snapshot.Pricing, nil
}
