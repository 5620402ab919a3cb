package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/penwyp/claudeteam/cache"
	"github.com/penwyp/claudeteam/calculations"
	"github.com/penwyp/claudeteam/config"
	"github.com/penwyp/claudeteam/errors"
	"github.com/penwyp/claudeteam/logging"
	"github.com/penwyp/claudeteam/models"
	"github.com/penwyp/claudeteam/pricing"
	"github.com/penwyp/claudeteam/sessions"
	"github.com/penwyp/claudeteam/store"
)

// Dependencies are the collaborators a Service needs. Everything is
// injected; the service owns no ambient state, so parallel test instances
// cannot cross-contaminate.
type Dependencies struct {
	Source    sessions.WindowSource
	Client    store.Client
	Provider  pricing.Provider
	Snapshots *pricing.SnapshotStore
	Logger    *logging.Logger
	Clock     func() time.Time
}

// Service coordinates the window selector, tiered cache, threshold
// resolver and aggregation engine behind the exposed interface consumed
// by the CLI/dashboard. The local window computation is always
// authoritative for the current actor; everything remote is best-effort.
type Service struct {
	cfg        *config.Config
	selector   *sessions.Selector
	caches     *cache.TieredStore
	resolver   *pricing.Resolver
	client     store.Client
	aggregator *calculations.Aggregator
	logger     *logging.Logger
	now        func() time.Time

	mu       sync.RWMutex
	limits   config.LimitsConfig
	lastGood *models.GroupStatistics
}

// NewService wires a service from configuration and dependencies
func NewService(cfg *config.Config, deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewTestLogger()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	classifier := sessions.Classifier{
		ActivityGrace: cfg.Window.ActivityGrace,
		TrailingGrace: cfg.Window.TrailingGrace,
	}

	caches := cache.NewTieredStoreWithOptions(
		cfg.Cache.GroupMetadataTTL,
		cfg.Cache.PeerWindowTTL,
		cfg.Cache.ThresholdTTL,
		now,
	)

	selector := sessions.NewSelectorWithOptions(deps.Source, classifier, cfg.Window.SelectorTTL, now)

	s := &Service{
		cfg:        cfg,
		selector:   selector,
		caches:     caches,
		client:     deps.Client,
		aggregator: calculations.NewAggregatorWithOptions(classifier, now),
		logger:     logger,
		now:        now,
		limits:     cfg.Limits,
	}
	s.resolver = pricing.NewResolver(
		s.settingsSource(deps.Client),
		deps.Provider,
		caches,
		deps.Snapshots,
		logger,
	)
	return s
}

// settingsSource layers local limit overrides over the remote
// system_config values. A fixed local method short-circuits the remote
// read entirely. Limits are read through the service so live-reloaded
// values take effect on the next resolve.
func (s *Service) settingsSource(client store.Client) pricing.SettingsSource {
	return pricing.SettingsSourceFunc(func(ctx context.Context) (pricing.Settings, error) {
		limits := s.currentLimits()
		settings := pricing.DefaultSettings()

		if limits.PricingMethod == "fixed" && limits.FixedTokenLimit > 0 {
			settings.Method = models.PricingFixed
			settings.FixedTokenLimit = limits.FixedTokenLimit
		} else if remote, ok := client.(pricing.SettingsSource); ok {
			if remoteSettings, err := remote.PricingSettings(ctx); err == nil {
				settings = remoteSettings
			}
		}

		if limits.TargetUSD > 0 {
			settings.TargetUSD = limits.TargetUSD
		}
		if limits.BurnRateHigh > 0 {
			settings.BurnRateHigh = limits.BurnRateHigh
		}
		if limits.BurnRateModerate > 0 {
			settings.BurnRateModerate = limits.BurnRateModerate
		}
		if limits.WarnThreshold > 0 {
			settings.WarnThreshold = limits.WarnThreshold
		}

		return settings, nil
	})
}

func (s *Service) currentLimits() config.LimitsConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits
}

// UpdateLimits applies a live-reloaded limit configuration. The cached
// threshold is dropped so the new limits resolve immediately.
func (s *Service) UpdateLimits(limits config.LimitsConfig) {
	s.mu.Lock()
	s.limits = limits
	s.mu.Unlock()
	s.caches.Clear()
	s.logger.Info("Limit configuration updated, threshold cache cleared")
}

// CurrentWindow returns the authoritative current window for the local
// actor, or found=false when no window qualifies
func (s *Service) CurrentWindow(ctx context.Context) (models.Window, bool, error) {
	return s.selector.Current(ctx)
}

// GroupStatistics produces one consistent snapshot for the group. A peer
// or metadata fetch failure fails the whole call; a local window failure
// only degrades to "no current window".
func (s *Service) GroupStatistics(ctx context.Context, groupID, actorID string) (*models.GroupStatistics, error) {
	var localWindow *models.Window
	window, found, err := s.selector.Current(ctx)
	if err != nil {
		// Local computation is low-risk; absorb and show no window.
		s.logger.Warnf("Local window selection failed, degrading: %v", err)
	} else if found {
		localWindow = &window
	}

	meta, err := s.groupMetadata(ctx, groupID)
	if err != nil {
		return nil, err
	}

	peers, err := s.peerWindows(ctx, groupID, actorID)
	if err != nil {
		return nil, err
	}

	resolved := s.resolver.Resolve(ctx)

	// Self-row exclusion can come from the local config or from the
	// group's stored settings; either is enough.
	excludeSelf := s.cfg.Group.ExcludeSelfFromPeers || meta.Group.Settings.ExcludeSelfFromPeers

	stats := s.aggregator.Aggregate(calculations.AggregationInput{
		GroupID:              groupID,
		ActorID:              actorID,
		LocalWindow:          localWindow,
		Members:              meta.Members,
		PeerWindows:          peers,
		Config:               resolved,
		ExcludeSelfFromPeers: excludeSelf,
	})

	s.mu.Lock()
	s.lastGood = &stats
	s.mu.Unlock()

	return &stats, nil
}

// LastGoodSnapshot returns the most recent successful snapshot, for
// callers that want to keep displaying something while a tick fails
func (s *Service) LastGoodSnapshot() *models.GroupStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastGood
}

// TokenThreshold resolves the effective token threshold
func (s *Service) TokenThreshold(ctx context.Context) int {
	return s.resolver.TokenThreshold(ctx)
}

// ResolvedConfig resolves the full effective limit configuration
func (s *Service) ResolvedConfig(ctx context.Context) models.ResolvedConfig {
	return s.resolver.Resolve(ctx)
}

// ClearCache force-evicts cached state. With a groupID it evicts that
// group's metadata and peer windows; without, it clears everything. The
// selector memo is always invalidated.
func (s *Service) ClearCache(groupID, actorID string) {
	if groupID == "" {
		s.caches.Clear()
	} else {
		s.caches.InvalidateGroup(groupID, actorID)
	}
	s.selector.Invalidate()
}

// groupMetadata returns cached metadata or fetches it from the store
func (s *Service) groupMetadata(ctx context.Context, groupID string) (cache.GroupMetadata, error) {
	if meta, ok := s.caches.GetGroup(groupID); ok {
		return meta, nil
	}

	group, err := s.client.GetGroup(ctx, groupID)
	if err != nil {
		return cache.GroupMetadata{}, errors.NewRemoteError("failed to fetch group", err)
	}
	members, err := s.client.ListMembers(ctx, groupID)
	if err != nil {
		return cache.GroupMetadata{}, errors.NewRemoteError("failed to fetch members", err)
	}

	meta := cache.GroupMetadata{Group: group, Members: members}
	s.caches.SetGroup(groupID, meta)
	return meta, nil
}

// peerWindows returns cached peer windows or fetches them from the store
func (s *Service) peerWindows(ctx context.Context, groupID, actorID string) ([]models.PeerWindow, error) {
	if peers, ok := s.caches.GetPeerWindows(groupID, actorID); ok {
		return peers, nil
	}

	windows, err := s.client.ListUsageWindows(ctx, groupID)
	if err != nil {
		return nil, errors.NewRemoteError("failed to fetch peer windows", err)
	}

	s.caches.SetPeerWindows(groupID, actorID, windows)
	return windows, nil
}
