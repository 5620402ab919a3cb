package internal

import (
	"context"
	"fmt"

	"github.com/penwyp/claudeteam/config"
	"github.com/penwyp/claudeteam/logging"
	"github.com/penwyp/claudeteam/models"
	"github.com/penwyp/claudeteam/monitor"
	"github.com/penwyp/claudeteam/pricing"
	"github.com/penwyp/claudeteam/sessions"
	"github.com/penwyp/claudeteam/store"
)

// Application assembles the monitoring service and its collaborators with
// a documented construction/teardown lifecycle: NewApplication acquires
// every resource, Shutdown releases them in reverse order on all exit
// paths.
type Application struct {
	cfg       *config.Config
	logger    *logging.Logger
	client    *store.SQLiteClient
	snapshots *pricing.SnapshotStore
	service   *monitor.Service
}

// NewApplication builds the application. activityPath locates the local
// JSONL activity file produced by the usage logger.
func NewApplication(cfg *config.Config, activityPath string) (*Application, error) {
	logger := logging.NewLogger(cfg.App.LogLevel, cfg.App.LogFile)

	client, err := store.NewSQLiteClient(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote store: %w", err)
	}

	// Snapshot store is an optimization; run without it if unavailable
	snapshots, err := pricing.OpenSnapshotStore(cfg.Cache.SnapshotDir)
	if err != nil {
		logger.Warnf("Pricing snapshots disabled: %v", err)
		snapshots = nil
	}

	builder := sessions.NewBuilderWithOptions(cfg.Window.Duration, cfg.Window.Duration)
	feed := NewActivityFeed(activityPath, builder)

	service := monitor.NewService(cfg, monitor.Dependencies{
		Source:    feed,
		Client:    client,
		Provider:  pricing.NewOracleProvider(),
		Snapshots: snapshots,
		Logger:    logger,
	})

	return &Application{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		snapshots: snapshots,
		service:   service,
	}, nil
}

// Service exposes the monitoring service for one-shot commands
func (a *Application) Service() *monitor.Service {
	return a.service
}

// Client exposes the remote store client for group lifecycle commands
func (a *Application) Client() *store.SQLiteClient {
	return a.client
}

// Run drives the refresh and sync loops until ctx is cancelled
func (a *Application) Run(ctx context.Context, onSnapshot monitor.SnapshotFunc) error {
	a.logger.Infof("Starting monitor: group=%s actor=%s refresh=%v sync=%v",
		a.cfg.Group.GroupID, a.cfg.Group.ActorID,
		a.cfg.Store.RefreshInterval, a.cfg.Store.SyncInterval)

	err := a.service.Run(ctx, onSnapshot)
	if err == context.Canceled {
		err = nil
	}
	return err
}

// Shutdown releases resources in reverse order of acquisition
func (a *Application) Shutdown() error {
	var errs []error

	if a.snapshots != nil {
		if err := a.snapshots.Close(); err != nil {
			errs = append(errs, fmt.Errorf("snapshot store: %w", err))
		}
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("remote store: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.Info("Shutdown complete")
	return nil
}

// LogSnapshot is the default snapshot consumer for headless runs
func (a *Application) LogSnapshot(stats *models.GroupStatistics) {
	a.logger.Infof("Snapshot: members=%d active=%d tokens=%d cost=%.2f advisories=%d",
		len(stats.Members), stats.ActiveCount, stats.TotalTokens, stats.TotalCost, len(stats.Advisories))
}
