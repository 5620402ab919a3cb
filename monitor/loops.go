package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/penwyp/claudeteam/models"
	"github.com/penwyp/claudeteam/sessions"
	"github.com/penwyp/claudeteam/store"
)

// SnapshotFunc receives each successful refresh snapshot. The snapshot is
// complete before the callback runs, so a consumer never sees a
// partially-updated tick.
type SnapshotFunc func(*models.GroupStatistics)

// Run drives the refresh loop and the slower sync loop until ctx is
// cancelled. The two loops touch disjoint cache keys; the local window is
// read-only once constructed, so they need no coordination beyond the
// tiered store's own locking. Both tickers are released on every exit
// path.
func (s *Service) Run(ctx context.Context, onSnapshot SnapshotFunc) error {
	groupID := s.cfg.Group.GroupID
	actorID := s.cfg.Group.ActorID

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.refreshLoop(ctx, groupID, actorID, onSnapshot)
	}()
	go func() {
		defer wg.Done()
		s.syncLoop(ctx, groupID, actorID)
	}()

	wg.Wait()
	return ctx.Err()
}

func (s *Service) newTicker(interval time.Duration) *time.Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return time.NewTicker(interval)
}

// refreshLoop recomputes the aggregation snapshot on the display cadence.
// A failed tick logs and carries on; the last good snapshot stays
// available.
func (s *Service) refreshLoop(ctx context.Context, groupID, actorID string, onSnapshot SnapshotFunc) {
	ticker := s.newTicker(s.cfg.Store.RefreshInterval)
	defer ticker.Stop()

	for {
		stats, err := s.GroupStatistics(ctx, groupID, actorID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warnf("Refresh tick failed, keeping last snapshot: %v", err)
		} else if onSnapshot != nil {
			onSnapshot(stats)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// syncLoop pushes the local window to the remote store on the sync
// cadence. Writes are retried a bounded number of times; a final failure
// is a soft warning, never a loop exit.
func (s *Service) syncLoop(ctx context.Context, groupID, actorID string) {
	ticker := s.newTicker(s.cfg.Store.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := s.syncOnce(ctx, groupID, actorID); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warnf("Sync failed, will retry next cycle: %v", err)
		}
	}
}

// syncOnce upserts the current local window and refreshes the live-status
// projection
func (s *Service) syncOnce(ctx context.Context, groupID, actorID string) error {
	window, found, err := s.selector.Current(ctx)
	if err != nil || !found {
		// Nothing local to push; not an error.
		return nil
	}

	classifier := sessions.Classifier{
		ActivityGrace: s.cfg.Window.ActivityGrace,
		TrailingGrace: s.cfg.Window.TrailingGrace,
	}

	peer := models.PeerWindow{
		Window:   window,
		GroupID:  groupID,
		ActorID:  actorID,
		IsActive: classifier.IsActive(window, s.now()),
	}

	err = store.WithRetry(ctx, func(ctx context.Context) error {
		return s.client.UpsertUsageWindow(ctx, peer)
	}, s.cfg.Store.RetryAttempts, s.cfg.Store.RetryDelay)
	if err != nil {
		return err
	}

	return s.pushLiveStatus(ctx, groupID, peer)
}

// pushLiveStatus writes the denormalized projection from the last good
// snapshot. Best-effort: the projection is advisory for dashboards.
func (s *Service) pushLiveStatus(ctx context.Context, groupID string, localWindow models.PeerWindow) error {
	snapshot := s.LastGoodSnapshot()
	if snapshot == nil {
		return nil
	}

	activeMembers := make([]string, 0, snapshot.ActiveCount)
	for _, member := range snapshot.Members {
		if member.IsActive {
			activeMembers = append(activeMembers, member.MemberID)
		}
	}

	status := store.LiveStatus{
		GroupID:        groupID,
		ActiveWindowID: localWindow.ID,
		ActiveMembers:  activeMembers,
		TotalTokens:    snapshot.TotalTokens,
		TotalCost:      snapshot.TotalCost,
		BurnRate:       snapshot.BurnRate,
	}

	return store.WithRetry(ctx, func(ctx context.Context) error {
		return s.client.UpdateLiveStatus(ctx, status)
	}, s.cfg.Store.RetryAttempts, s.cfg.Store.RetryDelay)
}
