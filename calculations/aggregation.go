package calculations

import (
	"time"

	"github.com/penwyp/claudeteam/models"
	"github.com/penwyp/claudeteam/sessions"
)

// AggregationInput carries everything one aggregation pass needs. The
// local window is always fresh; peer windows and members come from the
// tiered cache and may be up to one TTL stale.
type AggregationInput struct {
	GroupID     string
	ActorID     string
	LocalWindow *models.Window
	Members     []models.Member
	PeerWindows []models.PeerWindow
	Config      models.ResolvedConfig

	// ExcludeSelfFromPeers keeps the actor's remote-synced rows out of the
	// snapshot entirely. Without it, a degraded local pass falls back to
	// the actor's own stale synced rows instead of reading as idle.
	ExcludeSelfFromPeers bool
}

// Aggregator merges local and remote usage into one immutable statistics
// snapshot per pass.
type Aggregator struct {
	classifier sessions.Classifier
	burnRate   *BurnRateCalculator
	now        func() time.Time
}

// NewAggregator creates an aggregator with the default classifier and
// clock
func NewAggregator() *Aggregator {
	return NewAggregatorWithOptions(sessions.NewClassifier(), time.Now)
}

// NewAggregatorWithOptions creates an aggregator with a custom classifier
// and clock
func NewAggregatorWithOptions(classifier sessions.Classifier, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		classifier: classifier,
		burnRate:   NewBurnRateCalculator(),
		now:        now,
	}
}

// Aggregate computes the full group snapshot. The whole result is built
// before returning so callers always see one consistent tick.
func (a *Aggregator) Aggregate(input AggregationInput) models.GroupStatistics {
	now := a.now()

	stats := models.GroupStatistics{
		GroupID:       input.GroupID,
		GeneratedAt:   now,
		CurrentWindow: input.LocalWindow,
		Members:       make([]models.MemberStatistics, 0, len(input.Members)),
		Conflicts:     []models.ScheduleConflict{},
		Advisories:    []models.Advisory{},
	}

	for _, member := range input.Members {
		memberStats := a.memberStatistics(member, input, now)
		stats.Members = append(stats.Members, memberStats)
		stats.TotalTokens += memberStats.CurrentTokens
		stats.TotalCost += memberStats.CurrentCost
		if memberStats.IsActive {
			stats.ActiveCount++
		}
	}

	if input.LocalWindow != nil && a.classifier.IsActive(*input.LocalWindow, now) {
		stats.BurnRate = a.burnRate.Calculate(*input.LocalWindow, stats.TotalTokens, stats.TotalCost, input.Config, now)
	}

	stats.Conflicts = DetectConflicts(input.Members)
	stats.Advisories = GenerateAdvisories(stats, input.Config, now)

	return stats
}

// memberStatistics derives one member's figures. The current actor comes
// from the local window when one exists; when local selection degraded,
// the actor's own synced rows stand in unless self rows are excluded.
// Everyone else always comes from their remote-synced rows.
func (a *Aggregator) memberStatistics(member models.Member, input AggregationInput, now time.Time) models.MemberStatistics {
	memberStats := models.MemberStatistics{
		MemberID:    member.ID,
		DisplayName: member.DisplayName,
		StatusGlyph: models.GlyphIdle,
	}

	isActor := input.ActorID != "" && member.ExternalID == input.ActorID

	switch {
	case isActor && input.LocalWindow != nil:
		w := *input.LocalWindow
		memberStats.CurrentTokens = w.TokenCounts.Total()
		memberStats.CurrentCost = w.CostUSD
		memberStats.IsActive = a.classifier.IsActive(w, now)
		if w.ActualEndTime != nil {
			memberStats.LastActivity = *w.ActualEndTime
		} else {
			memberStats.LastActivity = w.StartTime
		}
	case isActor && input.ExcludeSelfFromPeers:
		// No local window and the actor's synced rows are excluded: the
		// actor reads as idle rather than echoing a stale row.
	default:
		a.sumPeerRows(&memberStats, member.ExternalID, input.PeerWindows)
	}

	if memberStats.IsActive {
		memberStats.StatusGlyph = models.GlyphActive
	}

	return memberStats
}

// sumPeerRows folds a member's remote-synced rows into their statistics
func (a *Aggregator) sumPeerRows(memberStats *models.MemberStatistics, externalID string, peers []models.PeerWindow) {
	for _, peer := range peers {
		if peer.ActorID != externalID {
			continue
		}

		memberStats.CurrentTokens += peer.TokenCounts.Total()
		memberStats.CurrentCost += peer.CostUSD
		if peer.IsActive {
			memberStats.IsActive = true
		}
		if peer.UpdatedAt.After(memberStats.LastActivity) {
			memberStats.LastActivity = peer.UpdatedAt
		}
	}
}
