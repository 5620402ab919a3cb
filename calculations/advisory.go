package calculations

import (
	"fmt"
	"time"

	"github.com/penwyp/claudeteam/models"
)

// GenerateAdvisories derives the ordered advisory list from an aggregated
// snapshot. The order encodes priority, not discovery order, and the list
// is capped so the display never drowns the reader.
func GenerateAdvisories(stats models.GroupStatistics, cfg models.ResolvedConfig, now time.Time) []models.Advisory {
	var advisories []models.Advisory

	if stats.BurnRate != nil && stats.BurnRate.Indicator == models.BurnRateHigh {
		advisories = append(advisories, models.Advisory{
			Kind:    models.AdvisoryBurnRate,
			Message: fmt.Sprintf("High burn rate: %.0f tokens/min, consider pausing heavy tasks", stats.BurnRate.TokensPerMinute),
		})
	}

	if stats.ActiveCount >= 2 {
		advisories = append(advisories, models.Advisory{
			Kind:    models.AdvisoryCoordination,
			Message: fmt.Sprintf("%d members are active right now, coordinate to avoid hitting the shared limit", stats.ActiveCount),
		})
	}

	if name, share, ok := dominantMember(stats); ok {
		advisories = append(advisories, models.Advisory{
			Kind:    models.AdvisoryDominantUsage,
			Message: fmt.Sprintf("%s is using %.0f%% of the pool's tokens", name, share*100),
		})
	}

	if len(stats.Conflicts) > 0 {
		top := stats.Conflicts[0]
		advisories = append(advisories, models.Advisory{
			Kind:    models.AdvisoryConflict,
			Message: fmt.Sprintf("%d members prefer the %02d:00 slot (%s severity)", len(top.MemberNames), top.Hour, top.Severity),
		})
	}

	if stats.CurrentWindow != nil {
		remaining := stats.CurrentWindow.RemainingMinutes(now)
		if remaining > 0 && remaining < models.WindowEndingSoonMin {
			advisories = append(advisories, models.Advisory{
				Kind:    models.AdvisoryWindowEnding,
				Message: fmt.Sprintf("Current window ends in %.0f minutes", remaining),
			})
		}
	}

	if cfg.TokenLimit > 0 {
		usage := float64(stats.TotalTokens) / float64(cfg.TokenLimit)
		if usage >= 1.0 {
			advisories = append(advisories, models.Advisory{
				Kind:    models.AdvisoryThreshold,
				Message: fmt.Sprintf("Token threshold exceeded: %d of %d", stats.TotalTokens, cfg.TokenLimit),
			})
		} else if usage >= cfg.WarnThreshold && cfg.WarnThreshold > 0 {
			advisories = append(advisories, models.Advisory{
				Kind:    models.AdvisoryThreshold,
				Message: fmt.Sprintf("Approaching token threshold: %.0f%% used", usage*100),
			})
		}
	}

	if len(advisories) > models.MaxAdvisories {
		advisories = advisories[:models.MaxAdvisories]
	}

	return advisories
}

// dominantMember finds a member consuming more than the dominant-usage
// share of total tokens. Meaningless for a single-member pool.
func dominantMember(stats models.GroupStatistics) (string, float64, bool) {
	if stats.TotalTokens == 0 || len(stats.Members) < 2 {
		return "", 0, false
	}

	for _, member := range stats.Members {
		share := float64(member.CurrentTokens) / float64(stats.TotalTokens)
		if share > models.DominantUsageShare {
			return member.DisplayName, share, true
		}
	}
	return "", 0, false
}
