package calculations

import (
	"sort"

	"github.com/penwyp/claudeteam/models"
)

// DetectConflicts buckets every member's preferred hours into one-hour
// slots and reports each slot claimed by two or more members. Severity
// scales with how many members collide; results are sorted most severe
// first, then by hour.
func DetectConflicts(members []models.Member) []models.ScheduleConflict {
	slots := make(map[int][]string)

	for _, member := range members {
		for _, hour := range member.Settings.PreferredHours {
			if hour < 0 || hour > 23 {
				continue
			}
			slots[hour] = append(slots[hour], member.DisplayName)
		}
	}

	var conflicts []models.ScheduleConflict
	for hour, names := range slots {
		if len(names) < 2 {
			continue
		}

		sort.Strings(names)
		conflicts = append(conflicts, models.ScheduleConflict{
			Hour:        hour,
			MemberNames: names,
			Severity:    conflictSeverity(len(names)),
		})
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Severity.Rank() != conflicts[j].Severity.Rank() {
			return conflicts[i].Severity.Rank() > conflicts[j].Severity.Rank()
		}
		return conflicts[i].Hour < conflicts[j].Hour
	})

	return conflicts
}

func conflictSeverity(claimants int) models.ConflictSeverity {
	switch {
	case claimants >= 4:
		return models.ConflictHigh
	case claimants == 3:
		return models.ConflictMedium
	default:
		return models.ConflictLow
	}
}
