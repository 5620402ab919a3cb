package calculations

import (
	"testing"

	"github.com/penwyp/claudeteam/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memberWithHours(name string, hours ...int) models.Member {
	return models.Member{
		ID:          name,
		DisplayName: name,
		ExternalID:  name,
		Settings:    models.MemberSettings{PreferredHours: hours},
	}
}

func TestDetectConflictsOverlap(t *testing.T) {
	members := []models.Member{
		memberWithHours("Alice", 9, 10),
		memberWithHours("Bob", 9, 11),
	}

	conflicts := DetectConflicts(members)
	require.Len(t, conflicts, 1)

	c := conflicts[0]
	assert.Equal(t, 9, c.Hour)
	assert.Equal(t, []string{"Alice", "Bob"}, c.MemberNames)
	assert.Equal(t, models.ConflictLow, c.Severity)
}

func TestDetectConflictsNoOverlap(t *testing.T) {
	members := []models.Member{
		memberWithHours("Alice", 9),
		memberWithHours("Bob", 14),
	}

	assert.Empty(t, DetectConflicts(members))
}

func TestDetectConflictsSeverityScale(t *testing.T) {
	members := []models.Member{
		memberWithHours("Alice", 9, 14),
		memberWithHours("Bob", 9, 14),
		memberWithHours("Carol", 9, 14, 20),
		memberWithHours("Dave", 9, 20),
	}

	conflicts := DetectConflicts(members)
	require.Len(t, conflicts, 3)

	// Sorted most severe first, then by hour
	assert.Equal(t, 9, conflicts[0].Hour)
	assert.Equal(t, models.ConflictHigh, conflicts[0].Severity)
	assert.Equal(t, 14, conflicts[1].Hour)
	assert.Equal(t, models.ConflictMedium, conflicts[1].Severity)
	assert.Equal(t, 20, conflicts[2].Hour)
	assert.Equal(t, models.ConflictLow, conflicts[2].Severity)
}

func TestDetectConflictsIgnoresInvalidHours(t *testing.T) {
	members := []models.Member{
		memberWithHours("Alice", -1, 24, 30),
		memberWithHours("Bob", -1, 24),
	}

	assert.Empty(t, DetectConflicts(members))
}
