package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsageEntryValidate(t *testing.T) {
	valid := UsageEntry{
		Timestamp:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Model:       "claude-sonnet-4-20250514",
		InputTokens: 100,
	}
	assert.NoError(t, valid.Validate())

	missingModel := valid
	missingModel.Model = ""
	assert.Error(t, missingModel.Validate())

	zeroTime := valid
	zeroTime.Timestamp = time.Time{}
	assert.Error(t, zeroTime.Validate())

	negative := valid
	negative.OutputTokens = -1
	assert.Error(t, negative.Validate())

	negativeCost := valid
	negativeCost.CostUSD = -0.1
	assert.Error(t, negativeCost.Validate())
}

func TestValidatePricing(t *testing.T) {
	assert.NoError(t, ValidatePricing(ModelPricing{Input: 3, Output: 15}))

	assert.Error(t, ValidatePricing(ModelPricing{Input: 0, Output: 15}))
	assert.Error(t, ValidatePricing(ModelPricing{Input: -3, Output: 15}))
	assert.Error(t, ValidatePricing(ModelPricing{Input: math.NaN(), Output: 15}))
	assert.Error(t, ValidatePricing(ModelPricing{Input: 3, Output: math.Inf(1)}))
}

func TestResolvedConfigValidate(t *testing.T) {
	valid := ResolvedConfig{TokenLimit: 1000, BurnRateHigh: 1000, BurnRateModerate: 500}
	assert.NoError(t, valid.Validate())

	noLimit := valid
	noLimit.TokenLimit = 0
	assert.Error(t, noLimit.Validate())

	inverted := valid
	inverted.BurnRateModerate = 2000
	assert.Error(t, inverted.Validate())
}

func TestWindowID(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "window_20250601-100000", WindowID(start))

	// Timezone-normalized: the same instant yields the same ID
	local := start.In(time.FixedZone("CEST", 2*3600))
	assert.Equal(t, WindowID(start), WindowID(local))
}

func TestTokenCounts(t *testing.T) {
	counts := TokenCounts{InputTokens: 1, OutputTokens: 2, CacheCreationTokens: 3, CacheReadTokens: 4}
	assert.Equal(t, 10, counts.Total())

	counts.Add(TokenCounts{InputTokens: 10, CacheReadTokens: 5})
	assert.Equal(t, 25, counts.Total())
}

func TestWindowMinutes(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	w := Window{StartTime: start, EndTime: start.Add(5 * time.Hour)}

	assert.Equal(t, 120.0, w.ElapsedMinutes(start.Add(2*time.Hour)))
	assert.Equal(t, 180.0, w.RemainingMinutes(start.Add(2*time.Hour)))

	// Clock skew and ended windows floor at zero
	assert.Equal(t, 0.0, w.ElapsedMinutes(start.Add(-time.Minute)))
	assert.Equal(t, 0.0, w.RemainingMinutes(start.Add(6*time.Hour)))
}
