package calculations

import (
	"testing"
	"time"

	"github.com/penwyp/claudeteam/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindow(start time.Time) models.Window {
	return models.Window{
		ID:        models.WindowID(start),
		StartTime: start,
		EndTime:   start.Add(5 * time.Hour),
	}
}

func TestBurnRateCalculation(t *testing.T) {
	calc := NewBurnRateCalculator()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(284 * time.Minute)

	rate := calc.Calculate(testWindow(start), 120_000, 14.2, models.ResolvedConfig{
		BurnRateHigh:     1000,
		BurnRateModerate: 500,
	}, now)

	require.NotNil(t, rate)
	assert.InDelta(t, 422.5, rate.TokensPerMinute, 0.1)
	assert.InDelta(t, 3.0, rate.CostPerHour, 0.01)
	assert.Equal(t, models.BurnRateNormal, rate.Indicator)
}

func TestBurnRateBands(t *testing.T) {
	calc := NewBurnRateCalculator()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(284 * time.Minute)
	window := testWindow(start)

	// 422.5 tokens/min against different bands; comparisons are strict
	cases := []struct {
		name     string
		high     float64
		moderate float64
		want     models.BurnRateIndicator
	}{
		{"below moderate", 1000, 500, models.BurnRateNormal},
		{"above moderate", 500, 400, models.BurnRateModerate},
		{"above high", 400, 300, models.BurnRateHigh},
		{"equal to moderate is normal", 1000, 422.5352112676056, models.BurnRateNormal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rate := calc.Calculate(window, 120_000, 0, models.ResolvedConfig{
				BurnRateHigh:     tc.high,
				BurnRateModerate: tc.moderate,
			}, now)
			require.NotNil(t, rate)
			assert.Equal(t, tc.want, rate.Indicator)
		})
	}
}

func TestBurnRateTooYoung(t *testing.T) {
	calc := NewBurnRateCalculator()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	rate := calc.Calculate(testWindow(start), 120_000, 1.0, models.ResolvedConfig{}, start.Add(30*time.Second))
	assert.Nil(t, rate)
}

func TestBurnRateNoUsage(t *testing.T) {
	calc := NewBurnRateCalculator()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	rate := calc.Calculate(testWindow(start), 0, 0, models.ResolvedConfig{}, start.Add(time.Hour))
	assert.Nil(t, rate)
}

func TestBurnRateDefaultBands(t *testing.T) {
	calc := NewBurnRateCalculator()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(100 * time.Minute)

	// 1200 tokens/min with unset bands uses the defaults (1000/500)
	rate := calc.Calculate(testWindow(start), 120_000, 0, models.ResolvedConfig{}, now)
	require.NotNil(t, rate)
	assert.Equal(t, models.BurnRateHigh, rate.Indicator)
}
