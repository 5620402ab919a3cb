package calculations

import (
	"time"

	"github.com/penwyp/claudeteam/models"
)

// BurnRateCalculator computes consumption velocity for the current window
type BurnRateCalculator struct{}

// NewBurnRateCalculator creates a new burn rate calculator
func NewBurnRateCalculator() *BurnRateCalculator {
	return &BurnRateCalculator{}
}

// Calculate returns the burn rate for the given totals measured against
// the window's elapsed time, or nil when the window is too young or has
// no usage. The indicator bands against the resolved thresholds, never
// hardcoded values.
func (brc *BurnRateCalculator) Calculate(window models.Window, totalTokens int, totalCost float64, cfg models.ResolvedConfig, now time.Time) *models.BurnRate {
	elapsed := window.ElapsedMinutes(now)
	if elapsed < 1 || totalTokens == 0 {
		return nil
	}

	tokensPerMinute := float64(totalTokens) / elapsed
	costPerHour := (totalCost / elapsed) * 60

	return &models.BurnRate{
		TokensPerMinute: tokensPerMinute,
		CostPerHour:     costPerHour,
		Indicator:       brc.indicator(tokensPerMinute, cfg),
	}
}

func (brc *BurnRateCalculator) indicator(tokensPerMinute float64, cfg models.ResolvedConfig) models.BurnRateIndicator {
	high := cfg.BurnRateHigh
	if high <= 0 {
		high = models.DefaultBurnRateHigh
	}
	moderate := cfg.BurnRateModerate
	if moderate <= 0 {
		moderate = models.DefaultBurnRateModerate
	}

	switch {
	case tokensPerMinute > high:
		return models.BurnRateHigh
	case tokensPerMinute > moderate:
		return models.BurnRateModerate
	default:
		return models.BurnRateNormal
	}
}
