package models

import (
	"fmt"
	"math"
	"time"
)

// ValidationError represents a validation error with field and message
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// PricingError represents an error related to pricing lookups
type PricingError struct {
	Model   string
	Message string
}

func (e PricingError) Error() string {
	return fmt.Sprintf("pricing error for model '%s': %s", e.Model, e.Message)
}

// Validate validates a UsageEntry
func (u *UsageEntry) Validate() error {
	if u.Timestamp.IsZero() {
		return ValidationError{Field: "Timestamp", Message: "timestamp cannot be zero"}
	}

	if u.Model == "" {
		return ValidationError{Field: "Model", Message: "model cannot be empty"}
	}

	if u.InputTokens < 0 || u.OutputTokens < 0 || u.CacheCreationTokens < 0 || u.CacheReadTokens < 0 {
		return ValidationError{Field: "Tokens", Message: "token counts cannot be negative"}
	}

	if u.CostUSD < 0 {
		return ValidationError{Field: "CostUSD", Message: "cost cannot be negative"}
	}

	return nil
}

// Validate validates a Window
func (w *Window) Validate() error {
	if w.StartTime.IsZero() {
		return ValidationError{Field: "StartTime", Message: "start time cannot be zero"}
	}

	if w.EndTime.Before(w.StartTime) {
		return ValidationError{Field: "EndTime", Message: "end time cannot be before start time"}
	}

	if w.CostUSD < 0 {
		return ValidationError{Field: "CostUSD", Message: "cost cannot be negative"}
	}

	return nil
}

// Validate rejects member rows the aggregation engine cannot use
func (m *Member) Validate() error {
	if m.ID == "" {
		return ValidationError{Field: "ID", Message: "id cannot be empty"}
	}

	if m.DisplayName == "" {
		return ValidationError{Field: "DisplayName", Message: "display name cannot be empty"}
	}

	for _, hour := range m.Settings.PreferredHours {
		if hour < 0 || hour > 23 {
			return ValidationError{Field: "PreferredHours", Message: "hours must be in range 0-23"}
		}
	}

	return nil
}

// ValidatePricing rejects non-finite or non-positive prices, which would
// otherwise poison a derived threshold for hours.
func ValidatePricing(p ModelPricing) error {
	for _, cost := range []float64{p.Input, p.Output} {
		if math.IsNaN(cost) || math.IsInf(cost, 0) {
			return PricingError{Message: "cost is not a finite number"}
		}
		if cost <= 0 {
			return PricingError{Message: "cost must be greater than zero"}
		}
	}
	return nil
}

// Validate rejects thresholds that would make banding meaningless
func (rc *ResolvedConfig) Validate() error {
	if rc.TokenLimit <= 0 {
		return ValidationError{Field: "TokenLimit", Message: "token limit must be positive"}
	}

	if math.IsNaN(rc.BurnRateHigh) || rc.BurnRateHigh <= 0 {
		return ValidationError{Field: "BurnRateHigh", Message: "high band must be a positive number"}
	}

	if math.IsNaN(rc.BurnRateModerate) || rc.BurnRateModerate <= 0 {
		return ValidationError{Field: "BurnRateModerate", Message: "moderate band must be a positive number"}
	}

	if rc.BurnRateModerate > rc.BurnRateHigh {
		return ValidationError{Field: "BurnRateModerate", Message: "moderate band cannot exceed high band"}
	}

	return nil
}

// WindowID derives the stable identifier for a window starting at the
// given time.
func WindowID(startTime time.Time) string {
	return "window_" + startTime.UTC().Format(WindowIDFormat)
}
