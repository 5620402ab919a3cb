package models

import "time"

// Window timing constants
const (
	WindowDuration = 5 * time.Hour
	MaxGapDuration = 5 * time.Hour

	// ActivityGrace is how long after the last activity a window past its
	// nominal end still counts as active.
	ActivityGrace = 2 * time.Hour

	// TrailingGrace bounds how far past the nominal end the active state
	// can extend.
	TrailingGrace = 30 * time.Minute
)

// Cache TTLs, one per cache kind
const (
	SelectorTTL      = 30 * time.Second
	GroupMetadataTTL = 5 * time.Minute
	PeerWindowTTL    = 30 * time.Second
	ThresholdTTL     = 2 * time.Hour
)

// Threshold resolution defaults
const (
	// DefaultTokenLimit is the hardcoded fallback when every pricing
	// lookup fails.
	DefaultTokenLimit = 100_000_000

	// DefaultDynamicTargetUSD is the dollar amount the dynamic method
	// converts into a token budget.
	DefaultDynamicTargetUSD = 140.0

	DefaultBurnRateHigh     = 1000.0
	DefaultBurnRateModerate = 500.0
	DefaultWarnThreshold    = 0.80
)

// Reference models for dynamic threshold pricing, tried in order
var ReferenceModels = []string{
	"claude-sonnet-4-20250514",
	"claude-3-5-sonnet-20241022",
	"claude-3-5-sonnet-20240620",
	"claude-3-sonnet-20240229",
}

// Aggregation constants
const (
	MaxAdvisories       = 4
	DominantUsageShare  = 0.40
	WindowEndingSoonMin = 60.0
)

// Status glyphs for member rows
const (
	GlyphActive = "⚡"
	GlyphIdle   = "·"
)

// Time formats
const (
	DisplayTimeFormat = "2006-01-02 15:04:05"
	WindowIDFormat    = "20060102-150405"
)

// JoinCodeLength is the length of a group join code (uppercase letters
// and digits).
const JoinCodeLength = 6
