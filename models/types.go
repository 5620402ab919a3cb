package models

import (
	"time"
)

// UsageEntry represents a single token usage event observed locally
type UsageEntry struct {
	Timestamp           time.Time `json:"timestamp"`
	Model               string    `json:"model"`
	InputTokens         int       `json:"input_tokens"`
	OutputTokens        int       `json:"output_tokens"`
	CacheCreationTokens int       `json:"cache_creation_tokens"`
	CacheReadTokens     int       `json:"cache_read_tokens"`
	CostUSD             float64   `json:"cost_usd"`
}

// TokenCounts aggregates token counts for the four token types
type TokenCounts struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_tokens"`
	CacheReadTokens     int `json:"cache_read_tokens"`
}

// Total returns the sum of all token types
func (tc TokenCounts) Total() int {
	return tc.InputTokens + tc.OutputTokens + tc.CacheCreationTokens + tc.CacheReadTokens
}

// Add accumulates another set of counts into this one
func (tc *TokenCounts) Add(other TokenCounts) {
	tc.InputTokens += other.InputTokens
	tc.OutputTokens += other.OutputTokens
	tc.CacheCreationTokens += other.CacheCreationTokens
	tc.CacheReadTokens += other.CacheReadTokens
}

// Window represents one fixed-length billing window with aggregated usage.
// Windows are rebuilt from raw activity on every pass and never mutated
// after construction.
type Window struct {
	ID            string      `json:"id"`
	StartTime     time.Time   `json:"start_time"`
	EndTime       time.Time   `json:"end_time"`
	ActualEndTime *time.Time  `json:"actual_end_time,omitempty"`
	IsGap         bool        `json:"is_gap"`
	TokenCounts   TokenCounts `json:"token_counts"`
	CostUSD       float64     `json:"cost_usd"`
	Models        []string    `json:"models"`
}

// ElapsedMinutes returns minutes elapsed since the window started, floored
// at zero for clock skew.
func (w Window) ElapsedMinutes(now time.Time) float64 {
	elapsed := now.Sub(w.StartTime).Minutes()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// RemainingMinutes returns minutes until the nominal window end.
func (w Window) RemainingMinutes(now time.Time) float64 {
	remaining := w.EndTime.Sub(now).Minutes()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PeerWindow is a window synced to the remote store by another member.
// UpdatedAt is the remote row timestamp, used as the peer's last-activity
// signal.
type PeerWindow struct {
	Window
	GroupID   string    `json:"group_id"`
	ActorID   string    `json:"actor_id"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberSettings holds per-member preferences stored as JSON on the member
// row.
type MemberSettings struct {
	Timezone       string `json:"timezone,omitempty"`
	PreferredHours []int  `json:"preferred_hours,omitempty"`
	PeakHours      []int  `json:"peak_hours,omitempty"`
}

// Member represents one participant in a usage pool
type Member struct {
	ID          string         `json:"id"`
	GroupID     string         `json:"group_id"`
	DisplayName string         `json:"display_name"`
	ExternalID  string         `json:"external_id"`
	JoinedAt    time.Time      `json:"joined_at"`
	IsActive    bool           `json:"is_active"`
	Settings    MemberSettings `json:"settings"`
}

// GroupSettings holds pool-level options stored as JSON on the group row
type GroupSettings struct {
	WindowDurationHours  int  `json:"window_duration_hours,omitempty"`
	ExcludeSelfFromPeers bool `json:"exclude_self_from_peers,omitempty"`
}

// Group represents a usage pool shared by multiple members
type Group struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	JoinCode  string        `json:"join_code"`
	CreatedAt time.Time     `json:"created_at"`
	Settings  GroupSettings `json:"settings"`
}

// MemberStatistics contains per-member figures derived fresh on every
// aggregation pass. Never cached directly.
type MemberStatistics struct {
	MemberID      string    `json:"member_id"`
	DisplayName   string    `json:"display_name"`
	IsActive      bool      `json:"is_active"`
	CurrentTokens int       `json:"current_tokens"`
	CurrentCost   float64   `json:"current_cost"`
	LastActivity  time.Time `json:"last_activity"`
	StatusGlyph   string    `json:"status_glyph"`
}

// BurnRateIndicator bands the current consumption velocity
type BurnRateIndicator string

const (
	BurnRateNormal   BurnRateIndicator = "NORMAL"
	BurnRateModerate BurnRateIndicator = "MODERATE"
	BurnRateHigh     BurnRateIndicator = "HIGH"
)

// BurnRate represents consumption velocity within the current window
type BurnRate struct {
	TokensPerMinute float64           `json:"tokens_per_minute"`
	CostPerHour     float64           `json:"cost_per_hour"`
	Indicator       BurnRateIndicator `json:"indicator"`
}

// ConflictSeverity grades a preferred-hour collision by how many members
// claim the slot
type ConflictSeverity string

const (
	ConflictLow    ConflictSeverity = "low"
	ConflictMedium ConflictSeverity = "medium"
	ConflictHigh   ConflictSeverity = "high"
)

// Rank orders severities for sorting, higher is more severe
func (s ConflictSeverity) Rank() int {
	switch s {
	case ConflictHigh:
		return 3
	case ConflictMedium:
		return 2
	case ConflictLow:
		return 1
	}
	return 0
}

// ScheduleConflict reports an hour-of-day slot claimed by two or more
// members
type ScheduleConflict struct {
	Hour        int              `json:"hour"`
	MemberNames []string         `json:"member_names"`
	Severity    ConflictSeverity `json:"severity"`
}

// AdvisoryKind identifies the advisory category
type AdvisoryKind string

const (
	AdvisoryBurnRate      AdvisoryKind = "burn_rate"
	AdvisoryCoordination  AdvisoryKind = "coordination"
	AdvisoryDominantUsage AdvisoryKind = "dominant_usage"
	AdvisoryConflict      AdvisoryKind = "schedule_conflict"
	AdvisoryWindowEnding  AdvisoryKind = "window_ending"
	AdvisoryThreshold     AdvisoryKind = "threshold"
)

// Advisory is a short human-readable hint derived from aggregated
// statistics
type Advisory struct {
	Kind    AdvisoryKind `json:"kind"`
	Message string       `json:"message"`
}

// GroupStatistics is the immutable snapshot produced by one aggregation
// pass. Display layers consume it whole so a tick never shows a partially
// updated mix.
type GroupStatistics struct {
	GroupID       string             `json:"group_id"`
	GeneratedAt   time.Time          `json:"generated_at"`
	CurrentWindow *Window            `json:"current_window,omitempty"`
	Members       []MemberStatistics `json:"members"`
	TotalTokens   int                `json:"total_tokens"`
	TotalCost     float64            `json:"total_cost"`
	ActiveCount   int                `json:"active_count"`
	BurnRate      *BurnRate          `json:"burn_rate,omitempty"`
	Conflicts     []ScheduleConflict `json:"conflicts"`
	Advisories    []Advisory         `json:"advisories"`
}

// ModelPricing defines token pricing per million tokens
type ModelPricing struct {
	Input         float64 `json:"input"`
	Output        float64 `json:"output"`
	CacheCreation float64 `json:"cache_creation"`
	CacheRead     float64 `json:"cache_read"`
}

// PricingMethod selects how the effective token limit is derived
type PricingMethod string

const (
	PricingFixed   PricingMethod = "fixed"
	PricingDynamic PricingMethod = "dynamic"
)

// ResolvedConfig holds the effective thresholds used by the aggregation
// engine after the fallback chain has run
type ResolvedConfig struct {
	PricingMethod    PricingMethod `json:"pricing_method"`
	TokenLimit       int           `json:"token_limit"`
	BurnRateHigh     float64       `json:"burn_rate_high"`
	BurnRateModerate float64       `json:"burn_rate_moderate"`
	WarnThreshold    float64       `json:"warn_threshold"`
}
