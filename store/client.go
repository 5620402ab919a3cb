package store

import (
	"context"
	"time"

	"github.com/penwyp/claudeteam/models"
)

// LiveStatus is the denormalized per-group projection row, refreshed by
// the sync loop so dashboards can read one row instead of re-aggregating.
type LiveStatus struct {
	GroupID        string           `json:"group_id"`
	ActiveWindowID string           `json:"active_window_id"`
	ActiveMembers  []string         `json:"active_members"`
	TotalTokens    int              `json:"total_tokens"`
	TotalCost      float64          `json:"total_cost"`
	BurnRate       *models.BurnRate `json:"burn_rate,omitempty"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Client is the typed CRUD surface against the remote table store. The
// local window computation never depends on it; everything here is
// best-effort shared state.
type Client interface {
	// Group lifecycle
	CreateGroup(ctx context.Context, name string, settings models.GroupSettings) (models.Group, error)
	GetGroup(ctx context.Context, groupID string) (models.Group, error)
	GetGroupByJoinCode(ctx context.Context, joinCode string) (models.Group, error)

	// Member lifecycle
	JoinGroup(ctx context.Context, groupID, displayName, externalID string) (models.Member, error)
	LeaveGroup(ctx context.Context, memberID string) error
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)
	UpdateMemberSettings(ctx context.Context, memberID string, settings models.MemberSettings) error

	// Usage windows, unique on (group, actor, window), always upserted
	UpsertUsageWindow(ctx context.Context, window models.PeerWindow) error
	ListUsageWindows(ctx context.Context, groupID string) ([]models.PeerWindow, error)

	// Live status projection
	UpdateLiveStatus(ctx context.Context, status LiveStatus) error
	GetLiveStatus(ctx context.Context, groupID string) (LiveStatus, error)

	// System configuration
	GetSystemConfig(ctx context.Context, key string) (string, error)
	SetSystemConfig(ctx context.Context, key, valueJSON, description string) error

	Close() error
}
