package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/penwyp/claudeteam/models"
	"github.com/penwyp/claudeteam/pricing"

	_ "modernc.org/sqlite"
)

const joinCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const timeFormat = time.RFC3339Nano

// SQLiteClient implements Client against a SQLite database. The database
// file can live on shared/network-attached storage; every statement goes
// through database/sql so swapping in a server-backed driver is a matter
// of changing the DSN.
type SQLiteClient struct {
	db   *sql.DB
	path string
}

// NewSQLiteClient opens (creating if needed) the store database and
// initializes the schema.
func NewSQLiteClient(path string) (*SQLiteClient, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	client := &SQLiteClient{db: db, path: path}

	if err := client.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure store: %w", err)
	}
	if err := client.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return client, nil
}

// Close releases the database connection
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

func (c *SQLiteClient) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := c.db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (c *SQLiteClient) createSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			join_code TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			settings_json TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS members (
			id TEXT PRIMARY KEY,
			group_id TEXT NOT NULL REFERENCES groups(id),
			display_name TEXT NOT NULL,
			external_id TEXT NOT NULL,
			joined_at TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			settings_json TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_members_group ON members(group_id)`,
		`CREATE TABLE IF NOT EXISTS usage_windows (
			id TEXT PRIMARY KEY,
			group_id TEXT NOT NULL,
			actor_external_id TEXT NOT NULL,
			window_id TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 0,
			token_counts_json TEXT NOT NULL DEFAULT '{}',
			cost_amount REAL NOT NULL DEFAULT 0,
			models_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(group_id, actor_external_id, window_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_windows_group ON usage_windows(group_id)`,
		`CREATE TABLE IF NOT EXISTS group_live_status (
			group_id TEXT PRIMARY KEY,
			active_window_id TEXT,
			active_members_json TEXT NOT NULL DEFAULT '[]',
			total_tokens INTEGER NOT NULL DEFAULT 0,
			total_cost REAL NOT NULL DEFAULT 0,
			burn_rate_json TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS system_config (
			key TEXT NOT NULL UNIQUE,
			value_json TEXT NOT NULL,
			description TEXT
		)`,
	}

	for _, stmt := range schema {
		if _, err := c.db.ExecContext(context.Background(), stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// generateJoinCode produces a short uppercase code for joining a group
func generateJoinCode() (string, error) {
	code := make([]byte, models.JoinCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(joinCodeCharset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate join code: %w", err)
		}
		code[i] = joinCodeCharset[n.Int64()]
	}
	return string(code), nil
}

// CreateGroup inserts a new group with a fresh join code
func (c *SQLiteClient) CreateGroup(ctx context.Context, name string, settings models.GroupSettings) (models.Group, error) {
	joinCode, err := generateJoinCode()
	if err != nil {
		return models.Group{}, err
	}

	settingsJSON, err := sonic.MarshalString(settings)
	if err != nil {
		return models.Group{}, fmt.Errorf("failed to marshal group settings: %w", err)
	}

	group := models.Group{
		ID:        uuid.NewString(),
		Name:      name,
		JoinCode:  joinCode,
		CreatedAt: time.Now().UTC(),
		Settings:  settings,
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, join_code, created_at, settings_json) VALUES (?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.JoinCode, group.CreatedAt.Format(timeFormat), settingsJSON,
	)
	if err != nil {
		return models.Group{}, fmt.Errorf("failed to insert group: %w", err)
	}

	return group, nil
}

// GetGroup fetches one group by ID
func (c *SQLiteClient) GetGroup(ctx context.Context, groupID string) (models.Group, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, name, join_code, created_at, settings_json FROM groups WHERE id = ?`, groupID)
	return scanGroup(row)
}

// GetGroupByJoinCode fetches one group by its join code
func (c *SQLiteClient) GetGroupByJoinCode(ctx context.Context, joinCode string) (models.Group, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, name, join_code, created_at, settings_json FROM groups WHERE join_code = ?`, joinCode)
	return scanGroup(row)
}

func scanGroup(row *sql.Row) (models.Group, error) {
	var group models.Group
	var createdAt, settingsJSON string

	if err := row.Scan(&group.ID, &group.Name, &group.JoinCode, &createdAt, &settingsJSON); err != nil {
		if err == sql.ErrNoRows {
			return models.Group{}, fmt.Errorf("group not found")
		}
		return models.Group{}, fmt.Errorf("failed to scan group: %w", err)
	}

	var err error
	group.CreatedAt, err = time.Parse(timeFormat, createdAt)
	if err != nil {
		return models.Group{}, fmt.Errorf("failed to parse group timestamp: %w", err)
	}
	if err := sonic.UnmarshalString(settingsJSON, &group.Settings); err != nil {
		return models.Group{}, fmt.Errorf("failed to unmarshal group settings: %w", err)
	}

	return group, nil
}

// JoinGroup adds a member to a group
func (c *SQLiteClient) JoinGroup(ctx context.Context, groupID, displayName, externalID string) (models.Member, error) {
	member := models.Member{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		DisplayName: displayName,
		ExternalID:  externalID,
		JoinedAt:    time.Now().UTC(),
		IsActive:    true,
	}

	settingsJSON, err := sonic.MarshalString(member.Settings)
	if err != nil {
		return models.Member{}, fmt.Errorf("failed to marshal member settings: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO members (id, group_id, display_name, external_id, joined_at, is_active, settings_json)
		 VALUES (?, ?, ?, ?, ?, 1, ?)`,
		member.ID, member.GroupID, member.DisplayName, member.ExternalID,
		member.JoinedAt.Format(timeFormat), settingsJSON,
	)
	if err != nil {
		return models.Member{}, fmt.Errorf("failed to insert member: %w", err)
	}

	return member, nil
}

// LeaveGroup marks a member inactive; rows are kept for history
func (c *SQLiteClient) LeaveGroup(ctx context.Context, memberID string) error {
	result, err := c.db.ExecContext(ctx,
		`UPDATE members SET is_active = 0 WHERE id = ?`, memberID)
	if err != nil {
		return fmt.Errorf("failed to deactivate member: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("member not found: %s", memberID)
	}
	return nil
}

// ListMembers returns all members of a group, active and inactive
func (c *SQLiteClient) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, group_id, display_name, external_id, joined_at, is_active, settings_json
		 FROM members WHERE group_id = ? ORDER BY joined_at`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var members []models.Member
	for rows.Next() {
		var member models.Member
		var joinedAt, settingsJSON string
		var isActive int

		if err := rows.Scan(&member.ID, &member.GroupID, &member.DisplayName,
			&member.ExternalID, &joinedAt, &isActive, &settingsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}

		member.JoinedAt, err = time.Parse(timeFormat, joinedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse member timestamp: %w", err)
		}
		member.IsActive = isActive != 0
		if err := sonic.UnmarshalString(settingsJSON, &member.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal member settings: %w", err)
		}

		members = append(members, member)
	}

	return members, rows.Err()
}

// UpdateMemberSettings replaces a member's settings JSON
func (c *SQLiteClient) UpdateMemberSettings(ctx context.Context, memberID string, settings models.MemberSettings) error {
	settingsJSON, err := sonic.MarshalString(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal member settings: %w", err)
	}

	result, err := c.db.ExecContext(ctx,
		`UPDATE members SET settings_json = ? WHERE id = ?`, settingsJSON, memberID)
	if err != nil {
		return fmt.Errorf("failed to update member settings: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("member not found: %s", memberID)
	}
	return nil
}

// UpsertUsageWindow inserts or updates one synced window. The unique key
// (group, actor, window) makes repeated syncs idempotent.
func (c *SQLiteClient) UpsertUsageWindow(ctx context.Context, window models.PeerWindow) error {
	tokenJSON, err := sonic.MarshalString(window.TokenCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal token counts: %w", err)
	}
	modelsJSON, err := sonic.MarshalString(window.Models)
	if err != nil {
		return fmt.Errorf("failed to marshal models: %w", err)
	}

	now := time.Now().UTC()
	isActive := 0
	if window.IsActive {
		isActive = 1
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO usage_windows (
			id, group_id, actor_external_id, window_id, start_time, end_time,
			is_active, token_counts_json, cost_amount, models_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id, actor_external_id, window_id) DO UPDATE SET
			end_time = excluded.end_time,
			is_active = excluded.is_active,
			token_counts_json = excluded.token_counts_json,
			cost_amount = excluded.cost_amount,
			models_json = excluded.models_json,
			updated_at = excluded.updated_at`,
		uuid.NewString(), window.GroupID, window.ActorID, window.ID,
		window.StartTime.UTC().Format(timeFormat), window.EndTime.UTC().Format(timeFormat),
		isActive, tokenJSON, window.CostUSD, modelsJSON,
		now.Format(timeFormat), now.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert usage window: %w", err)
	}
	return nil
}

// ListUsageWindows returns all synced windows for a group
func (c *SQLiteClient) ListUsageWindows(ctx context.Context, groupID string) ([]models.PeerWindow, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT group_id, actor_external_id, window_id, start_time, end_time,
			is_active, token_counts_json, cost_amount, models_json, updated_at
		 FROM usage_windows WHERE group_id = ? ORDER BY start_time DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage windows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var windows []models.PeerWindow
	for rows.Next() {
		var w models.PeerWindow
		var startTime, endTime, tokenJSON, modelsJSON, updatedAt string
		var isActive int

		if err := rows.Scan(&w.GroupID, &w.ActorID, &w.ID, &startTime, &endTime,
			&isActive, &tokenJSON, &w.CostUSD, &modelsJSON, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage window: %w", err)
		}

		if w.StartTime, err = time.Parse(timeFormat, startTime); err != nil {
			return nil, fmt.Errorf("failed to parse window start: %w", err)
		}
		if w.EndTime, err = time.Parse(timeFormat, endTime); err != nil {
			return nil, fmt.Errorf("failed to parse window end: %w", err)
		}
		if w.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse window updated_at: %w", err)
		}
		w.IsActive = isActive != 0
		if err := sonic.UnmarshalString(tokenJSON, &w.TokenCounts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal token counts: %w", err)
		}
		if err := sonic.UnmarshalString(modelsJSON, &w.Models); err != nil {
			return nil, fmt.Errorf("failed to unmarshal models: %w", err)
		}

		windows = append(windows, w)
	}

	return windows, rows.Err()
}

// UpdateLiveStatus upserts the denormalized live-status projection
func (c *SQLiteClient) UpdateLiveStatus(ctx context.Context, status LiveStatus) error {
	membersJSON, err := sonic.MarshalString(status.ActiveMembers)
	if err != nil {
		return fmt.Errorf("failed to marshal active members: %w", err)
	}

	var burnRateJSON sql.NullString
	if status.BurnRate != nil {
		encoded, err := sonic.MarshalString(status.BurnRate)
		if err != nil {
			return fmt.Errorf("failed to marshal burn rate: %w", err)
		}
		burnRateJSON = sql.NullString{String: encoded, Valid: true}
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO group_live_status (
			group_id, active_window_id, active_members_json, total_tokens,
			total_cost, burn_rate_json, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET
			active_window_id = excluded.active_window_id,
			active_members_json = excluded.active_members_json,
			total_tokens = excluded.total_tokens,
			total_cost = excluded.total_cost,
			burn_rate_json = excluded.burn_rate_json,
			updated_at = excluded.updated_at`,
		status.GroupID, status.ActiveWindowID, membersJSON, status.TotalTokens,
		status.TotalCost, burnRateJSON, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to update live status: %w", err)
	}
	return nil
}

// GetLiveStatus fetches the live-status projection for a group
func (c *SQLiteClient) GetLiveStatus(ctx context.Context, groupID string) (LiveStatus, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT group_id, active_window_id, active_members_json, total_tokens,
			total_cost, burn_rate_json, updated_at
		 FROM group_live_status WHERE group_id = ?`, groupID)

	var status LiveStatus
	var membersJSON, updatedAt string
	var activeWindowID, burnRateJSON sql.NullString

	if err := row.Scan(&status.GroupID, &activeWindowID, &membersJSON,
		&status.TotalTokens, &status.TotalCost, &burnRateJSON, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return LiveStatus{}, fmt.Errorf("live status not found")
		}
		return LiveStatus{}, fmt.Errorf("failed to scan live status: %w", err)
	}

	status.ActiveWindowID = activeWindowID.String
	if err := sonic.UnmarshalString(membersJSON, &status.ActiveMembers); err != nil {
		return LiveStatus{}, fmt.Errorf("failed to unmarshal active members: %w", err)
	}
	if burnRateJSON.Valid {
		var rate models.BurnRate
		if err := sonic.UnmarshalString(burnRateJSON.String, &rate); err != nil {
			return LiveStatus{}, fmt.Errorf("failed to unmarshal burn rate: %w", err)
		}
		status.BurnRate = &rate
	}

	var err error
	if status.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return LiveStatus{}, fmt.Errorf("failed to parse live status timestamp: %w", err)
	}

	return status, nil
}

// GetSystemConfig returns the raw JSON value for a config key
func (c *SQLiteClient) GetSystemConfig(ctx context.Context, key string) (string, error) {
	var valueJSON string
	err := c.db.QueryRowContext(ctx,
		`SELECT value_json FROM system_config WHERE key = ?`, key).Scan(&valueJSON)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("config key not found: %s", key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query system config: %w", err)
	}
	return valueJSON, nil
}

// SetSystemConfig upserts a config key
func (c *SQLiteClient) SetSystemConfig(ctx context.Context, key, valueJSON, description string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO system_config (key, value_json, description) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, description = excluded.description`,
		key, valueJSON, description)
	if err != nil {
		return fmt.Errorf("failed to set system config: %w", err)
	}
	return nil
}

// PricingConfigKey is the system_config key holding the resolver settings
const PricingConfigKey = "pricing_config"

// PricingSettings reads the resolver's remote settings from system_config,
// satisfying pricing.SettingsSource.
func (c *SQLiteClient) PricingSettings(ctx context.Context) (pricing.Settings, error) {
	valueJSON, err := c.GetSystemConfig(ctx, PricingConfigKey)
	if err != nil {
		return pricing.Settings{}, err
	}

	var settings pricing.Settings
	if err := sonic.UnmarshalString(valueJSON, &settings); err != nil {
		return pricing.Settings{}, fmt.Errorf("failed to unmarshal pricing settings: %w", err)
	}
	return settings, nil
}
