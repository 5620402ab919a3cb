package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/penwyp/claudeteam/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *SQLiteClient {
	t.Helper()
	client, err := NewSQLiteClient(filepath.Join(t.TempDir(), "pool.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGroupLifecycle(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	group, err := client.CreateGroup(ctx, "backend-team", models.GroupSettings{
		WindowDurationHours:  5,
		ExcludeSelfFromPeers: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, group.ID)
	assert.Len(t, group.JoinCode, models.JoinCodeLength)

	fetched, err := client.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, group.Name, fetched.Name)
	assert.Equal(t, group.JoinCode, fetched.JoinCode)
	assert.True(t, fetched.Settings.ExcludeSelfFromPeers)

	byCode, err := client.GetGroupByJoinCode(ctx, group.JoinCode)
	require.NoError(t, err)
	assert.Equal(t, group.ID, byCode.ID)

	_, err = client.GetGroup(ctx, "nonexistent")
	assert.Error(t, err)
}

func TestMemberLifecycle(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	group, err := client.CreateGroup(ctx, "team", models.GroupSettings{})
	require.NoError(t, err)

	alice, err := client.JoinGroup(ctx, group.ID, "Alice", "alice-ext")
	require.NoError(t, err)
	_, err = client.JoinGroup(ctx, group.ID, "Bob", "bob-ext")
	require.NoError(t, err)

	members, err := client.ListMembers(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.True(t, members[0].IsActive)

	err = client.UpdateMemberSettings(ctx, alice.ID, models.MemberSettings{
		Timezone:       "Europe/Berlin",
		PreferredHours: []int{9, 10, 11},
	})
	require.NoError(t, err)

	members, err = client.ListMembers(ctx, group.ID)
	require.NoError(t, err)
	for _, m := range members {
		if m.ID == alice.ID {
			assert.Equal(t, "Europe/Berlin", m.Settings.Timezone)
			assert.Equal(t, []int{9, 10, 11}, m.Settings.PreferredHours)
		}
	}

	require.NoError(t, client.LeaveGroup(ctx, alice.ID))
	members, err = client.ListMembers(ctx, group.ID)
	require.NoError(t, err)
	for _, m := range members {
		if m.ID == alice.ID {
			assert.False(t, m.IsActive)
		}
	}

	assert.Error(t, client.LeaveGroup(ctx, "nonexistent"))
	assert.Error(t, client.UpdateMemberSettings(ctx, "nonexistent", models.MemberSettings{}))
}

func TestUsageWindowUpsertIdempotent(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	window := models.PeerWindow{
		Window: models.Window{
			ID:          models.WindowID(start),
			StartTime:   start,
			EndTime:     start.Add(5 * time.Hour),
			TokenCounts: models.TokenCounts{InputTokens: 100, OutputTokens: 50},
			CostUSD:     0.5,
			Models:      []string{"claude-sonnet-4-20250514"},
		},
		GroupID:  "g1",
		ActorID:  "alice",
		IsActive: true,
	}

	require.NoError(t, client.UpsertUsageWindow(ctx, window))

	// Same (group, actor, window) syncs again with updated figures
	window.TokenCounts.InputTokens = 500
	window.IsActive = false
	require.NoError(t, client.UpsertUsageWindow(ctx, window))

	windows, err := client.ListUsageWindows(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, windows, 1)

	got := windows[0]
	assert.Equal(t, window.ID, got.ID)
	assert.Equal(t, 500, got.TokenCounts.InputTokens)
	assert.False(t, got.IsActive)
	assert.Equal(t, []string{"claude-sonnet-4-20250514"}, got.Models)
	assert.True(t, got.StartTime.Equal(start))

	// A different actor's row is a separate entry
	window.ActorID = "bob"
	require.NoError(t, client.UpsertUsageWindow(ctx, window))
	windows, err = client.ListUsageWindows(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, windows, 2)
}

func TestLiveStatusRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.GetLiveStatus(ctx, "g1")
	assert.Error(t, err)

	status := LiveStatus{
		GroupID:        "g1",
		ActiveWindowID: "window_20250601-100000",
		ActiveMembers:  []string{"m1", "m2"},
		TotalTokens:    150_000,
		TotalCost:      15.5,
		BurnRate: &models.BurnRate{
			TokensPerMinute: 420,
			Indicator:       models.BurnRateNormal,
		},
	}
	require.NoError(t, client.UpdateLiveStatus(ctx, status))

	got, err := client.GetLiveStatus(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, status.ActiveWindowID, got.ActiveWindowID)
	assert.Equal(t, status.ActiveMembers, got.ActiveMembers)
	assert.Equal(t, 150_000, got.TotalTokens)
	require.NotNil(t, got.BurnRate)
	assert.Equal(t, models.BurnRateNormal, got.BurnRate.Indicator)

	// Upsert replaces the single projection row
	status.TotalTokens = 200_000
	status.BurnRate = nil
	require.NoError(t, client.UpdateLiveStatus(ctx, status))

	got, err = client.GetLiveStatus(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 200_000, got.TotalTokens)
	assert.Nil(t, got.BurnRate)
}

func TestSystemConfigAndPricingSettings(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.GetSystemConfig(ctx, PricingConfigKey)
	assert.Error(t, err)

	_, err = client.PricingSettings(ctx)
	assert.Error(t, err)

	value := `{"method":"fixed","fixed_token_limit":5000000,"warn_threshold":0.9}`
	require.NoError(t, client.SetSystemConfig(ctx, PricingConfigKey, value, "pool limits"))

	raw, err := client.GetSystemConfig(ctx, PricingConfigKey)
	require.NoError(t, err)
	assert.Equal(t, value, raw)

	settings, err := client.PricingSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PricingFixed, settings.Method)
	assert.Equal(t, 5_000_000, settings.FixedTokenLimit)
	assert.Equal(t, 0.9, settings.WarnThreshold)

	// Upsert overwrites
	require.NoError(t, client.SetSystemConfig(ctx, PricingConfigKey, `{"method":"dynamic","target_usd":140}`, ""))
	settings, err = client.PricingSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PricingDynamic, settings.Method)
}
