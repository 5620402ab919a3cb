package cache

import (
	"testing"
	"time"

	"github.com/penwyp/claudeteam/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestStore(clock *fakeClock) *TieredStore {
	return NewTieredStoreWithOptions(5*time.Minute, 30*time.Second, 2*time.Hour, clock.Now)
}

func testMetadata(groupID string) GroupMetadata {
	return GroupMetadata{
		Group: models.Group{ID: groupID, Name: "team"},
		Members: []models.Member{
			{ID: "m1", GroupID: groupID, DisplayName: "Alice", ExternalID: "alice"},
		},
	}
}

func TestGroupMetadataTTL(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newTestStore(clock)

	store.SetGroup("g1", testMetadata("g1"))

	meta, ok := store.GetGroup("g1")
	require.True(t, ok)
	assert.Equal(t, "g1", meta.Group.ID)

	// One instant before expiry the entry is still served
	clock.Advance(5*time.Minute - time.Millisecond)
	_, ok = store.GetGroup("g1")
	assert.True(t, ok)

	// At exactly the TTL it is not
	clock.Advance(time.Millisecond)
	_, ok = store.GetGroup("g1")
	assert.False(t, ok)
}

func TestPeerWindowsTTL(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newTestStore(clock)

	windows := []models.PeerWindow{{GroupID: "g1", ActorID: "bob"}}
	store.SetPeerWindows("g1", "alice", windows)

	got, ok := store.GetPeerWindows("g1", "alice")
	require.True(t, ok)
	assert.Len(t, got, 1)

	// Keyed per requesting actor
	_, ok = store.GetPeerWindows("g1", "bob")
	assert.False(t, ok)

	clock.Advance(30 * time.Second)
	_, ok = store.GetPeerWindows("g1", "alice")
	assert.False(t, ok)
}

func TestThresholdTTL(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newTestStore(clock)

	_, ok := store.GetThreshold()
	assert.False(t, ok)

	store.SetThreshold(15_555_556)

	tokens, ok := store.GetThreshold()
	require.True(t, ok)
	assert.Equal(t, 15_555_556, tokens)

	clock.Advance(2*time.Hour - time.Millisecond)
	_, ok = store.GetThreshold()
	assert.True(t, ok)

	clock.Advance(time.Millisecond)
	_, ok = store.GetThreshold()
	assert.False(t, ok)
}

func TestInvalidateGroupScoped(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newTestStore(clock)

	store.SetGroup("g1", testMetadata("g1"))
	store.SetGroup("g2", testMetadata("g2"))
	store.SetPeerWindows("g1", "alice", nil)
	store.SetPeerWindows("g1", "bob", nil)
	store.SetPeerWindows("g2", "alice", nil)
	store.SetThreshold(1000)

	// actorID narrows the peer eviction
	store.InvalidateGroup("g1", "alice")
	_, ok := store.GetPeerWindows("g1", "alice")
	assert.False(t, ok)
	_, ok = store.GetPeerWindows("g1", "bob")
	assert.True(t, ok)

	// Empty actorID evicts all of the group's peer entries, other groups
	// and the threshold untouched
	store.SetPeerWindows("g1", "alice", nil)
	store.InvalidateGroup("g1", "")
	_, ok = store.GetPeerWindows("g1", "alice")
	assert.False(t, ok)
	_, ok = store.GetPeerWindows("g1", "bob")
	assert.False(t, ok)
	_, ok = store.GetPeerWindows("g2", "alice")
	assert.True(t, ok)
	_, ok = store.GetGroup("g2")
	assert.True(t, ok)
	_, ok = store.GetThreshold()
	assert.True(t, ok)
}

func TestClear(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newTestStore(clock)

	store.SetGroup("g1", testMetadata("g1"))
	store.SetPeerWindows("g1", "alice", nil)
	store.SetThreshold(1000)

	store.Clear()

	_, ok := store.GetGroup("g1")
	assert.False(t, ok)
	_, ok = store.GetPeerWindows("g1", "alice")
	assert.False(t, ok)
	_, ok = store.GetThreshold()
	assert.False(t, ok)
}

func TestSweepDropsExpired(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newTestStore(clock)

	store.SetPeerWindows("g1", "alice", nil)
	store.SetGroup("g1", testMetadata("g1"))

	clock.Advance(10 * time.Minute)

	// Any read sweeps all caches
	_, ok := store.GetGroup("other")
	assert.False(t, ok)

	stats := store.Stats()
	assert.Equal(t, 0, stats["groups"])
	assert.Equal(t, 0, stats["peers"])
}
