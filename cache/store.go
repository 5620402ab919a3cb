package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/penwyp/claudeteam/models"
)

// Entry wraps a cached value with its creation and expiry timestamps
type Entry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the entry is still usable at the given instant.
// An entry expiring exactly now is invalid.
func (e Entry[T]) Valid(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// GroupMetadata bundles a group record with its member list, cached as one
// unit because the two are always fetched together.
type GroupMetadata struct {
	Group   models.Group    `json:"group"`
	Members []models.Member `json:"members"`
}

// TieredStore holds the three independently-TTL'd caches: group metadata
// (changes rarely, long TTL), peer windows (matches the peer sync cadence),
// and the price-derived threshold (expensive lookup, longest TTL).
//
// TieredStore instances are owned by the service that uses them and passed
// explicitly; there is no package-level instance.
type TieredStore struct {
	mu  sync.Mutex
	now func() time.Time

	groupTTL     time.Duration
	peerTTL      time.Duration
	thresholdTTL time.Duration

	groups    map[string]Entry[GroupMetadata]
	peers     map[string]Entry[[]models.PeerWindow]
	threshold *Entry[int]
}

// NewTieredStore creates a store with the default TTLs
func NewTieredStore() *TieredStore {
	return NewTieredStoreWithOptions(models.GroupMetadataTTL, models.PeerWindowTTL, models.ThresholdTTL, time.Now)
}

// NewTieredStoreWithOptions creates a store with custom TTLs and clock
func NewTieredStoreWithOptions(groupTTL, peerTTL, thresholdTTL time.Duration, now func() time.Time) *TieredStore {
	if now == nil {
		now = time.Now
	}
	return &TieredStore{
		now:          now,
		groupTTL:     groupTTL,
		peerTTL:      peerTTL,
		thresholdTTL: thresholdTTL,
		groups:       make(map[string]Entry[GroupMetadata]),
		peers:        make(map[string]Entry[[]models.PeerWindow]),
	}
}

func peerKey(groupID, actorID string) string {
	return groupID + "/" + actorID
}

// GetGroup returns cached group metadata, or ok=false on miss or expiry
func (s *TieredStore) GetGroup(groupID string) (GroupMetadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	entry, ok := s.groups[groupID]
	if !ok || !entry.Valid(s.now()) {
		return GroupMetadata{}, false
	}
	return entry.Data, true
}

// SetGroup caches group metadata for the group-metadata TTL
func (s *TieredStore) SetGroup(groupID string, meta GroupMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.groups[groupID] = Entry[GroupMetadata]{
		Data:      meta,
		CreatedAt: now,
		ExpiresAt: now.Add(s.groupTTL),
	}
}

// GetPeerWindows returns cached peer windows for one (group, actor) pair
func (s *TieredStore) GetPeerWindows(groupID, actorID string) ([]models.PeerWindow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	entry, ok := s.peers[peerKey(groupID, actorID)]
	if !ok || !entry.Valid(s.now()) {
		return nil, false
	}
	return entry.Data, true
}

// SetPeerWindows caches peer windows for the peer-window TTL
func (s *TieredStore) SetPeerWindows(groupID, actorID string, windows []models.PeerWindow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.peers[peerKey(groupID, actorID)] = Entry[[]models.PeerWindow]{
		Data:      windows,
		CreatedAt: now,
		ExpiresAt: now.Add(s.peerTTL),
	}
}

// GetThreshold returns the cached price-derived token threshold
func (s *TieredStore) GetThreshold() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.threshold == nil || !s.threshold.Valid(s.now()) {
		s.threshold = nil
		return 0, false
	}
	return s.threshold.Data, true
}

// SetThreshold caches a successfully computed threshold for the threshold
// TTL. Failed lookups are never cached; callers simply skip this call.
func (s *TieredStore) SetThreshold(tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.threshold = &Entry[int]{
		Data:      tokens,
		CreatedAt: now,
		ExpiresAt: now.Add(s.thresholdTTL),
	}
}

// InvalidateGroup evicts one group's metadata and peer-window entries,
// leaving unrelated keys and the threshold untouched. actorID narrows the
// peer eviction to one actor; empty evicts all of the group's peer keys.
func (s *TieredStore) InvalidateGroup(groupID, actorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.groups, groupID)

	if actorID != "" {
		delete(s.peers, peerKey(groupID, actorID))
		return
	}
	prefix := groupID + "/"
	for key := range s.peers {
		if strings.HasPrefix(key, prefix) {
			delete(s.peers, key)
		}
	}
}

// Clear drops every entry in all three caches
func (s *TieredStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups = make(map[string]Entry[GroupMetadata])
	s.peers = make(map[string]Entry[[]models.PeerWindow])
	s.threshold = nil
}

// Stats reports entry counts per cache kind
func (s *TieredStore) Stats() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	thresholdCount := 0
	if s.threshold != nil && s.threshold.Valid(s.now()) {
		thresholdCount = 1
	}
	return map[string]int{
		"groups":    len(s.groups),
		"peers":     len(s.peers),
		"threshold": thresholdCount,
	}
}

// sweepLocked drops expired entries to bound memory. Caller holds the
// lock.
func (s *TieredStore) sweepLocked() {
	now := s.now()
	for key, entry := range s.groups {
		if !entry.Valid(now) {
			delete(s.groups, key)
		}
	}
	for key, entry := range s.peers {
		if !entry.Valid(now) {
			delete(s.peers, key)
		}
	}
	if s.threshold != nil && !s.threshold.Valid(now) {
		s.threshold = nil
	}
}
