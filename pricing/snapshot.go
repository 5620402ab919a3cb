package pricing

import (
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgraph-io/badger/v3"
	"github.com/penwyp/claudeteam/models"
)

const (
	snapshotKeyPricing   = "pricing_snapshot"
	snapshotKeyThreshold = "threshold_snapshot"
)

// PricingSnapshot is the last-known-good pricing table persisted for
// offline fallback
type PricingSnapshot struct {
	Source    string                         `json:"source"`
	UpdatedAt time.Time                      `json:"updated_at"`
	Pricing   map[string]models.ModelPricing `json:"pricing"`
}

// ThresholdSnapshot is the last successfully derived token threshold
type ThresholdSnapshot struct {
	Tokens    int       `json:"tokens"`
	Model     string    `json:"model"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SnapshotStore persists pricing data across restarts so the resolver has
// an offline fallback before its first successful oracle fetch.
type SnapshotStore struct {
	db *badger.DB
}

// OpenSnapshotStore opens (creating if needed) the snapshot database at
// the given directory
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithValueLogFileSize(16 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

// Close releases the underlying database
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// SavePricing persists the pricing table
func (s *SnapshotStore) SavePricing(source string, pricing map[string]models.ModelPricing) error {
	snapshot := PricingSnapshot{
		Source:    source,
		UpdatedAt: time.Now(),
		Pricing:   pricing,
	}
	return s.save(snapshotKeyPricing, snapshot)
}

// LoadPricing returns the persisted pricing table, or an error when none
// has been saved yet
func (s *SnapshotStore) LoadPricing() (*PricingSnapshot, error) {
	var snapshot PricingSnapshot
	if err := s.load(snapshotKeyPricing, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// SaveThreshold persists a successfully derived threshold
func (s *SnapshotStore) SaveThreshold(tokens int, model string) error {
	snapshot := ThresholdSnapshot{
		Tokens:    tokens,
		Model:     model,
		UpdatedAt: time.Now(),
	}
	return s.save(snapshotKeyThreshold, snapshot)
}

// LoadThreshold returns the persisted threshold
func (s *SnapshotStore) LoadThreshold() (*ThresholdSnapshot, error) {
	var snapshot ThresholdSnapshot
	if err := s.load(snapshotKeyThreshold, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *SnapshotStore) save(key string, value interface{}) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) load(key string, target interface{}) error {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return fmt.Errorf("no snapshot available for %s", key)
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	if err := sonic.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return nil
}
