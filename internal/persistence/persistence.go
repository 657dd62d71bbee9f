// Package persistence stores the three opaque buffers a market's state
// reduces to (bid slab, ask slab, event queue) across process restarts.
// It never interprets their contents — that stays the monopoly of
// internal/slab and internal/eventqueue's own Serialize/Deserialize.
package persistence

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MarketSnapshot is the gorm model backing one market's persisted
// buffers. The three blobs are written together, in one transaction,
// every time a snapshot is taken — a partial write would desynchronize
// the slabs from the event queue's sequence counter.
type MarketSnapshot struct {
	MarketID   string `gorm:"primaryKey"`
	BidSlab    []byte
	AskSlab    []byte
	EventQueue []byte
	UpdatedAt  time.Time
}

func (MarketSnapshot) TableName() string { return "market_snapshots" }

// ErrNotFound is returned by Load when no snapshot exists for a market.
var ErrNotFound = errors.New("persistence: no snapshot for market")

// Store wraps a gorm connection scoped to market snapshots.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to dsn and migrates the snapshot table.
func Open(dsn string, zlog *zap.Logger) (*Store, error) {
	if zlog == nil {
		zlog = zap.NewNop()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&MarketSnapshot{}); err != nil {
		return nil, err
	}
	return &Store{db: db, logger: zlog}, nil
}

// Save upserts market's three buffers in one row.
func (s *Store) Save(ctx context.Context, marketID string, bidSlab, askSlab, eventQueue []byte) error {
	snap := MarketSnapshot{
		MarketID:   marketID,
		BidSlab:    bidSlab,
		AskSlab:    askSlab,
		EventQueue: eventQueue,
		UpdatedAt:  time.Now(),
	}
	err := s.db.WithContext(ctx).Save(&snap).Error
	if err != nil {
		s.logger.Error("saving market snapshot", zap.String("market", marketID), zap.Error(err))
	}
	return err
}

// Load fetches market's persisted buffers, or ErrNotFound if it was
// never snapshotted.
func (s *Store) Load(ctx context.Context, marketID string) (bidSlab, askSlab, eventQueue []byte, err error) {
	var snap MarketSnapshot
	res := s.db.WithContext(ctx).First(&snap, "market_id = ?", marketID)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, nil, nil, ErrNotFound
	}
	if res.Error != nil {
		return nil, nil, nil, res.Error
	}
	return snap.BidSlab, snap.AskSlab, snap.EventQueue, nil
}

// Delete removes a market's snapshot entirely.
func (s *Store) Delete(ctx context.Context, marketID string) error {
	return s.db.WithContext(ctx).Delete(&MarketSnapshot{}, "market_id = ?", marketID).Error
}
