package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BidStatusActive    = "active"
	BidStatusCancelled = "cancelled"
)

// Bid rows are append-only; the cancelled flag is the only post-commit change.
type Bid struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	AuctionID uint64 `gorm:"not null;index:idx_bids_auction_status"`
	AccountID uint64 `gorm:"not null;index"`

	Price decimal.Decimal `gorm:"type:numeric(20,2);not null"`

	Status      string     `gorm:"type:varchar(20);not null;default:'active';index:idx_bids_auction_status"`
	CancelledAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Bid) TableName() string {
	return "bids"
}
