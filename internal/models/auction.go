package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AuctionStatusPending   = "pending"
	AuctionStatusActive    = "active"
	AuctionStatusEnded     = "ended"
	AuctionStatusCancelled = "cancelled"
)

// Auction is the bidding window for one product. Status and EndTime are the
// only fields mutated after creation, and only by the arbiter.
type Auction struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"type:varchar(200);not null"`
	ProductID uint64 `gorm:"not null;index"`

	PriceStep decimal.Decimal `gorm:"type:numeric(20,2);not null"`

	StartTime time.Time `gorm:"type:timestamptz;not null;index"`
	EndTime   time.Time `gorm:"type:timestamptz;not null;index"`

	Status   string  `gorm:"type:varchar(20);not null;default:'pending';index"`
	WinnerID *uint64 `gorm:"index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Auction) TableName() string {
	return "auctions"
}
