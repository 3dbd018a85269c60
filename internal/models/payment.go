package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentKindDeposit = "deposit"
	PaymentKindFinal   = "final"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment moves pending -> completed only through a successful token
// redemption. Completed deposits may later move to refunded on unregistration.
type Payment struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	AuctionID uint64 `gorm:"not null;index:idx_payments_auction_account"`
	AccountID uint64 `gorm:"not null;index:idx_payments_auction_account"`

	Kind   string          `gorm:"type:varchar(20);not null;index"`
	Amount decimal.Decimal `gorm:"type:numeric(20,2);not null"`

	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index"`
	CompletedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}
