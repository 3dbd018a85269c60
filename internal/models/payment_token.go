package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentToken is a single-use credential gating one payment. Used flips
// false -> true exactly once, via the conditional update in the repository;
// no other code path writes Used or UsedAt. Rows are kept for audit.
type PaymentToken struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Token     string `gorm:"type:varchar(80);not null;uniqueIndex"`
	PaymentID uint64 `gorm:"not null;index"`
	AccountID uint64 `gorm:"not null;index"`

	Kind   string          `gorm:"type:varchar(20);not null"`
	Amount decimal.Decimal `gorm:"type:numeric(20,2);not null"`

	ExpiresAt time.Time  `gorm:"type:timestamptz;not null;index"`
	Used      bool       `gorm:"not null;default:false"`
	UsedAt    *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PaymentToken) TableName() string {
	return "payment_tokens"
}
