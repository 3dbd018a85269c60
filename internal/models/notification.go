package models

import (
	"time"

	"gorm.io/datatypes"
)

type Notification struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement"`
	AccountID uint64  `gorm:"not null;index:idx_notifications_account_read"`
	AuctionID *uint64 `gorm:"index"`

	Type    string `gorm:"type:varchar(50);not null;index"`
	Title   string `gorm:"type:varchar(200);not null"`
	Message string `gorm:"type:text"`

	Payload datatypes.JSON `gorm:"type:jsonb"`

	Read   bool       `gorm:"not null;default:false;index:idx_notifications_account_read"`
	ReadAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Notification) TableName() string {
	return "notifications"
}
