package db

import (
	"github.com/Criezzz/auctionBackend/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Product{},
		&models.Auction{},
		&models.Bid{},
		&models.Payment{},
		&models.PaymentToken{},
		&models.Notification{},
	)
}
