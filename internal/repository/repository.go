package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Criezzz/auctionBackend/internal/models"
)

// Store is the persistence boundary for the auction core. Tx variants run
// inside a transaction opened by InTx so that a bid commit (read highest,
// insert, extend) and a token redemption (CAS, payment transition) each land
// atomically.
type Store interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Products
	CreateProduct(ctx context.Context, item *models.Product) error
	GetProductByID(ctx context.Context, id uint64) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uint64, updates map[string]any) error
	ListProducts(ctx context.Context, params ListProductsParams) ([]models.Product, error)
	CountProducts(ctx context.Context, params ListProductsParams) (int64, error)

	// Auctions
	CreateAuction(ctx context.Context, item *models.Auction) error
	GetAuctionByID(ctx context.Context, id uint64) (*models.Auction, error)
	GetAuctionByIDTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Auction, error)
	ListAuctions(ctx context.Context, params ListAuctionsParams) ([]models.Auction, error)
	CountAuctions(ctx context.Context, params ListAuctionsParams) (int64, error)
	UpdateAuction(ctx context.Context, id uint64, updates map[string]any) error
	UpdateAuctionTx(ctx context.Context, tx *gorm.DB, id uint64, updates map[string]any) error
	DeleteAuction(ctx context.Context, id uint64) error
	ListAuctionsDue(ctx context.Context, params DueAuctionsParams) ([]models.Auction, error)

	// Bids
	InsertBidTx(ctx context.Context, tx *gorm.DB, item *models.Bid) error
	GetBidByID(ctx context.Context, id uint64) (*models.Bid, error)
	HighestActiveBid(ctx context.Context, auctionID uint64) (*models.Bid, error)
	HighestActiveBidTx(ctx context.Context, tx *gorm.DB, auctionID uint64) (*models.Bid, error)
	CancelBidTx(ctx context.Context, tx *gorm.DB, id uint64, at time.Time) (int64, error)
	ListBids(ctx context.Context, params ListBidsParams) ([]models.Bid, error)
	CountBids(ctx context.Context, params ListBidsParams) (int64, error)

	// Payments
	CreatePayment(ctx context.Context, item *models.Payment) error
	CreatePaymentTx(ctx context.Context, tx *gorm.DB, item *models.Payment) error
	GetPaymentByID(ctx context.Context, id uint64) (*models.Payment, error)
	FindPayment(ctx context.Context, auctionID, accountID uint64, kind string) (*models.Payment, error)
	ListPayments(ctx context.Context, params ListPaymentsParams) ([]models.Payment, error)
	CountPayments(ctx context.Context, params ListPaymentsParams) (int64, error)
	HasCompletedDeposit(ctx context.Context, auctionID, accountID uint64) (bool, error)
	CountDepositHolders(ctx context.Context, auctionID uint64) (int64, error)
	// TransitionPaymentStatusTx flips status from -> to and reports whether a
	// row changed; zero rows means the payment was not in the expected state.
	TransitionPaymentStatusTx(ctx context.Context, tx *gorm.DB, id uint64, from, to string, at time.Time) (int64, error)

	// Payment tokens
	InsertPaymentToken(ctx context.Context, item *models.PaymentToken) error
	InsertPaymentTokenTx(ctx context.Context, tx *gorm.DB, item *models.PaymentToken) error
	GetPaymentTokenByValue(ctx context.Context, token string) (*models.PaymentToken, error)
	// RedeemPaymentTokenTx is the single compare-and-set on used=false AND
	// expires_at > now. One row affected means this caller won the redemption.
	RedeemPaymentTokenTx(ctx context.Context, tx *gorm.DB, token string, now time.Time) (int64, error)

	// Notifications
	InsertNotification(ctx context.Context, item *models.Notification) error
	GetNotificationByID(ctx context.Context, id uint64) (*models.Notification, error)
	ListNotifications(ctx context.Context, params ListNotificationsParams) ([]models.Notification, error)
	CountNotifications(ctx context.Context, params ListNotificationsParams) (int64, error)
	CountUnreadNotifications(ctx context.Context, accountID uint64) (int64, error)
	MarkNotificationRead(ctx context.Context, id, accountID uint64, at time.Time) (int64, error)
	MarkAllNotificationsRead(ctx context.Context, accountID uint64, at time.Time) (int64, error)
	DeleteNotification(ctx context.Context, id, accountID uint64) (int64, error)
}

type ListProductsParams struct {
	Limit   int
	Offset  int
	Type    *string
	Name    *string
	OrderBy string
	Asc     *bool
}

type ListAuctionsParams struct {
	Limit        int
	Offset       int
	Status       *string
	ProductID    *uint64
	Name         *string
	MinPriceStep *decimal.Decimal
	MaxPriceStep *decimal.Decimal
	OrderBy      string
	Asc          *bool
}

// DueAuctionsParams selects auctions whose status transition is overdue:
// pending auctions past StartBefore, or active auctions past EndBefore.
type DueAuctionsParams struct {
	Status      string
	StartBefore *time.Time
	EndBefore   *time.Time
	Limit       int
}

type ListBidsParams struct {
	Limit     int
	Offset    int
	AuctionID *uint64
	AccountID *uint64
	Status    *string
	OrderBy   string
	Asc       *bool
}

type ListPaymentsParams struct {
	Limit     int
	Offset    int
	AuctionID *uint64
	AccountID *uint64
	Kind      *string
	Status    *string
	OrderBy   string
	Asc       *bool
}

type ListNotificationsParams struct {
	Limit      int
	Offset     int
	AccountID  *uint64
	AuctionID  *uint64
	UnreadOnly bool
	OrderBy    string
	Asc        *bool
}
