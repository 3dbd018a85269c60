package paytoken

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

// stubStore is a test-only in-memory implementation of repository.Store.
// Only the payment and token paths carry real behavior. InTx serializes
// callers and restores a snapshot on error, mirroring what the database
// transaction gives the redemption path.
type stubStore struct {
	txMu sync.Mutex

	mu            sync.Mutex
	nextPaymentID uint64
	payments      map[uint64]models.Payment
	tokens        map[string]models.PaymentToken
	auctions      map[uint64]models.Auction
	notifications []models.Notification
}

func newStubStore() *stubStore {
	return &stubStore{
		payments: map[uint64]models.Payment{},
		tokens:   map[string]models.PaymentToken{},
		auctions: map[uint64]models.Auction{},
	}
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	payments := make(map[uint64]models.Payment, len(s.payments))
	for k, v := range s.payments {
		payments[k] = v
	}
	tokens := make(map[string]models.PaymentToken, len(s.tokens))
	for k, v := range s.tokens {
		tokens[k] = v
	}
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.payments = payments
		s.tokens = tokens
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *stubStore) CreateProduct(ctx context.Context, item *models.Product) error { return nil }

func (s *stubStore) GetProductByID(ctx context.Context, id uint64) (*models.Product, error) {
	return nil, nil
}

func (s *stubStore) UpdateProduct(ctx context.Context, id uint64, updates map[string]any) error {
	return nil
}

func (s *stubStore) ListProducts(ctx context.Context, params repository.ListProductsParams) ([]models.Product, error) {
	return nil, nil
}

func (s *stubStore) CountProducts(ctx context.Context, params repository.ListProductsParams) (int64, error) {
	return 0, nil
}

func (s *stubStore) CreateAuction(ctx context.Context, item *models.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = uint64(len(s.auctions) + 1)
	}
	s.auctions[item.ID] = *item
	return nil
}

func (s *stubStore) GetAuctionByID(ctx context.Context, id uint64) (*models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.auctions[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *stubStore) GetAuctionByIDTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Auction, error) {
	return s.GetAuctionByID(ctx, id)
}

func (s *stubStore) ListAuctions(ctx context.Context, params repository.ListAuctionsParams) ([]models.Auction, error) {
	return nil, nil
}

func (s *stubStore) CountAuctions(ctx context.Context, params repository.ListAuctionsParams) (int64, error) {
	return 0, nil
}

func (s *stubStore) UpdateAuction(ctx context.Context, id uint64, updates map[string]any) error {
	return nil
}

func (s *stubStore) UpdateAuctionTx(ctx context.Context, tx *gorm.DB, id uint64, updates map[string]any) error {
	return nil
}

func (s *stubStore) DeleteAuction(ctx context.Context, id uint64) error { return nil }

func (s *stubStore) ListAuctionsDue(ctx context.Context, params repository.DueAuctionsParams) ([]models.Auction, error) {
	return nil, nil
}

func (s *stubStore) InsertBidTx(ctx context.Context, tx *gorm.DB, item *models.Bid) error {
	return nil
}

func (s *stubStore) GetBidByID(ctx context.Context, id uint64) (*models.Bid, error) {
	return nil, nil
}

func (s *stubStore) HighestActiveBid(ctx context.Context, auctionID uint64) (*models.Bid, error) {
	return nil, nil
}

func (s *stubStore) HighestActiveBidTx(ctx context.Context, tx *gorm.DB, auctionID uint64) (*models.Bid, error) {
	return nil, nil
}

func (s *stubStore) CancelBidTx(ctx context.Context, tx *gorm.DB, id uint64, at time.Time) (int64, error) {
	return 0, nil
}

func (s *stubStore) ListBids(ctx context.Context, params repository.ListBidsParams) ([]models.Bid, error) {
	return nil, nil
}

func (s *stubStore) CountBids(ctx context.Context, params repository.ListBidsParams) (int64, error) {
	return 0, nil
}

func (s *stubStore) CreatePayment(ctx context.Context, item *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPaymentID++
	item.ID = s.nextPaymentID
	s.payments[item.ID] = *item
	return nil
}

func (s *stubStore) CreatePaymentTx(ctx context.Context, tx *gorm.DB, item *models.Payment) error {
	return s.CreatePayment(ctx, item)
}

func (s *stubStore) GetPaymentByID(ctx context.Context, id uint64) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *stubStore) FindPayment(ctx context.Context, auctionID, accountID uint64, kind string) (*models.Payment, error) {
	return nil, nil
}

func (s *stubStore) ListPayments(ctx context.Context, params repository.ListPaymentsParams) ([]models.Payment, error) {
	return nil, nil
}

func (s *stubStore) CountPayments(ctx context.Context, params repository.ListPaymentsParams) (int64, error) {
	return 0, nil
}

func (s *stubStore) HasCompletedDeposit(ctx context.Context, auctionID, accountID uint64) (bool, error) {
	return false, nil
}

func (s *stubStore) CountDepositHolders(ctx context.Context, auctionID uint64) (int64, error) {
	return 0, nil
}

func (s *stubStore) TransitionPaymentStatusTx(ctx context.Context, tx *gorm.DB, id uint64, from, to string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.payments[id]
	if !ok || item.Status != from {
		return 0, nil
	}
	item.Status = to
	if to == models.PaymentStatusCompleted {
		completedAt := at
		item.CompletedAt = &completedAt
	}
	s.payments[id] = item
	return 1, nil
}

func (s *stubStore) InsertPaymentToken(ctx context.Context, item *models.PaymentToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uint64(len(s.tokens) + 1)
	s.tokens[item.Token] = *item
	return nil
}

func (s *stubStore) InsertPaymentTokenTx(ctx context.Context, tx *gorm.DB, item *models.PaymentToken) error {
	return s.InsertPaymentToken(ctx, item)
}

func (s *stubStore) GetPaymentTokenByValue(ctx context.Context, token string) (*models.PaymentToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *stubStore) RedeemPaymentTokenTx(ctx context.Context, tx *gorm.DB, token string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.tokens[token]
	if !ok || item.Used || !item.ExpiresAt.After(now) {
		return 0, nil
	}
	item.Used = true
	usedAt := now
	item.UsedAt = &usedAt
	s.tokens[token] = item
	return 1, nil
}

func (s *stubStore) InsertNotification(ctx context.Context, item *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uint64(len(s.notifications) + 1)
	s.notifications = append(s.notifications, *item)
	return nil
}

func (s *stubStore) GetNotificationByID(ctx context.Context, id uint64) (*models.Notification, error) {
	return nil, nil
}

func (s *stubStore) ListNotifications(ctx context.Context, params repository.ListNotificationsParams) ([]models.Notification, error) {
	return nil, nil
}

func (s *stubStore) CountNotifications(ctx context.Context, params repository.ListNotificationsParams) (int64, error) {
	return 0, nil
}

func (s *stubStore) CountUnreadNotifications(ctx context.Context, accountID uint64) (int64, error) {
	return 0, nil
}

func (s *stubStore) MarkNotificationRead(ctx context.Context, id, accountID uint64, at time.Time) (int64, error) {
	return 0, nil
}

func (s *stubStore) MarkAllNotificationsRead(ctx context.Context, accountID uint64, at time.Time) (int64, error) {
	return 0, nil
}

func (s *stubStore) DeleteNotification(ctx context.Context, id, accountID uint64) (int64, error) {
	return 0, nil
}

func (s *stubStore) notificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

var _ repository.Store = (*stubStore)(nil)
