package auction

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

// stubStore is a test-only in-memory implementation of repository.Store.
// It implements the full interface but only the auction, bid, product and
// notification paths carry real behavior.
type stubStore struct {
	mu            sync.Mutex
	nextAuctionID uint64
	nextBidID     uint64
	auctions      map[uint64]models.Auction
	bids          map[uint64]models.Bid
	products      map[uint64]models.Product
	notifications []models.Notification
}

func newStubStore() *stubStore {
	return &stubStore{
		auctions: map[uint64]models.Auction{},
		bids:     map[uint64]models.Bid{},
		products: map[uint64]models.Product{},
	}
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubStore) CreateProduct(ctx context.Context, item *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = uint64(len(s.products) + 1)
	}
	s.products[item.ID] = *item
	return nil
}

func (s *stubStore) GetProductByID(ctx context.Context, id uint64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
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
	s.nextAuctionID++
	item.ID = s.nextAuctionID
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
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.auctions[id]
	if !ok {
		return nil
	}
	applyAuctionUpdates(&item, updates)
	s.auctions[id] = item
	return nil
}

func (s *stubStore) UpdateAuctionTx(ctx context.Context, tx *gorm.DB, id uint64, updates map[string]any) error {
	return s.UpdateAuction(ctx, id, updates)
}

func (s *stubStore) DeleteAuction(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.auctions, id)
	return nil
}

func (s *stubStore) ListAuctionsDue(ctx context.Context, params repository.DueAuctionsParams) ([]models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Auction
	for _, item := range s.auctions {
		if item.Status != params.Status {
			continue
		}
		if params.StartBefore != nil && item.StartTime.After(*params.StartBefore) {
			continue
		}
		if params.EndBefore != nil && item.EndTime.After(*params.EndBefore) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *stubStore) InsertBidTx(ctx context.Context, tx *gorm.DB, item *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBidID++
	item.ID = s.nextBidID
	s.bids[item.ID] = *item
	return nil
}

func (s *stubStore) GetBidByID(ctx context.Context, id uint64) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.bids[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *stubStore) HighestActiveBid(ctx context.Context, auctionID uint64) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highestLocked(auctionID), nil
}

func (s *stubStore) HighestActiveBidTx(ctx context.Context, tx *gorm.DB, auctionID uint64) (*models.Bid, error) {
	return s.HighestActiveBid(ctx, auctionID)
}

func (s *stubStore) highestLocked(auctionID uint64) *models.Bid {
	var best *models.Bid
	for id := range s.bids {
		item := s.bids[id]
		if item.AuctionID != auctionID || item.Status != models.BidStatusActive {
			continue
		}
		if best == nil || item.Price.Cmp(best.Price) > 0 {
			b := item
			best = &b
		}
	}
	return best
}

func (s *stubStore) CancelBidTx(ctx context.Context, tx *gorm.DB, id uint64, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.bids[id]
	if !ok || item.Status != models.BidStatusActive {
		return 0, nil
	}
	item.Status = models.BidStatusCancelled
	cancelledAt := at
	item.CancelledAt = &cancelledAt
	s.bids[id] = item
	return 1, nil
}

func (s *stubStore) ListBids(ctx context.Context, params repository.ListBidsParams) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bid
	for id := range s.bids {
		item := s.bids[id]
		if params.AuctionID != nil && item.AuctionID != *params.AuctionID {
			continue
		}
		if params.AccountID != nil && item.AccountID != *params.AccountID {
			continue
		}
		if params.Status != nil && item.Status != *params.Status {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *stubStore) CountBids(ctx context.Context, params repository.ListBidsParams) (int64, error) {
	items, _ := s.ListBids(ctx, params)
	return int64(len(items)), nil
}

func (s *stubStore) CreatePayment(ctx context.Context, item *models.Payment) error { return nil }

func (s *stubStore) CreatePaymentTx(ctx context.Context, tx *gorm.DB, item *models.Payment) error {
	return nil
}

func (s *stubStore) GetPaymentByID(ctx context.Context, id uint64) (*models.Payment, error) {
	return nil, nil
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
	return 0, nil
}

func (s *stubStore) InsertPaymentToken(ctx context.Context, item *models.PaymentToken) error {
	return nil
}

func (s *stubStore) InsertPaymentTokenTx(ctx context.Context, tx *gorm.DB, item *models.PaymentToken) error {
	return nil
}

func (s *stubStore) GetPaymentTokenByValue(ctx context.Context, token string) (*models.PaymentToken, error) {
	return nil, nil
}

func (s *stubStore) RedeemPaymentTokenTx(ctx context.Context, tx *gorm.DB, token string, now time.Time) (int64, error) {
	return 0, nil
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

func (s *stubStore) notificationsFor(accountID uint64) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, item := range s.notifications {
		if item.AccountID == accountID {
			out = append(out, item)
		}
	}
	return out
}

func applyAuctionUpdates(item *models.Auction, updates map[string]any) {
	for key, value := range updates {
		switch key {
		case "name":
			item.Name = value.(string)
		case "status":
			item.Status = value.(string)
		case "price_step":
			item.PriceStep = value.(decimal.Decimal)
		case "start_time":
			item.StartTime = value.(time.Time)
		case "end_time":
			item.EndTime = value.(time.Time)
		case "winner_id":
			id := value.(uint64)
			item.WinnerID = &id
		}
	}
}

var _ repository.Store = (*stubStore)(nil)
