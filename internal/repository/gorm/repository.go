package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Products ---------------------------------------------------------------

func (s *Store) CreateProduct(ctx context.Context, item *models.Product) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetProductByID(ctx context.Context, id uint64) (*models.Product, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Product
	err := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error
}

func (s *Store) ListProducts(ctx context.Context, params repository.ListProductsParams) ([]models.Product, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyProductFilters(s.db.WithContext(ctx).Model(&models.Product{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Product
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountProducts(ctx context.Context, params repository.ListProductsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyProductFilters(s.db.WithContext(ctx).Model(&models.Product{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyProductFilters(query *gorm.DB, params repository.ListProductsParams) *gorm.DB {
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("type = ?", strings.TrimSpace(*params.Type))
	}
	if params.Name != nil && strings.TrimSpace(*params.Name) != "" {
		query = query.Where("name ILIKE ?", "%"+strings.TrimSpace(*params.Name)+"%")
	}
	return query
}

// --- Auctions ---------------------------------------------------------------

func (s *Store) CreateAuction(ctx context.Context, item *models.Auction) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetAuctionByID(ctx context.Context, id uint64) (*models.Auction, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Auction
	err := s.db.WithContext(ctx).Model(&models.Auction{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetAuctionByIDTx takes a row lock; the auction row doubles as the commit
// lock across processes.
func (s *Store) GetAuctionByIDTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Auction, error) {
	if tx == nil || id == 0 {
		return nil, nil
	}
	var item models.Auction
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Model(&models.Auction{}).
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAuctions(ctx context.Context, params repository.ListAuctionsParams) ([]models.Auction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyAuctionFilters(s.db.WithContext(ctx).Model(&models.Auction{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Auction
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAuctions(ctx context.Context, params repository.ListAuctionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyAuctionFilters(s.db.WithContext(ctx).Model(&models.Auction{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyAuctionFilters(query *gorm.DB, params repository.ListAuctionsParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.ProductID != nil && *params.ProductID > 0 {
		query = query.Where("product_id = ?", *params.ProductID)
	}
	if params.Name != nil && strings.TrimSpace(*params.Name) != "" {
		query = query.Where("name ILIKE ?", "%"+strings.TrimSpace(*params.Name)+"%")
	}
	if params.MinPriceStep != nil {
		query = query.Where("price_step >= ?", *params.MinPriceStep)
	}
	if params.MaxPriceStep != nil {
		query = query.Where("price_step <= ?", *params.MaxPriceStep)
	}
	return query
}

func (s *Store) UpdateAuction(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Auction{}).Where("id = ?", id).Updates(updates).Error
}

func (s *Store) UpdateAuctionTx(ctx context.Context, tx *gorm.DB, id uint64, updates map[string]any) error {
	if tx == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Model(&models.Auction{}).Where("id = ?", id).Updates(updates).Error
}

func (s *Store) DeleteAuction(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Auction{}).Error
}

func (s *Store) ListAuctionsDue(ctx context.Context, params repository.DueAuctionsParams) ([]models.Auction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Auction{}).Where("status = ?", params.Status)
	if params.StartBefore != nil {
		query = query.Where("start_time <= ?", *params.StartBefore)
	}
	if params.EndBefore != nil {
		query = query.Where("end_time <= ?", *params.EndBefore)
	}
	var items []models.Auction
	if err := query.Order("id asc").Limit(normalizeLimit(params.Limit, 200)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Bids -------------------------------------------------------------------

func (s *Store) InsertBidTx(ctx context.Context, tx *gorm.DB, item *models.Bid) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetBidByID(ctx context.Context, id uint64) (*models.Bid, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Bid
	err := s.db.WithContext(ctx).Model(&models.Bid{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) HighestActiveBid(ctx context.Context, auctionID uint64) (*models.Bid, error) {
	if s == nil || s.db == nil || auctionID == 0 {
		return nil, nil
	}
	return highestActiveBid(s.db.WithContext(ctx), auctionID)
}

func (s *Store) HighestActiveBidTx(ctx context.Context, tx *gorm.DB, auctionID uint64) (*models.Bid, error) {
	if tx == nil || auctionID == 0 {
		return nil, nil
	}
	return highestActiveBid(tx.WithContext(ctx), auctionID)
}

func highestActiveBid(db *gorm.DB, auctionID uint64) (*models.Bid, error) {
	var item models.Bid
	err := db.Model(&models.Bid{}).
		Where("auction_id = ?", auctionID).
		Where("status = ?", models.BidStatusActive).
		Order("price desc").
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CancelBidTx(ctx context.Context, tx *gorm.DB, id uint64, at time.Time) (int64, error) {
	if tx == nil || id == 0 {
		return 0, nil
	}
	res := tx.WithContext(ctx).Model(&models.Bid{}).
		Where("id = ?", id).
		Where("status = ?", models.BidStatusActive).
		Updates(map[string]any{
			"status":       models.BidStatusCancelled,
			"cancelled_at": at,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) ListBids(ctx context.Context, params repository.ListBidsParams) ([]models.Bid, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyBidFilters(s.db.WithContext(ctx).Model(&models.Bid{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Bid
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountBids(ctx context.Context, params repository.ListBidsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyBidFilters(s.db.WithContext(ctx).Model(&models.Bid{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyBidFilters(query *gorm.DB, params repository.ListBidsParams) *gorm.DB {
	if params.AuctionID != nil && *params.AuctionID > 0 {
		query = query.Where("auction_id = ?", *params.AuctionID)
	}
	if params.AccountID != nil && *params.AccountID > 0 {
		query = query.Where("account_id = ?", *params.AccountID)
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	return query
}

// --- Payments ---------------------------------------------------------------

func (s *Store) CreatePayment(ctx context.Context, item *models.Payment) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) CreatePaymentTx(ctx context.Context, tx *gorm.DB, item *models.Payment) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPaymentByID(ctx context.Context, id uint64) (*models.Payment, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Payment
	err := s.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) FindPayment(ctx context.Context, auctionID, accountID uint64, kind string) (*models.Payment, error) {
	if s == nil || s.db == nil || auctionID == 0 || accountID == 0 {
		return nil, nil
	}
	var item models.Payment
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("auction_id = ?", auctionID).
		Where("account_id = ?", accountID).
		Where("kind = ?", kind).
		Where("status <> ?", models.PaymentStatusFailed).
		Order("id desc").
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPayments(ctx context.Context, params repository.ListPaymentsParams) ([]models.Payment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyPaymentFilters(s.db.WithContext(ctx).Model(&models.Payment{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Payment
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPayments(ctx context.Context, params repository.ListPaymentsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyPaymentFilters(s.db.WithContext(ctx).Model(&models.Payment{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyPaymentFilters(query *gorm.DB, params repository.ListPaymentsParams) *gorm.DB {
	if params.AuctionID != nil && *params.AuctionID > 0 {
		query = query.Where("auction_id = ?", *params.AuctionID)
	}
	if params.AccountID != nil && *params.AccountID > 0 {
		query = query.Where("account_id = ?", *params.AccountID)
	}
	if params.Kind != nil && strings.TrimSpace(*params.Kind) != "" {
		query = query.Where("kind = ?", strings.TrimSpace(*params.Kind))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	return query
}

func (s *Store) HasCompletedDeposit(ctx context.Context, auctionID, accountID uint64) (bool, error) {
	if s == nil || s.db == nil || auctionID == 0 || accountID == 0 {
		return false, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("auction_id = ?", auctionID).
		Where("account_id = ?", accountID).
		Where("kind = ?", models.PaymentKindDeposit).
		Where("status = ?", models.PaymentStatusCompleted).
		Count(&total).Error
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

func (s *Store) CountDepositHolders(ctx context.Context, auctionID uint64) (int64, error) {
	if s == nil || s.db == nil || auctionID == 0 {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("auction_id = ?", auctionID).
		Where("kind = ?", models.PaymentKindDeposit).
		Where("status IN ?", []string{models.PaymentStatusPending, models.PaymentStatusCompleted}).
		Distinct("account_id").
		Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) TransitionPaymentStatusTx(ctx context.Context, tx *gorm.DB, id uint64, from, to string, at time.Time) (int64, error) {
	if tx == nil || id == 0 {
		return 0, nil
	}
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if to == models.PaymentStatusCompleted {
		updates["completed_at"] = at
	}
	res := tx.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", id).
		Where("status = ?", from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// --- Payment tokens ---------------------------------------------------------

func (s *Store) InsertPaymentToken(ctx context.Context, item *models.PaymentToken) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) InsertPaymentTokenTx(ctx context.Context, tx *gorm.DB, item *models.PaymentToken) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPaymentTokenByValue(ctx context.Context, token string) (*models.PaymentToken, error) {
	if s == nil || s.db == nil || strings.TrimSpace(token) == "" {
		return nil, nil
	}
	var item models.PaymentToken
	err := s.db.WithContext(ctx).Model(&models.PaymentToken{}).Where("token = ?", token).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) RedeemPaymentTokenTx(ctx context.Context, tx *gorm.DB, token string, now time.Time) (int64, error) {
	if tx == nil || strings.TrimSpace(token) == "" {
		return 0, nil
	}
	res := tx.WithContext(ctx).Model(&models.PaymentToken{}).
		Where("token = ?", token).
		Where("used = ?", false).
		Where("expires_at > ?", now).
		Updates(map[string]any{
			"used":    true,
			"used_at": now,
		})
	return res.RowsAffected, res.Error
}

// --- Notifications ----------------------------------------------------------

func (s *Store) InsertNotification(ctx context.Context, item *models.Notification) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetNotificationByID(ctx context.Context, id uint64) (*models.Notification, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Notification
	err := s.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListNotifications(ctx context.Context, params repository.ListNotificationsParams) ([]models.Notification, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyNotificationFilters(s.db.WithContext(ctx).Model(&models.Notification{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Notification
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountNotifications(ctx context.Context, params repository.ListNotificationsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyNotificationFilters(s.db.WithContext(ctx).Model(&models.Notification{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyNotificationFilters(query *gorm.DB, params repository.ListNotificationsParams) *gorm.DB {
	if params.AccountID != nil && *params.AccountID > 0 {
		query = query.Where("account_id = ?", *params.AccountID)
	}
	if params.AuctionID != nil && *params.AuctionID > 0 {
		query = query.Where("auction_id = ?", *params.AuctionID)
	}
	if params.UnreadOnly {
		query = query.Where("read = ?", false)
	}
	return query
}

func (s *Store) CountUnreadNotifications(ctx context.Context, accountID uint64) (int64, error) {
	if s == nil || s.db == nil || accountID == 0 {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("account_id = ?", accountID).
		Where("read = ?", false).
		Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, accountID uint64, at time.Time) (int64, error) {
	if s == nil || s.db == nil || id == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Where("account_id = ?", accountID).
		Where("read = ?", false).
		Updates(map[string]any{
			"read":    true,
			"read_at": at,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, accountID uint64, at time.Time) (int64, error) {
	if s == nil || s.db == nil || accountID == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("account_id = ?", accountID).
		Where("read = ?", false).
		Updates(map[string]any{
			"read":    true,
			"read_at": at,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) DeleteNotification(ctx context.Context, id, accountID uint64) (int64, error) {
	if s == nil || s.db == nil || id == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("id = ?", id).
		Where("account_id = ?", accountID).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
