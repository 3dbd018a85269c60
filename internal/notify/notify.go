package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

const (
	TypeOutbid           = "bid_outbid"
	TypeAuctionWon       = "auction_won"
	TypePaymentCompleted = "payment_completed"
)

// Writer composes and persists notification rows. Callers treat it as
// fire-and-record: a failed insert is logged and never fails the operation
// that triggered it.
type Writer struct {
	repo   repository.Store
	logger *zap.Logger
}

func NewWriter(repo repository.Store, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{repo: repo, logger: logger}
}

// Outbid records that accountID lost the lead on an auction to a bid of price.
func (w *Writer) Outbid(ctx context.Context, accountID uint64, auction *models.Auction, price decimal.Decimal) {
	if w == nil || w.repo == nil {
		return
	}
	auctionID := auction.ID
	w.insert(ctx, &models.Notification{
		AccountID: accountID,
		AuctionID: &auctionID,
		Type:      TypeOutbid,
		Title:     "You have been outbid!",
		Message:   fmt.Sprintf("A higher bid of %s VND was placed on %s", price, auction.Name),
		Payload: payload(map[string]any{
			"auction_id": auctionID,
			"new_price":  price.String(),
		}),
	})
}

// AuctionWon records that accountID holds the highest bid after finalize.
func (w *Writer) AuctionWon(ctx context.Context, accountID uint64, auction *models.Auction, price decimal.Decimal) {
	if w == nil || w.repo == nil {
		return
	}
	auctionID := auction.ID
	w.insert(ctx, &models.Notification{
		AccountID: accountID,
		AuctionID: &auctionID,
		Type:      TypeAuctionWon,
		Title:     "You won the auction!",
		Message:   fmt.Sprintf("Your bid of %s VND won %s. Complete the final payment to claim it.", price, auction.Name),
		Payload: payload(map[string]any{
			"auction_id":  auctionID,
			"final_price": price.String(),
		}),
	})
}

// PaymentCompleted records a confirmed deposit or final payment.
func (w *Writer) PaymentCompleted(ctx context.Context, accountID uint64, payment *models.Payment) {
	if w == nil || w.repo == nil {
		return
	}
	auctionID := payment.AuctionID
	w.insert(ctx, &models.Notification{
		AccountID: accountID,
		AuctionID: &auctionID,
		Type:      TypePaymentCompleted,
		Title:     "Payment confirmed",
		Message:   fmt.Sprintf("Your %s payment of %s VND for auction #%d is confirmed", payment.Kind, payment.Amount, payment.AuctionID),
		Payload: payload(map[string]any{
			"payment_id": payment.ID,
			"auction_id": auctionID,
			"kind":       payment.Kind,
			"amount":     payment.Amount.String(),
		}),
	})
}

func (w *Writer) insert(ctx context.Context, item *models.Notification) {
	if err := w.repo.InsertNotification(ctx, item); err != nil {
		w.logger.Warn("notification insert failed",
			zap.Uint64("account_id", item.AccountID),
			zap.String("type", item.Type),
			zap.Error(err))
	}
}

func payload(fields map[string]any) datatypes.JSON {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
