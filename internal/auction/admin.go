package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Criezzz/auctionBackend/internal/fanout"
	"github.com/Criezzz/auctionBackend/internal/models"
)

// CreateParams carries the fields an operator sets when scheduling an
// auction.
type CreateParams struct {
	Name      string
	ProductID uint64
	PriceStep decimal.Decimal
	StartTime time.Time
	EndTime   time.Time
}

// CreateAuction schedules a new auction in pending state. The product must
// exist and the window must be well formed.
func (a *Arbiter) CreateAuction(ctx context.Context, params CreateParams) (*models.Auction, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidSchedule)
	}
	if !params.PriceStep.IsPositive() {
		return nil, fmt.Errorf("%w: price step must be positive", ErrInvalidSchedule)
	}
	if !params.StartTime.Before(params.EndTime) {
		return nil, ErrInvalidSchedule
	}
	product, err := a.repo.GetProductByID(ctx, params.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	item := &models.Auction{
		Name:      params.Name,
		ProductID: params.ProductID,
		PriceStep: params.PriceStep,
		StartTime: params.StartTime.UTC(),
		EndTime:   params.EndTime.UTC(),
		Status:    models.AuctionStatusPending,
	}
	if err := a.repo.CreateAuction(ctx, item); err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}
	a.logger.Info("auction created",
		zap.Uint64("auction_id", item.ID),
		zap.Uint64("product_id", item.ProductID),
		zap.Time("start_time", item.StartTime))
	return item, nil
}

// UpdateParams carries optional field changes; nil means leave unchanged.
type UpdateParams struct {
	Name      *string
	PriceStep *decimal.Decimal
	StartTime *time.Time
	EndTime   *time.Time
}

// UpdateAuction edits a pending auction. Once bidding can start the schedule
// and the price step are frozen.
func (a *Arbiter) UpdateAuction(ctx context.Context, auctionID uint64, params UpdateParams) (*models.Auction, error) {
	lock := a.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	var result *models.Auction
	err := a.repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := a.repo.GetAuctionByIDTx(ctx, tx, auctionID)
		if err != nil {
			return fmt.Errorf("load auction: %w", err)
		}
		if item == nil {
			return ErrAuctionNotFound
		}
		if item.Status != models.AuctionStatusPending {
			return fmt.Errorf("%w: auction is %s", ErrNotEditable, item.Status)
		}

		updates := map[string]any{}
		if params.Name != nil {
			if *params.Name == "" {
				return fmt.Errorf("%w: name is required", ErrInvalidSchedule)
			}
			updates["name"] = *params.Name
			item.Name = *params.Name
		}
		if params.PriceStep != nil {
			if !params.PriceStep.IsPositive() {
				return fmt.Errorf("%w: price step must be positive", ErrInvalidSchedule)
			}
			updates["price_step"] = *params.PriceStep
			item.PriceStep = *params.PriceStep
		}
		start, end := item.StartTime, item.EndTime
		if params.StartTime != nil {
			start = params.StartTime.UTC()
		}
		if params.EndTime != nil {
			end = params.EndTime.UTC()
		}
		if !start.Before(end) {
			return ErrInvalidSchedule
		}
		if params.StartTime != nil {
			updates["start_time"] = start
			item.StartTime = start
		}
		if params.EndTime != nil {
			updates["end_time"] = end
			item.EndTime = end
		}
		if len(updates) == 0 {
			result = item
			return nil
		}
		if err := a.repo.UpdateAuctionTx(ctx, tx, auctionID, updates); err != nil {
			return fmt.Errorf("update auction: %w", err)
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteAuction removes a pending auction. It must carry no bids and the
// start must still be at least DeleteLeadTime away.
func (a *Arbiter) DeleteAuction(ctx context.Context, auctionID uint64) error {
	lock := a.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	now := a.clock.Now().UTC()
	err := a.repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := a.repo.GetAuctionByIDTx(ctx, tx, auctionID)
		if err != nil {
			return fmt.Errorf("load auction: %w", err)
		}
		if item == nil {
			return ErrAuctionNotFound
		}
		if item.Status != models.AuctionStatusPending {
			return fmt.Errorf("%w: auction has started or ended", ErrNotEditable)
		}
		highest, err := a.repo.HighestActiveBidTx(ctx, tx, auctionID)
		if err != nil {
			return fmt.Errorf("load highest bid: %w", err)
		}
		if highest != nil {
			return fmt.Errorf("%w: auction has bids", ErrNotEditable)
		}
		if item.StartTime.Sub(now) < a.cfg.DeleteLeadTime {
			return fmt.Errorf("%w: less than %s before start", ErrNotEditable, a.cfg.DeleteLeadTime)
		}
		return a.repo.DeleteAuction(ctx, auctionID)
	})
	if err != nil {
		return err
	}
	a.logger.Info("auction deleted", zap.Uint64("auction_id", auctionID))
	return nil
}

// CancelAuction marks a pending or active auction cancelled. Deposits stay
// with the gate; holders reclaim them through unregistration.
func (a *Arbiter) CancelAuction(ctx context.Context, auctionID uint64) (*models.Auction, error) {
	lock := a.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	now := a.clock.Now().UTC()
	var result *models.Auction
	err := a.repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := a.repo.GetAuctionByIDTx(ctx, tx, auctionID)
		if err != nil {
			return fmt.Errorf("load auction: %w", err)
		}
		if item == nil {
			return ErrAuctionNotFound
		}
		switch item.Status {
		case models.AuctionStatusEnded, models.AuctionStatusCancelled:
			return fmt.Errorf("%w: auction is %s", ErrNotEditable, item.Status)
		}
		if err := a.repo.UpdateAuctionTx(ctx, tx, auctionID, map[string]any{"status": models.AuctionStatusCancelled}); err != nil {
			return fmt.Errorf("cancel auction: %w", err)
		}
		item.Status = models.AuctionStatusCancelled
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.publish(fanout.Event{
		Kind:      fanout.EventAuctionEnded,
		AuctionID: auctionID,
		At:        now,
		Payload:   map[string]any{"status": models.AuctionStatusCancelled},
	})
	a.logger.Info("auction cancelled", zap.Uint64("auction_id", auctionID))
	return result, nil
}
