package auction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Criezzz/auctionBackend/internal/config"
	"github.com/Criezzz/auctionBackend/internal/fanout"
	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/notify"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

const sweepBatch = 100

// DepositGate reports whether an account has a completed deposit for an
// auction and may therefore bid on it.
type DepositGate interface {
	Eligible(ctx context.Context, auctionID, accountID uint64) (bool, error)
}

// Arbiter owns every write to auctions and bids. Commits for one auction are
// serialized by a per-auction mutex on top of the row lock taken inside the
// transaction, so the precondition checks and the insert see a stable highest
// bid.
type Arbiter struct {
	repo     repository.Store
	gate     DepositGate
	bus      *fanout.Bus
	notifier *notify.Writer
	clock    clock.Clock
	logger   *zap.Logger
	cfg      config.AuctionConfig

	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func NewArbiter(repo repository.Store, gate DepositGate, bus *fanout.Bus, notifier *notify.Writer, clk clock.Clock, logger *zap.Logger, cfg config.AuctionConfig) *Arbiter {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExtendWindow <= 0 {
		cfg.ExtendWindow = 5 * time.Minute
	}
	if cfg.ExtendBy <= 0 {
		cfg.ExtendBy = 5 * time.Minute
	}
	if cfg.CancelGuard <= 0 {
		cfg.CancelGuard = 10 * time.Minute
	}
	if cfg.DeleteLeadTime <= 0 {
		cfg.DeleteLeadTime = 30 * time.Minute
	}
	return &Arbiter{
		repo:     repo,
		gate:     gate,
		bus:      bus,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		cfg:      cfg,
		locks:    make(map[uint64]*sync.Mutex),
	}
}

func (a *Arbiter) lockFor(auctionID uint64) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[auctionID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[auctionID] = l
	}
	return l
}

func (a *Arbiter) publish(ev fanout.Event) {
	if a.bus != nil {
		a.bus.Publish(ev)
	}
}

// MinNextPrice is the lowest price the next bid may carry: the current
// highest plus one price step, or one price step when no active bid exists.
func MinNextPrice(priceStep decimal.Decimal, highest *models.Bid) decimal.Decimal {
	if highest == nil {
		return priceStep
	}
	return highest.Price.Add(priceStep)
}

// SubmitResult reports a committed bid together with the auction state the
// commit produced.
type SubmitResult struct {
	Bid      *models.Bid
	Auction  *models.Auction
	Extended bool
}

// Submit validates and appends a bid. Preconditions run in a fixed order
// inside one transaction: the auction must be in its open window, the account
// must hold a completed deposit, and the price must meet the minimum. A bid
// landing within ExtendWindow of the close moves the close to now+ExtendBy in
// the same transaction.
func (a *Arbiter) Submit(ctx context.Context, auctionID, accountID uint64, price decimal.Decimal) (*SubmitResult, error) {
	lock := a.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	now := a.clock.Now().UTC()
	var (
		res      SubmitResult
		previous *models.Bid
	)
	err := a.repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := a.repo.GetAuctionByIDTx(ctx, tx, auctionID)
		if err != nil {
			return fmt.Errorf("load auction: %w", err)
		}
		if item == nil {
			return ErrAuctionNotFound
		}
		if err := a.promoteTx(ctx, tx, item, now); err != nil {
			return err
		}
		if item.Status != models.AuctionStatusActive || !now.Before(item.EndTime) {
			return ErrAuctionNotOpen
		}
		eligible, err := a.gate.Eligible(ctx, auctionID, accountID)
		if err != nil {
			return fmt.Errorf("deposit check: %w", err)
		}
		if !eligible {
			return ErrDepositRequired
		}
		highest, err := a.repo.HighestActiveBidTx(ctx, tx, auctionID)
		if err != nil {
			return fmt.Errorf("load highest bid: %w", err)
		}
		min := MinNextPrice(item.PriceStep, highest)
		if price.Cmp(min) < 0 {
			return fmt.Errorf("%w: offered %s, minimum %s", ErrBidTooLow, price, min)
		}
		bid := &models.Bid{
			AuctionID: auctionID,
			AccountID: accountID,
			Price:     price,
			Status:    models.BidStatusActive,
			CreatedAt: now,
		}
		if err := a.repo.InsertBidTx(ctx, tx, bid); err != nil {
			return fmt.Errorf("insert bid: %w", err)
		}
		if item.EndTime.Sub(now) <= a.cfg.ExtendWindow {
			newEnd := now.Add(a.cfg.ExtendBy)
			if newEnd.After(item.EndTime) {
				if err := a.repo.UpdateAuctionTx(ctx, tx, auctionID, map[string]any{"end_time": newEnd}); err != nil {
					return fmt.Errorf("extend auction: %w", err)
				}
				item.EndTime = newEnd
				res.Extended = true
			}
		}
		res.Bid = bid
		res.Auction = item
		previous = highest
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.publish(fanout.Event{
		Kind:      fanout.EventBidCommitted,
		AuctionID: auctionID,
		At:        now,
		Payload: map[string]any{
			"bid_id":     res.Bid.ID,
			"account_id": accountID,
			"price":      price.String(),
			"end_time":   res.Auction.EndTime,
			"extended":   res.Extended,
		},
	})
	if res.Extended {
		a.publish(fanout.Event{
			Kind:      fanout.EventAuctionExtended,
			AuctionID: auctionID,
			At:        now,
			Payload:   map[string]any{"end_time": res.Auction.EndTime},
		})
	}
	if previous != nil && previous.AccountID != accountID {
		a.publish(fanout.Event{
			Kind:      fanout.EventOutbid,
			AuctionID: auctionID,
			AccountID: previous.AccountID,
			At:        now,
			Payload: map[string]any{
				"auction_name": res.Auction.Name,
				"new_price":    price.String(),
			},
		})
		a.notifier.Outbid(ctx, previous.AccountID, res.Auction, price)
	}

	a.logger.Debug("bid committed",
		zap.Uint64("auction_id", auctionID),
		zap.Uint64("account_id", accountID),
		zap.String("price", price.String()),
		zap.Bool("extended", res.Extended))
	return &res, nil
}

// Cancel withdraws an active bid. Only the owner may cancel, only while the
// auction is active, and never a leading bid within CancelGuard of the close.
// Cancelling a leading bid outside that guard pushes the close back by
// ExtendBy so other bidders can react to the price drop.
func (a *Arbiter) Cancel(ctx context.Context, bidID, accountID uint64) (*models.Bid, error) {
	bid, err := a.repo.GetBidByID(ctx, bidID)
	if err != nil {
		return nil, fmt.Errorf("load bid: %w", err)
	}
	if bid == nil {
		return nil, ErrBidNotFound
	}
	if bid.AccountID != accountID {
		return nil, ErrNotOwner
	}
	if bid.Status != models.BidStatusActive {
		return nil, fmt.Errorf("%w: bid is not active", ErrCancelNotAllowed)
	}

	lock := a.lockFor(bid.AuctionID)
	lock.Lock()
	defer lock.Unlock()

	now := a.clock.Now().UTC()
	var (
		extended bool
		endTime  time.Time
	)
	err = a.repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := a.repo.GetAuctionByIDTx(ctx, tx, bid.AuctionID)
		if err != nil {
			return fmt.Errorf("load auction: %w", err)
		}
		if item == nil {
			return ErrAuctionNotFound
		}
		if err := a.promoteTx(ctx, tx, item, now); err != nil {
			return err
		}
		if item.Status != models.AuctionStatusActive || !now.Before(item.EndTime) {
			return fmt.Errorf("%w: auction is not active", ErrCancelNotAllowed)
		}
		highest, err := a.repo.HighestActiveBidTx(ctx, tx, bid.AuctionID)
		if err != nil {
			return fmt.Errorf("load highest bid: %w", err)
		}
		leading := highest != nil && highest.ID == bid.ID
		if leading && item.EndTime.Sub(now) <= a.cfg.CancelGuard {
			return fmt.Errorf("%w: leading bid inside the final %s", ErrCancelNotAllowed, a.cfg.CancelGuard)
		}
		rows, err := a.repo.CancelBidTx(ctx, tx, bid.ID, now)
		if err != nil {
			return fmt.Errorf("cancel bid: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: bid is not active", ErrCancelNotAllowed)
		}
		if leading {
			newEnd := item.EndTime.Add(a.cfg.ExtendBy)
			if err := a.repo.UpdateAuctionTx(ctx, tx, bid.AuctionID, map[string]any{"end_time": newEnd}); err != nil {
				return fmt.Errorf("extend auction: %w", err)
			}
			item.EndTime = newEnd
			extended = true
		}
		endTime = item.EndTime
		return nil
	})
	if err != nil {
		return nil, err
	}

	if extended {
		a.publish(fanout.Event{
			Kind:      fanout.EventAuctionExtended,
			AuctionID: bid.AuctionID,
			At:        now,
			Payload:   map[string]any{"end_time": endTime},
		})
	}
	cancelledAt := now
	bid.Status = models.BidStatusCancelled
	bid.CancelledAt = &cancelledAt

	a.logger.Info("bid cancelled",
		zap.Uint64("bid_id", bidID),
		zap.Uint64("auction_id", bid.AuctionID),
		zap.Bool("extended", extended))
	return bid, nil
}

// HighestBid returns the current highest active bid, or nil when the auction
// has none.
func (a *Arbiter) HighestBid(ctx context.Context, auctionID uint64) (*models.Bid, error) {
	item, err := a.repo.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("load auction: %w", err)
	}
	if item == nil {
		return nil, ErrAuctionNotFound
	}
	return a.repo.HighestActiveBid(ctx, auctionID)
}

// Snapshot is the auction state handed to a client before live events start.
type Snapshot struct {
	Auction  *models.Auction
	Highest  *models.Bid
	BidCount int64
	MinNext  decimal.Decimal
}

func (a *Arbiter) Snapshot(ctx context.Context, auctionID uint64) (*Snapshot, error) {
	item, err := a.repo.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("load auction: %w", err)
	}
	if item == nil {
		return nil, ErrAuctionNotFound
	}
	highest, err := a.repo.HighestActiveBid(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("load highest bid: %w", err)
	}
	status := models.BidStatusActive
	count, err := a.repo.CountBids(ctx, repository.ListBidsParams{AuctionID: &auctionID, Status: &status})
	if err != nil {
		return nil, fmt.Errorf("count bids: %w", err)
	}
	return &Snapshot{
		Auction:  item,
		Highest:  highest,
		BidCount: count,
		MinNext:  MinNextPrice(item.PriceStep, highest),
	}, nil
}

// Finalize closes an auction after its end time and freezes the winner from
// the highest active bid. Calling it on an already ended auction is a no-op,
// so the scheduled sweep and the admin endpoint can race safely.
func (a *Arbiter) Finalize(ctx context.Context, auctionID uint64) (*models.Auction, error) {
	lock := a.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	now := a.clock.Now().UTC()
	var (
		result  *models.Auction
		winner  *models.Bid
		already bool
	)
	err := a.repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := a.repo.GetAuctionByIDTx(ctx, tx, auctionID)
		if err != nil {
			return fmt.Errorf("load auction: %w", err)
		}
		if item == nil {
			return ErrAuctionNotFound
		}
		switch item.Status {
		case models.AuctionStatusEnded:
			already = true
			result = item
			return nil
		case models.AuctionStatusCancelled:
			return fmt.Errorf("%w: auction is cancelled", ErrAuctionNotOpen)
		}
		if now.Before(item.EndTime) {
			return ErrAuctionNotEnded
		}
		highest, err := a.repo.HighestActiveBidTx(ctx, tx, auctionID)
		if err != nil {
			return fmt.Errorf("load highest bid: %w", err)
		}
		updates := map[string]any{"status": models.AuctionStatusEnded}
		if highest != nil {
			updates["winner_id"] = highest.AccountID
		}
		if err := a.repo.UpdateAuctionTx(ctx, tx, auctionID, updates); err != nil {
			return fmt.Errorf("finalize auction: %w", err)
		}
		item.Status = models.AuctionStatusEnded
		if highest != nil {
			winnerID := highest.AccountID
			item.WinnerID = &winnerID
		}
		result = item
		winner = highest
		return nil
	})
	if err != nil {
		return nil, err
	}
	if already {
		return result, nil
	}

	payload := map[string]any{"status": models.AuctionStatusEnded}
	if winner != nil {
		payload["winner_id"] = winner.AccountID
		payload["final_price"] = winner.Price.String()
	}
	a.publish(fanout.Event{
		Kind:      fanout.EventAuctionEnded,
		AuctionID: auctionID,
		At:        now,
		Payload:   payload,
	})
	if winner != nil {
		a.publish(fanout.Event{
			Kind:      fanout.EventAuctionEnded,
			AuctionID: auctionID,
			AccountID: winner.AccountID,
			At:        now,
			Payload: map[string]any{
				"won":         true,
				"final_price": winner.Price.String(),
			},
		})
		a.notifier.AuctionWon(ctx, winner.AccountID, result, winner.Price)
		if err := a.repo.UpdateProduct(ctx, result.ProductID, map[string]any{
			"shipping_status": models.ShippingStatusSold,
		}); err != nil {
			a.logger.Warn("product status update failed",
				zap.Uint64("product_id", result.ProductID), zap.Error(err))
		}
	}

	a.logger.Info("auction finalized",
		zap.Uint64("auction_id", auctionID),
		zap.Bool("has_winner", winner != nil))
	return result, nil
}

// Sweep moves overdue auctions forward: pending auctions past their start
// become active, active auctions past their end are finalized. Lazy
// transitions on access remain the primary mechanism; the sweep bounds how
// stale an idle auction can get.
func (a *Arbiter) Sweep(ctx context.Context) error {
	now := a.clock.Now().UTC()

	starting, err := a.repo.ListAuctionsDue(ctx, repository.DueAuctionsParams{
		Status:      models.AuctionStatusPending,
		StartBefore: &now,
		Limit:       sweepBatch,
	})
	if err != nil {
		return fmt.Errorf("list starting auctions: %w", err)
	}
	for i := range starting {
		if err := a.activate(ctx, starting[i].ID); err != nil {
			a.logger.Warn("auction activation failed",
				zap.Uint64("auction_id", starting[i].ID), zap.Error(err))
		}
	}

	ending, err := a.repo.ListAuctionsDue(ctx, repository.DueAuctionsParams{
		Status:    models.AuctionStatusActive,
		EndBefore: &now,
		Limit:     sweepBatch,
	})
	if err != nil {
		return fmt.Errorf("list ending auctions: %w", err)
	}
	for i := range ending {
		if _, err := a.Finalize(ctx, ending[i].ID); err != nil {
			// A bid may have extended the close between the listing and
			// the finalize; skip and catch it next round.
			if errors.Is(err, ErrAuctionNotEnded) {
				continue
			}
			a.logger.Warn("auction finalize failed",
				zap.Uint64("auction_id", ending[i].ID), zap.Error(err))
		}
	}

	if len(starting) > 0 || len(ending) > 0 {
		a.logger.Info("auction sweep",
			zap.Int("activated", len(starting)),
			zap.Int("finalized", len(ending)))
	}
	return nil
}

func (a *Arbiter) activate(ctx context.Context, auctionID uint64) error {
	lock := a.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	now := a.clock.Now().UTC()
	return a.repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := a.repo.GetAuctionByIDTx(ctx, tx, auctionID)
		if err != nil {
			return fmt.Errorf("load auction: %w", err)
		}
		if item == nil || item.Status != models.AuctionStatusPending || now.Before(item.StartTime) {
			return nil
		}
		return a.repo.UpdateAuctionTx(ctx, tx, auctionID, map[string]any{"status": models.AuctionStatusActive})
	})
}

// promoteTx folds an overdue pending->active transition into the loaded row.
// The ended transition stays with Finalize so the winner freeze is never
// skipped.
func (a *Arbiter) promoteTx(ctx context.Context, tx *gorm.DB, item *models.Auction, now time.Time) error {
	if item.Status != models.AuctionStatusPending || now.Before(item.StartTime) {
		return nil
	}
	if !now.Before(item.EndTime) {
		return nil
	}
	if err := a.repo.UpdateAuctionTx(ctx, tx, item.ID, map[string]any{"status": models.AuctionStatusActive}); err != nil {
		return fmt.Errorf("promote auction: %w", err)
	}
	item.Status = models.AuctionStatusActive
	return nil
}
