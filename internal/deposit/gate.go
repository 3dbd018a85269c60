package deposit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Criezzz/auctionBackend/internal/auction"
	"github.com/Criezzz/auctionBackend/internal/bank"
	"github.com/Criezzz/auctionBackend/internal/config"
	"github.com/Criezzz/auctionBackend/internal/mailer"
	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/paytoken"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

var (
	ErrAlreadyRegistered  = errors.New("account already registered for this auction")
	ErrAuctionFull        = errors.New("auction reached its participant limit")
	ErrRegistrationClosed = errors.New("registration window is closed")
	ErrNotRegistered      = errors.New("account is not registered for this auction")
)

// Gate owns auction participation: it takes deposits before the start and
// answers the arbiter's eligibility checks during bidding. A refunded deposit
// stops counting everywhere, so unregistering frees a slot.
type Gate struct {
	repo    repository.Store
	tokens  *paytoken.Store
	gateway bank.Gateway
	mail    mailer.Sender
	clock   clock.Clock
	logger  *zap.Logger
	cfg     config.AuctionConfig
}

func NewGate(repo repository.Store, tokens *paytoken.Store, gateway bank.Gateway, mail mailer.Sender, clk clock.Clock, logger *zap.Logger, cfg config.AuctionConfig) *Gate {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxParticipants <= 0 {
		cfg.MaxParticipants = 50
	}
	if cfg.DepositMultiple <= 0 {
		cfg.DepositMultiple = 10
	}
	return &Gate{
		repo:    repo,
		tokens:  tokens,
		gateway: gateway,
		mail:    mail,
		clock:   clk,
		logger:  logger,
		cfg:     cfg,
	}
}

// Eligible reports whether the account holds a completed deposit for the
// auction.
func (g *Gate) Eligible(ctx context.Context, auctionID, accountID uint64) (bool, error) {
	return g.repo.HasCompletedDeposit(ctx, auctionID, accountID)
}

// Registration is everything a participant needs to pay the deposit.
type Registration struct {
	Payment   *models.Payment
	Token     string
	ExpiresAt time.Time
	QRCode    string
	BankRef   string
}

// Register opens a deposit for the account: one pending payment of
// priceStep x DepositMultiple plus a short-lived token. Registration closes
// at the auction start and at the participant cap. The checks and the writes
// share one transaction locked on the auction row, so two racing
// registrations cannot both slip under the cap.
func (g *Gate) Register(ctx context.Context, auctionID, accountID uint64) (*Registration, error) {
	now := g.clock.Now().UTC()
	var (
		reg         Registration
		auctionName string
	)
	err := g.repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := g.repo.GetAuctionByIDTx(ctx, tx, auctionID)
		if err != nil {
			return fmt.Errorf("load auction: %w", err)
		}
		if item == nil {
			return auction.ErrAuctionNotFound
		}
		switch item.Status {
		case models.AuctionStatusCancelled, models.AuctionStatusEnded:
			return fmt.Errorf("%w: auction is %s", ErrRegistrationClosed, item.Status)
		}
		if !now.Before(item.StartTime) {
			return fmt.Errorf("%w: auction has started", ErrRegistrationClosed)
		}
		existing, err := g.repo.FindPayment(ctx, auctionID, accountID, models.PaymentKindDeposit)
		if err != nil {
			return fmt.Errorf("find deposit: %w", err)
		}
		if existing != nil && existing.Status != models.PaymentStatusRefunded {
			return ErrAlreadyRegistered
		}
		holders, err := g.repo.CountDepositHolders(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("count participants: %w", err)
		}
		if holders >= int64(g.cfg.MaxParticipants) {
			return ErrAuctionFull
		}

		amount := item.PriceStep.Mul(decimal.NewFromInt(g.cfg.DepositMultiple))
		payment := &models.Payment{
			AuctionID: auctionID,
			AccountID: accountID,
			Kind:      models.PaymentKindDeposit,
			Amount:    amount,
			Status:    models.PaymentStatusPending,
		}
		if err := g.repo.CreatePaymentTx(ctx, tx, payment); err != nil {
			return fmt.Errorf("create deposit payment: %w", err)
		}
		issued, err := g.tokens.IssueTx(ctx, tx, payment.ID, accountID, amount, models.PaymentKindDeposit)
		if err != nil {
			return err
		}
		reg.Payment = payment
		reg.Token = issued.Token
		reg.ExpiresAt = issued.ExpiresAt
		auctionName = item.Name
		return nil
	})
	if err != nil {
		return nil, err
	}

	if g.gateway != nil {
		txn, err := g.gateway.CreateTransaction(ctx, models.PaymentKindDeposit, auctionID, reg.Token, reg.Payment.Amount)
		if err != nil {
			g.logger.Warn("bank transaction failed",
				zap.Uint64("payment_id", reg.Payment.ID), zap.Error(err))
		} else {
			reg.QRCode = txn.QRCode
			reg.BankRef = txn.Ref
		}
	}
	go g.sendInstructions(accountID, auctionName, reg)

	g.logger.Info("deposit registered",
		zap.Uint64("auction_id", auctionID),
		zap.Uint64("account_id", accountID),
		zap.String("amount", reg.Payment.Amount.String()))
	return &reg, nil
}

// Unregister refunds the deposit before the auction starts, whatever its
// state: a pending deposit is simply closed, a completed one is returned.
func (g *Gate) Unregister(ctx context.Context, auctionID, accountID uint64) error {
	now := g.clock.Now().UTC()
	err := g.repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := g.repo.GetAuctionByIDTx(ctx, tx, auctionID)
		if err != nil {
			return fmt.Errorf("load auction: %w", err)
		}
		if item == nil {
			return auction.ErrAuctionNotFound
		}
		if !now.Before(item.StartTime) && item.Status != models.AuctionStatusCancelled {
			return fmt.Errorf("%w: auction has started", ErrRegistrationClosed)
		}
		existing, err := g.repo.FindPayment(ctx, auctionID, accountID, models.PaymentKindDeposit)
		if err != nil {
			return fmt.Errorf("find deposit: %w", err)
		}
		if existing == nil || existing.Status == models.PaymentStatusRefunded {
			return ErrNotRegistered
		}
		active := models.BidStatusActive
		bids, err := g.repo.CountBids(ctx, repository.ListBidsParams{
			AuctionID: &auctionID,
			AccountID: &accountID,
			Status:    &active,
		})
		if err != nil {
			return fmt.Errorf("count bids: %w", err)
		}
		if bids > 0 {
			return fmt.Errorf("%w: active bids pin the deposit", ErrRegistrationClosed)
		}
		rows, err := g.repo.TransitionPaymentStatusTx(ctx, tx, existing.ID, existing.Status, models.PaymentStatusRefunded, now)
		if err != nil {
			return fmt.Errorf("refund deposit: %w", err)
		}
		if rows == 0 {
			return ErrNotRegistered
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.logger.Info("deposit refunded",
		zap.Uint64("auction_id", auctionID),
		zap.Uint64("account_id", accountID))
	return nil
}

// Status is an account's participation standing for one auction.
type Status struct {
	Registered bool
	Eligible   bool
	Payment    *models.Payment
}

func (g *Gate) Status(ctx context.Context, auctionID, accountID uint64) (*Status, error) {
	existing, err := g.repo.FindPayment(ctx, auctionID, accountID, models.PaymentKindDeposit)
	if err != nil {
		return nil, fmt.Errorf("find deposit: %w", err)
	}
	if existing == nil || existing.Status == models.PaymentStatusRefunded {
		return &Status{}, nil
	}
	return &Status{
		Registered: true,
		Eligible:   existing.Status == models.PaymentStatusCompleted,
		Payment:    existing,
	}, nil
}

func (g *Gate) sendInstructions(accountID uint64, auctionName string, reg Registration) {
	if g.mail == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.mail.SendDepositInstructions(ctx, accountID, auctionName, reg.Payment.Amount, reg.QRCode, reg.ExpiresAt); err != nil {
		g.logger.Warn("deposit mail failed",
			zap.Uint64("account_id", accountID), zap.Error(err))
	}
}
