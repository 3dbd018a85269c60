package paytoken

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Criezzz/auctionBackend/internal/config"
	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

// Store mints and settles single-use payment tokens. A token value is an
// opaque random string; everything the redemption needs lives on the row, so
// possession of the value is the whole credential.
type Store struct {
	repo   repository.Store
	clock  clock.Clock
	logger *zap.Logger
	cfg    config.PaymentConfig
}

func NewStore(repo repository.Store, clk clock.Clock, logger *zap.Logger, cfg config.PaymentConfig) *Store {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DepositTokenTTL <= 0 {
		cfg.DepositTokenTTL = 5 * time.Minute
	}
	if cfg.FinalTokenTTL <= 0 {
		cfg.FinalTokenTTL = 24 * time.Hour
	}
	return &Store{repo: repo, clock: clk, logger: logger, cfg: cfg}
}

// Issued reports a freshly minted token.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Issue mints a token for a pending payment. Deposit tokens live for
// DepositTokenTTL, final-payment tokens for FinalTokenTTL.
func (s *Store) Issue(ctx context.Context, paymentID, accountID uint64, amount decimal.Decimal, kind string) (*Issued, error) {
	item := s.build(paymentID, accountID, amount, kind)
	if err := s.repo.InsertPaymentToken(ctx, item); err != nil {
		return nil, fmt.Errorf("insert payment token: %w", err)
	}
	return &Issued{Token: item.Token, ExpiresAt: item.ExpiresAt}, nil
}

// IssueTx is Issue inside a caller-owned transaction.
func (s *Store) IssueTx(ctx context.Context, tx *gorm.DB, paymentID, accountID uint64, amount decimal.Decimal, kind string) (*Issued, error) {
	item := s.build(paymentID, accountID, amount, kind)
	if err := s.repo.InsertPaymentTokenTx(ctx, tx, item); err != nil {
		return nil, fmt.Errorf("insert payment token: %w", err)
	}
	return &Issued{Token: item.Token, ExpiresAt: item.ExpiresAt}, nil
}

func (s *Store) build(paymentID, accountID uint64, amount decimal.Decimal, kind string) *models.PaymentToken {
	ttl := s.cfg.FinalTokenTTL
	if kind == models.PaymentKindDeposit {
		ttl = s.cfg.DepositTokenTTL
	}
	now := s.clock.Now().UTC()
	return &models.PaymentToken{
		Token:     uuid.NewString(),
		PaymentID: paymentID,
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// RedeemOutcome classifies a settled redemption.
type RedeemOutcome string

const (
	// OutcomeCompleted means this caller won the redemption and the payment
	// moved to completed.
	OutcomeCompleted RedeemOutcome = "completed"
	// OutcomeAlreadyRedeemed means another caller got there first. The
	// payment is settled, so callers treat it as success.
	OutcomeAlreadyRedeemed RedeemOutcome = "already_redeemed"
)

// Redemption reports the token and the payment a redemption settled.
type Redemption struct {
	Outcome RedeemOutcome
	Token   *models.PaymentToken
	Payment *models.Payment
}

// Redeem settles a token. The compare-and-set on the token row and the
// payment's pending -> completed transition commit in one transaction;
// whichever caller's update touches the row first wins, every later caller
// sees AlreadyRedeemed.
func (s *Store) Redeem(ctx context.Context, token string) (*Redemption, error) {
	now := s.clock.Now().UTC()
	var red Redemption
	err := s.repo.InTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.RedeemPaymentTokenTx(ctx, tx, token, now)
		if err != nil {
			return fmt.Errorf("redeem token: %w", err)
		}
		if rows == 0 {
			return s.classifyLoss(ctx, token, &red)
		}
		item, err := s.repo.GetPaymentTokenByValue(ctx, token)
		if err != nil {
			return fmt.Errorf("load token: %w", err)
		}
		if item == nil {
			return ErrTokenNotFound
		}
		// Reads above run outside the transaction; fold the in-flight
		// writes into the returned rows.
		item.Used = true
		item.UsedAt = &now
		moved, err := s.repo.TransitionPaymentStatusTx(ctx, tx, item.PaymentID, models.PaymentStatusPending, models.PaymentStatusCompleted, now)
		if err != nil {
			return fmt.Errorf("complete payment: %w", err)
		}
		if moved == 0 {
			return fmt.Errorf("%w: payment %d", ErrPaymentNotPending, item.PaymentID)
		}
		payment, err := s.repo.GetPaymentByID(ctx, item.PaymentID)
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		if payment == nil {
			return fmt.Errorf("payment %d missing for token", item.PaymentID)
		}
		payment.Status = models.PaymentStatusCompleted
		payment.CompletedAt = &now
		red.Outcome = OutcomeCompleted
		red.Token = item
		red.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("token redeemed",
		zap.String("outcome", string(red.Outcome)),
		zap.Uint64("payment_id", red.Token.PaymentID))
	return &red, nil
}

// classifyLoss explains a zero-row compare-and-set: the token is missing,
// already used, or expired.
func (s *Store) classifyLoss(ctx context.Context, token string, red *Redemption) error {
	item, err := s.repo.GetPaymentTokenByValue(ctx, token)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	switch {
	case item == nil:
		return ErrTokenNotFound
	case item.Used:
		payment, err := s.repo.GetPaymentByID(ctx, item.PaymentID)
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		red.Outcome = OutcomeAlreadyRedeemed
		red.Token = item
		red.Payment = payment
		return nil
	default:
		return ErrTokenExpired
	}
}

// TokenStatus is the read-only view served to polling clients. Reading it
// never changes the token.
type TokenStatus struct {
	Valid            bool
	Used             bool
	Expired          bool
	RemainingSeconds int64
	ExpiresAt        time.Time
}

func (s *Store) Status(ctx context.Context, token string) (*TokenStatus, error) {
	item, err := s.repo.GetPaymentTokenByValue(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if item == nil {
		return nil, ErrTokenNotFound
	}
	now := s.clock.Now().UTC()
	remaining := int64(item.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	st := &TokenStatus{
		Used:             item.Used,
		Expired:          !now.Before(item.ExpiresAt),
		RemainingSeconds: remaining,
		ExpiresAt:        item.ExpiresAt,
	}
	st.Valid = !st.Used && !st.Expired
	return st, nil
}
