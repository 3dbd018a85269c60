package paytoken

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Criezzz/auctionBackend/internal/bank"
	"github.com/Criezzz/auctionBackend/internal/fanout"
	"github.com/Criezzz/auctionBackend/internal/mailer"
	"github.com/Criezzz/auctionBackend/internal/models"
	"github.com/Criezzz/auctionBackend/internal/notify"
	"github.com/Criezzz/auctionBackend/internal/repository"
)

// Coordinator drives both redemption paths, the web "I have paid" form and
// the bank's QR callback, through the same token compare-and-set. The first
// completion emits the payment event, persists a notification and fires the
// confirmation side effects; none of those can roll the payment back.
type Coordinator struct {
	tokens   *Store
	repo     repository.Store
	bus      *fanout.Bus
	notifier *notify.Writer
	mail     mailer.Sender
	gateway  bank.Gateway
	logger   *zap.Logger
}

func NewCoordinator(tokens *Store, repo repository.Store, bus *fanout.Bus, notifier *notify.Writer, mail mailer.Sender, gateway bank.Gateway, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		tokens:   tokens,
		repo:     repo,
		bus:      bus,
		notifier: notifier,
		mail:     mail,
		gateway:  gateway,
		logger:   logger,
	}
}

// Redeem settles the token and runs the first-completion aftermath. Racing
// calls are safe: only the winner reaches the side effects, losers get
// AlreadyRedeemed and report success to their caller.
func (c *Coordinator) Redeem(ctx context.Context, token string) (*Redemption, error) {
	red, err := c.tokens.Redeem(ctx, token)
	if err != nil {
		return nil, err
	}
	if red.Outcome != OutcomeCompleted {
		return red, nil
	}

	payment := red.Payment
	if c.bus != nil {
		c.bus.Publish(fanout.Event{
			Kind:      fanout.EventPaymentCompleted,
			AuctionID: payment.AuctionID,
			AccountID: payment.AccountID,
			Payload: map[string]any{
				"payment_id": payment.ID,
				"kind":       payment.Kind,
				"amount":     payment.Amount.String(),
			},
		})
	}
	c.notifier.PaymentCompleted(ctx, payment.AccountID, payment)
	go c.confirm(token, payment)
	return red, nil
}

// Status proxies the read-only token view.
func (c *Coordinator) Status(ctx context.Context, token string) (*TokenStatus, error) {
	return c.tokens.Status(ctx, token)
}

// Invoice is what a payer needs to settle one payment.
type Invoice struct {
	Payment   *models.Payment
	Token     string
	ExpiresAt time.Time
	QRCode    string
	BankRef   string
}

// CreateFinalPayment opens the winner's payment for an ended auction: one
// pending payment at the winning price plus a long-lived token. The existence
// check and the writes share a transaction, so a double submit cannot open
// two invoices.
func (c *Coordinator) CreateFinalPayment(ctx context.Context, item *models.Auction, accountID uint64, amount decimal.Decimal) (*Invoice, error) {
	var inv Invoice
	err := c.repo.InTx(ctx, func(tx *gorm.DB) error {
		existing, err := c.repo.FindPayment(ctx, item.ID, accountID, models.PaymentKindFinal)
		if err != nil {
			return fmt.Errorf("find payment: %w", err)
		}
		if existing != nil && existing.Status != models.PaymentStatusRefunded {
			return ErrPaymentExists
		}
		payment := &models.Payment{
			AuctionID: item.ID,
			AccountID: accountID,
			Kind:      models.PaymentKindFinal,
			Amount:    amount,
			Status:    models.PaymentStatusPending,
		}
		if err := c.repo.CreatePaymentTx(ctx, tx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		issued, err := c.tokens.IssueTx(ctx, tx, payment.ID, accountID, amount, models.PaymentKindFinal)
		if err != nil {
			return err
		}
		inv.Payment = payment
		inv.Token = issued.Token
		inv.ExpiresAt = issued.ExpiresAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.attachBankTransaction(ctx, &inv)
	go c.sendInstructions(item.Name, inv)

	c.logger.Info("final payment opened",
		zap.Uint64("auction_id", item.ID),
		zap.Uint64("account_id", accountID),
		zap.String("amount", amount.String()))
	return &inv, nil
}

// Reissue hands out a fresh token and QR for a payment that is still pending,
// for payers whose previous token expired. Earlier unused tokens just run out;
// the payment transition guarantees at most one of them completes it.
func (c *Coordinator) Reissue(ctx context.Context, payment *models.Payment) (*Invoice, error) {
	if payment == nil || payment.Status != models.PaymentStatusPending {
		return nil, ErrPaymentNotPending
	}
	issued, err := c.tokens.Issue(ctx, payment.ID, payment.AccountID, payment.Amount, payment.Kind)
	if err != nil {
		return nil, err
	}
	inv := Invoice{Payment: payment, Token: issued.Token, ExpiresAt: issued.ExpiresAt}
	c.attachBankTransaction(ctx, &inv)
	return &inv, nil
}

func (c *Coordinator) attachBankTransaction(ctx context.Context, inv *Invoice) {
	if c.gateway == nil {
		return
	}
	txn, err := c.gateway.CreateTransaction(ctx, inv.Payment.Kind, inv.Payment.AuctionID, inv.Token, inv.Payment.Amount)
	if err != nil {
		c.logger.Warn("bank transaction failed",
			zap.Uint64("payment_id", inv.Payment.ID), zap.Error(err))
		return
	}
	inv.QRCode = txn.QRCode
	inv.BankRef = txn.Ref
}

func (c *Coordinator) sendInstructions(auctionName string, inv Invoice) {
	if c.mail == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.mail.SendPaymentInstructions(ctx, inv.Payment.AccountID, auctionName, inv.Payment.Amount, inv.QRCode, inv.ExpiresAt); err != nil {
		c.logger.Warn("payment mail failed",
			zap.Uint64("account_id", inv.Payment.AccountID), zap.Error(err))
	}
}

// confirm runs the post-completion side effects: settle the bank
// transaction and send the confirmation mail. Failures are logged and
// swallowed.
func (c *Coordinator) confirm(token string, payment *models.Payment) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if c.gateway != nil {
		if err := c.gateway.Settle(ctx, token); err != nil {
			c.logger.Warn("bank settle failed",
				zap.Uint64("payment_id", payment.ID), zap.Error(err))
		}
	}
	if c.mail != nil {
		name := fmt.Sprintf("auction #%d", payment.AuctionID)
		if item, err := c.repo.GetAuctionByID(ctx, payment.AuctionID); err == nil && item != nil {
			name = item.Name
		}
		if err := c.mail.SendPaymentConfirmation(ctx, payment.AccountID, name, payment.Amount); err != nil {
			c.logger.Warn("confirmation mail failed",
				zap.Uint64("payment_id", payment.ID), zap.Error(err))
		}
	}
}
