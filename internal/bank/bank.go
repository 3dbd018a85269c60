package bank

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Criezzz/auctionBackend/internal/config"
	"github.com/Criezzz/auctionBackend/internal/models"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

var ErrTransactionNotFound = errors.New("bank transaction not found")

// Transaction is the gateway's view of one transfer request. Ref is the
// bank-side id shown to the user; Token ties the transfer back to the payment
// token it settles.
type Transaction struct {
	Ref       string
	Token     string
	AuctionID uint64
	Kind      string
	Amount    decimal.Decimal
	QRCode    string
	Status    string
	CreatedAt time.Time
}

// Gateway abstracts the payment rail that turns an issued token into a
// transfer. Settle is the post-redemption ack; its failure never affects
// payment state.
type Gateway interface {
	CreateTransaction(ctx context.Context, kind string, auctionID uint64, token string, amount decimal.Decimal) (*Transaction, error)
	Status(ctx context.Context, ref string) (*Transaction, error)
	Settle(ctx context.Context, token string) error
}

// Mock simulates a domestic QR bank rail in memory. Deposit transfers report
// completed immediately; final payments stay pending until settled.
type Mock struct {
	name  string
	code  string
	clock clock.Clock

	mu   sync.Mutex
	txns map[string]*Transaction
}

func NewMock(cfg config.BankConfig, clk clock.Clock) *Mock {
	if cfg.Name == "" {
		cfg.Name = "MockBank VietNam"
	}
	if cfg.Code == "" {
		cfg.Code = "MB"
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Mock{
		name:  cfg.Name,
		code:  cfg.Code,
		clock: clk,
		txns:  map[string]*Transaction{},
	}
}

func (m *Mock) Name() string { return m.name }
func (m *Mock) Code() string { return m.code }

func (m *Mock) CreateTransaction(ctx context.Context, kind string, auctionID uint64, token string, amount decimal.Decimal) (*Transaction, error) {
	prefix := "PAY_"
	status := StatusPending
	desc := fmt.Sprintf("Payment for auction %d", auctionID)
	if kind == models.PaymentKindDeposit {
		prefix = "DEP_"
		status = StatusCompleted
		desc = fmt.Sprintf("Deposit for auction %d", auctionID)
	}
	ref := prefix + txnSuffix()

	txn := &Transaction{
		Ref:       ref,
		Token:     token,
		AuctionID: auctionID,
		Kind:      kind,
		Amount:    amount,
		QRCode:    fmt.Sprintf("%s://QR?data=%s&amount=%s&desc=%s", m.code, ref, amount, desc),
		Status:    status,
		CreatedAt: m.clock.Now().UTC(),
	}

	m.mu.Lock()
	m.txns[ref] = txn
	m.mu.Unlock()

	out := *txn
	return &out, nil
}

func (m *Mock) Status(ctx context.Context, ref string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[ref]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	out := *txn
	return &out, nil
}

// Settle marks every transaction carrying the token completed.
func (m *Mock) Settle(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.txns {
		if txn.Token == token {
			txn.Status = StatusCompleted
		}
	}
	return nil
}

func txnSuffix() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:])[:12])
}
