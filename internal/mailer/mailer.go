package mailer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sender delivers transactional mail. Callers fire and forget;
// implementations report failure through the returned error and must not
// block on slow delivery longer than the passed context allows.
type Sender interface {
	SendDepositInstructions(ctx context.Context, accountID uint64, auctionName string, amount decimal.Decimal, qrCode string, expiresAt time.Time) error
	SendPaymentInstructions(ctx context.Context, accountID uint64, auctionName string, amount decimal.Decimal, qrCode string, expiresAt time.Time) error
	SendPaymentConfirmation(ctx context.Context, accountID uint64, auctionName string, amount decimal.Decimal) error
}

// LogSender writes the mail it would send to the log. Account contact
// details live behind the upstream identity gateway, so only the account id
// is known here.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendDepositInstructions(ctx context.Context, accountID uint64, auctionName string, amount decimal.Decimal, qrCode string, expiresAt time.Time) error {
	s.logger.Info("mail: deposit instructions",
		zap.Uint64("account_id", accountID),
		zap.String("auction", auctionName),
		zap.String("amount", amount.String()),
		zap.String("qr_code", qrCode),
		zap.Time("expires_at", expiresAt))
	return nil
}

func (s *LogSender) SendPaymentInstructions(ctx context.Context, accountID uint64, auctionName string, amount decimal.Decimal, qrCode string, expiresAt time.Time) error {
	s.logger.Info("mail: payment instructions",
		zap.Uint64("account_id", accountID),
		zap.String("auction", auctionName),
		zap.String("amount", amount.String()),
		zap.String("qr_code", qrCode),
		zap.Time("expires_at", expiresAt))
	return nil
}

func (s *LogSender) SendPaymentConfirmation(ctx context.Context, accountID uint64, auctionName string, amount decimal.Decimal) error {
	s.logger.Info("mail: payment confirmation",
		zap.Uint64("account_id", accountID),
		zap.String("auction", auctionName),
		zap.String("amount", amount.String()))
	return nil
}
