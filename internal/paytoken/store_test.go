package paytoken

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"

	"github.com/Criezzz/auctionBackend/internal/config"
	"github.com/Criezzz/auctionBackend/internal/models"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newMockClock() *clock.Mock {
	mk := clock.NewMock()
	mk.Set(testBase)
	return mk
}

func newTestStore(store *stubStore, mk *clock.Mock) *Store {
	return NewStore(store, mk, nil, config.PaymentConfig{})
}

func seedPayment(store *stubStore, auctionID, accountID uint64, kind string, amount int64) *models.Payment {
	item := &models.Payment{
		AuctionID: auctionID,
		AccountID: accountID,
		Kind:      kind,
		Amount:    decimal.NewFromInt(amount),
		Status:    models.PaymentStatusPending,
	}
	_ = store.CreatePayment(context.Background(), item)
	return item
}

func TestIssueTTLByKind(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	tokens := newTestStore(store, newMockClock())

	deposit, err := tokens.Issue(ctx, 1, 7, decimal.NewFromInt(100000), models.PaymentKindDeposit)
	if err != nil {
		t.Fatalf("issue deposit: %v", err)
	}
	if want := testBase.Add(5 * time.Minute); !deposit.ExpiresAt.Equal(want) {
		t.Fatalf("deposit expires=%s want=%s", deposit.ExpiresAt, want)
	}

	final, err := tokens.Issue(ctx, 2, 7, decimal.NewFromInt(250000), models.PaymentKindFinal)
	if err != nil {
		t.Fatalf("issue final: %v", err)
	}
	if want := testBase.Add(24 * time.Hour); !final.ExpiresAt.Equal(want) {
		t.Fatalf("final expires=%s want=%s", final.ExpiresAt, want)
	}

	if deposit.Token == final.Token {
		t.Fatalf("token values collide")
	}
	row, _ := store.GetPaymentTokenByValue(ctx, deposit.Token)
	if row == nil || row.Used {
		t.Fatalf("stored token=%+v", row)
	}
}

func TestRedeemCompletesPayment(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	mk := newMockClock()
	tokens := newTestStore(store, mk)

	payment := seedPayment(store, 3, 7, models.PaymentKindDeposit, 100000)
	issued, err := tokens.Issue(ctx, payment.ID, 7, payment.Amount, payment.Kind)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	st, err := tokens.Status(ctx, issued.Token)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Valid || st.Used || st.Expired || st.RemainingSeconds != 300 {
		t.Fatalf("status=%+v", st)
	}

	mk.Add(2 * time.Minute)
	st, _ = tokens.Status(ctx, issued.Token)
	if st.RemainingSeconds != 180 {
		t.Fatalf("remaining=%d want=180", st.RemainingSeconds)
	}

	red, err := tokens.Redeem(ctx, issued.Token)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if red.Outcome != OutcomeCompleted {
		t.Fatalf("outcome=%s want=%s", red.Outcome, OutcomeCompleted)
	}
	if red.Payment == nil || red.Payment.Status != models.PaymentStatusCompleted || red.Payment.CompletedAt == nil {
		t.Fatalf("payment=%+v", red.Payment)
	}

	st, _ = tokens.Status(ctx, issued.Token)
	if st.Valid || !st.Used {
		t.Fatalf("status after redeem=%+v", st)
	}

	// The second redemption reports the settled payment and succeeds.
	again, err := tokens.Redeem(ctx, issued.Token)
	if err != nil {
		t.Fatalf("repeat redeem: %v", err)
	}
	if again.Outcome != OutcomeAlreadyRedeemed {
		t.Fatalf("outcome=%s want=%s", again.Outcome, OutcomeAlreadyRedeemed)
	}
	if again.Payment == nil || again.Payment.ID != payment.ID {
		t.Fatalf("payment=%+v want id=%d", again.Payment, payment.ID)
	}
}

func TestRedeemExpiredToken(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	mk := newMockClock()
	tokens := newTestStore(store, mk)

	payment := seedPayment(store, 3, 7, models.PaymentKindDeposit, 100000)
	issued, _ := tokens.Issue(ctx, payment.ID, 7, payment.Amount, payment.Kind)

	mk.Add(5*time.Minute + time.Second)

	if _, err := tokens.Redeem(ctx, issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err=%v want=%v", err, ErrTokenExpired)
	}

	row, _ := store.GetPaymentTokenByValue(ctx, issued.Token)
	if row.Used {
		t.Fatalf("expired token was burned")
	}
	got, _ := store.GetPaymentByID(ctx, payment.ID)
	if got.Status != models.PaymentStatusPending {
		t.Fatalf("payment status=%s want=%s", got.Status, models.PaymentStatusPending)
	}

	st, _ := tokens.Status(ctx, issued.Token)
	if st.Valid || !st.Expired || st.RemainingSeconds != 0 {
		t.Fatalf("status=%+v", st)
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	tokens := newTestStore(newStubStore(), newMockClock())
	if _, err := tokens.Redeem(context.Background(), "no-such-token"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("err=%v want=%v", err, ErrTokenNotFound)
	}
	if _, err := tokens.Status(context.Background(), "no-such-token"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("status err=%v want=%v", err, ErrTokenNotFound)
	}
}

func TestRedeemRollsBackWhenPaymentLeftPending(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	tokens := newTestStore(store, newMockClock())

	payment := seedPayment(store, 3, 7, models.PaymentKindDeposit, 100000)
	issued, _ := tokens.Issue(ctx, payment.ID, 7, payment.Amount, payment.Kind)

	// The deposit was refunded while the token was still live.
	if _, err := store.TransitionPaymentStatusTx(ctx, nil, payment.ID, models.PaymentStatusPending, models.PaymentStatusRefunded, testBase); err != nil {
		t.Fatalf("refund: %v", err)
	}

	if _, err := tokens.Redeem(ctx, issued.Token); !errors.Is(err, ErrPaymentNotPending) {
		t.Fatalf("err=%v want=%v", err, ErrPaymentNotPending)
	}

	// The transaction rolled back, so the token is not burned.
	row, _ := store.GetPaymentTokenByValue(ctx, issued.Token)
	if row.Used {
		t.Fatalf("token burned despite rollback")
	}
}

func TestConcurrentRedeemsSettleOnce(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	tokens := newTestStore(store, newMockClock())

	payment := seedPayment(store, 3, 7, models.PaymentKindFinal, 250000)
	issued, _ := tokens.Issue(ctx, payment.ID, 7, payment.Amount, payment.Kind)

	const callers = 8
	var wg sync.WaitGroup
	outcomes := make([]RedeemOutcome, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			red, err := tokens.Redeem(ctx, issued.Token)
			if err != nil {
				errs[i] = err
				return
			}
			outcomes[i] = red.Outcome
		}(i)
	}
	wg.Wait()

	completed, already := 0, 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("redeem %d: %v", i, errs[i])
		}
		switch outcomes[i] {
		case OutcomeCompleted:
			completed++
		case OutcomeAlreadyRedeemed:
			already++
		}
	}
	if completed != 1 || already != callers-1 {
		t.Fatalf("completed=%d already=%d want 1/%d", completed, already, callers-1)
	}

	got, _ := store.GetPaymentByID(ctx, payment.ID)
	if got.Status != models.PaymentStatusCompleted {
		t.Fatalf("payment status=%s want=%s", got.Status, models.PaymentStatusCompleted)
	}
}
