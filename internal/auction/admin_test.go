package auction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Criezzz/auctionBackend/internal/models"
)

func seedProduct(store *stubStore) *models.Product {
	item := &models.Product{
		Name:           "Limited Figure",
		Type:           "figure",
		ShippingStatus: models.ShippingStatusInStock,
	}
	_ = store.CreateProduct(context.Background(), item)
	return item
}

func TestCreateAuctionValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("product must exist", func(t *testing.T) {
		arb := newTestArbiter(newStubStore(), gateFunc(allowAll), newMockClock())
		_, err := arb.CreateAuction(ctx, CreateParams{
			Name:      "Figure Auction",
			ProductID: 42,
			PriceStep: decimal.NewFromInt(10000),
			StartTime: testBase.Add(time.Hour),
			EndTime:   testBase.Add(2 * time.Hour),
		})
		if !errors.Is(err, ErrProductNotFound) {
			t.Fatalf("err=%v want=%v", err, ErrProductNotFound)
		}
	})

	t.Run("window must be well formed", func(t *testing.T) {
		store := newStubStore()
		arb := newTestArbiter(store, gateFunc(allowAll), newMockClock())
		product := seedProduct(store)

		_, err := arb.CreateAuction(ctx, CreateParams{
			Name:      "Figure Auction",
			ProductID: product.ID,
			PriceStep: decimal.NewFromInt(10000),
			StartTime: testBase.Add(2 * time.Hour),
			EndTime:   testBase.Add(time.Hour),
		})
		if !errors.Is(err, ErrInvalidSchedule) {
			t.Fatalf("err=%v want=%v", err, ErrInvalidSchedule)
		}

		_, err = arb.CreateAuction(ctx, CreateParams{
			Name:      "Figure Auction",
			ProductID: product.ID,
			PriceStep: decimal.Zero,
			StartTime: testBase.Add(time.Hour),
			EndTime:   testBase.Add(2 * time.Hour),
		})
		if !errors.Is(err, ErrInvalidSchedule) {
			t.Fatalf("err=%v want=%v", err, ErrInvalidSchedule)
		}
	})

	t.Run("valid auction starts pending", func(t *testing.T) {
		store := newStubStore()
		arb := newTestArbiter(store, gateFunc(allowAll), newMockClock())
		product := seedProduct(store)

		got, err := arb.CreateAuction(ctx, CreateParams{
			Name:      "Figure Auction",
			ProductID: product.ID,
			PriceStep: decimal.NewFromInt(10000),
			StartTime: testBase.Add(time.Hour),
			EndTime:   testBase.Add(2 * time.Hour),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if got.ID == 0 || got.Status != models.AuctionStatusPending {
			t.Fatalf("id=%d status=%s", got.ID, got.Status)
		}
	})
}

func TestUpdateAuctionPendingOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("active auction is frozen", func(t *testing.T) {
		store := newStubStore()
		arb := newTestArbiter(store, gateFunc(allowAll), newMockClock())
		item := seedAuction(store, models.AuctionStatusActive, testBase.Add(-time.Hour), testBase.Add(time.Hour))

		name := "Renamed"
		_, err := arb.UpdateAuction(ctx, item.ID, UpdateParams{Name: &name})
		if !errors.Is(err, ErrNotEditable) {
			t.Fatalf("err=%v want=%v", err, ErrNotEditable)
		}
	})

	t.Run("window stays well formed", func(t *testing.T) {
		store := newStubStore()
		arb := newTestArbiter(store, gateFunc(allowAll), newMockClock())
		item := seedAuction(store, models.AuctionStatusPending, testBase.Add(time.Hour), testBase.Add(2*time.Hour))

		badEnd := testBase.Add(30 * time.Minute)
		_, err := arb.UpdateAuction(ctx, item.ID, UpdateParams{EndTime: &badEnd})
		if !errors.Is(err, ErrInvalidSchedule) {
			t.Fatalf("err=%v want=%v", err, ErrInvalidSchedule)
		}
	})

	t.Run("pending fields persist", func(t *testing.T) {
		store := newStubStore()
		arb := newTestArbiter(store, gateFunc(allowAll), newMockClock())
		item := seedAuction(store, models.AuctionStatusPending, testBase.Add(time.Hour), testBase.Add(2*time.Hour))

		name := "Renamed"
		step := decimal.NewFromInt(25000)
		end := testBase.Add(3 * time.Hour)
		got, err := arb.UpdateAuction(ctx, item.ID, UpdateParams{Name: &name, PriceStep: &step, EndTime: &end})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.Name != name || !got.PriceStep.Equal(step) || !got.EndTime.Equal(end) {
			t.Fatalf("updated=%+v", got)
		}
		stored, _ := store.GetAuctionByID(ctx, item.ID)
		if stored.Name != name || !stored.PriceStep.Equal(step) || !stored.EndTime.Equal(end) {
			t.Fatalf("stored=%+v", stored)
		}
	})
}

func TestDeleteAuctionRules(t *testing.T) {
	ctx := context.Background()

	t.Run("started auction cannot be deleted", func(t *testing.T) {
		store := newStubStore()
		arb := newTestArbiter(store, gateFunc(allowAll), newMockClock())
		item := seedAuction(store, models.AuctionStatusActive, testBase.Add(-time.Hour), testBase.Add(time.Hour))

		if err := arb.DeleteAuction(ctx, item.ID); !errors.Is(err, ErrNotEditable) {
			t.Fatalf("err=%v want=%v", err, ErrNotEditable)
		}
	})

	t.Run("bids pin the auction", func(t *testing.T) {
		store := newStubStore()
		arb := newTestArbiter(store, gateFunc(allowAll), newMockClock())
		item := seedAuction(store, models.AuctionStatusPending, testBase.Add(2*time.Hour), testBase.Add(3*time.Hour))
		seedBid(store, item.ID, 7, 10000)

		if err := arb.DeleteAuction(ctx, item.ID); !errors.Is(err, ErrNotEditable) {
			t.Fatalf("err=%v want=%v", err, ErrNotEditable)
		}
	})

	t.Run("too close to start", func(t *testing.T) {
		store := newStubStore()
		arb := newTestArbiter(store, gateFunc(allowAll), newMockClock())
		item := seedAuction(store, models.AuctionStatusPending, testBase.Add(10*time.Minute), testBase.Add(time.Hour))

		if err := arb.DeleteAuction(ctx, item.ID); !errors.Is(err, ErrNotEditable) {
			t.Fatalf("err=%v want=%v", err, ErrNotEditable)
		}
	})

	t.Run("pending and clear of the lead time", func(t *testing.T) {
		store := newStubStore()
		arb := newTestArbiter(store, gateFunc(allowAll), newMockClock())
		item := seedAuction(store, models.AuctionStatusPending, testBase.Add(2*time.Hour), testBase.Add(3*time.Hour))

		if err := arb.DeleteAuction(ctx, item.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		stored, _ := store.GetAuctionByID(ctx, item.ID)
		if stored != nil {
			t.Fatalf("auction still present: %+v", stored)
		}
	})
}

func TestCancelAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("terminal states stay put", func(t *testing.T) {
		store := newStubStore()
		arb := newTestArbiter(store, gateFunc(allowAll), newMockClock())
		item := seedAuction(store, models.AuctionStatusEnded, testBase.Add(-2*time.Hour), testBase.Add(-time.Hour))

		if _, err := arb.CancelAuction(ctx, item.ID); !errors.Is(err, ErrNotEditable) {
			t.Fatalf("err=%v want=%v", err, ErrNotEditable)
		}
	})

	t.Run("active auction cancels", func(t *testing.T) {
		store := newStubStore()
		arb := newTestArbiter(store, gateFunc(allowAll), newMockClock())
		item := seedAuction(store, models.AuctionStatusActive, testBase.Add(-time.Hour), testBase.Add(time.Hour))

		got, err := arb.CancelAuction(ctx, item.ID)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got.Status != models.AuctionStatusCancelled {
			t.Fatalf("status=%s want=%s", got.Status, models.AuctionStatusCancelled)
		}
		stored, _ := store.GetAuctionByID(ctx, item.ID)
		if stored.Status != models.AuctionStatusCancelled {
			t.Fatalf("stored status=%s", stored.Status)
		}
	})
}
