package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
	"github.com/lblaseygg/minty/internal/ledger"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "minty.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetOrCreateUserSeedsBalance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u, err := store.GetOrCreateUser(ctx, "demo")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Balance != models.DefaultStartingBalance {
		t.Fatalf("balance = %v, want %v", u.Balance, models.DefaultStartingBalance)
	}

	again, err := store.GetOrCreateUser(ctx, "demo")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if again.ID != u.ID {
		t.Fatalf("second call created a new user: %d != %d", again.ID, u.ID)
	}
}

func TestUserByIDNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UserByID(context.Background(), 999)
	if !errors.Is(err, ledger.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestWithinTxCommitsWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u, err := store.GetOrCreateUser(ctx, "demo")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	err = store.WithinTx(ctx, func(tx ledger.Tx) error {
		if err := tx.SetBalance(u.ID, 500); err != nil {
			return err
		}
		if err := tx.UpsertPosition(&models.Position{UserID: u.ID, Symbol: "NVDA", Quantity: 4, AvgPrice: 100}); err != nil {
			return err
		}
		_, err := tx.InsertOrder(&models.Order{
			UserID: u.ID, Symbol: "NVDA", Side: models.SideBuy,
			Qty: 4, Price: 100, Status: models.OrderStatusFilled, Timestamp: time.Now(),
		})
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	got, _ := store.UserByID(ctx, u.ID)
	if got.Balance != 500 {
		t.Fatalf("balance = %v, want 500", got.Balance)
	}
	positions, err := store.Positions(ctx, u.ID)
	if err != nil || len(positions) != 1 || positions[0].Quantity != 4 {
		t.Fatalf("positions = %+v, err = %v", positions, err)
	}
	orders, err := store.Orders(ctx, u.ID, 10)
	if err != nil || len(orders) != 1 || orders[0].Status != models.OrderStatusFilled {
		t.Fatalf("orders = %+v, err = %v", orders, err)
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u, err := store.GetOrCreateUser(ctx, "demo")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	boom := errors.New("boom")
	err = store.WithinTx(ctx, func(tx ledger.Tx) error {
		if err := tx.SetBalance(u.ID, 0); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := store.UserByID(ctx, u.ID)
	if got.Balance != models.DefaultStartingBalance {
		t.Fatalf("rolled-back write leaked: balance = %v", got.Balance)
	}
}

func TestUpsertPositionReplacesRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u, _ := store.GetOrCreateUser(ctx, "demo")

	write := func(qty, avg float64) {
		err := store.WithinTx(ctx, func(tx ledger.Tx) error {
			return tx.UpsertPosition(&models.Position{UserID: u.ID, Symbol: "AAPL", Quantity: qty, AvgPrice: avg})
		})
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	write(4, 100)
	write(8, 150)

	positions, err := store.Positions(ctx, u.ID)
	if err != nil || len(positions) != 1 {
		t.Fatalf("positions = %+v, err = %v", positions, err)
	}
	if positions[0].Quantity != 8 || positions[0].AvgPrice != 150 {
		t.Fatalf("upsert did not replace: %+v", positions[0])
	}
}

type staticQuote float64

func (q staticQuote) Quote(context.Context, string) (models.Quote, error) {
	return models.Quote{Price: float64(q)}, nil
}

// Runs a full buy/sell round trip through the ledger against the real store.
func TestLedgerAgainstSQLite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u, _ := store.GetOrCreateUser(ctx, "trader")
	l := ledger.New(store, staticQuote(100))

	resp, err := l.PlaceTrade(ctx, &models.TradeRequest{UserID: u.ID, Symbol: "NVDA", Side: "buy", Qty: 10})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if resp.Balance != models.DefaultStartingBalance-1000 {
		t.Fatalf("balance = %v", resp.Balance)
	}

	if _, err := l.PlaceTrade(ctx, &models.TradeRequest{UserID: u.ID, Symbol: "NVDA", Side: "sell", Qty: 10, Price: 120}); err != nil {
		t.Fatalf("sell: %v", err)
	}

	positions, _ := store.Positions(ctx, u.ID)
	if len(positions) != 0 {
		t.Fatalf("position should be closed, got %+v", positions)
	}
	orders, _ := store.Orders(ctx, u.ID, 10)
	if len(orders) != 2 {
		t.Fatalf("want 2 orders, got %d", len(orders))
	}
	got, _ := store.UserByID(ctx, u.ID)
	if got.Balance != models.DefaultStartingBalance+200 {
		t.Fatalf("final balance = %v", got.Balance)
	}
}
