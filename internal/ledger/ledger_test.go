package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lblaseygg/minty/internal/domain/models"
)

// fakeStore implements Store/Tx in memory, mirroring the transactional
// contract: writes land in a scratch copy that is thrown away on error.
type fakeStore struct {
	users     map[int64]*models.User
	positions map[string]*models.Position // key userID:symbol
	orders    []models.Order
	failTx    error
}

func newFakeStore(balance float64) *fakeStore {
	return &fakeStore{
		users:     map[int64]*models.User{1: {ID: 1, Username: "demo", Balance: balance}},
		positions: map[string]*models.Position{},
	}
}

func posKey(userID int64, symbol string) string {
	return fmt.Sprintf("%d:%s", userID, symbol)
}

type fakeTx struct {
	users     map[int64]*models.User
	positions map[string]*models.Position
	orders    []models.Order
	failTx    error
}

func (s *fakeStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	tx := &fakeTx{
		users:     map[int64]*models.User{},
		positions: map[string]*models.Position{},
		failTx:    s.failTx,
	}
	for k, v := range s.users {
		u := *v
		tx.users[k] = &u
	}
	for k, v := range s.positions {
		p := *v
		tx.positions[k] = &p
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.users = tx.users
	s.positions = tx.positions
	s.orders = append(s.orders, tx.orders...)
	return nil
}

func (t *fakeTx) User(id int64) (*models.User, error) {
	u, ok := t.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (t *fakeTx) Position(userID int64, symbol string) (*models.Position, bool, error) {
	p, ok := t.positions[posKey(userID, symbol)]
	return p, ok, nil
}

func (t *fakeTx) SetBalance(userID int64, balance float64) error {
	if t.failTx != nil {
		return t.failTx
	}
	t.users[userID].Balance = balance
	return nil
}

func (t *fakeTx) UpsertPosition(p *models.Position) error {
	if t.failTx != nil {
		return t.failTx
	}
	cp := *p
	t.positions[posKey(p.UserID, p.Symbol)] = &cp
	return nil
}

func (t *fakeTx) DeletePosition(userID int64, symbol string) error {
	delete(t.positions, posKey(userID, symbol))
	return nil
}

func (t *fakeTx) InsertOrder(o *models.Order) (int64, error) {
	if t.failTx != nil {
		return 0, t.failTx
	}
	t.orders = append(t.orders, *o)
	return int64(len(t.orders)), nil
}

type fixedQuote struct {
	price float64
	err   error
}

func (q fixedQuote) Quote(_ context.Context, symbol string) (models.Quote, error) {
	return models.Quote{Symbol: symbol, Price: q.price}, q.err
}

func buyReq(qty, price float64) *models.TradeRequest {
	return &models.TradeRequest{UserID: 1, Symbol: "NVDA", Side: "buy", Qty: qty, Price: price}
}

func sellReq(qty, price float64) *models.TradeRequest {
	return &models.TradeRequest{UserID: 1, Symbol: "NVDA", Side: "sell", Qty: qty, Price: price}
}

func TestBuyCreatesPosition(t *testing.T) {
	store := newFakeStore(1000)
	l := New(store, fixedQuote{})

	resp, err := l.PlaceTrade(context.Background(), buyReq(4, 100))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if resp.Balance != 600 {
		t.Fatalf("balance = %v, want 600", resp.Balance)
	}
	pos := store.positions[posKey(1, "NVDA")]
	if pos == nil || pos.Quantity != 4 || pos.AvgPrice != 100 {
		t.Fatalf("position = %+v, want qty=4 avg=100", pos)
	}
	if len(store.orders) != 1 || store.orders[0].Status != models.OrderStatusFilled {
		t.Fatalf("expected one filled order, got %+v", store.orders)
	}
}

func TestBuyAccumulatesWeightedAverage(t *testing.T) {
	store := newFakeStore(10000)
	l := New(store, fixedQuote{})

	if _, err := l.PlaceTrade(context.Background(), buyReq(4, 100)); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if _, err := l.PlaceTrade(context.Background(), buyReq(4, 200)); err != nil {
		t.Fatalf("second buy: %v", err)
	}

	pos := store.positions[posKey(1, "NVDA")]
	if pos.Quantity != 8 {
		t.Fatalf("quantity = %v, want 8", pos.Quantity)
	}
	if pos.AvgPrice != 150 {
		t.Fatalf("avg price = %v, want 150", pos.AvgPrice)
	}
}

func TestBuyRejectedOnInsufficientFunds(t *testing.T) {
	store := newFakeStore(300)
	l := New(store, fixedQuote{})

	_, err := l.PlaceTrade(context.Background(), buyReq(4, 100))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if store.users[1].Balance != 300 || len(store.orders) != 0 || len(store.positions) != 0 {
		t.Fatalf("rejection must not touch state")
	}
}

func TestSellRejectedOnInsufficientShares(t *testing.T) {
	store := newFakeStore(1000)
	store.positions[posKey(1, "NVDA")] = &models.Position{UserID: 1, Symbol: "NVDA", Quantity: 2, AvgPrice: 100}
	l := New(store, fixedQuote{})

	_, err := l.PlaceTrade(context.Background(), sellReq(5, 120))
	if !errors.Is(err, ErrInsufficientShare) {
		t.Fatalf("expected ErrInsufficientShare, got %v", err)
	}
	if store.users[1].Balance != 1000 {
		t.Fatalf("balance changed on rejection")
	}
	if pos := store.positions[posKey(1, "NVDA")]; pos.Quantity != 2 {
		t.Fatalf("position changed on rejection")
	}
}

func TestSellToZeroDeletesPosition(t *testing.T) {
	store := newFakeStore(0)
	store.positions[posKey(1, "NVDA")] = &models.Position{UserID: 1, Symbol: "NVDA", Quantity: 5, AvgPrice: 100}
	l := New(store, fixedQuote{})

	resp, err := l.PlaceTrade(context.Background(), sellReq(5, 120))
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if resp.Balance != 600 {
		t.Fatalf("balance = %v, want 600", resp.Balance)
	}
	if _, ok := store.positions[posKey(1, "NVDA")]; ok {
		t.Fatalf("position should be deleted at zero quantity")
	}
}

func TestPartialSellKeepsAvgPrice(t *testing.T) {
	store := newFakeStore(0)
	store.positions[posKey(1, "NVDA")] = &models.Position{UserID: 1, Symbol: "NVDA", Quantity: 10, AvgPrice: 100}
	l := New(store, fixedQuote{})

	if _, err := l.PlaceTrade(context.Background(), sellReq(4, 150)); err != nil {
		t.Fatalf("sell: %v", err)
	}
	pos := store.positions[posKey(1, "NVDA")]
	if pos.Quantity != 6 {
		t.Fatalf("quantity = %v, want 6", pos.Quantity)
	}
	// Selling never reprices the remaining lot.
	if pos.AvgPrice != 100 {
		t.Fatalf("avg price = %v, want 100", pos.AvgPrice)
	}
}

func TestValidationRejections(t *testing.T) {
	store := newFakeStore(1000)
	l := New(store, fixedQuote{})

	for _, req := range []*models.TradeRequest{
		buyReq(0, 100),
		buyReq(-3, 100),
		{UserID: 1, Symbol: "NVDA", Side: "short", Qty: 1, Price: 100},
	} {
		_, err := l.PlaceTrade(context.Background(), req)
		if err == nil {
			t.Fatalf("expected rejection for %+v", req)
		}
		if !IsRejection(err) {
			t.Fatalf("expected typed rejection, got %v", err)
		}
	}
	if len(store.orders) != 0 || store.users[1].Balance != 1000 {
		t.Fatalf("validation rejection must not touch state")
	}
}

func TestPriceResolvedFromQuote(t *testing.T) {
	store := newFakeStore(1000)
	l := New(store, fixedQuote{price: 50})

	resp, err := l.PlaceTrade(context.Background(), buyReq(4, 0))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if resp.Order.Price != 50 || resp.Balance != 800 {
		t.Fatalf("quote price not applied: %+v", resp)
	}
}

func TestUnresolvablePriceRejects(t *testing.T) {
	store := newFakeStore(1000)
	l := New(store, fixedQuote{err: errors.New("feed down")})

	_, err := l.PlaceTrade(context.Background(), buyReq(4, 0))
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestPersistenceFailureRollsBack(t *testing.T) {
	store := newFakeStore(1000)
	store.failTx = errors.New("disk full")
	l := New(store, fixedQuote{})

	_, err := l.PlaceTrade(context.Background(), buyReq(4, 100))
	if err == nil {
		t.Fatalf("expected persistence error")
	}
	if store.users[1].Balance != 1000 || len(store.orders) != 0 || len(store.positions) != 0 {
		t.Fatalf("failed transaction leaked state")
	}
}
