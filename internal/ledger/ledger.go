// Package ledger executes paper trades against user balances and positions.
//
// A trade is one atomic unit of work: the order row, the balance change, and
// the position change commit together or not at all. Rejections happen before
// any write and surface as typed errors.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
	domrepo "github.com/lblaseygg/minty/internal/domain/repository"
	applogger "github.com/lblaseygg/minty/pkg/logger"
)

// Store is the transactional persistence boundary the ledger drives.
type Store interface {
	// WithinTx runs fn inside one transaction; any error rolls back every
	// write fn performed.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the writes the ledger needs inside a transaction.
type Tx interface {
	User(id int64) (*models.User, error)
	Position(userID int64, symbol string) (*models.Position, bool, error)
	SetBalance(userID int64, balance float64) error
	UpsertPosition(p *models.Position) error
	DeletePosition(userID int64, symbol string) error
	InsertOrder(o *models.Order) (int64, error)
}

// QuoteSource resolves a market price when the request does not carry one.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// Ledger places trades.
type Ledger struct {
	store   Store
	quotes  QuoteSource
	fills   domrepo.FillPublisher // optional
	metrics domrepo.Metrics       // optional
	logger  *applogger.Logger     // optional
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithFillPublisher attaches a fill event publisher.
func WithFillPublisher(p domrepo.FillPublisher) Option {
	return func(l *Ledger) { l.fills = p }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m domrepo.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithLogger attaches a structured logger.
func WithLogger(lg *applogger.Logger) Option {
	return func(l *Ledger) { l.logger = lg }
}

// New creates a Ledger over the given store and quote source.
func New(store Store, quotes QuoteSource, opts ...Option) *Ledger {
	l := &Ledger{store: store, quotes: quotes, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PlaceTrade validates, prices, and executes one trade request. On success it
// returns the persisted order and the post-trade balance; rejections return a
// typed error with no state change.
func (l *Ledger) PlaceTrade(ctx context.Context, req *models.TradeRequest) (*models.TradeResponse, error) {
	if req.Qty <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidQty, req.Qty)
	}
	side := models.Side(req.Side)
	if !side.Valid() {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidSide, req.Side)
	}

	price := req.Price
	if price <= 0 {
		q, err := l.quotes.Quote(ctx, req.Symbol)
		if err != nil || q.Price <= 0 {
			l.recordError("price_resolution")
			return nil, fmt.Errorf("%w for %s: %v", ErrPriceUnavailable, req.Symbol, err)
		}
		price = q.Price
	}

	orderValue := req.Qty * price

	var resp models.TradeResponse
	err := l.store.WithinTx(ctx, func(tx Tx) error {
		user, err := tx.User(req.UserID)
		if err != nil {
			return err
		}

		var balance float64
		switch side {
		case models.SideBuy:
			balance, err = l.applyBuy(tx, user, req.Symbol, req.Qty, price, orderValue)
		case models.SideSell:
			balance, err = l.applySell(tx, user, req.Symbol, req.Qty, orderValue)
		}
		if err != nil {
			return err
		}

		order := &models.Order{
			UserID:    req.UserID,
			Symbol:    req.Symbol,
			Side:      side,
			Qty:       req.Qty,
			Price:     price,
			Status:    models.OrderStatusFilled,
			Timestamp: l.now(),
		}
		id, err := tx.InsertOrder(order)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		order.ID = id

		resp.Order = *order
		resp.Balance = balance
		return nil
	})
	if err != nil {
		l.recordTrade(string(side), models.OrderStatusRejected)
		return nil, err
	}

	l.recordTrade(string(side), models.OrderStatusFilled)
	l.publishFill(ctx, &resp.Order, orderValue)
	return &resp, nil
}

// applyBuy debits the balance and folds the lot into the volume-weighted
// average position.
func (l *Ledger) applyBuy(tx Tx, user *models.User, symbol string, qty, price, orderValue float64) (float64, error) {
	if user.Balance < orderValue {
		return 0, fmt.Errorf("%w: required %.2f, available %.2f", ErrInsufficientFunds, orderValue, user.Balance)
	}
	balance := user.Balance - orderValue
	if err := tx.SetBalance(user.ID, balance); err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}

	pos, exists, err := tx.Position(user.ID, symbol)
	if err != nil {
		return 0, err
	}
	if !exists {
		pos = &models.Position{UserID: user.ID, Symbol: symbol, Quantity: qty, AvgPrice: price}
	} else {
		pos.AvgPrice = (pos.Quantity*pos.AvgPrice + orderValue) / (pos.Quantity + qty)
		pos.Quantity += qty
	}
	if err := tx.UpsertPosition(pos); err != nil {
		return 0, fmt.Errorf("upsert position: %w", err)
	}
	return balance, nil
}

// applySell credits the balance and shrinks the position. The remaining lot's
// average price is never repriced on sell; cost basis only moves on buys.
func (l *Ledger) applySell(tx Tx, user *models.User, symbol string, qty, orderValue float64) (float64, error) {
	pos, exists, err := tx.Position(user.ID, symbol)
	if err != nil {
		return 0, err
	}
	if !exists || pos.Quantity < qty {
		held := 0.0
		if exists {
			held = pos.Quantity
		}
		return 0, fmt.Errorf("%w: requested %v, held %v", ErrInsufficientShare, qty, held)
	}

	balance := user.Balance + orderValue
	if err := tx.SetBalance(user.ID, balance); err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}

	pos.Quantity -= qty
	if pos.Quantity <= 0 {
		if err := tx.DeletePosition(user.ID, symbol); err != nil {
			return 0, fmt.Errorf("delete position: %w", err)
		}
	} else {
		if err := tx.UpsertPosition(pos); err != nil {
			return 0, fmt.Errorf("upsert position: %w", err)
		}
	}
	return balance, nil
}

// publishFill emits the fill event after commit; failures are logged, never
// propagated to the caller.
func (l *Ledger) publishFill(ctx context.Context, order *models.Order, value float64) {
	if l.fills == nil {
		return
	}
	fill := &models.Fill{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Qty:       order.Qty,
		Price:     order.Price,
		Value:     value,
		Timestamp: order.Timestamp,
	}
	if err := l.fills.Publish(ctx, fill); err != nil {
		l.recordError("fill_publish")
		if l.logger != nil {
			l.logger.Warn("fill publish failed",
				applogger.Int64("order_id", order.ID),
				applogger.Error(err))
		}
	}
}

func (l *Ledger) recordTrade(side, status string) {
	if l.metrics != nil {
		l.metrics.RecordTrade(side, status)
	}
}

func (l *Ledger) recordError(kind string) {
	if l.metrics != nil {
		l.metrics.RecordError(kind)
	}
}
