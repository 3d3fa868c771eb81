package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
	"github.com/lblaseygg/minty/internal/ledger"
	applogger "github.com/lblaseygg/minty/pkg/logger"
)

// AccountReader is the read side of the ledger store.
type AccountReader interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
	Orders(ctx context.Context, userID int64, limit int) ([]models.Order, error)
	Positions(ctx context.Context, userID int64) ([]models.Position, error)
}

// TradingUseCase wraps trade placement and account reads for the API layer.
type TradingUseCase struct {
	ledger  *ledger.Ledger
	reader  AccountReader
	quotes  ledger.QuoteSource
	logger  *applogger.Logger
	timeout time.Duration
}

func NewTradingUseCase(l *ledger.Ledger, reader AccountReader, quotes ledger.QuoteSource, logger *applogger.Logger) *TradingUseCase {
	return &TradingUseCase{ledger: l, reader: reader, quotes: quotes, logger: logger, timeout: 15 * time.Second}
}

// PlaceTrade executes a buy or sell against the paper-trading ledger.
func (uc *TradingUseCase) PlaceTrade(ctx context.Context, req *models.TradeRequest) (*models.TradeResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	resp, err := uc.ledger.PlaceTrade(ctx, req)
	if err != nil {
		if ledger.IsRejection(err) {
			uc.logger.Info("trade rejected",
				applogger.Int64("user_id", req.UserID),
				applogger.String("symbol", req.Symbol),
				applogger.String("side", req.Side),
				applogger.Error(err))
		} else {
			uc.logger.Error("trade failed", applogger.Error(err))
		}
		return nil, err
	}
	return resp, nil
}

// Balance returns the user's cash balance.
func (uc *TradingUseCase) Balance(ctx context.Context, userID int64) (*models.User, error) {
	return uc.reader.UserByID(ctx, userID)
}

// Orders returns the user's order history, newest first.
func (uc *TradingUseCase) Orders(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	return uc.reader.Orders(ctx, userID, limit)
}

// Portfolio lists the user's positions valued at current market prices. A
// symbol whose quote cannot be resolved falls back to its average entry
// price so the response never fails on one dead feed.
func (uc *TradingUseCase) Portfolio(ctx context.Context, userID int64) (*models.PortfolioResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	user, err := uc.reader.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	positions, err := uc.reader.Positions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	resp := &models.PortfolioResponse{
		Positions:  make([]models.PositionView, 0, len(positions)),
		Balance:    user.Balance,
		TotalValue: user.Balance,
	}
	for _, p := range positions {
		price := p.AvgPrice
		if q, err := uc.quotes.Quote(ctx, p.Symbol); err == nil && q.Price > 0 {
			price = q.Price
		} else if err != nil {
			uc.logger.Warn("portfolio quote failed",
				applogger.String("symbol", p.Symbol), applogger.Error(err))
		}
		view := models.PositionView{
			Position:      p,
			CurrentPrice:  price,
			TotalValue:    p.Quantity * price,
			UnrealizedPnL: p.Quantity * (price - p.AvgPrice),
		}
		resp.Positions = append(resp.Positions, view)
		resp.TotalValue += view.TotalValue
	}
	return resp, nil
}
