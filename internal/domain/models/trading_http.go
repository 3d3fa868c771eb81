package models

// Requests for the trading HTTP endpoints.

type TradeRequest struct {
	UserID int64   `json:"user_id" validate:"required,gt=0"`
	Symbol string  `json:"symbol" validate:"required,min=1,max=10"`
	Side   string  `json:"side" validate:"required,oneof=buy sell"`
	Qty    float64 `json:"qty" validate:"required,gt=0"`
	Price  float64 `json:"price" validate:"gte=0"` // 0 = resolve from market quote
}

type OrdersRequest struct {
	UserID int64 `query:"user_id" json:"user_id" validate:"required,gt=0"`
	Limit  int   `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type PortfolioRequest struct {
	UserID int64 `query:"user_id" json:"user_id" validate:"required,gt=0"`
}

type BalanceRequest struct {
	UserID int64 `query:"user_id" json:"user_id" validate:"required,gt=0"`
}

// TradeResponse reports the executed order and post-trade balance.
type TradeResponse struct {
	Order   Order   `json:"order"`
	Balance float64 `json:"balance"`
}

// PortfolioResponse lists positions with market values.
type PortfolioResponse struct {
	Positions  []PositionView `json:"positions"`
	Balance    float64        `json:"balance"`
	TotalValue float64        `json:"total_value"`
}
