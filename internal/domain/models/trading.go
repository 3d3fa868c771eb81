package models

import "time"

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is a known trade side.
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// Order statuses. Status is fixed at creation; orders are never mutated.
const (
	OrderStatusFilled   = "filled"
	OrderStatusRejected = "rejected"
)

// DefaultStartingBalance is the paper-trading cash granted to new users.
const DefaultStartingBalance = 100000.0

// User is a paper-trading account holder.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is an immutable record of one executed or rejected trade attempt.
type Order struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Qty       float64   `json:"qty"`
	Price     float64   `json:"price"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Position is a user's holding in one symbol: quantity and volume-weighted
// average entry price. Quantity never goes negative; a position is deleted
// when its quantity drops to zero.
type Position struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Symbol    string    `json:"symbol"`
	Quantity  float64   `json:"quantity"`
	AvgPrice  float64   `json:"avg_price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PositionView is a position decorated with market value for API responses.
type PositionView struct {
	Position
	CurrentPrice  float64 `json:"current_price"`
	TotalValue    float64 `json:"total_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// Fill describes the executed result of an accepted trade, as published to
// the fill event stream and archived for audit.
type Fill struct {
	OrderID   int64     `json:"order_id"`
	UserID    int64     `json:"user_id"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Qty       float64   `json:"qty"`
	Price     float64   `json:"price"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}
