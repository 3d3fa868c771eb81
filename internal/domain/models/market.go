package models

import "time"

// Bar represents one OHLCV observation for one trading period.
// Bars are immutable once fetched and ordered by timestamp ascending.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Quote is a point-in-time market snapshot for a symbol.
// Fields may be zero when the upstream source omits them; callers derive
// missing values from bar history before handing the quote out.
type Quote struct {
	Symbol         string    `json:"symbol"`
	Price          float64   `json:"price"`
	PrevClose      float64   `json:"prev_close"`
	Open           float64   `json:"open"`
	DayHigh        float64   `json:"day_high"`
	DayLow         float64   `json:"day_low"`
	Volume         float64   `json:"volume"`
	PriceChange    float64   `json:"price_change"`
	PriceChangePct float64   `json:"price_change_pct"`
	Timestamp      time.Time `json:"timestamp"`
}

// Tick is a single live trade print from the streaming feed.
type Tick struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp int64 // unix seconds
}
