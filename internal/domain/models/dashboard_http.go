package models

// Requests for the dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type PredictRequest struct {
	Symbol string `query:"symbol" json:"symbol" default:"NVDA" validate:"required,min=1,max=10"`
}

type RecommendRequest struct {
	Symbol string `query:"symbol" json:"symbol" default:"NVDA" validate:"required,min=1,max=10"`
}

type HistoricalRequest struct {
	Symbol string `query:"symbol" json:"symbol" default:"NVDA" validate:"required,min=1,max=10"`
	TF     string `query:"tf" json:"tf" default:"1Y" validate:"oneof=1D 1W 1M 3M YTD 1Y ALL"`
}

type LiveRequest struct {
	Symbol string `query:"symbol" json:"symbol" default:"NVDA" validate:"required,min=1,max=10"`
}

// HistoricalData carries chart series aligned by index. Indicator entries are
// nil where the lookback window has not filled yet, so warmup rows render as
// gaps instead of fake zeros.
type HistoricalData struct {
	Dates      []string   `json:"dates"`
	Prices     []float64  `json:"prices"`
	RSI        []*float64 `json:"rsi"`
	MACD       []*float64 `json:"macd"`
	MACDSignal []*float64 `json:"macd_signal"`
}

// PredictResponse pairs the forecast with recent headlines.
type PredictResponse struct {
	PredictedPrice *float64 `json:"predicted_price"`
	News           []string `json:"news"`
}
