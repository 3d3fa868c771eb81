package models

import "math"

// FeatureRow is one Bar extended with the derived indicator columns.
// Columns that lack enough history for their window hold NaN; such rows are
// not feature-complete and are excluded from training and inference.
type FeatureRow struct {
	Bar

	MA5  float64
	MA20 float64
	MA50 float64

	EMA12 float64
	EMA26 float64

	MACD       float64
	MACDSignal float64
	MACDHist   float64

	RSI float64

	BBUpper  float64
	BBLower  float64
	BBMiddle float64

	StochK float64
	StochD float64

	VolumeMA5    float64
	VolumeChange float64
	VWAP         float64

	PriceChange   float64
	PriceChange5d float64

	CloseLag  [5]float64 // Close shifted by 1..5 periods
	ReturnLag [5]float64 // pct change over 1..5 periods

	Volatility5d  float64
	Volatility10d float64
}

// FeatureColumns is the ordered list of model input columns. The order is part
// of a trained artifact's identity: a model, its normalizer, and this list must
// always travel together.
var FeatureColumns = []string{
	"MA5", "MA20", "MA50", "EMA12", "EMA26",
	"MACD", "MACD_Signal", "MACD_Hist",
	"RSI", "BB_Upper", "BB_Lower", "BB_Middle",
	"Stoch_K", "Stoch_D",
	"Volume_MA5", "Volume_Change", "VWAP",
	"Price_Change", "Price_Change_5d",
	"Close_lag1", "Close_lag2", "Close_lag3", "Close_lag4", "Close_lag5",
	"Return_lag1", "Return_lag2", "Return_lag3", "Return_lag4", "Return_lag5",
	"Volatility_5d", "Volatility_10d",
}

// Features returns the row's values in FeatureColumns order.
func (r *FeatureRow) Features() []float64 {
	return []float64{
		r.MA5, r.MA20, r.MA50, r.EMA12, r.EMA26,
		r.MACD, r.MACDSignal, r.MACDHist,
		r.RSI, r.BBUpper, r.BBLower, r.BBMiddle,
		r.StochK, r.StochD,
		r.VolumeMA5, r.VolumeChange, r.VWAP,
		r.PriceChange, r.PriceChange5d,
		r.CloseLag[0], r.CloseLag[1], r.CloseLag[2], r.CloseLag[3], r.CloseLag[4],
		r.ReturnLag[0], r.ReturnLag[1], r.ReturnLag[2], r.ReturnLag[3], r.ReturnLag[4],
		r.Volatility5d, r.Volatility10d,
	}
}

// Complete reports whether every derived column has a defined value.
func (r *FeatureRow) Complete() bool {
	for _, v := range r.Features() {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}
