// Package indicator derives technical-indicator columns from OHLCV bars.
//
// Every derived value at row i depends only on rows <= i; rows whose windows
// do not fit hold NaN and are dropped by downstream consumers. The engine
// never fails on short input, it only degrades.
package indicator

import (
	"math"

	"github.com/lblaseygg/minty/internal/domain/models"
)

// Conventional window sizes.
const (
	maShort  = 5
	maMedium = 20
	maLong   = 50

	emaFast   = 12
	emaSlow   = 26
	emaSignal = 9

	rsiWindow   = 14
	bbWindow    = 20
	bbDev       = 2.0
	stochWindow = 14
	stochSmooth = 3
	vwapWindow  = 14

	volShort = 5
	volLong  = 10
)

// Compute extends bars with the derived indicator columns. The output has the
// same length and order as the input; no rows are added or removed.
func Compute(bars []models.Bar) []models.FeatureRow {
	n := len(bars)
	rows := make([]models.FeatureRow, n)
	if n == 0 {
		return rows
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		rows[i].Bar = b
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
	}

	ma5 := sma(closes, maShort)
	ma20 := sma(closes, maMedium)
	ma50 := sma(closes, maLong)

	ema12 := emaRaw(closes, emaFast)
	ema26 := emaRaw(closes, emaSlow)

	macdLine := make([]float64, n)
	for i := range macdLine {
		macdLine[i] = ema12[i] - ema26[i]
	}
	signalLine := emaRaw(macdLine, emaSignal)

	rsi := wilderRSI(closes, rsiWindow)

	bbMid := sma(closes, bbWindow)
	bbStd := rollingStd(closes, bbWindow, 0) // population std, per convention
	stochK, stochD := stochastic(highs, lows, closes, stochWindow, stochSmooth)

	volMA5 := sma(volumes, maShort)
	vwap := rollingVWAP(highs, lows, closes, volumes, vwapWindow)

	returns := pctChange(closes, 1)
	vol5 := rollingStd(returns, volShort, 1)
	vol10 := rollingStd(returns, volLong, 1)

	for i := range rows {
		r := &rows[i]

		r.MA5 = ma5[i]
		r.MA20 = ma20[i]
		r.MA50 = ma50[i]

		// EMA/MACD values are masked until the slow window fits.
		r.EMA12 = mask(ema12[i], i, emaFast-1)
		r.EMA26 = mask(ema26[i], i, emaSlow-1)
		r.MACD = mask(macdLine[i], i, emaSlow-1)
		r.MACDSignal = mask(signalLine[i], i, emaSlow+emaSignal-2)
		r.MACDHist = r.MACD - r.MACDSignal

		r.RSI = rsi[i]

		r.BBMiddle = bbMid[i]
		r.BBUpper = bbMid[i] + bbDev*bbStd[i]
		r.BBLower = bbMid[i] - bbDev*bbStd[i]

		r.StochK = stochK[i]
		r.StochD = stochD[i]

		r.VolumeMA5 = volMA5[i]
		r.VolumeChange = changeAt(volumes, i, 1)
		r.VWAP = vwap[i]

		r.PriceChange = changeAt(closes, i, 1)
		r.PriceChange5d = changeAt(closes, i, 5)

		for lag := 1; lag <= 5; lag++ {
			if i >= lag {
				r.CloseLag[lag-1] = closes[i-lag]
			} else {
				r.CloseLag[lag-1] = math.NaN()
			}
			r.ReturnLag[lag-1] = changeAt(closes, i, lag)
		}

		r.Volatility5d = vol5[i]
		r.Volatility10d = vol10[i]
	}

	return rows
}

// CompleteRows filters rows down to the feature-complete ones, preserving order.
func CompleteRows(rows []models.FeatureRow) []models.FeatureRow {
	out := make([]models.FeatureRow, 0, len(rows))
	for i := range rows {
		if rows[i].Complete() {
			out = append(out, rows[i])
		}
	}
	return out
}

// mask hides values computed before the series' first valid index.
func mask(v float64, i, firstValid int) float64 {
	if i < firstValid {
		return math.NaN()
	}
	return v
}

// sma returns the w-period simple moving average aligned to vals; indices
// before w-1 are NaN. NaN inputs poison their windows.
func sma(vals []float64, w int) []float64 {
	out := nanSlice(len(vals))
	if w <= 0 {
		return out
	}
	for i := w - 1; i < len(vals); i++ {
		sum := 0.0
		ok := true
		for j := i - w + 1; j <= i; j++ {
			if math.IsNaN(vals[j]) {
				ok = false
				break
			}
			sum += vals[j]
		}
		if ok {
			out[i] = sum / float64(w)
		}
	}
	return out
}

// emaRaw computes the recursive exponential average seeded from the first
// value. Values are defined for every index; callers mask the warmup prefix.
func emaRaw(vals []float64, w int) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	alpha := 2.0 / (float64(w) + 1.0)
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = alpha*vals[i] + (1-alpha)*out[i-1]
	}
	return out
}

// wilderRSI computes the n-period RSI with Wilder's smoothing; indices before
// n are NaN.
func wilderRSI(closes []float64, n int) []float64 {
	out := nanSlice(len(closes))
	if n <= 0 || len(closes) <= n {
		return out
	}
	var gain, loss float64
	for i := 1; i <= n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(n)
	avgLoss := loss / float64(n)
	out[n] = rsiValue(avgGain, avgLoss)
	for i := n + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		avgGain = (avgGain*float64(n-1) + up) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + down) / float64(n)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// stochastic returns the %K/%D pair: %K over a w-period high/low range,
// %D as an s-period simple average of %K.
func stochastic(highs, lows, closes []float64, w, s int) ([]float64, []float64) {
	k := nanSlice(len(closes))
	for i := w - 1; i < len(closes); i++ {
		hh := math.Inf(-1)
		ll := math.Inf(1)
		for j := i - w + 1; j <= i; j++ {
			hh = math.Max(hh, highs[j])
			ll = math.Min(ll, lows[j])
		}
		if hh == ll {
			k[i] = 50
			continue
		}
		k[i] = 100 * (closes[i] - ll) / (hh - ll)
	}
	return k, sma(k, s)
}

// rollingStd returns the w-period rolling standard deviation; ddof selects
// population (0) or sample (1) variance. NaN inputs poison their windows.
func rollingStd(vals []float64, w, ddof int) []float64 {
	out := nanSlice(len(vals))
	if w <= ddof {
		return out
	}
	for i := w - 1; i < len(vals); i++ {
		sum, sum2 := 0.0, 0.0
		ok := true
		for j := i - w + 1; j <= i; j++ {
			if math.IsNaN(vals[j]) {
				ok = false
				break
			}
			sum += vals[j]
			sum2 += vals[j] * vals[j]
		}
		if !ok {
			continue
		}
		n := float64(w)
		mean := sum / n
		variance := (sum2 - n*mean*mean) / (n - float64(ddof))
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}

// rollingVWAP returns the w-period volume-weighted average of typical price.
func rollingVWAP(highs, lows, closes, volumes []float64, w int) []float64 {
	out := nanSlice(len(closes))
	for i := w - 1; i < len(closes); i++ {
		var pv, v float64
		for j := i - w + 1; j <= i; j++ {
			tp := (highs[j] + lows[j] + closes[j]) / 3.0
			pv += tp * volumes[j]
			v += volumes[j]
		}
		if v == 0 {
			continue
		}
		out[i] = pv / v
	}
	return out
}

// pctChange returns the lag-period percent change series; undefined entries
// (insufficient history or zero base) are NaN.
func pctChange(vals []float64, lag int) []float64 {
	out := nanSlice(len(vals))
	for i := lag; i < len(vals); i++ {
		out[i] = change(vals[i], vals[i-lag])
	}
	return out
}

func changeAt(vals []float64, i, lag int) float64 {
	if i < lag {
		return math.NaN()
	}
	return change(vals[i], vals[i-lag])
}

func change(cur, prev float64) float64 {
	if prev == 0 {
		return math.NaN()
	}
	return cur/prev - 1
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
