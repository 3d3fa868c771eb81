package repository

// ChartRange selects the lookback window and bar granularity for chart and
// training data.
type ChartRange string

const (
	Range1D  ChartRange = "1D"
	Range1W  ChartRange = "1W"
	Range1M  ChartRange = "1M"
	Range3M  ChartRange = "3M"
	RangeYTD ChartRange = "YTD"
	Range1Y  ChartRange = "1Y"
	RangeAll ChartRange = "ALL"
	// Range2Y is the training lookback: two years of daily bars.
	Range2Y ChartRange = "2Y"
)

// IsValidChartRange returns true if r is a supported range.
func IsValidChartRange(r ChartRange) bool {
	switch r {
	case Range1D, Range1W, Range1M, Range3M, RangeYTD, Range1Y, RangeAll, Range2Y:
		return true
	default:
		return false
	}
}

// DefaultChartRange returns the default range.
func DefaultChartRange() ChartRange { return Range1Y }

// NormalizeChartRange converts a raw string to a valid range (or default).
func NormalizeChartRange(s string) ChartRange {
	if s == "" {
		return DefaultChartRange()
	}
	r := ChartRange(s)
	if IsValidChartRange(r) {
		return r
	}
	return DefaultChartRange()
}

// Params maps a chart range onto the upstream source's (period, interval)
// pair. Intraday ranges use minute bars, longer ranges daily bars.
func (r ChartRange) Params() (period, interval string) {
	switch r {
	case Range1D:
		return "1d", "1m"
	case Range1W:
		return "5d", "5m"
	case Range1M:
		return "1mo", "30m"
	case Range3M:
		return "3mo", "1d"
	case RangeYTD:
		return "ytd", "1d"
	case RangeAll:
		return "max", "1d"
	case Range2Y:
		return "2y", "1d"
	default:
		return "1y", "1d"
	}
}

// Intraday reports whether bars for this range carry time-of-day resolution.
func (r ChartRange) Intraday() bool {
	switch r {
	case Range1D, Range1W, Range1M:
		return true
	default:
		return false
	}
}
