package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
)

func makeBars(closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c - 0.5,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000 + float64(i),
		}
	}
	return bars
}

func linearCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func TestComputePreservesLengthAndOrder(t *testing.T) {
	bars := makeBars(linearCloses(80))
	rows := Compute(bars)
	if len(rows) != len(bars) {
		t.Fatalf("expected %d rows, got %d", len(bars), len(rows))
	}
	for i := range rows {
		if !rows[i].Timestamp.Equal(bars[i].Timestamp) {
			t.Fatalf("row %d reordered", i)
		}
	}
}

func TestShortInputYieldsNoCompleteRows(t *testing.T) {
	for _, n := range []int{0, 1, 10, 49} {
		rows := Compute(makeBars(linearCloses(n)))
		if got := len(CompleteRows(rows)); got != 0 {
			t.Fatalf("n=%d: expected 0 complete rows, got %d", n, got)
		}
	}
}

func TestFirstCompleteRowAtLargestWindow(t *testing.T) {
	rows := Compute(makeBars(linearCloses(60)))
	for i := 0; i < 49; i++ {
		if rows[i].Complete() {
			t.Fatalf("row %d complete before largest window fits", i)
		}
	}
	if !rows[49].Complete() {
		t.Fatalf("row 49 should be the first complete row")
	}
	if got := len(CompleteRows(rows)); got != 11 {
		t.Fatalf("expected 11 complete rows, got %d", got)
	}
}

func TestSimpleMovingAverages(t *testing.T) {
	rows := Compute(makeBars(linearCloses(60)))
	// Linear closes: SMA over w ending at i is close[i] - (w-1)/2.
	last := rows[59]
	if math.Abs(last.MA5-(159-2)) > 1e-9 {
		t.Fatalf("MA5 = %v", last.MA5)
	}
	if math.Abs(last.MA20-(159-9.5)) > 1e-9 {
		t.Fatalf("MA20 = %v", last.MA20)
	}
	if math.Abs(last.MA50-(159-24.5)) > 1e-9 {
		t.Fatalf("MA50 = %v", last.MA50)
	}
}

func TestLagsAndReturns(t *testing.T) {
	closes := linearCloses(60)
	rows := Compute(makeBars(closes))
	r := rows[59]
	for lag := 1; lag <= 5; lag++ {
		wantClose := closes[59-lag]
		if math.Abs(r.CloseLag[lag-1]-wantClose) > 1e-9 {
			t.Fatalf("CloseLag%d = %v want %v", lag, r.CloseLag[lag-1], wantClose)
		}
		wantRet := closes[59]/closes[59-lag] - 1
		if math.Abs(r.ReturnLag[lag-1]-wantRet) > 1e-9 {
			t.Fatalf("ReturnLag%d = %v want %v", lag, r.ReturnLag[lag-1], wantRet)
		}
	}
}

func TestRSIDirection(t *testing.T) {
	up := Compute(makeBars(linearCloses(60)))
	if v := up[59].RSI; v < 99 {
		t.Fatalf("monotonic rise should saturate RSI, got %v", v)
	}

	down := make([]float64, 60)
	for i := range down {
		down[i] = 200 - float64(i)
	}
	d := Compute(makeBars(down))
	if v := d[59].RSI; v > 1 {
		t.Fatalf("monotonic fall should floor RSI, got %v", v)
	}
}

func TestBollingerBandsBracketMiddle(t *testing.T) {
	rows := Compute(makeBars(linearCloses(60)))
	r := rows[59]
	if !(r.BBLower < r.BBMiddle && r.BBMiddle < r.BBUpper) {
		t.Fatalf("bands out of order: %v %v %v", r.BBLower, r.BBMiddle, r.BBUpper)
	}
	if math.Abs(r.BBMiddle-r.MA20) > 1e-9 {
		t.Fatalf("BB middle should equal MA20")
	}
	// 2 standard deviations on each side.
	if math.Abs((r.BBUpper-r.BBMiddle)-(r.BBMiddle-r.BBLower)) > 1e-9 {
		t.Fatalf("bands not symmetric")
	}
}

func TestNoLookAhead(t *testing.T) {
	closes := linearCloses(70)
	full := Compute(makeBars(closes))

	// Perturb the future: rows up to i must be unchanged.
	perturbed := append([]float64(nil), closes...)
	for i := 60; i < 70; i++ {
		perturbed[i] = 1e6
	}
	part := Compute(makeBars(perturbed))

	for i := 0; i < 60; i++ {
		a := full[i].Features()
		b := part[i].Features()
		for j := range a {
			if math.IsNaN(a[j]) && math.IsNaN(b[j]) {
				continue
			}
			if a[j] != b[j] {
				t.Fatalf("row %d col %d depends on future rows: %v != %v", i, j, a[j], b[j])
			}
		}
	}
}

func TestFeatureVectorMatchesColumnOrder(t *testing.T) {
	rows := Compute(makeBars(linearCloses(60)))
	vec := rows[59].Features()
	if len(vec) != len(models.FeatureColumns) {
		t.Fatalf("vector length %d != %d columns", len(vec), len(models.FeatureColumns))
	}
}
