package predictor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// MinMaxScaler maps each feature column onto [0, 1] using the ranges observed
// during fitting. A fitted scaler is only meaningful together with the model
// and feature list it was fitted alongside.
type MinMaxScaler struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

// Fit learns per-column ranges from the training matrix.
func (s *MinMaxScaler) Fit(x [][]float64) error {
	if len(x) == 0 || len(x[0]) == 0 {
		return fmt.Errorf("scaler fit: empty matrix")
	}
	cols := len(x[0])
	s.Min = make([]float64, cols)
	s.Max = make([]float64, cols)

	col := make([]float64, len(x))
	for j := 0; j < cols; j++ {
		for i := range x {
			if len(x[i]) != cols {
				return fmt.Errorf("scaler fit: ragged row %d", i)
			}
			col[i] = x[i][j]
		}
		s.Min[j] = floats.Min(col)
		s.Max[j] = floats.Max(col)
	}
	return nil
}

// Transform scales one feature vector in place-compatible fashion, returning
// a new slice. Constant columns scale to 0.
func (s *MinMaxScaler) Transform(v []float64) ([]float64, error) {
	if len(v) != len(s.Min) {
		return nil, fmt.Errorf("scaler transform: %d values, fitted on %d columns", len(v), len(s.Min))
	}
	out := make([]float64, len(v))
	for j := range v {
		span := s.Max[j] - s.Min[j]
		if span == 0 {
			out[j] = 0
			continue
		}
		out[j] = (v[j] - s.Min[j]) / span
	}
	return out, nil
}

// TransformAll scales a matrix row by row.
func (s *MinMaxScaler) TransformAll(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i := range x {
		row, err := s.Transform(x[i])
		if err != nil {
			return nil, err
		}
		out[i] = row
	}
	return out, nil
}
