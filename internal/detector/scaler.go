package detector

import (
	"errors"
	"fmt"
	"math"
)

// StandardScaler centers each feature on its mean and scales it to unit variance.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes per-feature mean and standard deviation. Constant
// features get a unit scale so they transform to zero.
func FitScaler(data [][]float64) (*StandardScaler, error) {
	if len(data) == 0 {
		return nil, errors.New("empty training data")
	}
	width := len(data[0])
	s := &StandardScaler{Mean: make([]float64, width), Std: make([]float64, width)}

	for _, row := range data {
		if len(row) != width {
			return nil, fmt.Errorf("ragged row: expected %d features, got %d", width, len(row))
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	n := float64(len(data))
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range data {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return s, nil
}

// Transform returns a scaled copy of data.
func (s *StandardScaler) Transform(data [][]float64) ([][]float64, error) {
	out := make([][]float64, len(data))
	for i, row := range data {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("row %d: expected %d features, got %d", i, len(s.Mean), len(row))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Std[j]
		}
		out[i] = scaled
	}
	return out, nil
}
