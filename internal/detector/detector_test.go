package detector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseline is 50 distinct TCP rows, each seen twice.
func baseline() [][]float64 {
	var rows [][]float64
	for i := 0; i < 100; i++ {
		j := i % 50
		dst := []float64{80, 443}[j%2]
		fin := float64(j % 3 / 2)
		rows = append(rows, []float64{float64(40000 + 7*j), dst, float64(60 + (j*37)%400), 1, 0, 1, fin})
	}
	return rows
}

func TestScalerFitTransform(t *testing.T) {
	s, err := FitScaler([][]float64{{1, 5}, {3, 5}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, s.Mean)
	assert.Equal(t, []float64{1, 1}, s.Std)

	out, err := s.Transform([][]float64{{3, 5}, {1, 5}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {-1, 0}}, out)
}

func TestScalerRejectsWidthMismatch(t *testing.T) {
	_, err := FitScaler(nil)
	assert.Error(t, err)

	s, err := FitScaler([][]float64{{1, 2}})
	require.NoError(t, err)
	_, err = s.Transform([][]float64{{1}})
	assert.Error(t, err)
}

func TestForestFlagsOutlier(t *testing.T) {
	train := baseline()
	f, err := Fit(train, DefaultOptions())
	require.NoError(t, err)

	test := [][]float64{train[0], train[1], {31337, 53, 9000, 0, 1, 0, 0}, train[52]}
	labels, err := f.Predict(test)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, false}, labels)
}

func TestForestFlagsUnseenValueOnConstantFeature(t *testing.T) {
	f, err := Fit(baseline(), DefaultOptions())
	require.NoError(t, err)

	// Same ports and size as a baseline row, but not TCP.
	udp := append([]float64(nil), baseline()[3]...)
	udp[3], udp[4] = 0, 1
	s, err := f.Score(udp)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s)
	assert.Greater(t, s, f.Threshold)
}

func TestForestTrainingRowsStayAtOrBelowThreshold(t *testing.T) {
	train := baseline()
	f, err := Fit(train, DefaultOptions())
	require.NoError(t, err)

	labels, err := f.Predict(train)
	require.NoError(t, err)
	for i, outlier := range labels {
		assert.False(t, outlier, "row %d", i)
	}
}

func TestForestIsDeterministicForSeed(t *testing.T) {
	a, err := Fit(baseline(), DefaultOptions())
	require.NoError(t, err)
	b, err := Fit(baseline(), DefaultOptions())
	require.NoError(t, err)

	sample := []float64{31337, 53, 9000, 0, 1, 0, 0}
	sa, err := a.Score(sample)
	require.NoError(t, err)
	sb, err := b.Score(sample)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
	assert.Equal(t, a.Threshold, b.Threshold)
}

func TestFitRequiresTwoSamples(t *testing.T) {
	_, err := Fit([][]float64{{1, 2}}, DefaultOptions())
	assert.Error(t, err)
}

func TestScoreRejectsWidthMismatch(t *testing.T) {
	f, err := Fit(baseline(), DefaultOptions())
	require.NoError(t, err)
	_, err = f.Score([]float64{1})
	assert.Error(t, err)
}

func TestFitContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FitContext(ctx, baseline(), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}
