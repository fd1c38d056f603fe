package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"NetSentinel/internal/detector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fitted(t *testing.T) (*detector.StandardScaler, *detector.IsolationForest) {
	t.Helper()
	rows := [][]float64{{1, 2}, {2, 3}, {3, 4}, {4, 5}}
	scaler, err := detector.FitScaler(rows)
	require.NoError(t, err)
	scaled, err := scaler.Transform(rows)
	require.NoError(t, err)
	forest, err := detector.Fit(scaled, detector.Options{NumTrees: 10, SampleSize: 4, Contamination: 0.01, Seed: 42})
	require.NoError(t, err)
	return scaler, forest
}

func TestWriter_WriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "models"))
	scaler, forest := fitted(t)

	require.NoError(t, w.Write(scaler, forest, 4))

	for _, name := range []string{ScalerFile, ClassifierFile, SummaryFile} {
		_, err := os.Stat(filepath.Join(w.Dir(), name))
		assert.NoError(t, err, name)
	}
	entries, err := os.ReadDir(w.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 3, "temporary files must not be left behind")

	gotScaler, gotForest, err := w.Load()
	require.NoError(t, err)
	assert.Equal(t, scaler.Mean, gotScaler.Mean)
	assert.Equal(t, scaler.Std, gotScaler.Std)
	assert.Equal(t, forest.Threshold, gotForest.Threshold)
	assert.Len(t, gotForest.Trees, 10)

	sample := []float64{0.5, -0.5}
	want, err := forest.Score(sample)
	require.NoError(t, err)
	got, err := gotForest.Score(sample)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	summary, err := w.ReadSummary()
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Samples)
	assert.Equal(t, 2, summary.Features)
	assert.Equal(t, 10, summary.Trees)
}

func TestWriter_LoadMissing(t *testing.T) {
	w := NewWriter(t.TempDir())
	_, _, err := w.Load()
	assert.ErrorIs(t, err, ErrNoArtifacts)

	_, err = w.ReadSummary()
	assert.ErrorIs(t, err, ErrNoArtifacts)
}

func TestWriter_LoadRejectsHalfPair(t *testing.T) {
	w := NewWriter(t.TempDir())
	scaler, forest := fitted(t)
	require.NoError(t, w.Write(scaler, forest, 4))
	require.NoError(t, os.Remove(filepath.Join(w.Dir(), ClassifierFile)))

	s, f, err := w.Load()
	assert.ErrorIs(t, err, ErrNoArtifacts)
	assert.Nil(t, s)
	assert.Nil(t, f)
}

func TestWriter_RejectsIncompletePair(t *testing.T) {
	w := NewWriter(t.TempDir())
	scaler, _ := fitted(t)
	assert.Error(t, w.Write(scaler, nil, 1))
}
