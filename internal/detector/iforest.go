package detector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const eulerGamma = 0.5772156649

// Options configures an IsolationForest fit.
type Options struct {
	NumTrees      int
	SampleSize    int
	Contamination float64
	Seed          int64
}

// DefaultOptions mirrors the collector's defaults.
func DefaultOptions() Options {
	return Options{NumTrees: 100, SampleSize: 256, Contamination: 0.01, Seed: 42}
}

// Node is one node of an isolation tree. Leaves have nil children.
// Min and Max bound the training rows that reached the node; a sample
// outside them is isolated at that node.
type Node struct {
	Feature int
	Split   float64
	Min     []float64
	Max     []float64
	Left    *Node
	Right   *Node
	Size    int
}

func (n *Node) contains(sample []float64) bool {
	if len(n.Min) != len(sample) || len(n.Max) != len(sample) {
		return true
	}
	for j, v := range sample {
		if v < n.Min[j] || v > n.Max[j] {
			return false
		}
	}
	return true
}

// IsolationForest is a fitted outlier classifier. Its fields are exported
// so the model can be gob-encoded; it is immutable after Fit.
type IsolationForest struct {
	Trees       []*Node
	SampleSize  int
	NumFeatures int
	Threshold   float64
}

// Fit builds a forest on data. The outlier threshold is placed so that the
// Contamination share of the training rows scores above it.
func Fit(data [][]float64, opts Options) (*IsolationForest, error) {
	return FitContext(context.Background(), data, opts)
}

// FitContext is Fit with cancellation checked between trees.
func FitContext(ctx context.Context, data [][]float64, opts Options) (*IsolationForest, error) {
	if len(data) < 2 {
		return nil, errors.New("need at least 2 samples")
	}
	if opts.NumTrees <= 0 {
		opts.NumTrees = DefaultOptions().NumTrees
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultOptions().SampleSize
	}
	width := len(data[0])
	for i, row := range data {
		if len(row) != width {
			return nil, fmt.Errorf("row %d: expected %d features, got %d", i, width, len(row))
		}
	}

	sampleSize := opts.SampleSize
	if sampleSize > len(data) {
		sampleSize = len(data)
	}
	b := builder{
		rng:      rand.New(rand.NewSource(opts.Seed)),
		maxDepth: int(math.Ceil(math.Log2(float64(sampleSize)))),
		width:    width,
	}

	f := &IsolationForest{
		Trees:       make([]*Node, opts.NumTrees),
		SampleSize:  sampleSize,
		NumFeatures: width,
	}
	for i := range f.Trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		indices := b.rng.Perm(len(data))[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}
		f.Trees[i] = b.build(sample, 0)
	}

	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = f.score(row)
	}
	f.Threshold = percentile(scores, 1-opts.Contamination)
	return f, nil
}

type builder struct {
	rng      *rand.Rand
	maxDepth int
	width    int
}

func (b *builder) build(data [][]float64, depth int) *Node {
	lows := make([]float64, b.width)
	highs := make([]float64, b.width)
	copy(lows, data[0])
	copy(highs, data[0])
	for _, row := range data[1:] {
		for j, v := range row {
			lows[j] = math.Min(lows[j], v)
			highs[j] = math.Max(highs[j], v)
		}
	}
	node := &Node{Min: lows, Max: highs, Size: len(data)}
	if depth >= b.maxDepth || len(data) <= 1 {
		return node
	}

	var candidates []int
	for j := range lows {
		if lows[j] < highs[j] {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return node
	}

	feature := candidates[b.rng.Intn(len(candidates))]
	lo, hi := lows[feature], highs[feature]
	split := lo + b.rng.Float64()*(hi-lo)
	if split <= lo {
		split = lo + (hi-lo)/2
	}
	var left, right [][]float64
	for _, row := range data {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	node.Feature = feature
	node.Split = split
	node.Left = b.build(left, depth+1)
	node.Right = b.build(right, depth+1)
	return node
}

// Score returns the anomaly score of sample in (0, 1]; higher is more anomalous.
func (f *IsolationForest) Score(sample []float64) (float64, error) {
	if len(sample) != f.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", f.NumFeatures, len(sample))
	}
	return f.score(sample), nil
}

func (f *IsolationForest) score(sample []float64) float64 {
	var total float64
	for _, tree := range f.Trees {
		total += pathLength(sample, tree, 0)
	}
	avg := total / float64(len(f.Trees))
	return math.Pow(2, -avg/averagePathLength(float64(f.SampleSize)))
}

// Predict labels each row; true marks an outlier.
func (f *IsolationForest) Predict(data [][]float64) ([]bool, error) {
	labels := make([]bool, len(data))
	for i, row := range data {
		s, err := f.Score(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		labels[i] = s > f.Threshold
	}
	return labels, nil
}

func pathLength(sample []float64, n *Node, depth int) float64 {
	if !n.contains(sample) {
		return float64(depth)
	}
	if n.Left == nil && n.Right == nil {
		return float64(depth) + averagePathLength(float64(n.Size))
	}
	if sample[n.Feature] < n.Split {
		return pathLength(sample, n.Left, depth+1)
	}
	return pathLength(sample, n.Right, depth+1)
}

// averagePathLength is c(n), the mean path length of an unsuccessful BST search.
func averagePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+eulerGamma) - 2*(n-1)/n
}

// percentile returns the q-quantile (0..1) of values using nearest rank.
func percentile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)-1) * q)
	return sorted[idx]
}
