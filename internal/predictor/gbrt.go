package predictor

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GBRTConfig holds the boosted-ensemble hyperparameters.
type GBRTConfig struct {
	NEstimators    int
	MaxDepth       int
	LearningRate   float64
	MinSamplesLeaf int
}

// DefaultGBRTConfig mirrors the dashboard's conventional settings.
func DefaultGBRTConfig() GBRTConfig {
	return GBRTConfig{
		NEstimators:    200,
		MaxDepth:       6,
		LearningRate:   0.05,
		MinSamplesLeaf: 1,
	}
}

// GBRT is a gradient-boosted ensemble of least-squares regression trees.
// Each stage fits a depth-limited tree to the current residuals and is added
// with the configured learning rate.
type GBRT struct {
	cfg   GBRTConfig
	base  float64
	trees []*regTree
}

// NewGBRT creates an unfitted ensemble.
func NewGBRT(cfg GBRTConfig) *GBRT {
	if cfg.NEstimators <= 0 {
		cfg.NEstimators = 1
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 1
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = 1
	}
	return &GBRT{cfg: cfg}
}

// Fit trains the ensemble on the given matrix and targets.
func (g *GBRT) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("gbrt fit: %d rows, %d targets", len(x), len(y))
	}

	g.base = stat.Mean(y, nil)
	g.trees = g.trees[:0]

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = g.base
	}

	residual := make([]float64, len(y))
	for stage := 0; stage < g.cfg.NEstimators; stage++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}
		t := fitTree(x, residual, g.cfg.MaxDepth, g.cfg.MinSamplesLeaf)
		if t == nil {
			break
		}
		g.trees = append(g.trees, t)
		for i := range pred {
			pred[i] += g.cfg.LearningRate * t.predict(x[i])
		}
	}
	return nil
}

// Predict returns the ensemble forecast for one feature vector.
func (g *GBRT) Predict(v []float64) float64 {
	out := g.base
	for _, t := range g.trees {
		out += g.cfg.LearningRate * t.predict(v)
	}
	return out
}

// Fitted reports whether Fit has been called.
func (g *GBRT) Fitted() bool { return len(g.trees) > 0 }

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

type regTree struct {
	root *treeNode
}

func (t *regTree) predict(v []float64) float64 {
	n := t.root
	for !n.leaf {
		if v[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func fitTree(x [][]float64, y []float64, maxDepth, minLeaf int) *regTree {
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	root := buildNode(x, y, idx, maxDepth, minLeaf)
	if root == nil {
		return nil
	}
	return &regTree{root: root}
}

func buildNode(x [][]float64, y []float64, idx []int, depth, minLeaf int) *treeNode {
	if len(idx) == 0 {
		return nil
	}
	mean := meanAt(y, idx)
	if depth == 0 || len(idx) < 2*minLeaf {
		return &treeNode{leaf: true, value: mean}
	}

	feature, threshold, ok := bestSplit(x, y, idx, minLeaf)
	if !ok {
		return &treeNode{leaf: true, value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{leaf: true, value: mean}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      buildNode(x, y, left, depth-1, minLeaf),
		right:     buildNode(x, y, right, depth-1, minLeaf),
	}
}

// bestSplit scans every feature's sorted values with running sums, picking
// the split that minimizes total squared error.
func bestSplit(x [][]float64, y []float64, idx []int, minLeaf int) (feature int, threshold float64, ok bool) {
	n := len(idx)
	if n < 2*minLeaf {
		return 0, 0, false
	}

	var totalSum, totalSq float64
	for _, i := range idx {
		totalSum += y[i]
		totalSq += y[i] * y[i]
	}
	bestScore := totalSq - totalSum*totalSum/float64(n)
	found := false

	order := make([]int, n)
	for f := 0; f < len(x[idx[0]]); f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return x[order[a]][f] < x[order[b]][f] })

		leftSum, leftSq := 0.0, 0.0
		for k := 0; k < n-1; k++ {
			i := order[k]
			leftSum += y[i]
			leftSq += y[i] * y[i]

			// Can't split between equal feature values.
			if x[i][f] == x[order[k+1]][f] {
				continue
			}
			nl := k + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			score := (leftSq - leftSum*leftSum/float64(nl)) +
				(rightSq - rightSum*rightSum/float64(nr))
			if score < bestScore-1e-12 {
				bestScore = score
				feature = f
				threshold = (x[i][f] + x[order[k+1]][f]) / 2
				found = true
			}
		}
	}
	return feature, threshold, found
}

func meanAt(y []float64, idx []int) float64 {
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}
