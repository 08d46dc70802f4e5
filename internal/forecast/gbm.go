package forecast

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GradientBoosting is a least-squares gradient boosted ensemble of regression trees.
// It is fitted from scratch on every Fit call and holds no state beyond the last fit.
type GradientBoosting struct {
	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int

	init  float64
	trees []*treeNode
}

// NewGradientBoosting returns a booster with 100 depth-3 trees and learning rate 0.1.
func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{
		NEstimators:    100,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 2,
	}
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// Fit trains the ensemble on X (rows of equal width) and y.
func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("gbm: X and y must be non-empty and of equal length")
	}
	width := len(X[0])
	for _, row := range X {
		if len(row) != width {
			return errors.New("gbm: ragged feature matrix")
		}
	}

	g.init = stat.Mean(y, nil)
	g.trees = g.trees[:0]

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = g.init
	}
	resid := make([]float64, len(y))
	idx := make([]int, len(y))
	for m := 0; m < g.NEstimators; m++ {
		for i := range y {
			resid[i] = y[i] - pred[i]
			idx[i] = i
		}
		tree := g.grow(X, resid, idx, 0)
		g.trees = append(g.trees, tree)
		for i := range pred {
			pred[i] += g.LearningRate * tree.predict(X[i])
		}
	}
	return nil
}

// Predict returns the ensemble prediction for x.
func (g *GradientBoosting) Predict(x []float64) float64 {
	out := g.init
	for _, t := range g.trees {
		out += g.LearningRate * t.predict(x)
	}
	return out
}

func (g *GradientBoosting) grow(X [][]float64, r []float64, idx []int, depth int) *treeNode {
	sum := 0.0
	for _, i := range idx {
		sum += r[i]
	}
	leaf := &treeNode{leaf: true, value: sum / float64(len(idx))}
	if depth >= g.MaxDepth || len(idx) < 2*g.MinSamplesLeaf {
		return leaf
	}

	bestGain := 0.0
	bestFeature, bestPos := -1, 0
	var bestOrder []int
	n := float64(len(idx))
	base := sum * sum / n

	order := make([]int, len(idx))
	for f := 0; f < len(X[idx[0]]); f++ {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		left := 0.0
		for k := 0; k < len(order)-1; k++ {
			left += r[order[k]]
			nl := k + 1
			nr := len(order) - nl
			if nl < g.MinSamplesLeaf || nr < g.MinSamplesLeaf {
				continue
			}
			if X[order[k]][f] == X[order[k+1]][f] {
				continue
			}
			right := sum - left
			gain := left*left/float64(nl) + right*right/float64(nr) - base
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = f
				bestPos = k
				bestOrder = append(bestOrder[:0], order...)
			}
		}
	}
	if bestFeature < 0 {
		return leaf
	}

	lo := X[bestOrder[bestPos]][bestFeature]
	hi := X[bestOrder[bestPos+1]][bestFeature]
	leftIdx := append([]int(nil), bestOrder[:bestPos+1]...)
	rightIdx := append([]int(nil), bestOrder[bestPos+1:]...)
	return &treeNode{
		feature:   bestFeature,
		threshold: (lo + hi) / 2,
		left:      g.grow(X, r, leftIdx, depth+1),
		right:     g.grow(X, r, rightIdx, depth+1),
	}
}

// rSquared is the coefficient of determination of pred against y.
// A constant target scores 1 when matched exactly and 0 otherwise.
func rSquared(y, pred []float64) float64 {
	if stat.Variance(y, nil) == 0 {
		for i := range y {
			if y[i] != pred[i] {
				return 0
			}
		}
		return 1
	}
	return stat.RSquaredFrom(pred, y, nil)
}
