package scatterfit

import (
	"math/rand"
	"sort"
)

//////
// Regression tree (CART) shared by the boosted and bagged families.
//////

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// regressionTree fits piecewise-constant predictions by recursive binary
// splitting on the feature/threshold pair with the largest reduction in the
// residual sum of squares.
type regressionTree struct {
	maxDepth int
	minLeaf  int

	// maxFeatures limits how many candidate features each split considers;
	// 0 means all. Forests use this for decorrelation.
	maxFeatures int

	rng  *rand.Rand
	root *treeNode
}

func newRegressionTree(maxDepth, minLeaf, maxFeatures int, rng *rand.Rand) *regressionTree {
	if maxDepth < 1 {
		maxDepth = 1
	}

	if minLeaf < 1 {
		minLeaf = 1
	}

	return &regressionTree{
		maxDepth:    maxDepth,
		minLeaf:     minLeaf,
		maxFeatures: maxFeatures,
		rng:         rng,
	}
}

// fit grows the tree on the samples selected by indices.
func (t *regressionTree) fit(X [][]float64, y []float64, indices []int) {
	t.root = t.grow(X, y, indices, 0)
}

func (t *regressionTree) predictOne(x []float64) float64 {
	node := t.root
	for !node.leaf {
		if x[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}

	return node.value
}

func (t *regressionTree) grow(X [][]float64, y []float64, indices []int, depth int) *treeNode {
	mean := subsetMean(y, indices)

	if depth >= t.maxDepth || len(indices) < 2*t.minLeaf {
		return &treeNode{leaf: true, value: mean}
	}

	feature, threshold, ok := t.bestSplit(X, y, indices)
	if !ok {
		return &treeNode{leaf: true, value: mean}
	}

	var left, right []int

	for _, idx := range indices {
		if X[idx][feature] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	if len(left) < t.minLeaf || len(right) < t.minLeaf {
		return &treeNode{leaf: true, value: mean}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      t.grow(X, y, left, depth+1),
		right:     t.grow(X, y, right, depth+1),
	}
}

// bestSplit scans candidate features with a sorted prefix-sum sweep and
// returns the split maximizing the reduction in residual sum of squares.
func (t *regressionTree) bestSplit(X [][]float64, y []float64, indices []int) (feature int, threshold float64, ok bool) {
	nFeatures := len(X[indices[0]])

	candidates := make([]int, nFeatures)
	for i := range candidates {
		candidates[i] = i
	}

	if t.maxFeatures > 0 && t.maxFeatures < nFeatures {
		t.rng.Shuffle(nFeatures, func(a, b int) {
			candidates[a], candidates[b] = candidates[b], candidates[a]
		})
		candidates = candidates[:t.maxFeatures]
	}

	var totalSum, totalSq float64
	for _, idx := range indices {
		totalSum += y[idx]
		totalSq += y[idx] * y[idx]
	}

	n := float64(len(indices))
	baseSSE := totalSq - totalSum*totalSum/n
	bestGain := 1e-12

	order := append([]int(nil), indices...)

	for _, f := range candidates {
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		var leftSum float64
		leftN := 0.0

		for i := 0; i < len(order)-1; i++ {
			idx := order[i]
			leftSum += y[idx]
			leftN++

			// No split between equal feature values.
			if X[idx][f] == X[order[i+1]][f] {
				continue
			}

			if int(leftN) < t.minLeaf || len(order)-int(leftN) < t.minLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightN := n - leftN

			gain := baseSSE - (totalSq - leftSum*leftSum/leftN - rightSum*rightSum/rightN)
			if gain > bestGain {
				bestGain = gain
				feature = f
				threshold = (X[idx][f] + X[order[i+1]][f]) / 2
				ok = true
			}
		}
	}

	return feature, threshold, ok
}

func subsetMean(y []float64, indices []int) float64 {
	var sum float64
	for _, idx := range indices {
		sum += y[idx]
	}

	return sum / float64(len(indices))
}
