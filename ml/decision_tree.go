package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TreeConfig controls how a single tree grows.
type TreeConfig struct {
	MaxDepth        int `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split" yaml:"min_samples_split"`
	// MaxFeatures is the number of candidate features drawn at each split;
	// zero or a value above the feature count means all of them.
	MaxFeatures int `json:"max_features" yaml:"max_features"`
}

// DecisionTree is a binary CART tree stored as a flat node array in pre-order.
type DecisionTree struct {
	Nodes      []TreeNode `json:"nodes"`
	NumClasses int        `json:"num_classes"`
}

type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	ClassLabel int       `json:"class_label"`
	IsLeaf     bool      `json:"is_leaf"`
	Value      []float64 `json:"value,omitempty"`
}

// fit grows the tree on class-index labels y in [0, numClasses).
func (dt *DecisionTree) fit(features [][]float64, y []int, numClasses int, cfg TreeConfig, rnd *rand.Rand) error {
	if len(features) == 0 || len(y) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(y) {
		return errors.New("features and labels size mismatch")
	}
	if numClasses < 1 {
		return errors.New("no classes")
	}

	b := &treeBuilder{
		features:    features,
		y:           y,
		numClasses:  numClasses,
		numFeatures: len(features[0]),
		maxDepth:    cfg.MaxDepth,
		minSplit:    cfg.MinSamplesSplit,
		maxFeatures: cfg.MaxFeatures,
		rnd:         rnd,
	}
	if b.minSplit < 2 {
		b.minSplit = 2
	}
	if b.maxFeatures <= 0 || b.maxFeatures > b.numFeatures {
		b.maxFeatures = b.numFeatures
	}

	idx := make([]int, len(features))
	for i := range idx {
		idx[i] = i
	}
	b.build(idx, 0)

	dt.Nodes = b.nodes
	dt.NumClasses = numClasses
	return nil
}

// Predict returns the class index of the leaf reached by features and that
// leaf's class probability.
func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	proba, err := dt.PredictProba(features)
	if err != nil {
		return 0, 0, err
	}
	class := argmax(proba)
	return class, proba[class], nil
}

func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	node, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), node.Value...), nil
}

func (dt *DecisionTree) leaf(features []float64) (*TreeNode, error) {
	if len(dt.Nodes) == 0 {
		return nil, ErrModelNotTrained
	}
	idx := 0
	for {
		node := &dt.Nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
}

// validate checks the structure of a deserialized tree. Children always follow
// their parent, which rules out cycles.
func (dt *DecisionTree) validate(numFeatures, numClasses int) error {
	if len(dt.Nodes) == 0 {
		return ErrModelNotTrained
	}
	if dt.NumClasses != numClasses {
		return fmt.Errorf("tree has %d classes, expected %d", dt.NumClasses, numClasses)
	}
	for i, n := range dt.Nodes {
		if n.IsLeaf {
			if len(n.Value) != numClasses {
				return fmt.Errorf("node %d: leaf has %d class weights, expected %d", i, len(n.Value), numClasses)
			}
			continue
		}
		if n.FeatureIdx < 0 || n.FeatureIdx >= numFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.FeatureIdx)
		}
		if n.LeftChild <= i || n.LeftChild >= len(dt.Nodes) || n.RightChild <= i || n.RightChild >= len(dt.Nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
		if math.IsNaN(n.Threshold) {
			return fmt.Errorf("node %d: threshold is NaN", i)
		}
	}
	return nil
}

func (dt *DecisionTree) depth() int {
	if len(dt.Nodes) == 0 {
		return 0
	}
	var walk func(idx int) int
	walk = func(idx int) int {
		n := dt.Nodes[idx]
		if n.IsLeaf {
			return 0
		}
		return 1 + max(walk(n.LeftChild), walk(n.RightChild))
	}
	return walk(0)
}

type treeBuilder struct {
	features    [][]float64
	y           []int
	numClasses  int
	numFeatures int
	maxDepth    int
	minSplit    int
	maxFeatures int
	rnd         *rand.Rand
	nodes       []TreeNode
}

// build appends the subtree for the rows in idx and returns its root index.
func (b *treeBuilder) build(idx []int, depth int) int {
	nodeIdx := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{})

	counts := b.classCounts(idx)
	label := argmax(counts)
	leaf := TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: label,
		IsLeaf:     true,
		Value:      normalize(counts),
	}

	if (b.maxDepth > 0 && depth >= b.maxDepth) || len(idx) < b.minSplit || isPure(counts) {
		b.nodes[nodeIdx] = leaf
		return nodeIdx
	}

	feature, threshold, ok := b.findBestSplit(idx, counts)
	if !ok {
		b.nodes[nodeIdx] = leaf
		return nodeIdx
	}

	left, right := b.partition(idx, feature, threshold)
	if len(left) == 0 || len(right) == 0 {
		b.nodes[nodeIdx] = leaf
		return nodeIdx
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[nodeIdx] = TreeNode{
		FeatureIdx: feature,
		Threshold:  threshold,
		LeftChild:  l,
		RightChild: r,
		ClassLabel: label,
	}
	return nodeIdx
}

// findBestSplit searches a random subset of maxFeatures features for the
// threshold with the lowest weighted Gini impurity. When the drawn features
// are all constant it keeps drawing until one can split.
func (b *treeBuilder) findBestSplit(idx []int, parent []float64) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	order := make([]int, len(idx))
	left := make([]float64, b.numClasses)
	right := make([]float64, b.numClasses)
	n := float64(len(idx))

	for visited, feature := range b.rnd.Perm(b.numFeatures) {
		if visited >= b.maxFeatures && bestFeature >= 0 {
			break
		}

		copy(order, idx)
		sort.SliceStable(order, func(i, j int) bool {
			return b.features[order[i]][feature] < b.features[order[j]][feature]
		})
		for c := range left {
			left[c] = 0
			right[c] = parent[c]
		}

		for i := 0; i < len(order)-1; i++ {
			class := b.y[order[i]]
			left[class]++
			right[class]--

			v := b.features[order[i]][feature]
			next := b.features[order[i+1]][feature]
			if v == next {
				continue
			}
			nl := float64(i + 1)
			impurity := (nl/n)*gini(left, nl) + ((n-nl)/n)*gini(right, n-nl)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = feature
				bestThreshold = midpoint(v, next)
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (b *treeBuilder) partition(idx []int, feature int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func (b *treeBuilder) classCounts(idx []int) []float64 {
	counts := make([]float64, b.numClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

func gini(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := c / total
		impurity -= p * p
	}
	return impurity
}

// midpoint falls back to lo when rounding pushes the midpoint onto hi.
func midpoint(lo, hi float64) float64 {
	m := lo + (hi-lo)/2
	if m >= hi {
		return lo
	}
	return m
}

func normalize(counts []float64) []float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	if total == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / total
	}
	return out
}

func isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// argmax breaks ties towards the lower index.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
