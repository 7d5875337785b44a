package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ForestConfig holds the hyperparameters of a RandomForest.
type ForestConfig struct {
	TreeCount int   `json:"tree_count" yaml:"tree_count"`
	Seed      int64 `json:"seed" yaml:"seed"`
	TreeConfig `yaml:",inline"`
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		TreeCount: 100,
		Seed:      DefaultSeed,
		TreeConfig: TreeConfig{
			MinSamplesSplit: 2,
		},
	}
}

// RandomForest is a bagged ensemble of randomized decision trees. Predictions
// average the class probabilities of all trees.
type RandomForest struct {
	Trees      []*DecisionTree `json:"trees"`
	NumClasses int             `json:"num_classes"`
}

func (f *RandomForest) fit(features [][]float64, y []int, numClasses int, cfg ForestConfig) error {
	if len(features) == 0 {
		return errors.New("features or labels empty")
	}
	if cfg.TreeCount <= 0 {
		return fmt.Errorf("tree count must be positive, got %d", cfg.TreeCount)
	}

	treeCfg := cfg.TreeConfig
	if treeCfg.MaxFeatures <= 0 {
		treeCfg.MaxFeatures = int(math.Sqrt(float64(len(features[0]))))
		if treeCfg.MaxFeatures < 1 {
			treeCfg.MaxFeatures = 1
		}
	}

	seeds := rand.New(rand.NewSource(cfg.Seed))
	trees := make([]*DecisionTree, 0, cfg.TreeCount)
	n := len(features)
	for t := 0; t < cfg.TreeCount; t++ {
		rnd := rand.New(rand.NewSource(seeds.Int63()))

		sampleX := make([][]float64, n)
		sampleY := make([]int, n)
		for i := 0; i < n; i++ {
			j := rnd.Intn(n)
			sampleX[i] = features[j]
			sampleY[i] = y[j]
		}

		tree := &DecisionTree{}
		if err := tree.fit(sampleX, sampleY, numClasses, treeCfg, rnd); err != nil {
			return fmt.Errorf("tree %d: %w", t, err)
		}
		trees = append(trees, tree)
	}

	f.Trees = trees
	f.NumClasses = numClasses
	return nil
}

func (f *RandomForest) Predict(features []float64) (int, float64, error) {
	proba, err := f.PredictProba(features)
	if err != nil {
		return 0, 0, err
	}
	class := argmax(proba)
	return class, proba[class], nil
}

func (f *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, ErrModelNotTrained
	}
	sum := make([]float64, f.NumClasses)
	for i, tree := range f.Trees {
		node, err := tree.leaf(features)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		for c, p := range node.Value {
			sum[c] += p
		}
	}
	for c := range sum {
		sum[c] /= float64(len(f.Trees))
	}
	return sum, nil
}

func (f *RandomForest) validate(numFeatures, numClasses int) error {
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	if f.NumClasses != numClasses {
		return fmt.Errorf("forest has %d classes, expected %d", f.NumClasses, numClasses)
	}
	for i, tree := range f.Trees {
		if tree == nil {
			return fmt.Errorf("tree %d is missing", i)
		}
		if err := tree.validate(numFeatures, numClasses); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (f *RandomForest) maxDepth() int {
	d := 0
	for _, t := range f.Trees {
		d = max(d, t.depth())
	}
	return d
}
