package ml

import (
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// Train fits a classifier of the given type on every row of ds.
func Train(ds *Dataset, modelType string, cfg ForestConfig) (*Model, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if modelType == "" {
		modelType = ModelTypeRandomForest
	}

	classes, y := encodeLabels(ds.Labels)

	var clf Classifier
	switch modelType {
	case ModelTypeRandomForest:
		forest := &RandomForest{}
		if err := forest.fit(ds.Features, y, len(classes), cfg); err != nil {
			return nil, fmt.Errorf("fit random forest: %w", err)
		}
		clf = forest
	case ModelTypeDecisionTree:
		tree := &DecisionTree{}
		treeCfg := cfg.TreeConfig
		treeCfg.MaxFeatures = 0
		if err := tree.fit(ds.Features, y, len(classes), treeCfg, rand.New(rand.NewSource(cfg.Seed))); err != nil {
			return nil, fmt.Errorf("fit decision tree: %w", err)
		}
		clf = tree
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, modelType)
	}

	return &Model{
		Type:      modelType,
		Features:  append([]string(nil), ds.FeatureNames...),
		Target:    ds.Target,
		Classes:   classes,
		Params:    cfg,
		CreatedAt: time.Now().UTC(),
		clf:       clf,
	}, nil
}

// encodeLabels maps labels onto class indices; classes are sorted ascending.
func encodeLabels(labels []int) ([]int, []int) {
	seen := make(map[int]bool)
	classes := make([]int, 0, 2)
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = index[l]
	}
	return classes, y
}
