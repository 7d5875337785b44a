package ml

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestRandomForestSeparableFeature(t *testing.T) {
	ds := separableDataset(t, 20)
	split, err := SplitDataset(ds, DefaultTestFraction, DefaultSeed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	model, err := Train(split.Train, ModelTypeRandomForest, DefaultForestConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.TreeCount() != 100 {
		t.Fatalf("expected 100 trees, got %d", model.TreeCount())
	}

	eval, err := Evaluate(model, split.Test)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.Percent() < 90 {
		t.Fatalf("expected accuracy >= 90%%, got %.2f%%", eval.Percent())
	}
}

func TestRandomForestDeterministic(t *testing.T) {
	ds := separableDataset(t, 40)
	cfg := smallForestConfig()

	a, err := Train(ds, ModelTypeRandomForest, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Train(ds, ModelTypeRandomForest, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ja, _ := json.Marshal(a.clf)
	jb, _ := json.Marshal(b.clf)
	if string(ja) != string(jb) {
		t.Fatal("expected identical forests for identical seeds")
	}
}

func TestRandomForestProbabilities(t *testing.T) {
	ds := separableDataset(t, 20)
	model, err := Train(ds, ModelTypeRandomForest, smallForestConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := model.PredictDetail(ds.Features[1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum float64
	for _, v := range p.Probabilities {
		sum += v
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("expected probabilities to sum to 1, got %f", sum)
	}
	if p.Label != 1 {
		t.Fatalf("expected label 1 for an old patient, got %d", p.Label)
	}
}

func TestTrainDecisionTreeModel(t *testing.T) {
	ds := separableDataset(t, 20)
	model, err := Train(ds, ModelTypeDecisionTree, DefaultForestConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.TreeCount() != 1 {
		t.Fatalf("expected a single tree, got %d", model.TreeCount())
	}
	eval, err := Evaluate(model, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.Accuracy != 1 {
		t.Fatalf("expected training accuracy 1, got %f", eval.Accuracy)
	}
}

func TestTrainErrors(t *testing.T) {
	ds := separableDataset(t, 10)
	if _, err := Train(ds, "svm", DefaultForestConfig()); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
	cfg := DefaultForestConfig()
	cfg.TreeCount = 0
	if _, err := Train(ds, ModelTypeRandomForest, cfg); err == nil {
		t.Fatal("expected error for zero trees")
	}
	if _, err := Train(nil, ModelTypeRandomForest, DefaultForestConfig()); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestEncodeLabels(t *testing.T) {
	classes, y := encodeLabels([]int{3, 1, 3, 1, 7})
	if len(classes) != 3 || classes[0] != 1 || classes[1] != 3 || classes[2] != 7 {
		t.Fatalf("unexpected classes: %v", classes)
	}
	want := []int{1, 0, 1, 0, 2}
	for i := range want {
		if y[i] != want[i] {
			t.Fatalf("unexpected encoding: %v", y)
		}
	}
}
