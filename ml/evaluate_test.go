package ml

import (
	"math"
	"testing"
)

func TestEvaluateAccuracy(t *testing.T) {
	ds := separableDataset(t, 20)
	model, err := Train(ds, ModelTypeRandomForest, smallForestConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Flip three labels so exactly three predictions disagree.
	flipped := ds.Subset([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11})
	labels := append([]int(nil), flipped.Labels...)
	for _, i := range []int{0, 3, 5} {
		labels[i] = 1 - labels[i]
	}
	flipped.Labels = labels

	eval, err := Evaluate(model, flipped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.Total != 12 || eval.Correct != 9 {
		t.Fatalf("expected 9/12 correct, got %d/%d", eval.Correct, eval.Total)
	}
	if math.Abs(eval.Percent()-75) > 1e-9 {
		t.Fatalf("expected 75%%, got %f", eval.Percent())
	}
	if eval.String() != "Model Accuracy: 75.00%" {
		t.Fatalf("unexpected report line: %q", eval.String())
	}
}

func TestEvaluationString(t *testing.T) {
	tests := []struct {
		eval Evaluation
		want string
	}{
		{Evaluation{Correct: 50, Total: 61, Accuracy: 50.0 / 61}, "Model Accuracy: 81.97%"},
		{Evaluation{Correct: 0, Total: 4, Accuracy: 0}, "Model Accuracy: 0.00%"},
		{Evaluation{Correct: 4, Total: 4, Accuracy: 1}, "Model Accuracy: 100.00%"},
	}
	for _, tt := range tests {
		if got := tt.eval.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
		if p := tt.eval.Percent(); p < 0 || p > 100 {
			t.Errorf("percent out of range: %f", p)
		}
	}
}

func TestEvaluateEmpty(t *testing.T) {
	model, err := Train(separableDataset(t, 10), ModelTypeRandomForest, smallForestConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Evaluate(model, nil); err == nil {
		t.Fatal("expected error for empty evaluation set")
	}
}
