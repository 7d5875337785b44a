package ml

import (
	"fmt"
)

// Evaluation is the accuracy of a model on a held-out set.
type Evaluation struct {
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// Percent returns the accuracy in [0, 100].
func (e Evaluation) Percent() float64 {
	return e.Accuracy * 100
}

func (e Evaluation) String() string {
	return fmt.Sprintf("Model Accuracy: %.2f%%", e.Percent())
}

// Evaluate scores model against every row of ds.
func Evaluate(model *Model, ds *Dataset) (Evaluation, error) {
	if ds == nil || ds.Len() == 0 {
		return Evaluation{}, fmt.Errorf("evaluate: %w", ErrEmptyDataset)
	}
	predicted, err := model.PredictBatch(ds.Features)
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluate: %w", err)
	}

	var correct int
	for i, label := range predicted {
		if label == ds.Labels[i] {
			correct++
		}
	}
	return Evaluation{
		Correct:  correct,
		Total:    ds.Len(),
		Accuracy: float64(correct) / float64(ds.Len()),
	}, nil
}
