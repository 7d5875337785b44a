package ml

import (
	"fmt"
	"math"
	"time"
)

const (
	ModelTypeRandomForest = "random_forest"
	ModelTypeDecisionTree = "decision_tree"
)

// Classifier predicts a class index for one encoded feature vector.
type Classifier interface {
	Predict(features []float64) (int, float64, error)
	PredictProba(features []float64) ([]float64, error)
	validate(numFeatures, numClasses int) error
}

// Model is an immutable handle on a fitted classifier together with the
// column order and class labels it was trained with. It is safe for
// concurrent use.
type Model struct {
	Type      string
	Features  []string
	Target    string
	Classes   []int
	Params    ForestConfig
	CreatedAt time.Time

	clf Classifier
}

// Prediction is the outcome for one feature vector.
type Prediction struct {
	Label         int       `json:"label"`
	Probability   float64   `json:"probability"`
	Probabilities []float64 `json:"probabilities"`
}

// Predict returns the predicted label for one encoded row.
func (m *Model) Predict(features []float64) (int, error) {
	p, err := m.PredictDetail(features)
	if err != nil {
		return 0, err
	}
	return p.Label, nil
}

// PredictDetail returns the predicted label with class probabilities in
// Classes order.
func (m *Model) PredictDetail(features []float64) (Prediction, error) {
	if m == nil || m.clf == nil {
		return Prediction{}, ErrModelNotTrained
	}
	if err := m.checkInput(features); err != nil {
		return Prediction{}, err
	}
	proba, err := m.clf.PredictProba(features)
	if err != nil {
		return Prediction{}, err
	}
	class := argmax(proba)
	return Prediction{
		Label:         m.Classes[class],
		Probability:   proba[class],
		Probabilities: proba,
	}, nil
}

// PredictBatch predicts every row; the first invalid row aborts the batch.
func (m *Model) PredictBatch(rows [][]float64) ([]int, error) {
	labels := make([]int, len(rows))
	for i, row := range rows {
		label, err := m.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		labels[i] = label
	}
	return labels, nil
}

// PredictRow encodes a FeatureRow and predicts it. The model must have been
// trained on exactly the FeatureNames columns, in that order.
func (m *Model) PredictRow(row FeatureRow) (Prediction, error) {
	if err := row.Validate(); err != nil {
		return Prediction{}, err
	}
	if len(m.Features) != len(featureNames) {
		return Prediction{}, inputErr("", "model expects %d features, form provides %d", len(m.Features), len(featureNames))
	}
	for i, name := range featureNames {
		if m.Features[i] != name {
			return Prediction{}, inputErr(name, "model expects column %q at position %d", m.Features[i], i)
		}
	}
	return m.PredictDetail(row.Vector())
}

func (m *Model) checkInput(features []float64) error {
	if len(features) != len(m.Features) {
		return inputErr("", "expected %d features, got %d", len(m.Features), len(features))
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return inputErr(m.Features[i], "not a finite number")
		}
	}
	return nil
}

// TreeCount reports the number of trees behind the model.
func (m *Model) TreeCount() int {
	switch c := m.clf.(type) {
	case *RandomForest:
		return len(c.Trees)
	case *DecisionTree:
		return 1
	}
	return 0
}

// Depth reports the depth of the deepest tree.
func (m *Model) Depth() int {
	switch c := m.clf.(type) {
	case *RandomForest:
		return c.maxDepth()
	case *DecisionTree:
		return c.depth()
	}
	return 0
}
