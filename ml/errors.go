package ml

import (
	"errors"
	"fmt"
)

var (
	ErrTargetMissing   = errors.New("target column not found")
	ErrEmptyDataset    = errors.New("dataset is empty")
	ErrModelNotTrained = errors.New("model not trained")
	ErrUnknownModel    = errors.New("unsupported model type")
)

// DataLoadError reports a dataset that could not be read into a Dataset.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load dataset: %v", e.Err)
	}
	return fmt.Sprintf("load dataset %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// SerializationError reports a model artifact that could not be written or read back.
type SerializationError struct {
	Op   string
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s model artifact %s: %v", e.Op, e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// PredictionInputError reports a feature row whose shape or encoding does not
// match the one the model was trained with.
type PredictionInputError struct {
	Field string
	Err   error
}

func (e *PredictionInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid prediction input: %v", e.Err)
	}
	return fmt.Sprintf("invalid prediction input %s: %v", e.Field, e.Err)
}

func (e *PredictionInputError) Unwrap() error { return e.Err }

func dataLoadErr(path string, err error) error {
	return &DataLoadError{Path: path, Err: err}
}

func inputErr(field string, format string, args ...any) error {
	return &PredictionInputError{Field: field, Err: fmt.Errorf(format, args...)}
}
