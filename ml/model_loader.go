package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArtifactFormatVersion is bumped whenever the artifact layout changes.
const ArtifactFormatVersion = 1

type artifact struct {
	FormatVersion int             `json:"format_version"`
	ModelType     string          `json:"model_type"`
	Features      []string        `json:"features"`
	Target        string          `json:"target"`
	Classes       []int           `json:"classes"`
	Params        ForestConfig    `json:"params"`
	CreatedAt     time.Time       `json:"created_at"`
	Model         json.RawMessage `json:"model"`
}

// SaveModel writes the model artifact to path, replacing any existing file.
// The artifact is written to a temporary file first, so a failed save leaves
// the previous file untouched.
func SaveModel(path string, m *Model) error {
	if m == nil || m.clf == nil {
		return &SerializationError{Op: "save", Path: path, Err: ErrModelNotTrained}
	}
	body, err := json.Marshal(m.clf)
	if err != nil {
		return &SerializationError{Op: "save", Path: path, Err: err}
	}
	payload, err := json.Marshal(artifact{
		FormatVersion: ArtifactFormatVersion,
		ModelType:     m.Type,
		Features:      m.Features,
		Target:        m.Target,
		Classes:       m.Classes,
		Params:        m.Params,
		CreatedAt:     m.CreatedAt,
		Model:         body,
	})
	if err != nil {
		return &SerializationError{Op: "save", Path: path, Err: err}
	}

	if err := writeFileAtomic(path, payload, 0o644); err != nil {
		return &SerializationError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// LoadModel reads an artifact written by SaveModel.
func LoadModel(path string) (*Model, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, &SerializationError{Op: "load", Path: path, Err: err}
	}
	m, err := decodeModel(payload)
	if err != nil {
		return nil, &SerializationError{Op: "load", Path: path, Err: err}
	}
	return m, nil
}

func decodeModel(payload []byte) (*Model, error) {
	var a artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, err
	}
	if a.FormatVersion != ArtifactFormatVersion {
		return nil, fmt.Errorf("unsupported format version %d", a.FormatVersion)
	}
	if len(a.Features) == 0 {
		return nil, errors.New("artifact lists no features")
	}
	if len(a.Classes) == 0 {
		return nil, errors.New("artifact lists no classes")
	}
	if len(a.Model) == 0 {
		return nil, errors.New("artifact has no model body")
	}

	var clf Classifier
	switch a.ModelType {
	case ModelTypeRandomForest:
		clf = &RandomForest{}
	case ModelTypeDecisionTree:
		clf = &DecisionTree{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, a.ModelType)
	}
	if err := json.Unmarshal(a.Model, clf); err != nil {
		return nil, fmt.Errorf("decode %s: %w", a.ModelType, err)
	}
	if err := clf.validate(len(a.Features), len(a.Classes)); err != nil {
		return nil, err
	}

	return &Model{
		Type:      a.ModelType,
		Features:  a.Features,
		Target:    a.Target,
		Classes:   a.Classes,
		Params:    a.Params,
		CreatedAt: a.CreatedAt,
		clf:       clf,
	}, nil
}

func writeFileAtomic(path string, payload []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
