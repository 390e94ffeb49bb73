// Package report holds the evaluation result and persists it as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/fruits/internal/dataset"
)

// DefaultPath is where results are written when no path is configured.
const DefaultPath = "data/08_reporting/model_results.json"

// Result is the outcome of evaluating a model on the test table.
type Result struct {
	TestAccuracy         float64            `json:"test_accuracy"`
	TestBalancedAccuracy float64            `json:"test_balanced_accuracy"`
	LabelMap             dataset.ClassMap   `json:"label_map"`
	SamplePredictions    []SamplePrediction `json:"sample_predictions"`
}

// SamplePrediction pairs a test row with the model's prediction for it.
type SamplePrediction struct {
	Image          string    `json:"image"`
	TrueLabel      int       `json:"true_label"`
	TrueFruit      string    `json:"true_fruit"`
	PredictedLabel int       `json:"predicted_label"`
	PredictedFruit string    `json:"predicted_fruit"`
	Probabilities  []float64 `json:"probabilities"`
}

// SerializationIOError reports a result that could not be persisted.
type SerializationIOError struct {
	Path string
	Err  error
}

func (e *SerializationIOError) Error() string {
	return fmt.Sprintf("writing results to %s: %v", e.Path, e.Err)
}

func (e *SerializationIOError) Unwrap() error {
	return e.Err
}

// Write stores r at path as indented JSON, creating parent directories.
func Write(path string, r *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &SerializationIOError{Path: path, Err: err}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return &SerializationIOError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return &SerializationIOError{Path: path, Err: err}
	}
	return nil
}

// Read parses a result previously stored by Write.
func Read(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading results")
	}

	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return &r, nil
}
