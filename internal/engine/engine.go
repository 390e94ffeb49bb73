// Package engine defines the classifier capability used by the training pipeline and the
// prediction service, and the model handle that wraps a fitted classifier.
package engine

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/fruits/internal/dataset"
	"github.com/Brownie44l1/fruits/internal/metrics"
)

// ErrFitUnsupported is returned by engines that can only load exported models.
var ErrFitUnsupported = errors.New("engine does not support training")

// Classifier is the fitted state of a model.
type Classifier interface {
	// Classes returns the class names indexed by label.
	Classes() []string
	// Classify returns one probability per class for img.
	Classify(ctx context.Context, img image.Image) ([]float64, error)
	Close() error
}

// FitConfig configures a training run.
type FitConfig struct {
	// Path is where the fitted model is persisted.
	Path      string
	Classes   dataset.ClassMap
	TimeLimit time.Duration
	Presets   string
}

// Engine fits new models and loads persisted ones.
type Engine interface {
	Fit(ctx context.Context, train dataset.Table, cfg FitConfig) (*Handle, error)
	Load(path string) (*Handle, error)
}

// Handle is a fitted classifier together with the path it is persisted at.
type Handle struct {
	Path       string
	classifier Classifier
}

// NewHandle wraps c, persisted at path.
func NewHandle(path string, c Classifier) *Handle {
	return &Handle{Path: path, classifier: c}
}

func (h *Handle) Classes() []string {
	return h.classifier.Classes()
}

// Classify scores a decoded image.
func (h *Handle) Classify(ctx context.Context, img image.Image) ([]float64, error) {
	probs, err := h.classifier.Classify(ctx, img)
	if err != nil {
		return nil, err
	}
	if len(probs) != len(h.Classes()) {
		return nil, errors.Errorf("classifier returned %d probabilities for %d classes", len(probs), len(h.Classes()))
	}
	return probs, nil
}

// PredictProba returns the probability rows for every sample in t, ordered as Classes.
func (h *Handle) PredictProba(ctx context.Context, t dataset.Table) ([][]float64, error) {
	rows := make([][]float64, len(t))
	for i, s := range t {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := LoadImage(s.Image)
		if err != nil {
			return nil, err
		}
		rows[i], err = h.Classify(ctx, img)
		if err != nil {
			return nil, errors.Wrapf(err, "classifying %s", s.Image)
		}
	}
	return rows, nil
}

// ClassMismatchError reports a classifier whose classes do not line up with a
// class map.
type ClassMismatchError struct {
	Model []string
	Data  []string
}

func (e *ClassMismatchError) Error() string {
	return fmt.Sprintf("model classes %v do not match class map %v", e.Model, e.Data)
}

// Align checks that the classifier scores exactly the classes of m, in label order.
func (h *Handle) Align(m dataset.ClassMap) error {
	model, data := h.Classes(), m.Names()
	if len(model) != len(data) {
		return &ClassMismatchError{Model: model, Data: data}
	}
	for i := range model {
		if model[i] != data[i] {
			return &ClassMismatchError{Model: model, Data: data}
		}
	}
	return nil
}

// Predict returns the most probable label in m for every sample in t.
func (h *Handle) Predict(ctx context.Context, t dataset.Table, m dataset.ClassMap) ([]int, error) {
	if err := h.Align(m); err != nil {
		return nil, err
	}
	rows, err := h.PredictProba(ctx, t)
	if err != nil {
		return nil, err
	}
	classes := h.Classes()
	labels := make([]int, len(rows))
	for i, p := range rows {
		labels[i] = m[classes[Argmax(p)]]
	}
	return labels, nil
}

// Evaluate predicts every sample in t and scores the named metrics.
func (h *Handle) Evaluate(ctx context.Context, t dataset.Table, m dataset.ClassMap, names []string) (metrics.Scores, error) {
	pred, err := h.Predict(ctx, t, m)
	if err != nil {
		return nil, err
	}
	return metrics.Score(names, t.Labels(), pred)
}

func (h *Handle) Close() error {
	return h.classifier.Close()
}
