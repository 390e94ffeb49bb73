package training

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/fruits/internal/dataset"
	"github.com/Brownie44l1/fruits/internal/engine"
	"github.com/Brownie44l1/fruits/internal/metrics"
	"github.com/Brownie44l1/fruits/internal/report"
)

// SampleSize bounds the number of individual predictions kept for inspection.
const SampleSize = 5

// Evaluate scores h on the whole test table and records the predictions for its
// first SampleSize rows. h must score the classes of classes in label order.
func Evaluate(ctx context.Context, h *engine.Handle, test dataset.Table, classes dataset.ClassMap) (*report.Result, error) {
	if err := h.Align(classes); err != nil {
		return nil, errors.Wrap(err, "evaluating model")
	}
	scores, err := h.Evaluate(ctx, test, classes, []string{metrics.Accuracy, metrics.BalancedAccuracy})
	if err != nil {
		return nil, errors.Wrap(err, "evaluating model")
	}

	sample := test.Head(SampleSize)
	predicted, err := h.Predict(ctx, sample, classes)
	if err != nil {
		return nil, errors.Wrap(err, "predicting sample")
	}
	probabilities, err := h.PredictProba(ctx, sample)
	if err != nil {
		return nil, errors.Wrap(err, "predicting sample probabilities")
	}

	names := classes.Inverse()
	result := &report.Result{
		TestAccuracy:         scores[metrics.Accuracy],
		TestBalancedAccuracy: scores.Get(metrics.BalancedAccuracy, metrics.Accuracy),
		LabelMap:             classes,
		SamplePredictions:    make([]report.SamplePrediction, len(sample)),
	}
	for i, row := range sample {
		if len(probabilities[i]) != len(classes) {
			return nil, errors.Errorf("probability vector for %s has %d entries, expected %d",
				row.Image, len(probabilities[i]), len(classes))
		}
		predictedName, ok := names[predicted[i]]
		if !ok {
			return nil, errors.Errorf("predicted label %d is not in the class map", predicted[i])
		}
		result.SamplePredictions[i] = report.SamplePrediction{
			Image:          row.Image,
			TrueLabel:      row.Label,
			TrueFruit:      names[row.Label],
			PredictedLabel: predicted[i],
			PredictedFruit: predictedName,
			Probabilities:  probabilities[i],
		}
	}

	log.WithFields(log.Fields{
		"accuracy":          result.TestAccuracy,
		"balanced_accuracy": result.TestBalancedAccuracy,
		"samples":           len(result.SamplePredictions),
	}).Info("evaluated model")

	return result, nil
}
