// Package metrics scores classifier predictions.
package metrics

import (
	"github.com/pkg/errors"
)

const (
	Accuracy         = "accuracy"
	BalancedAccuracy = "balanced_accuracy"
)

// ErrUnknownMetric is returned by Score for unsupported metric names.
var ErrUnknownMetric = errors.New("unknown metric")

// Scores maps a metric name to its value.
type Scores map[string]float64

// Get returns the named score, falling back to fallback when it is absent.
func (s Scores) Get(name, fallback string) float64 {
	if v, ok := s[name]; ok {
		return v
	}
	return s[fallback]
}

// Score computes the named metrics over aligned true and predicted labels.
func Score(names []string, truth, pred []int) (Scores, error) {
	if len(truth) != len(pred) {
		return nil, errors.Errorf("got %d labels and %d predictions", len(truth), len(pred))
	}

	scores := make(Scores, len(names))
	for _, name := range names {
		switch name {
		case Accuracy:
			scores[name] = accuracy(truth, pred)
		case BalancedAccuracy:
			scores[name] = balancedAccuracy(truth, pred)
		default:
			return nil, errors.Wrap(ErrUnknownMetric, name)
		}
	}
	return scores, nil
}

func accuracy(truth, pred []int) float64 {
	if len(truth) == 0 {
		return 0
	}
	correct := 0
	for i := range truth {
		if truth[i] == pred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(truth))
}

// balancedAccuracy is the mean per-class recall over the classes present in truth.
func balancedAccuracy(truth, pred []int) float64 {
	total := make(map[int]int)
	hits := make(map[int]int)
	for i, label := range truth {
		total[label]++
		if pred[i] == label {
			hits[label]++
		}
	}
	if len(total) == 0 {
		return 0
	}

	var sum float64
	for label, n := range total {
		sum += float64(hits[label]) / float64(n)
	}
	return sum / float64(len(total))
}
