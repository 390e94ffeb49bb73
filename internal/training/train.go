// Package training fits or reloads classifiers and evaluates them on the test table.
package training

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/fruits/internal/dataset"
	"github.com/Brownie44l1/fruits/internal/engine"
	"github.com/Brownie44l1/fruits/internal/report"
)

// TimestampLayout is appended to the base model path for fresh training runs.
const TimestampLayout = "20060102_150405"

// Params configures the modeling pipeline.
type Params struct {
	Engine           string        `yaml:"engine"`
	ModelPath        string        `yaml:"model_path"`
	UseExistingModel bool          `yaml:"use_existing_model"`
	TimeLimit        time.Duration `yaml:"time_limit"`
	Presets          string        `yaml:"presets"`
	ResultsPath      string        `yaml:"results_path"`
}

// UnmarshalYAML reads time_limit either as a duration ("2m", "90s") or as a bare
// number of seconds.
func (p *Params) UnmarshalYAML(value *yaml.Node) error {
	type plain Params

	node := *value
	if node.Kind == yaml.MappingNode {
		node.Content = append([]*yaml.Node(nil), value.Content...)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, v := node.Content[i], node.Content[i+1]
			if key.Value != "time_limit" || v.Kind != yaml.ScalarNode {
				continue
			}
			if tag := v.ShortTag(); tag != "!!int" && tag != "!!float" {
				continue
			}
			seconds, err := strconv.ParseFloat(v.Value, 64)
			if err != nil {
				return errors.Wrapf(err, "line %d: time_limit", v.Line)
			}
			limit := *v
			limit.Tag = "!!str"
			limit.Value = time.Duration(seconds * float64(time.Second)).String()
			node.Content[i+1] = &limit
		}
	}
	return node.Decode((*plain)(p))
}

// DefaultParams returns the parameters used when the configuration leaves them unset.
func DefaultParams() Params {
	return Params{
		Engine:      "centroid",
		ModelPath:   "data/06_models/fruit_classifier",
		TimeLimit:   120 * time.Second,
		Presets:     "medium_quality",
		ResultsPath: report.DefaultPath,
	}
}

// Trainer runs the training step against an engine.
type Trainer struct {
	Engine engine.Engine
	// Now stamps fresh model paths.
	Now func() time.Time
}

func NewTrainer(e engine.Engine) *Trainer {
	return &Trainer{Engine: e, Now: time.Now}
}

// Train reloads the model at p.ModelPath when reuse is requested and it exists;
// otherwise it fits a new model at a timestamped path so earlier runs are kept.
// A reloaded model must score the classes of the class map in label order.
func (t *Trainer) Train(ctx context.Context, train dataset.Table, classes dataset.ClassMap, p Params) (*engine.Handle, error) {
	if p.UseExistingModel && exists(p.ModelPath) {
		log.Infof("Loading existing model from: %s", p.ModelPath)
		h, err := t.Engine.Load(p.ModelPath)
		if err != nil {
			return nil, errors.Wrapf(err, "loading model from %s", p.ModelPath)
		}
		if err := h.Align(classes); err != nil {
			h.Close()
			return nil, errors.Wrapf(err, "reusing model at %s", p.ModelPath)
		}
		return h, nil
	}

	path := FreshPath(p.ModelPath, t.Now())
	log.Infof("Training new model at: %s", path)

	h, err := t.Engine.Fit(ctx, train, engine.FitConfig{
		Path:      path,
		Classes:   classes,
		TimeLimit: p.TimeLimit,
		Presets:   p.Presets,
	})
	if err != nil {
		return nil, errors.Wrap(err, "training classifier")
	}
	return h, nil
}

// FreshPath appends the timestamp of now to base.
func FreshPath(base string, now time.Time) string {
	return base + "_" + now.Format(TimestampLayout)
}

// Latest returns the newest fresh model path under base, falling back to base itself.
func Latest(base string) (string, error) {
	matches, err := filepath.Glob(base + "_*")
	if err != nil {
		return "", errors.Wrapf(err, "listing models under %s", base)
	}

	var stamped []string
	for _, m := range matches {
		stamp := strings.TrimPrefix(m, base+"_")
		if _, err := time.Parse(TimestampLayout, stamp); err == nil {
			stamped = append(stamped, m)
		}
	}
	if len(stamped) > 0 {
		sort.Strings(stamped)
		return stamped[len(stamped)-1], nil
	}
	if exists(base) {
		return base, nil
	}
	return "", errors.Errorf("no model found at %s", base)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
