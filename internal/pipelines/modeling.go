package pipelines

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/fruits/internal/dataset"
	"github.com/Brownie44l1/fruits/internal/engine"
	"github.com/Brownie44l1/fruits/internal/pipeline"
	"github.com/Brownie44l1/fruits/internal/report"
	"github.com/Brownie44l1/fruits/internal/training"
)

// EngineFactory resolves the engine named in the modeling parameters.
type EngineFactory func(name string) (engine.Engine, error)

// Modeling trains, evaluates and persists the classifier.
func Modeling(engines EngineFactory, trainer func(engine.Engine) *training.Trainer) *pipeline.Pipeline {
	return pipeline.New(
		pipeline.Node{
			Name:    "train_fruit_classifier",
			Inputs:  []string{TrainTable, LabelMap, ParamsModeling},
			Outputs: []string{Model},
			Func: func(ctx context.Context, in pipeline.Artifacts) (pipeline.Artifacts, error) {
				train, err := pipeline.Get[dataset.Table](in, TrainTable)
				if err != nil {
					return nil, err
				}
				classes, err := pipeline.Get[dataset.ClassMap](in, LabelMap)
				if err != nil {
					return nil, err
				}
				params, err := pipeline.Get[training.Params](in, ParamsModeling)
				if err != nil {
					return nil, err
				}

				e, err := engines(params.Engine)
				if err != nil {
					return nil, err
				}
				h, err := trainer(e).Train(ctx, train, classes, params)
				if err != nil {
					return nil, err
				}
				return pipeline.Artifacts{Model: h}, nil
			},
		},
		pipeline.Node{
			Name:    "evaluate_model",
			Inputs:  []string{Model, TestTable, LabelMap},
			Outputs: []string{EvaluationResults},
			Func: func(ctx context.Context, in pipeline.Artifacts) (pipeline.Artifacts, error) {
				h, err := pipeline.Get[*engine.Handle](in, Model)
				if err != nil {
					return nil, err
				}
				test, err := pipeline.Get[dataset.Table](in, TestTable)
				if err != nil {
					return nil, err
				}
				classes, err := pipeline.Get[dataset.ClassMap](in, LabelMap)
				if err != nil {
					return nil, err
				}
				result, err := training.Evaluate(ctx, h, test, classes)
				if err != nil {
					return nil, err
				}
				return pipeline.Artifacts{EvaluationResults: result}, nil
			},
		},
		pipeline.Node{
			Name:    "save_model_artifacts",
			Inputs:  []string{Model, EvaluationResults, ParamsModeling},
			Outputs: []string{ModelPath},
			Func: func(_ context.Context, in pipeline.Artifacts) (pipeline.Artifacts, error) {
				h, err := pipeline.Get[*engine.Handle](in, Model)
				if err != nil {
					return nil, err
				}
				result, err := pipeline.Get[*report.Result](in, EvaluationResults)
				if err != nil {
					return nil, err
				}
				params, err := pipeline.Get[training.Params](in, ParamsModeling)
				if err != nil {
					return nil, err
				}

				path := params.ResultsPath
				if path == "" {
					path = report.DefaultPath
				}
				if err := report.Write(path, result); err != nil {
					return nil, err
				}
				log.WithFields(log.Fields{
					"results": path,
					"model":   h.Path,
				}).Info("saved model artifacts")
				return pipeline.Artifacts{ModelPath: h.Path}, nil
			},
		},
	)
}
