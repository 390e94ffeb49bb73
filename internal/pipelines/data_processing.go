package pipelines

import (
	"context"

	"github.com/Brownie44l1/fruits/internal/dataset"
	"github.com/Brownie44l1/fruits/internal/pipeline"
)

// Artifact names shared between pipelines.
const (
	ParamsDataProcessing = "params:data_processing"
	ParamsModeling       = "params:modeling"

	TrainTable        = "train_df"
	TestTable         = "test_df"
	LabelMap          = "label_map"
	Model             = "fruit_classifier_model"
	EvaluationResults = "evaluation_results"
	ModelPath         = "model_path"
)

// DataProcessing indexes the raw images and splits them into train and test tables.
func DataProcessing() *pipeline.Pipeline {
	return pipeline.New(pipeline.Node{
		Name:    "download_and_prepare_data",
		Inputs:  []string{ParamsDataProcessing},
		Outputs: []string{TrainTable, TestTable, LabelMap},
		Func: func(ctx context.Context, in pipeline.Artifacts) (pipeline.Artifacts, error) {
			params, err := pipeline.Get[dataset.Params](in, ParamsDataProcessing)
			if err != nil {
				return nil, err
			}
			train, test, classes, err := dataset.Prepare(ctx, params)
			if err != nil {
				return nil, err
			}
			return pipeline.Artifacts{
				TrainTable: train,
				TestTable:  test,
				LabelMap:   classes,
			}, nil
		},
	})
}
