// Package pipelines declares the project's named pipelines.
package pipelines

import (
	"sort"

	"github.com/Brownie44l1/fruits/internal/dataset"
	"github.com/Brownie44l1/fruits/internal/engine"
	"github.com/Brownie44l1/fruits/internal/engine/registry"
	"github.com/Brownie44l1/fruits/internal/pipeline"
	"github.com/Brownie44l1/fruits/internal/training"
)

// Default is the name of the pipeline run when none is requested.
const Default = "__default__"

// Register returns the named pipelines: data_processing, modeling and their
// concatenation under Default.
func Register() map[string]*pipeline.Pipeline {
	dataProcessing := DataProcessing()
	modeling := Modeling(registry.New, training.NewTrainer)

	return map[string]*pipeline.Pipeline{
		Default:           dataProcessing.Add(modeling),
		"data_processing": dataProcessing,
		"modeling":        modeling,
	}
}

// Names returns the registered pipeline names, sorted.
func Names(registered map[string]*pipeline.Pipeline) []string {
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewCatalog seeds a catalog with the pipeline parameters.
func NewCatalog(data dataset.Params, modeling training.Params) *pipeline.Catalog {
	c := pipeline.NewCatalog()
	c.Save(ParamsDataProcessing, data)
	c.Save(ParamsModeling, modeling)
	return c
}

// CloseModel releases the model handle a run left in c, if any.
func CloseModel(c *pipeline.Catalog) error {
	v, ok := c.Load(Model)
	if !ok {
		return nil
	}
	h, ok := v.(*engine.Handle)
	if !ok || h == nil {
		return nil
	}
	return h.Close()
}
