package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Runner executes pipelines sequentially.
type Runner struct{}

// Run executes p against catalog and returns the run id. The run stops at the first
// failing node; artifacts of later nodes are never produced.
func (r *Runner) Run(ctx context.Context, p *Pipeline, catalog *Catalog) (string, error) {
	runID := uuid.New().String()
	logs := log.WithField("run", runID)

	plan, err := p.Plan(catalog.Names())
	if err != nil {
		return runID, err
	}
	logs.Infof("running %d nodes", len(plan))

	for i, n := range plan {
		if err := ctx.Err(); err != nil {
			return runID, err
		}

		nodeLogs := logs.WithField("node", n.Name)
		nodeLogs.Infof("running node %d/%d", i+1, len(plan))
		start := time.Now()

		in, err := catalog.pick(n.Inputs)
		if err != nil {
			return runID, &NodeError{Node: n.Name, Err: err}
		}
		out, err := n.Func(ctx, in)
		if err != nil {
			nodeLogs.WithError(err).Error("node failed")
			return runID, &NodeError{Node: n.Name, Err: err}
		}
		for _, name := range n.Outputs {
			v, ok := out[name]
			if !ok {
				return runID, &NodeError{Node: n.Name, Err: errors.Errorf("did not produce %q", name)}
			}
			catalog.Save(name, v)
		}

		nodeLogs.WithField("elapsed", time.Since(start).String()).Info("completed node")
	}

	logs.Info("pipeline execution completed successfully")
	return runID, nil
}
