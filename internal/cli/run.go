package cli

import (
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/fruits/internal/pipeline"
	"github.com/Brownie44l1/fruits/internal/pipelines"
)

func newRunCommand(o *Options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a named pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registered := pipelines.Register()
			p, ok := registered[name]
			if !ok {
				return errors.Errorf("unknown pipeline %q, expected one of: %s",
					name, strings.Join(pipelines.Names(registered), ", "))
			}

			cfg := o.Config()
			catalog := pipelines.NewCatalog(cfg.DataProcessing, cfg.Modeling)
			defer func() {
				if err := pipelines.CloseModel(catalog); err != nil {
					log.WithError(err).Warn("closing model")
				}
			}()

			log.WithField("pipeline", name).Infof("running %s", p)
			runID, err := (&pipeline.Runner{}).Run(cmd.Context(), p, catalog)
			if err != nil {
				return errors.Wrapf(err, "run %s", runID)
			}

			if v, ok := catalog.Load(pipelines.ModelPath); ok {
				log.Infof("Model saved at: %s", v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "pipeline", pipelines.Default, "Name of the pipeline to run.")
	return cmd
}
