package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/fruits/internal/client"
	"github.com/Brownie44l1/fruits/internal/engine/registry"
	"github.com/Brownie44l1/fruits/internal/frontend"
	"github.com/Brownie44l1/fruits/internal/handlers"
	"github.com/Brownie44l1/fruits/internal/training"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions from a trained model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := o.Config()

			modelPath := cfg.Serving.ModelPath
			if modelPath == "" {
				latest, err := training.Latest(cfg.Modeling.ModelPath)
				if err != nil {
					return err
				}
				modelPath = latest
			}

			e, err := registry.New(cfg.Serving.Engine)
			if err != nil {
				return err
			}
			log.Infof("Loading model from: %s", modelPath)
			model, err := e.Load(modelPath)
			if err != nil {
				return errors.Wrapf(err, "loading model from %s", modelPath)
			}
			defer model.Close()

			addr := fmt.Sprintf(":%d", cfg.Serving.Port)
			log.WithField("classes", model.Classes()).Infof("Server starting on %s", addr)
			log.Info("Endpoints:")
			log.Info("  GET  /        - Health check")
			log.Info("  POST /predict - Predict from image upload")
			log.Infof("Upload test: curl -X POST -F \"file=@banana.jpg\" http://localhost%s/predict", addr)

			return listen(cmd.Context(), addr, handlers.NewHandler(model).Routes())
		},
	}
}

func newFrontendCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "frontend",
		Short: "Serve the web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := o.Config()

			cache := client.DefaultHealthCache
			if cfg.Frontend.HealthTTL != client.DefaultHealthTTL {
				cache = client.NewHealthCache(cfg.Frontend.HealthTTL)
			}
			c := client.New(cfg.Frontend.APIURL, client.WithHealthCache(cache))

			addr := fmt.Sprintf(":%d", cfg.Frontend.Port)
			log.WithField("api", c.URL()).Infof("Front-end starting on %s", addr)

			s := frontend.NewServer(c, cfg.DataProcessing.SelectedFruits)
			return listen(cmd.Context(), addr, s.Routes())
		},
	}
}

// listen serves h on addr until ctx is cancelled.
func listen(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
