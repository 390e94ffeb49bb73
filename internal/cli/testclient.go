package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/fruits/internal/client"
	"github.com/Brownie44l1/fruits/internal/render"
)

func newTestClientCommand(o *Options) *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "test-client [images...]",
		Short: "Check the prediction service and classify images with it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" {
				apiURL = o.Config().Frontend.APIURL
			}
			c := client.New(apiURL)
			out := cmd.OutOrStdout()

			fmt.Fprint(out, render.Banner)
			health, err := c.Health(cmd.Context())
			render.WriteHealth(out, health, err)
			fmt.Fprintln(out)

			if len(args) == 0 {
				render.WriteUsage(out, cmd.CommandPath())
				return nil
			}

			for _, path := range args {
				predictPath(cmd, c, path)
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Prediction service URL (defaults to frontend.api_url).")
	return cmd
}

func predictPath(cmd *cobra.Command, c *client.Client, path string) {
	out := cmd.OutOrStdout()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		render.WriteFileNotFound(out, path)
		return
	}
	if err != nil {
		render.WriteError(out, err)
		return
	}
	defer f.Close()

	p, err := c.PredictFile(cmd.Context(), filepath.Base(path), f)
	if err != nil {
		render.WriteError(out, err)
		return
	}
	render.WritePrediction(out, path, p)
}
