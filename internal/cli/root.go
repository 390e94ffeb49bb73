// Package cli wires the fruits commands.
package cli

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Brownie44l1/fruits/internal/config"
)

// Options holds the flags shared by every command.
type Options struct {
	ConfigPath string
	LogLevel   string

	cfg *config.Config
}

func NewOptions() *Options {
	return &Options{
		ConfigPath: config.DefaultPath,
		LogLevel:   log.InfoLevel.String(),
	}
}

// Flags returns the persistent flags of the root command.
func (o *Options) Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("fruits", pflag.ExitOnError)
	fs.StringVar(&o.ConfigPath, "config", o.ConfigPath, "Path to the YAML parameters file.")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level: debug, info, warn or error.")
	return fs
}

// Config returns the configuration loaded before the command ran.
func (o *Options) Config() *config.Config {
	return o.cfg
}

func (o *Options) load() error {
	level, err := log.ParseLevel(o.LogLevel)
	if err != nil {
		return errors.Wrap(err, "invalid --log-level")
	}
	log.SetLevel(level)

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

// NewCommand creates the fruits root command with its subcommands.
func NewCommand() *cobra.Command {
	o := NewOptions()

	cmd := &cobra.Command{
		Use:           "fruits",
		Short:         "Fruit image classifier",
		Long:          `Prepares fruit image datasets, trains and evaluates classifiers, and serves predictions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load()
		},
	}
	cmd.PersistentFlags().AddFlagSet(o.Flags())

	cmd.AddCommand(
		newRunCommand(o),
		newServeCommand(o),
		newFrontendCommand(o),
		newTestClientCommand(o),
	)
	return cmd
}
