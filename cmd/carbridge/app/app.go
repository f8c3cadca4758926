package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/carbridge-io/carbridge/cmd/carbridge/app/options"
	"github.com/carbridge-io/carbridge/pkg/log"
)

const (
	commandName = "carbridge"
	commandDesc = `The carbridge daemon bridges a vehicle manufacturer's cloud API to a home
automation platform over MQTT. It polls each configured vehicle on an
adaptive schedule, publishes the merged state, and dispatches remote-control
commands received over MQTT or HTTP.`
)

// NewCommand builds the root carbridge command.
func NewCommand() *cobra.Command {
	opts := options.NewOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:           commandName,
		Short:         "Bridge a vehicle cloud to a home automation platform",
		Long:          commandDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadConfigFile(cmd.Flags(), configFile)
			if err != nil {
				return err
			}

			log.Init(opts.Log)

			if err := opts.Complete(); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := opts.Config()
			if err != nil {
				return err
			}

			srv, err := cfg.NewBridgeServer()
			if err != nil {
				return err
			}

			if v != nil {
				watchBridgeOptions(v, srv)
			}

			return srv.Run(ctx)
		},
	}

	opts.AddFlags(cmd.Flags())
	cmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML config file. Flags set on the command line take precedence.")

	cmd.AddCommand(newScheduleCommand())
	return cmd
}

// Run executes the root command and exits non-zero on error.
func Run() {
	if err := NewCommand().Execute(); err != nil {
		log.Error(err, "carbridge exited with error")
		os.Exit(1)
	}
}
