// Command aws-ingest loads the realtime and historical station feeds into
// the readings tables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amrdc/awsapi/internal/app"
	"github.com/amrdc/awsapi/internal/constants"
	"github.com/amrdc/awsapi/internal/ingest"
	"github.com/amrdc/awsapi/internal/log"
	"github.com/amrdc/awsapi/pkg/config"
)

type options struct {
	cfgFile  string
	envFiles []string
	debug    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "aws-ingest",
		Short:         "Load AWS station feeds into the readings database",
		Version:       constants.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return log.Init(opts.debug)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env", []string{".env"}, "dotenv files read before the environment")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "turn on debugging output")

	root.AddCommand(
		newJobCommand(opts, "realtime", "Fetch the latest realtime observation for every ARGOS station once",
			func(i *app.Ingest) ingest.Job { return i.Realtime }),
		newJobCommand(opts, "historical", "Load every 10-minute datafile listed in the data catalog once",
			func(i *app.Ingest) ingest.Job { return i.Historical }),
		newScheduleCommand(opts),
	)
	return root
}

func newJobCommand(opts *options, use, short string, pick func(*app.Ingest) ingest.Job) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIngest(cmd.Context(), opts, func(ctx context.Context, i *app.Ingest) error {
				job := pick(i)
				n, err := job.Run(ctx)
				if err != nil {
					return fmt.Errorf("%s: %w", job.Name(), err)
				}
				log.Infow("ingest complete", "job", job.Name(), "rows", n)
				return nil
			})
		},
	}
}

func newScheduleCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run both feeds on their configured intervals until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIngest(cmd.Context(), opts, func(ctx context.Context, i *app.Ingest) error {
				i.Schedule(ctx)
				return nil
			})
		},
	}
}

// withIngest loads configuration, opens the store and runs fn with a context
// cancelled on SIGINT or SIGTERM.
func withIngest(parent context.Context, opts *options, fn func(context.Context, *app.Ingest) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filename, _ := filepath.Abs(opts.cfgFile)
	provider := config.NewYAMLProvider(filename, opts.envFiles...)
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	i, err := app.NewIngest(ctx, cfg, log.Named("ingest"))
	if err != nil {
		return err
	}
	defer i.Close()

	return fn(ctx, i)
}
