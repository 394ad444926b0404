// Command worker consumes report jobs from the shared queue and lets an
// external scheduler enqueue the periodic tasks.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quiz-master/server/src/server/app"
	"github.com/quiz-master/server/src/server/config"
	"github.com/quiz-master/server/src/server/logging"
)

var configFile string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "worker",
		Short:         "Background jobs of the Quiz Master server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCommand.PersistentFlags().StringVar(&configFile, "config", os.Getenv("CONFIG_FILE"), "path to a YAML configuration file")

	rootCommand.AddCommand(newRunCommand())
	rootCommand.AddCommand(newEnqueueCommand())
	rootCommand.AddCommand(newStatusCommand())
	return rootCommand
}

// loadApp reads the configuration and assembles the components.
func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.NewLoader(configFile).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("app.New() > %w", err)
	}
	return a, nil
}
