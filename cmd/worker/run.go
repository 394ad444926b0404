package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Consume jobs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.InProcessWorker() {
				return fmt.Errorf("queue backend %q is process-local; set queue.backend to redis to run a standalone worker", a.Config.Queue.Backend)
			}

			w := a.Worker()
			color.Cyan("Worker consuming %v", w.Tasks())
			return w.Run(ctx)
		},
	}
}
