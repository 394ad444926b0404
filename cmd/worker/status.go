package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the state of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.Queue.Status(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("a.Queue.Status() > %w", err)
			}
			printStatus(st)
			return nil
		},
	}
}
