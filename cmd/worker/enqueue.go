package main

import (
	"fmt"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quiz-master/server/src/server/jobs"
	"github.com/quiz-master/server/src/server/reports"
)

func newEnqueueCommand() *cobra.Command {
	var userID int64

	command := &cobra.Command{
		Use:   "enqueue <task>",
		Short: "Enqueue a task, e.g. daily_reminder or monthly_report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := args[0]
			taskArgs, err := taskArguments(task, userID)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			w := a.Worker()
			if !slices.Contains(w.Tasks(), task) {
				return fmt.Errorf("unknown task %q, expected one of %v", task, w.Tasks())
			}

			raw, err := jobs.MarshalArgs(taskArgs)
			if err != nil {
				return err
			}
			id, err := a.Queue.Enqueue(ctx, task, raw)
			if err != nil {
				return fmt.Errorf("a.Queue.Enqueue() > %w", err)
			}

			if !a.InProcessWorker() {
				color.Green("Enqueued %s as %s", task, id)
				return nil
			}

			// Nothing else consumes a process-local queue, so run the job here.
			job, err := a.Queue.Dequeue(ctx)
			if err != nil {
				return fmt.Errorf("a.Queue.Dequeue() > %w", err)
			}
			w.Process(ctx, job)
			st, err := a.Queue.Status(ctx, id)
			if err != nil {
				return fmt.Errorf("a.Queue.Status() > %w", err)
			}
			printStatus(st)
			if st.State == jobs.StateFailed {
				return fmt.Errorf("task %s failed", task)
			}
			return nil
		},
	}

	command.Flags().Int64Var(&userID, "user-id", 0, "user the task runs for (export_quiz_history)")

	return command
}

// taskArguments builds the job arguments of task.
func taskArguments(task string, userID int64) (any, error) {
	if task != reports.TaskExportQuizHistory {
		return nil, nil
	}
	if userID <= 0 {
		return nil, fmt.Errorf("%s requires --user-id", task)
	}
	return reports.UserArgs{UserID: userID}, nil
}

func printStatus(st jobs.Status) {
	switch st.State {
	case jobs.StateSucceeded:
		color.Green("%s %s: %s", st.Task, st.ID, st.Result)
	case jobs.StateFailed:
		color.Red("%s %s failed: %s", st.Task, st.ID, st.Error)
	default:
		color.Yellow("%s %s is %s", st.Task, st.ID, st.State)
	}
}
