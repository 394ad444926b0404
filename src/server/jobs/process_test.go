package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/quiz-master/server/src/server/jobs"
	mock_jobs "github.com/quiz-master/server/src/server/mocks/jobs"
)

func TestWorker_ProcessRecordsOutcome(t *testing.T) {
	ctrl := gomock.NewController(t)
	broker := mock_jobs.NewMockBroker(ctrl)
	w := jobs.NewWorker(broker, 1)
	w.Register("export", func(context.Context, json.RawMessage) (string, error) {
		return "exports/a.csv", nil
	})

	broker.EXPECT().Complete(gomock.Any(), "job-1", "exports/a.csv", nil).Return(nil)
	w.Process(context.Background(), jobs.Job{ID: "job-1", Task: "export"})
}

func TestWorker_ProcessSurvivesCompleteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	broker := mock_jobs.NewMockBroker(ctrl)
	w := jobs.NewWorker(broker, 1)

	broker.EXPECT().
		Complete(gomock.Any(), "job-2", "", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, runErr error) error {
			if runErr == nil {
				t.Error("unknown task must fail")
			}
			return errors.New("redis down")
		})
	w.Process(context.Background(), jobs.Job{ID: "job-2", Task: "missing"})
}

func TestWorker_ProcessCompletesAfterCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	broker := mock_jobs.NewMockBroker(ctrl)
	w := jobs.NewWorker(broker, 1)

	ctx, cancel := context.WithCancel(context.Background())
	w.Register("slow", func(ctx context.Context, _ json.RawMessage) (string, error) {
		cancel()
		return "", ctx.Err()
	})

	broker.EXPECT().
		Complete(gomock.Any(), "job-3", "", context.Canceled).
		DoAndReturn(func(ctx context.Context, _, _ string, _ error) error {
			if ctx.Err() != nil {
				t.Error("outcome recorded with a cancelled context")
			}
			return nil
		})
	w.Process(ctx, jobs.Job{ID: "job-3", Task: "slow"})
}
