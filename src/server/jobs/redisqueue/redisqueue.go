// Package redisqueue is a jobs.Broker on a Redis list. Producers LPUSH job
// envelopes to "<prefix>:queue" and workers BRPOP them; each job's status is
// a JSON document under "<prefix>:job:<id>" that expires after the result TTL.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/quiz-master/server/src/server/jobs"
)

type Config struct {
	Addr      string
	Password  string
	DB        int
	Prefix    string
	ResultTTL time.Duration
}

type Queue struct {
	client    *goredis.Client
	prefix    string
	resultTTL time.Duration
	// pollTimeout bounds each BRPOP so cancellation is noticed.
	pollTimeout time.Duration
	now         func() time.Time
}

var _ jobs.Broker = (*Queue)(nil)

func New(cfg Config) *Queue {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewFromClient(client, cfg.Prefix, cfg.ResultTTL)
}

func NewFromClient(client *goredis.Client, prefix string, resultTTL time.Duration) *Queue {
	if prefix == "" {
		prefix = "quiz_master"
	}
	if resultTTL <= 0 {
		resultTTL = 24 * time.Hour
	}
	return &Queue{
		client:      client,
		prefix:      prefix,
		resultTTL:   resultTTL,
		pollTimeout: time.Second,
		now:         time.Now,
	}
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) queueKey() string {
	return q.prefix + ":queue"
}

func (q *Queue) statusKey(id string) string {
	return q.prefix + ":job:" + id
}

func (q *Queue) Enqueue(ctx context.Context, task string, args json.RawMessage) (string, error) {
	job := jobs.Job{ID: uuid.NewString(), Task: task, Args: args, EnqueuedAt: q.now().UTC()}
	envelope, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encoding job: %w", err)
	}
	status, err := json.Marshal(jobs.Status{Job: job, State: jobs.StatePending})
	if err != nil {
		return "", fmt.Errorf("encoding job status: %w", err)
	}

	// the status must exist before a worker can pop the job
	_, err = q.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, q.statusKey(job.ID), status, q.resultTTL)
		pipe.LPush(ctx, q.queueKey(), envelope)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("enqueueing %s: %w", task, err)
	}
	return job.ID, nil
}

func (q *Queue) Status(ctx context.Context, id string) (jobs.Status, error) {
	raw, err := q.client.Get(ctx, q.statusKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return jobs.Status{}, jobs.ErrJobNotFound
	}
	if err != nil {
		return jobs.Status{}, fmt.Errorf("reading job %s: %w", id, err)
	}
	var st jobs.Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return jobs.Status{}, fmt.Errorf("decoding job %s: %w", id, err)
	}
	return st, nil
}

func (q *Queue) Dequeue(ctx context.Context) (jobs.Job, error) {
	for {
		res, err := q.client.BRPop(ctx, q.pollTimeout, q.queueKey()).Result()
		if ctx.Err() != nil {
			return jobs.Job{}, ctx.Err()
		}
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return jobs.Job{}, fmt.Errorf("popping job: %w", err)
		}
		// res is [key, value]
		var job jobs.Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return jobs.Job{}, fmt.Errorf("decoding job envelope: %w", err)
		}
		return job, nil
	}
}

func (q *Queue) Complete(ctx context.Context, id, result string, runErr error) error {
	st, err := q.Status(ctx, id)
	if errors.Is(err, jobs.ErrJobNotFound) {
		// the pending status expired; keep the outcome anyway
		st = jobs.Status{Job: jobs.Job{ID: id}}
	} else if err != nil {
		return err
	}

	st.Finish(result, runErr, q.now().UTC())

	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding job status: %w", err)
	}
	if err := q.client.Set(ctx, q.statusKey(id), raw, q.resultTTL).Err(); err != nil {
		return fmt.Errorf("storing job %s result: %w", id, err)
	}
	return nil
}
