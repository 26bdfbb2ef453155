package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// DefaultQueue is used when no queue name is configured.
const DefaultQueue = "default"

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type inspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

// Queue submits scrape tasks and answers status polls.
type Queue struct {
	client    enqueuer
	inspector inspector
	progress  ProgressStore
	queue     string
	retention time.Duration
}

// QueueOptions configures a [Queue].
type QueueOptions struct {
	Name      string
	Retention time.Duration
}

// NewQueue creates a [Queue] from an asynq client and inspector.
func NewQueue(client enqueuer, insp inspector, progress ProgressStore, opts QueueOptions) *Queue {
	if opts.Name == "" {
		opts.Name = DefaultQueue
	}
	return &Queue{
		client:    client,
		inspector: insp,
		progress:  progress,
		queue:     opts.Name,
		retention: opts.Retention,
	}
}

// ParseRedisURL parses a redis:// or rediss:// URL.
func ParseRedisURL(url string) (*redis.Options, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: redis url: %w", shared.ErrInvalidConfig, err)
	}
	return opts, nil
}

// ConnOpt converts go-redis options into the asynq connection option for the same server.
func ConnOpt(opts *redis.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Network:   opts.Network,
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}
}

// Enqueue submits a scrape of playlist and returns the task ID.
func (q *Queue) Enqueue(ctx context.Context, playlist string) (string, error) {
	id := uuid.NewString()

	opts := []asynq.Option{
		asynq.TaskID(id),
		asynq.Queue(q.queue),
		asynq.MaxRetry(0),
	}
	if q.retention > 0 {
		opts = append(opts, asynq.Retention(q.retention))
	}

	task, err := NewScrapeTask(playlist)
	if err != nil {
		return "", err
	}

	info, err := q.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: enqueue scrape: %w", shared.ErrServiceUnavailable, err)
	}
	return info.ID, nil
}

// Status reports the poll protocol state of a task.
//
// Unknown tasks are reported as pending: a freshly enqueued task and an expired one look the same.
func (q *Queue) Status(ctx context.Context, id string) (*TaskStatus, error) {
	info, err := q.inspector.GetTaskInfo(q.queue, id)
	switch {
	case errors.Is(err, asynq.ErrTaskNotFound), errors.Is(err, asynq.ErrQueueNotFound):
		return pendingStatus(), nil
	case err != nil:
		return nil, fmt.Errorf("%w: task %s: %w", shared.ErrServiceUnavailable, id, err)
	}

	switch info.State {
	case asynq.TaskStateCompleted:
		return successStatus(info.Result), nil
	case asynq.TaskStateArchived:
		return failureStatus(info.LastErr), nil
	case asynq.TaskStateActive, asynq.TaskStateRetry:
		update, ok, err := q.progress.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if info.State == asynq.TaskStateRetry {
			return &TaskStatus{State: StateRetry, Current: update.Current, Total: max(update.Total, 1), Status: info.LastErr}, nil
		}
		if !ok {
			return pendingStatus(), nil
		}
		return &TaskStatus{State: update.State, Current: update.Current, Total: update.Total, Status: update.Status}, nil
	default:
		return pendingStatus(), nil
	}
}
