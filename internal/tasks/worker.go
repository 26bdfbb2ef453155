package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/hibiken/asynq"
)

// Worker runs scrape tasks from the queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *log.Logger
}

// WorkerOptions configures a [Worker].
type WorkerOptions struct {
	Concurrency int
	Queue       string
	Debug       bool
}

// NewWorker creates a [Worker] that dispatches [TypeScrapeSpotify] tasks to scraper.
func NewWorker(conn asynq.RedisConnOpt, scraper *Scraper, logger *log.Logger, opts WorkerOptions) *Worker {
	if opts.Queue == "" {
		opts.Queue = DefaultQueue
	}

	level := asynq.InfoLevel
	if opts.Debug {
		level = asynq.DebugLevel
	}

	srv := asynq.NewServer(conn, asynq.Config{
		Concurrency: opts.Concurrency,
		Queues:      map[string]int{opts.Queue: 1},
		Logger:      &asynqLogger{logger: logger},
		LogLevel:    level,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeScrapeSpotify, scraper.ProcessTask)

	return &Worker{server: srv, mux: mux, logger: logger}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	w.logger.Info("worker started")

	<-ctx.Done()

	w.logger.Info("worker shutting down")
	w.server.Shutdown()
	return nil
}

// asynqLogger adapts charmbracelet/log to [asynq.Logger].
type asynqLogger struct {
	logger *log.Logger
}

func (l *asynqLogger) Debug(args ...any) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...any)  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...any)  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...any) { l.logger.Fatal(fmt.Sprint(args...)) }
