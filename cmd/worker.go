package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/musictransfer/internal/services"
	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/desertthunder/musictransfer/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Worker runs the background scrape worker until interrupted.
func (r *Runner) Worker(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	spotify, err := services.NewSpotifyService(ctx, map[string]string{
		"client_id":     r.config.Credentials.Spotify.ClientID,
		"client_secret": r.config.Credentials.Spotify.ClientSecret,
	})
	if err != nil {
		return err
	}

	rdb, conn, err := r.connectRedis(ctx)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var limiter *rate.Limiter
	if perSecond := r.config.Worker.SpotifyRateLimit; perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}

	logger := shared.WithLogger(r.logger, "component", "worker")
	progress := tasks.NewRedisProgressStore(rdb, r.config.Worker.ResultRetention())
	scraper := tasks.NewScraper(spotify, progress, limiter, logger)

	concurrency := r.config.Worker.Concurrency
	if cmd.IsSet("concurrency") {
		concurrency = int(cmd.Int("concurrency"))
	}

	worker := tasks.NewWorker(conn, scraper, logger, tasks.WorkerOptions{
		Concurrency: concurrency,
		Queue:       r.config.Worker.Queue,
		Debug:       r.config.Server.Debug || cmd.Bool("debug"),
	})
	return worker.Run(ctx)
}
