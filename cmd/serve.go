package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/desertthunder/musictransfer/internal/repositories"
	"github.com/desertthunder/musictransfer/internal/server"
	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/desertthunder/musictransfer/internal/tasks"
	"github.com/desertthunder/musictransfer/internal/web"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
)

// connectRedis returns a client for the configured broker along with the matching asynq connection option.
func (r *Runner) connectRedis(ctx context.Context) (*redis.Client, asynq.RedisClientOpt, error) {
	opts, err := tasks.ParseRedisURL(r.config.Redis.URL)
	if err != nil {
		return nil, asynq.RedisClientOpt{}, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, asynq.RedisClientOpt{}, fmt.Errorf("%w: redis %s: %w", shared.ErrServiceUnavailable, opts.Addr, err)
	}
	return rdb, tasks.ConnOpt(opts), nil
}

// Serve runs the web application until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if cmd.IsSet("host") {
		r.config.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		r.config.Server.Port = int(cmd.Int("port"))
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, conn, err := r.connectRedis(ctx)
	if err != nil {
		return err
	}
	defer rdb.Close()

	client := asynq.NewClient(conn)
	defer client.Close()
	inspector := asynq.NewInspector(conn)
	defer inspector.Close()

	retention := r.config.Worker.ResultRetention()
	queue := tasks.NewQueue(client, inspector, tasks.NewRedisProgressStore(rdb, retention), tasks.QueueOptions{
		Name:      r.config.Worker.Queue,
		Retention: retention,
	})

	google := r.config.Credentials.Google
	oauth, err := server.LoadGoogleOAuth(google.ClientSecretsFile, server.GoogleOAuthOptions{
		RedirectURL: google.RedirectURL,
		BaseURL:     r.config.Server.BaseURL,
		RevokeURL:   google.RevokeURL,
	})
	if err != nil {
		return err
	}

	logger := shared.WithLogger(r.logger, "component", "web")
	app, err := web.NewServer(web.Options{
		Users:    repositories.NewUserRepository(db),
		Jobs:     repositories.NewJobRepository(db),
		Queue:    queue,
		Sessions: server.NewSessions(server.NewRedisStore(rdb), r.config.Server.SecretKey, logger, server.SessionOptions{}),
		OAuth:    oauth,
		Logger:   logger,
		Version:  version,
	})
	if err != nil {
		return err
	}

	if cmd.Bool("open") {
		url := r.baseURL("")
		go func() {
			if err := shared.OpenBrowser(ctx, url, r.httpClient); err != nil {
				r.logger.Warn("failed to open browser", "url", url, "error", err)
			}
		}()
	}

	return app.Run(ctx, r.config.Server.Addr())
}

// baseURL resolves the external URL of the web application: the explicit value, then
// server.base_url, then the listen address with a wildcard host replaced by localhost.
func (r *Runner) baseURL(explicit string) string {
	switch {
	case explicit != "":
		return explicit
	case r.config.Server.BaseURL != "":
		return r.config.Server.BaseURL
	}

	host := r.config.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + host + ":" + strconv.Itoa(r.config.Server.Port)
}
