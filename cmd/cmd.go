// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// serveCommand runs the web application
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web application",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the application in the default browser",
			},
		},
		Action: r.Serve,
	}
}

// workerCommand runs the background scrape worker
func workerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run the background worker that scrapes Spotify playlists",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of scrapes processed at once (overrides worker.concurrency)",
			},
		},
		Action: r.Worker,
	}
}

// setupCommand handles configuration and database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing and run database migrations",
		Action: r.Setup,
		Commands: []*cli.Command{
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
			{
				Name:   "status",
				Usage:  "List applied migrations",
				Action: r.SetupStatus,
			},
		},
	}
}

// jobsCommand inspects scrape jobs
func jobsCommand(r *Runner) *cli.Command {
	urlFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:  "url",
			Usage: "Base URL of the web application (defaults to server.base_url or the listen address)",
		}
	}

	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect scrape jobs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List a user's jobs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Username",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.JobsList,
			},
			{
				Name:  "status",
				Usage: "Poll a job's status once",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					urlFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.JobsStatus,
			},
			{
				Name:  "watch",
				Usage: "Follow a job's progress in the terminal",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					urlFlag(),
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Polling interval",
						Value: 2 * time.Second,
					},
				},
				Action: r.JobsWatch,
			},
			{
				Name:  "export",
				Usage: "Write a finished job's songs to a file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, md or txt",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: songs-{id}.{format}, - for stdout)",
					},
				},
				Action: r.JobsExport,
			},
		},
	}
}
