package main

import (
	"context"
	"os"

	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/urfave/cli/v3"
)

var version = "0.1.0"

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "musictransfer",
		Usage:   "Copy Spotify playlists into YouTube playlists",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path to a .env file with environment overrides",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.configure,
		Commands: r.register(),
	}
}

func main() {
	logger := shared.NewLogger(nil)
	app := newApp(NewRunner(RunnerOpts{Logger: logger}))

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
