// package tasks defines the scrape task and the worker-side handler that executes it.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musictransfer/internal/models"
	"github.com/desertthunder/musictransfer/internal/services"
	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"
)

// TypeScrapeSpotify is the asynq task type for playlist scrapes.
const TypeScrapeSpotify = "spotify:scrape"

// ScrapePayload is the JSON payload of a [TypeScrapeSpotify] task.
type ScrapePayload struct {
	Playlist string `json:"playlist"`
}

// NewScrapeTask builds a scrape task for the given playlist input.
func NewScrapeTask(playlist string, opts ...asynq.Option) (*asynq.Task, error) {
	playlist = strings.TrimSpace(playlist)
	if playlist == "" {
		return nil, fmt.Errorf("%w: playlist is required", shared.ErrMissingArgument)
	}

	payload, err := json.Marshal(ScrapePayload{Playlist: playlist})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return asynq.NewTask(TypeScrapeSpotify, payload, opts...), nil
}

// Scraper collects every song of a Spotify playlist, reporting progress as it goes.
type Scraper struct {
	source   services.PlaylistSource
	progress ProgressStore
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewScraper creates a [Scraper]. A nil limiter disables rate limiting.
func NewScraper(source services.PlaylistSource, progress ProgressStore, limiter *rate.Limiter, logger *log.Logger) *Scraper {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Scraper{source: source, progress: progress, limiter: limiter, logger: logger}
}

func (s *Scraper) publish(ctx context.Context, taskID string, update ProgressUpdate) {
	if s.progress == nil || taskID == "" {
		return
	}
	if err := s.progress.Set(ctx, taskID, update); err != nil {
		s.logger.Warn("failed to publish progress", "task", taskID, "error", err)
	}
}

// Scrape resolves input to a playlist and returns all of its songs.
//
// Progress starts at 5, reaches 10 once the playlist is found and spreads the remaining 90 evenly over the pages.
func (s *Scraper) Scrape(ctx context.Context, taskID, input string) ([]models.Song, error) {
	s.publish(ctx, taskID, lookingUpdate())

	playlistID, err := s.source.SelectPlaylist(ctx, input)
	if err != nil {
		return nil, err
	}

	summary, err := s.source.PlaylistSummary(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, taskID, foundUpdate())
	s.logger.Info("scraping playlist", "task", taskID, "source", s.source.Name(), "playlist", summary.Name, "tracks", summary.TrackCount)

	loops := services.Loops(summary.TrackCount, services.PageSize)
	songs := make([]models.Song, 0, summary.TrackCount)
	if loops == 0 {
		return songs, nil
	}

	current := 10.0
	step := 90.0 / float64(loops)
	for i := range loops {
		s.publish(ctx, taskID, songsUpdate(current))

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		page, err := s.source.PlaylistSongs(ctx, playlistID, services.PageSize, i*services.PageSize)
		if err != nil {
			return nil, err
		}
		songs = append(songs, page...)
		current += step
	}

	s.logger.Debug("scrape finished", "task", taskID, "songs", len(songs))
	return songs, nil
}

// ProcessTask implements [asynq.HandlerFunc] for [TypeScrapeSpotify].
func (s *Scraper) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ScrapePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: bad payload: %w", asynq.SkipRetry, err)
	}

	taskID, _ := asynq.GetTaskID(ctx)
	songs, err := s.Scrape(ctx, taskID, p.Playlist)
	if err != nil {
		s.logger.Error("scrape failed", "task", taskID, "playlist", p.Playlist, "error", err)
		return err
	}

	data, err := json.Marshal(songs)
	if err != nil {
		return fmt.Errorf("failed to encode songs: %w", err)
	}

	if w := t.ResultWriter(); w != nil {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}
	return nil
}
