package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/musictransfer/internal/formatter"
	"github.com/desertthunder/musictransfer/internal/repositories"
	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/desertthunder/musictransfer/internal/tasks"
	"github.com/urfave/cli/v3"
)

// jobRow is the JSON shape of a listed job.
type jobRow struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Done      bool   `json:"done"`
	Songs     int    `json:"songs"`
}

// JobsList prints the jobs submitted by a user.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := repositories.NewUserRepository(db).ByUsername(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	jobs, err := repositories.NewJobRepository(db).ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}

	rows := make([]jobRow, 0, len(jobs))
	for _, job := range jobs {
		songs, err := job.Songs()
		if err != nil {
			r.logger.Warn("skipping unreadable job result", "job", job.ID, "error", err)
		}
		rows = append(rows, jobRow{
			ID:        job.ID,
			Timestamp: job.Timestamp.Format("2006-01-02 15:04:05"),
			Done:      job.Done(),
			Songs:     len(songs),
		})
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	r.writePlainHeader(fmt.Sprintf("Jobs for %s", user.Username))
	if len(rows) == 0 {
		return r.writePlain("No jobs yet\n")
	}
	for _, row := range rows {
		state := "pending"
		if row.Done {
			state = fmt.Sprintf("%d songs", row.Songs)
		}
		r.writePlain("%s  %s  %s\n", row.Timestamp, row.ID, state)
	}
	return nil
}

// fetchStatus performs one poll of /task-status/{id} on the web application at base.
func (r *Runner) fetchStatus(ctx context.Context, base, id string) (*tasks.TaskStatus, error) {
	endpoint := strings.TrimRight(base, "/") + "/task-status/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s returned %d: %s", shared.ErrAPIRequest, endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var status tasks.TaskStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode task status: %w", err)
	}
	return &status, nil
}

func jobID(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}
	return id, nil
}

// JobsStatus prints a single poll response.
func (r *Runner) JobsStatus(ctx context.Context, cmd *cli.Command) error {
	id, err := jobID(cmd)
	if err != nil {
		return err
	}

	status, err := r.fetchStatus(ctx, r.baseURL(cmd.String("url")), id)
	if err != nil {
		return err
	}
	return r.writeJSON(status, cmd.Bool("pretty"))
}

// JobsExport writes a finished job's songs as CSV, Markdown or text.
func (r *Runner) JobsExport(ctx context.Context, cmd *cli.Command) error {
	id, err := jobID(cmd)
	if err != nil {
		return err
	}

	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	job, err := repositories.NewJobRepository(db).Get(ctx, id)
	if err != nil {
		return err
	}
	if !job.Done() {
		return fmt.Errorf("%w: job %s has not finished", shared.ErrInvalidArgument, id)
	}

	songs, err := job.Songs()
	if err != nil {
		return err
	}

	title := "Job " + job.ID
	if cmd.String("output") == "-" {
		return formatter.WriteExport(r.output, f, title, songs)
	}

	path, err := formatter.WriteExportFile(f, title, songs, cmd.String("output"), "songs-"+job.ID)
	if err != nil {
		return err
	}
	r.logger.Info("export written", "job", job.ID, "songs", len(songs), "path", path)
	return r.writePlain("✓ Exported %d songs to %s\n", len(songs), path)
}
