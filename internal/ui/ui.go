package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musictransfer/internal/models"
	"github.com/desertthunder/musictransfer/internal/tasks"
)

// DefaultInterval matches the web page's polling period.
const DefaultInterval = 2 * time.Second

// ViewState represents the current view in the TUI.
type ViewState int

const (
	WatchView ViewState = iota
	SongsView
	FailedView
)

// StatusFunc reports the poll protocol state of a task.
type StatusFunc func(ctx context.Context, id string) (*tasks.TaskStatus, error)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	jobID    string
	fetch    StatusFunc
	interval time.Duration
	width    int
	height   int
	status   *tasks.TaskStatus
	songs    []models.Song
	songList list.Model
	bar      progress.Model
	spinner  spinner.Model
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a model that watches jobID through fetch.
func NewModel(ctx context.Context, jobID string, fetch StatusFunc, interval time.Duration) *Model {
	if interval <= 0 {
		interval = DefaultInterval
	}
	h := help.New()
	h.Styles.ShortDesc = styles.help
	h.Styles.FullDesc = styles.help
	return &Model{
		ctx:      ctx,
		view:     WatchView,
		jobID:    jobID,
		fetch:    fetch,
		interval: interval,
		bar:      progress.New(progress.WithDefaultGradient()),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     h,
		keys:     newKeyMap(),
	}
}

// Songs returns the scraped songs once the task has succeeded.
func (m *Model) Songs() []models.Song { return m.songs }

// Err returns the error that stopped polling, if any.
func (m *Model) Err() error { return m.err }

// State returns the current view.
func (m *Model) State() ViewState { return m.view }

// Init starts the spinner and the first poll.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(max(msg.Width-4, 10), 80)
		if m.view == SongsView {
			m.songList.SetSize(msg.Width-4, msg.Height-6)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgStatusFetched:
			result := msg.data.(statusResult)
			return m.handleStatus(result.status, result.err)
		case MsgPollTick:
			return m, m.poll()
		}
		return m, nil

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	case spinner.TickMsg:
		if m.view != WatchView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.view == SongsView {
		var cmd tea.Cmd
		m.songList, cmd = m.songList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		if m.view == SongsView && m.songList.FilterState() == list.Filtering {
			break
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.help) && m.view != SongsView:
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.view != SongsView {
		return m, nil
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

func (m *Model) handleStatus(status *tasks.TaskStatus, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		m.err = err
		m.view = FailedView
		return m, nil
	}
	m.status = status

	switch status.State {
	case tasks.StateSuccess:
		songs, err := decodeSongs(status.Result)
		if err != nil {
			m.err = err
			m.view = FailedView
			return m, nil
		}
		m.songs = songs
		m.songList = list.New(songItems(songs), list.NewDefaultDelegate(), max(m.width-4, 20), max(m.height-6, 10))
		m.songList.Title = fmt.Sprintf("%d songs", len(songs))
		m.view = SongsView
		return m, m.bar.SetPercent(1)
	case tasks.StateFailure:
		m.err = errors.New(status.Status)
		m.view = FailedView
		return m, nil
	}

	return m, tea.Batch(m.bar.SetPercent(status.Percent()), m.tick())
}

func decodeSongs(raw json.RawMessage) ([]models.Song, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var songs []models.Song
	if err := json.Unmarshal(raw, &songs); err != nil {
		return nil, fmt.Errorf("failed to decode job result: %w", err)
	}
	return songs, nil
}

func (m *Model) poll() tea.Cmd {
	return func() tea.Msg {
		return statusFetchedMsg(m.fetch(m.ctx, m.jobID))
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return pollTickMsg()
	})
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case WatchView:
		return m.renderWatch()
	case SongsView:
		return m.renderSongs()
	case FailedView:
		return m.renderFailed()
	default:
		return ""
	}
}

func (m *Model) renderWatch() string {
	title := styles.title.Render(fmt.Sprintf("Job %s", m.jobID))

	line := "Pending..."
	if m.status != nil {
		line = m.status.Status
		if m.status.State == tasks.StateRetry {
			line = styles.warn.Render("Retrying: " + line)
		}
	}

	return fmt.Sprintf("%s\n%s\n\n%s %s\n\n%s",
		title, m.bar.View(), m.spinner.View(), styles.status.Render(line), m.help.View(m.keys))
}

func (m *Model) renderSongs() string {
	return fmt.Sprintf("%s\n%s", styles.ok.Render("✓ Success!"), m.songList.View())
}

func (m *Model) renderFailed() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Job failed: %v", m.err)), helpView)
}
