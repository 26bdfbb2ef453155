package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musictransfer/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgStatusFetched MsgKind = iota
	MsgPollTick
)

type statusResult struct {
	status *tasks.TaskStatus
	err    error
}

// statusFetchedMsg is the constructor for [MsgStatusFetched]
func statusFetchedMsg(status *tasks.TaskStatus, err error) Msg {
	return Msg{kind: MsgStatusFetched, data: statusResult{status, err}}
}

// pollTickMsg is the constructor for [MsgPollTick]
func pollTickMsg() Msg {
	return Msg{kind: MsgPollTick}
}
