package tasks

import (
	"encoding/json"
)

// State is the job state reported to pollers.
type State string

const (
	StatePending  State = "PENDING"
	StateProgress State = "PROGRESS"
	StateRetry    State = "RETRY"
	StateFailure  State = "FAILURE"
	StateSuccess  State = "SUCCESS"
)

// Done reports whether the state is terminal.
func (s State) Done() bool {
	return s == StateSuccess || s == StateFailure
}

func (s State) String() string {
	return string(s)
}

// ProgressUpdate is a progress event published by a running scrape.
type ProgressUpdate struct {
	State   State   `json:"state"`
	Current float64 `json:"current"`
	Total   int     `json:"total"`
	Status  string  `json:"status"`
}

// TaskStatus is the response of the poll protocol.
//
// Result carries the JSON encoded song list once State is [StateSuccess].
type TaskStatus struct {
	State   State           `json:"state"`
	Current float64         `json:"current"`
	Total   int             `json:"total"`
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// Percent returns Current as a fraction of Total in [0, 1].
func (s TaskStatus) Percent() float64 {
	if s.Total <= 0 {
		return 0
	}
	p := s.Current / float64(s.Total)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

const progressTotal = 100

func pendingStatus() *TaskStatus {
	return &TaskStatus{State: StatePending, Current: 0, Total: 1, Status: "Pending..."}
}

func successStatus(result []byte) *TaskStatus {
	return &TaskStatus{State: StateSuccess, Current: 1, Total: 1, Status: "Success!", Result: result}
}

func failureStatus(msg string) *TaskStatus {
	return &TaskStatus{State: StateFailure, Current: 1, Total: 1, Status: msg}
}

// SuccessStatus builds the poll response for a job whose result is already stored.
func SuccessStatus(result []byte) *TaskStatus {
	return successStatus(result)
}

func lookingUpdate() ProgressUpdate {
	return ProgressUpdate{State: StateProgress, Current: 5, Total: progressTotal, Status: "Looking for playlist..."}
}

func foundUpdate() ProgressUpdate {
	return ProgressUpdate{State: StateProgress, Current: 10, Total: progressTotal, Status: "Playlist found."}
}

func songsUpdate(current float64) ProgressUpdate {
	return ProgressUpdate{State: StateProgress, Current: current, Total: progressTotal, Status: "Getting songs..."}
}
