package agents

import "fmt"

// Status is the phase of a pipeline run.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// State is a snapshot of the pipeline state machine:
// NotStarted -> Running(0) -> ... -> Running(n-1) -> Completed, with
// Failed(i, cause) reachable from any Running(i).
type State struct {
	Status Status
	// Index of the running or failed stage; -1 otherwise.
	Index int
	Agent string
	Err   error
	// Last is the most recently completed section, if any.
	Last *Section
}

// NotStarted is the initial state.
func NotStarted() State { return State{Status: StatusNotStarted, Index: -1} }

func (s State) String() string {
	switch s.Status {
	case StatusRunning:
		return fmt.Sprintf("Running(%d:%s)", s.Index, s.Agent)
	case StatusFailed:
		return fmt.Sprintf("Failed(%d:%s, %v)", s.Index, s.Agent, s.Err)
	case StatusCompleted:
		return "Completed"
	default:
		return "NotStarted"
	}
}

// Terminal reports whether the run is over.
func (s State) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Observer is notified on every state transition. It runs on the pipeline
// goroutine and must not block.
type Observer func(State)
