package conversation

import (
	"time"

	"github.com/Iron-Ham/duet/internal/persona"
	"github.com/Iron-Ham/duet/internal/transcript"
)

// Status is the run state of a conversation.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	// StatusErrored is held only while a failed turn is surfaced; the
	// controller then settles to StatusIdle.
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Label is the human-facing name shown in status badges.
func (s Status) Label() string {
	switch s {
	case StatusRunning:
		return "Live"
	case StatusPaused:
		return "Paused"
	case StatusErrored:
		return "Connection Error"
	default:
		return "Ready to Go"
	}
}

// Snapshot is a point-in-time copy of the conversation state. It shares no
// memory with the controller.
type Snapshot struct {
	Status Status
	// Turn is the agent that speaks next, or whose request is in flight
	// when Pending is set.
	Turn         persona.AgentID
	Pending      bool
	Entries      []transcript.Entry
	MessageCount int
	StartedAt    time.Time
	Elapsed      time.Duration
	LastError    error
}
