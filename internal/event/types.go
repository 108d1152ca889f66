package event

import (
	"time"

	"github.com/Iron-Ham/duet/internal/persona"
	"github.com/Iron-Ham/duet/internal/transcript"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier.
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeStatusChanged = "conversation.status"
	TypeTurnStarted   = "conversation.turn_started"
	TypeEntryAppended = "conversation.entry"
	TypeTurnCompleted = "conversation.turn_completed"
	TypeError         = "conversation.error"
	TypeReset         = "conversation.reset"
	TypeSpeechToggled = "speech.toggled"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// StatusChangedEvent is emitted on every controller status transition.
// Status values are the controller's status names ("idle", "running",
// "paused", "errored").
type StatusChangedEvent struct {
	baseEvent
	Previous string
	Status   string
}

// NewStatusChangedEvent creates a StatusChangedEvent.
func NewStatusChangedEvent(previous, status string) StatusChangedEvent {
	return StatusChangedEvent{
		baseEvent: newBaseEvent(TypeStatusChanged),
		Previous:  previous,
		Status:    status,
	}
}

// TurnStartedEvent is emitted when a completion request is sent for Agent.
type TurnStartedEvent struct {
	baseEvent
	Agent persona.AgentID
	Model string
}

// NewTurnStartedEvent creates a TurnStartedEvent.
func NewTurnStartedEvent(agent persona.AgentID, model string) TurnStartedEvent {
	return TurnStartedEvent{
		baseEvent: newBaseEvent(TypeTurnStarted),
		Agent:     agent,
		Model:     model,
	}
}

// EntryAppendedEvent is emitted after an entry joins the transcript. Next
// is the agent whose turn it now is.
type EntryAppendedEvent struct {
	baseEvent
	Entry transcript.Entry
	Next  persona.AgentID
}

// NewEntryAppendedEvent creates an EntryAppendedEvent.
func NewEntryAppendedEvent(entry transcript.Entry, next persona.AgentID) EntryAppendedEvent {
	return EntryAppendedEvent{
		baseEvent: newBaseEvent(TypeEntryAppended),
		Entry:     entry,
		Next:      next,
	}
}

// TurnCompletedEvent is emitted once Agent's reply has been spoken and the
// conversation is still running. The inter-turn delay has not started yet.
type TurnCompletedEvent struct {
	baseEvent
	Agent persona.AgentID
	Seq   int
}

// NewTurnCompletedEvent creates a TurnCompletedEvent.
func NewTurnCompletedEvent(agent persona.AgentID, seq int) TurnCompletedEvent {
	return TurnCompletedEvent{
		baseEvent: newBaseEvent(TypeTurnCompleted),
		Agent:     agent,
		Seq:       seq,
	}
}

// ErrorEvent is emitted when a turn fails and the conversation halts.
type ErrorEvent struct {
	baseEvent
	Agent    persona.AgentID
	Endpoint string
	Err      error
}

// NewErrorEvent creates an ErrorEvent.
func NewErrorEvent(agent persona.AgentID, endpoint string, err error) ErrorEvent {
	return ErrorEvent{
		baseEvent: newBaseEvent(TypeError),
		Agent:     agent,
		Endpoint:  endpoint,
		Err:       err,
	}
}

// ResetEvent is emitted when the transcript is cleared.
type ResetEvent struct {
	baseEvent
	Cleared int
}

// NewResetEvent creates a ResetEvent.
func NewResetEvent(cleared int) ResetEvent {
	return ResetEvent{
		baseEvent: newBaseEvent(TypeReset),
		Cleared:   cleared,
	}
}

// Sources of a speech toggle.
const (
	SourceKeyboard = "user"
	SourceConfig   = "config"
)

// SpeechToggledEvent is emitted when speech output is enabled or disabled.
type SpeechToggledEvent struct {
	baseEvent
	Enabled bool
	Source  string // SourceKeyboard or SourceConfig
}

// NewSpeechToggledEvent creates a SpeechToggledEvent.
func NewSpeechToggledEvent(enabled bool, source string) SpeechToggledEvent {
	return SpeechToggledEvent{
		baseEvent: newBaseEvent(TypeSpeechToggled),
		Enabled:   enabled,
		Source:    source,
	}
}
