// Package transcript holds the append-only record of a conversation.
//
// A [Transcript] is owned by a single writer (the conversation controller)
// and is not safe for concurrent use on its own; the owner serializes access.
// Readers receive copies via [Transcript.Entries] and never a live slice.
package transcript

import (
	"time"

	"github.com/Iron-Ham/duet/internal/persona"
)

// Kind distinguishes spoken messages from synthetic markers.
type Kind int

const (
	// KindMessage is a reply produced by an agent.
	KindMessage Kind = iota
	// KindError is a synthetic marker describing a failed turn.
	KindError
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is one record in the transcript.
type Entry struct {
	// Seq is the 1-based position of the entry in its transcript.
	Seq       int
	Agent     persona.AgentID
	Content   string
	Timestamp time.Time
	Kind      Kind
}

// IsMessage reports whether the entry is a real agent reply.
func (e Entry) IsMessage() bool {
	return e.Kind == KindMessage
}

// Transcript is an ordered, append-only list of entries with strictly
// increasing timestamps.
type Transcript struct {
	entries []Entry
	now     func() time.Time
}

// New creates an empty transcript. A nil clock uses time.Now.
func New(now func() time.Time) *Transcript {
	if now == nil {
		now = time.Now
	}
	return &Transcript{now: now}
}

// Append records content for agent and returns the stored entry.
func (t *Transcript) Append(agent persona.AgentID, content string, kind Kind) Entry {
	ts := t.now()
	if n := len(t.entries); n > 0 {
		if last := t.entries[n-1].Timestamp; !ts.After(last) {
			ts = last.Add(time.Nanosecond)
		}
	}

	e := Entry{
		Seq:       len(t.entries) + 1,
		Agent:     agent,
		Content:   content,
		Timestamp: ts,
		Kind:      kind,
	}
	t.entries = append(t.entries, e)
	return e
}

// Reset removes every entry.
func (t *Transcript) Reset() {
	t.entries = nil
}

// Len returns the number of entries, markers included.
func (t *Transcript) Len() int {
	return len(t.entries)
}

// MessageCount returns the number of real agent replies.
func (t *Transcript) MessageCount() int {
	n := 0
	for _, e := range t.entries {
		if e.IsMessage() {
			n++
		}
	}
	return n
}

// Last returns the most recent entry.
func (t *Transcript) Last() (Entry, bool) {
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// Entries returns a copy of all entries in order.
func (t *Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
