// Package speech reads conversation replies aloud.
//
// A [Speaker] blocks in Speak until the utterance finishes or is cut off by
// Stop. Speech is best effort: implementations never return errors, and a
// missing or failing engine only produces a warning in the log.
package speech

import (
	"context"
	"sync/atomic"

	"github.com/Iron-Ham/duet/internal/persona"
)

// Speaker speaks text in the voice assigned to an agent.
type Speaker interface {
	// Speak returns once the utterance completes, fails, or is stopped.
	Speak(ctx context.Context, text string, agent persona.AgentID)
	// Stop cuts off current playback. It is safe to call when idle.
	Stop()
}

// Toggler is implemented by speakers whose output can be muted at runtime.
type Toggler interface {
	Enabled() bool
	SetEnabled(enabled bool)
}

// Nop is a Speaker that returns immediately. Its enabled flag is tracked so
// a UI mute toggle still reflects what the user chose.
type Nop struct {
	enabled atomic.Bool
}

// NewNop returns a silent speaker.
func NewNop() *Nop {
	return &Nop{}
}

func (*Nop) Speak(context.Context, string, persona.AgentID) {}
func (*Nop) Stop()                                          {}

func (n *Nop) Enabled() bool           { return n.enabled.Load() }
func (n *Nop) SetEnabled(enabled bool) { n.enabled.Store(enabled) }
