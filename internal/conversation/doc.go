// Package conversation runs an unattended dialogue between two personas.
//
// A [Controller] owns the transcript, the turn pointer, and the run status.
// While running, its loop repeatedly builds the current agent's prompt
// history, asks the [Completer] for a reply, records it, speaks it, waits
// the inter-turn delay, and moves on to the other agent.
//
// # States
//
//	Idle ──Start──▶ Running ──Pause──▶ Paused
//	  ▲               │  ▲               │
//	  │               │  └────Resume─────┘
//	  └─────Stop──────┴──────Stop────────┘
//
//	Running ──turn error──▶ Errored ──▶ Idle (transcript kept)
//
// Start from Idle clears the previous transcript. Stop clears it too. A
// failed session keeps its transcript, including the error marker, until the
// next Start so the user can read what happened.
//
// # Pause and Stop
//
// Pausing while a request is in flight lets that reply land in the
// transcript; no further turn starts until Resume. Stopping while a request
// is in flight discards the reply when it arrives. The request itself is
// not aborted; only [Controller.Close] cancels it.
//
// Observers learn about changes through the [event.Bus] passed to [New] and
// can read a consistent copy of the state at any time with
// [Controller.Snapshot].
package conversation
