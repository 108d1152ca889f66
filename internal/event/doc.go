// Package event carries conversation notifications from the controller to
// its observers (the TUI, the headless watcher, and the logger) without the
// controller knowing who is listening.
//
// # Delivery
//
// [Bus] is synchronous: [Bus.Publish] runs every handler on the caller's
// goroutine before returning. Handlers subscribed to a specific type run
// first, followed by handlers registered with [Bus.SubscribeAll]. A handler
// that panics is recovered and logged so the rest still run.
//
// The controller publishes while holding no locks, so handlers may call
// back into it (for example to take a snapshot).
//
// # Event Types
//
//	conversation.status          StatusChangedEvent
//	conversation.turn_started    TurnStartedEvent
//	conversation.entry           EntryAppendedEvent
//	conversation.turn_completed  TurnCompletedEvent
//	conversation.error           ErrorEvent
//	conversation.reset           ResetEvent
//	speech.toggled               SpeechToggledEvent
//
// # Usage
//
//	bus := event.NewBus(logger)
//	bus.Subscribe(event.TypeEntryAppended, func(e event.Event) {
//	    entry := e.(event.EntryAppendedEvent).Entry
//	    fmt.Println(entry.Content)
//	})
package event
