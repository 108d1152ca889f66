package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/duet/internal/config"
	"github.com/Iron-Ham/duet/internal/event"
	"github.com/Iron-Ham/duet/internal/persona"
	"github.com/Iron-Ham/duet/internal/util"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a conversation and print it to stdout",
	Long: `Run a conversation without the terminal UI, printing each reply as a line
of the form "[HH:MM] Name: text". The conversation stops after --turns
replies (0 runs until interrupted) or when a completion request fails.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchTurns int

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntVarP(&watchTurns, "turns", "n", -1, "number of replies before stopping (default from config, 0 for no limit)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()
	a.watchConfig()

	turns := cfg.Conversation.MaxTurns
	if watchTurns >= 0 {
		turns = watchTurns
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchConversation(ctx, a.ctrl, a.bus, cmd.OutOrStdout(), turns)
}

// watchable is the controller surface used by watch.
type watchable interface {
	Start() error
	Stop()
	Registry() *persona.Registry
}

// watchConversation starts conv and prints replies to out until turns
// replies have been printed, ctx is done, or a turn fails. With turns > 0
// the conversation is stopped from the turn-completed handler, which runs
// on the turn loop before it can claim another turn.
func watchConversation(ctx context.Context, conv watchable, bus *event.Bus, out io.Writer, turns int) error {
	q := newEventQueue()
	id := bus.SubscribeAll(q.push)
	defer bus.Unsubscribe(id)

	limit := make(chan struct{})
	if turns > 0 {
		var once sync.Once
		completed := 0
		limitID := bus.Subscribe(event.TypeTurnCompleted, func(event.Event) {
			completed++
			if completed >= turns {
				once.Do(func() {
					conv.Stop()
					close(limit)
				})
			}
		})
		defer bus.Unsubscribe(limitID)
	}

	reg := conv.Registry()
	if err := conv.Start(); err != nil {
		return err
	}

	for {
		done := false
		select {
		case <-ctx.Done():
			conv.Stop()
			fmt.Fprintln(out, "stopped")
			return nil
		case <-limit:
			done = true
		case <-q.wake:
		}

		if err := printEvents(out, reg, q.drain()); err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// printEvents writes one line per reply and turns an error event into the
// returned error.
func printEvents(out io.Writer, reg *persona.Registry, events []event.Event) error {
	for _, e := range events {
		switch e := e.(type) {
		case event.EntryAppendedEvent:
			if !e.Entry.IsMessage() {
				continue
			}
			fmt.Fprintf(out, "[%s] %s: %s\n",
				e.Entry.Timestamp.Format("15:04"),
				reg.Name(e.Entry.Agent),
				util.OneLine(util.SanitizeText(e.Entry.Content)))
		case event.ErrorEvent:
			return fmt.Errorf("%s could not reach %s: %w", reg.Name(e.Agent), e.Endpoint, e.Err)
		}
	}
	return nil
}

// eventQueue buffers bus events without blocking the publisher.
type eventQueue struct {
	mu     sync.Mutex
	events []event.Event
	wake   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

func (q *eventQueue) push(e event.Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []event.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.events
	q.events = nil
	return events
}
