package tui

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/duet/internal/event"
)

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
	bus     *event.Bus
}

// New creates a new TUI application driving conv.
func New(conv Conversation, opts Options) *App {
	return &App{
		model: NewModel(conv, opts),
		bus:   opts.Bus,
	}
}

// Run starts the TUI application and blocks until the user quits.
func (a *App) Run() error {
	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	if a.bus != nil {
		pump := newEventPump(a.program.Send)
		id := a.bus.SubscribeAll(pump.push)
		defer func() {
			a.bus.Unsubscribe(id)
			pump.close()
		}()
		go pump.run()
	}

	// Quit cleanly on termination signals so the terminal is restored
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		if _, ok := <-sigChan; ok && a.program != nil {
			a.program.Send(tea.Quit())
		}
	}()

	_, err := a.program.Run()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// eventPump forwards bus events to the program in publish order without
// blocking the publisher. Publishing happens on the controller's goroutine
// and, for key-driven actions, inside Update itself, where a blocking Send
// would deadlock.
type eventPump struct {
	send   func(tea.Msg)
	mu     sync.Mutex
	queue  []event.Event
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

func newEventPump(send func(tea.Msg)) *eventPump {
	return &eventPump{
		send: send,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (p *eventPump) push(e event.Event) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.queue = append(p.queue, e)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *eventPump) run() {
	for {
		select {
		case <-p.done:
			return
		case <-p.wake:
		}

		p.mu.Lock()
		batch := p.queue
		p.queue = nil
		p.mu.Unlock()

		for _, e := range batch {
			p.send(busMsg{event: e})
		}
	}
}

func (p *eventPump) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
}
