package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/duet/internal/conversation"
	"github.com/Iron-Ham/duet/internal/event"
	"github.com/Iron-Ham/duet/internal/persona"
	"github.com/Iron-Ham/duet/internal/speech"
	"github.com/Iron-Ham/duet/internal/tui/keymap"
)

// Conversation is the controller surface the TUI drives.
type Conversation interface {
	Start() error
	TogglePause() error
	Stop()
	Snapshot() conversation.Snapshot
	Registry() *persona.Registry
}

// ViewMode selects how the transcript is laid out.
type ViewMode int

const (
	ViewSplit ViewMode = iota
	ViewTimeline
)

// ParseViewMode maps a config value to a ViewMode. Unknown values give the
// split view.
func ParseViewMode(s string) ViewMode {
	if s == "timeline" {
		return ViewTimeline
	}
	return ViewSplit
}

func (v ViewMode) String() string {
	if v == ViewTimeline {
		return "timeline"
	}
	return "split"
}

// Options configures a Model.
type Options struct {
	View string
	// Speech is toggled by the mute key. Nil disables the key.
	Speech speech.Toggler
	// Bus receives speech toggle events and feeds the program.
	Bus    *event.Bus
	Keymap *keymap.Keymap
	// Width and Height seed the layout before the first WindowSizeMsg.
	Width  int
	Height int
}

// Model holds the TUI application state
type Model struct {
	// Core components
	conv   Conversation
	reg    *persona.Registry
	speech speech.Toggler
	bus    *event.Bus
	keys   *keymap.Keymap

	// UI state
	view         ViewMode
	width        int
	height       int
	ready        bool
	quitting     bool
	showHelp     bool
	infoMessage  string
	errorMessage string

	// Latest controller state
	snap conversation.Snapshot

	// Split view keeps one viewport per agent in registry order
	columns  []viewport.Model
	timeline viewport.Model
	spinner  spinner.Model
}

// Messages

type tickMsg time.Time

type busMsg struct {
	event event.Event
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// NewModel creates a new TUI model
func NewModel(conv Conversation, opts Options) Model {
	keys := opts.Keymap
	if keys == nil {
		keys = keymap.Default()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Points

	reg := conv.Registry()
	columns := make([]viewport.Model, reg.Len())
	for i := range columns {
		columns[i] = viewport.New(0, 0)
	}

	m := Model{
		conv:     conv,
		reg:      reg,
		speech:   opts.Speech,
		bus:      opts.Bus,
		keys:     keys,
		view:     ParseViewMode(opts.View),
		columns:  columns,
		timeline: viewport.New(0, 0),
		spinner:  sp,
		snap:     conv.Snapshot(),
	}
	if opts.Width > 0 && opts.Height > 0 {
		m.width = opts.Width
		m.height = opts.Height
		m.ready = true
		m.renderPanes()
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

// CurrentView returns the active view mode.
func (m Model) CurrentView() ViewMode {
	return m.view
}

// refresh pulls a fresh snapshot and re-renders the panes.
func (m *Model) refresh() {
	m.snap = m.conv.Snapshot()
	m.renderPanes()
}

// muted reports whether speech is off. Without a toggler speech is
// always considered off.
func (m Model) muted() bool {
	return m.speech == nil || !m.speech.Enabled()
}
