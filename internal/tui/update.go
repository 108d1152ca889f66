package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/duet/internal/conversation"
	"github.com/Iron-Ham/duet/internal/event"
	"github.com/Iron-Ham/duet/internal/tui/keymap"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeypress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.renderPanes()
		return m, nil

	case tickMsg:
		// Keeps the elapsed timer moving between events
		m.refresh()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case busMsg:
		m.handleEvent(msg.event)
		m.refresh()
		return m, nil
	}

	return m, nil
}

func (m *Model) handleEvent(e event.Event) {
	switch e := e.(type) {
	case event.ErrorEvent:
		m.errorMessage = fmt.Sprintf("%s could not reach %s", m.reg.Name(e.Agent), e.Endpoint)
	case event.ResetEvent:
		m.errorMessage = ""
	case event.StatusChangedEvent:
		if e.Status == conversation.StatusRunning.String() {
			m.errorMessage = ""
			m.infoMessage = ""
		}
	case event.SpeechToggledEvent:
		if e.Enabled {
			m.infoMessage = "Speech on"
		} else {
			m.infoMessage = "Speech muted"
		}
	}
}

// handleKeypress processes keyboard input
func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cmd, ok := m.keys.Lookup(msg)
	if !ok {
		return m, nil
	}

	switch cmd {
	case keymap.CmdQuit:
		m.quitting = true
		return m, tea.Quit

	case keymap.CmdStartPause:
		m.startOrTogglePause()

	case keymap.CmdStop:
		m.conv.Stop()

	case keymap.CmdToggleView:
		if m.view == ViewSplit {
			m.view = ViewTimeline
		} else {
			m.view = ViewSplit
		}

	case keymap.CmdToggleMute:
		m.toggleMute()

	case keymap.CmdToggleHelp:
		m.showHelp = !m.showHelp

	case keymap.CmdScrollUp:
		m.scroll(func(vp *viewport.Model) { vp.ScrollUp(1) })
		return m, nil
	case keymap.CmdScrollDown:
		m.scroll(func(vp *viewport.Model) { vp.ScrollDown(1) })
		return m, nil
	case keymap.CmdScrollToTop:
		m.scroll(func(vp *viewport.Model) { vp.GotoTop() })
		return m, nil
	case keymap.CmdScrollToBottom:
		m.scroll(func(vp *viewport.Model) { vp.GotoBottom() })
		return m, nil
	}

	m.refresh()
	return m, nil
}

func (m *Model) startOrTogglePause() {
	var err error
	switch m.conv.Snapshot().Status {
	case conversation.StatusIdle, conversation.StatusErrored:
		err = m.conv.Start()
	default:
		err = m.conv.TogglePause()
	}
	if err != nil {
		m.errorMessage = err.Error()
	}
}

func (m *Model) toggleMute() {
	if m.speech == nil {
		m.infoMessage = "Speech is not available"
		return
	}
	enabled := !m.speech.Enabled()
	m.speech.SetEnabled(enabled)
	if m.bus != nil {
		m.bus.Publish(event.NewSpeechToggledEvent(enabled, event.SourceKeyboard))
	}
}
