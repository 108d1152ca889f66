// Package keymap provides key binding definitions and lookup for the TUI.
package keymap

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Command represents a named action that can be triggered by a key binding.
type Command string

const (
	// Conversation control
	CmdStartPause Command = "start_pause"
	CmdStop       Command = "stop"

	// View toggles
	CmdToggleView Command = "toggle_view"
	CmdToggleMute Command = "toggle_mute"
	CmdToggleHelp Command = "toggle_help"

	// Scrolling
	CmdScrollUp       Command = "scroll_up"
	CmdScrollDown     Command = "scroll_down"
	CmdScrollToTop    Command = "scroll_to_top"
	CmdScrollToBottom Command = "scroll_to_bottom"

	// Exit
	CmdQuit Command = "quit"
)

// KeyBinding represents a single key binding configuration.
type KeyBinding struct {
	// KeyType is the key for this binding. Rune keys use tea.KeyRunes and
	// set Rune.
	KeyType tea.KeyType

	// Rune is the character for rune-based keys.
	Rune rune

	// Command is the action to execute when this binding is triggered.
	Command Command

	// Description is a human-readable description for help display.
	Description string

	// Category groups related bindings together in help display.
	Category string

	// Hidden bindings work but are left out of the help bar.
	Hidden bool
}

// Matches checks if a tea.KeyMsg matches this binding.
func (kb KeyBinding) Matches(msg tea.KeyMsg) bool {
	if msg.Alt {
		return false
	}

	if kb.KeyType != tea.KeyRunes {
		return msg.Type == kb.KeyType
	}

	if msg.Type != tea.KeyRunes || len(msg.Runes) == 0 {
		return false
	}
	return msg.Runes[0] == kb.Rune
}

// String returns a human-readable representation of the key binding.
func (kb KeyBinding) String() string {
	if kb.KeyType == tea.KeySpace || (kb.KeyType == tea.KeyRunes && kb.Rune == ' ') {
		return "space"
	}
	if kb.KeyType != tea.KeyRunes {
		return kb.KeyType.String()
	}
	return string(kb.Rune)
}

// Keymap is an ordered list of bindings. The first match wins.
type Keymap struct {
	Name     string
	Bindings []KeyBinding
}

// Lookup returns the command bound to msg.
func (km *Keymap) Lookup(msg tea.KeyMsg) (Command, bool) {
	for _, binding := range km.Bindings {
		if binding.Matches(msg) {
			return binding.Command, true
		}
	}
	return "", false
}

// BindingsFor returns every binding for cmd.
func (km *Keymap) BindingsFor(cmd Command) []KeyBinding {
	var result []KeyBinding
	for _, binding := range km.Bindings {
		if binding.Command == cmd {
			result = append(result, binding)
		}
	}
	return result
}

// HelpBindings returns one visible binding per command, in keymap order.
func (km *Keymap) HelpBindings() []KeyBinding {
	seen := make(map[Command]bool)
	var result []KeyBinding
	for _, binding := range km.Bindings {
		if binding.Hidden || seen[binding.Command] {
			continue
		}
		seen[binding.Command] = true
		result = append(result, binding)
	}
	return result
}

// Default returns the standard duet key bindings.
func Default() *Keymap {
	return &Keymap{
		Name: "default",
		Bindings: []KeyBinding{
			{KeyType: tea.KeySpace, Command: CmdStartPause, Description: "start/pause", Category: "Conversation"},
			{KeyType: tea.KeyEsc, Command: CmdStop, Description: "stop", Category: "Conversation"},

			{KeyType: tea.KeyRunes, Rune: 'v', Command: CmdToggleView, Description: "view", Category: "View"},
			{KeyType: tea.KeyRunes, Rune: 'm', Command: CmdToggleMute, Description: "mute", Category: "View"},
			{KeyType: tea.KeyRunes, Rune: '?', Command: CmdToggleHelp, Description: "help", Category: "View"},

			{KeyType: tea.KeyRunes, Rune: 'k', Command: CmdScrollUp, Description: "scroll up", Category: "Scrolling", Hidden: true},
			{KeyType: tea.KeyUp, Command: CmdScrollUp, Description: "scroll up", Category: "Scrolling", Hidden: true},
			{KeyType: tea.KeyRunes, Rune: 'j', Command: CmdScrollDown, Description: "scroll down", Category: "Scrolling", Hidden: true},
			{KeyType: tea.KeyDown, Command: CmdScrollDown, Description: "scroll down", Category: "Scrolling", Hidden: true},
			{KeyType: tea.KeyRunes, Rune: 'g', Command: CmdScrollToTop, Description: "top", Category: "Scrolling", Hidden: true},
			{KeyType: tea.KeyRunes, Rune: 'G', Command: CmdScrollToBottom, Description: "bottom", Category: "Scrolling", Hidden: true},

			{KeyType: tea.KeyRunes, Rune: 'q', Command: CmdQuit, Description: "quit", Category: "Application"},
			{KeyType: tea.KeyCtrlC, Command: CmdQuit, Description: "quit", Category: "Application", Hidden: true},
		},
	}
}
