package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines all key bindings for the application.
type KeyMap struct {
	Up       Key
	Down     Key
	PageUp   Key
	PageDown Key
	Select   Key
	Back     Key
	Quit     Key

	// Module navigation
	Help      Key
	Dashboard Key
	Inventory Key
	Menu      Key
	Exit      Key

	// Kitchen actions
	Serve    Key
	Cancel   Key
	Refresh  Key
	PrevDay  Key
	NextDay  Key
	Today    Key
	Category Key
	Purchase Key
}

// Key represents a key binding.
type Key struct {
	Keys    []string
	Help    string
	Enabled bool
}

func newKey(help string, keys ...string) Key {
	return Key{Keys: keys, Help: help, Enabled: true}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       newKey("up", "up", "k"),
		Down:     newKey("down", "down", "j"),
		PageUp:   newKey("page up", "pgup"),
		PageDown: newKey("page down", "pgdown"),
		Select:   newKey("select", "enter"),
		Back:     newKey("back", "esc"),
		Quit:     newKey("quit", "q", "ctrl+c"),

		Help:      newKey("Help", "f1", "?"),
		Dashboard: newKey("Dashboard", "f2"),
		Inventory: newKey("Inventory", "f3"),
		Menu:      newKey("Menu", "f4"),
		Exit:      newKey("Quit", "f10"),

		Serve:    newKey("serve meal", "s"),
		Cancel:   newKey("cancel meal", "x"),
		Refresh:  newKey("refresh", "r"),
		PrevDay:  newKey("previous day", "[", "left", "h"),
		NextDay:  newKey("next day", "]", "right", "l"),
		Today:    newKey("today", "t"),
		Category: newKey("category", "c"),
		Purchase: newKey("purchase", "p"),
	}
}

// Matches checks if a key message matches this key binding.
func (k Key) Matches(msg tea.KeyMsg) bool {
	if !k.Enabled {
		return false
	}

	keyStr := msg.String()
	for _, key := range k.Keys {
		if keyStr == key {
			return true
		}
	}
	return false
}

// MatchesAny checks if a key message matches any of the provided key bindings.
func MatchesAny(msg tea.KeyMsg, keys ...Key) bool {
	for _, k := range keys {
		if k.Matches(msg) {
			return true
		}
	}
	return false
}

// IsQuit checks if the key message is a quit command.
func (km KeyMap) IsQuit(msg tea.KeyMsg) bool {
	return km.Quit.Matches(msg) || km.Exit.Matches(msg)
}

// ModuleFor returns the module a navigation key switches to, or "" for other keys.
func (km KeyMap) ModuleFor(msg tea.KeyMsg) Module {
	switch {
	case km.Help.Matches(msg):
		return ModuleHelp
	case km.Dashboard.Matches(msg):
		return ModuleDashboard
	case km.Inventory.Matches(msg):
		return ModuleInventory
	case km.Menu.Matches(msg):
		return ModuleMenu
	default:
		return ""
	}
}

// StatusBarHelp returns the help text for the status bar.
func (km KeyMap) StatusBarHelp(width int) string {
	if width < 60 {
		return "F1 F2 F3 F4 F10"
	}
	return "[F1]Help [F2]Dashboard [F3]Inventory [F4]Menu [F10]Quit"
}
