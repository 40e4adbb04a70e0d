package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	// timer
	Start, Pause, Save, Reset, Choose key.Binding
	// data
	New, Clear, Export key.Binding
	// views
	Tab1, Tab2, Tab3, Tab4, Tab key.Binding
	// lists and periods
	Up, Down, Left, Right, Enter, Back key.Binding

	Help, Quit key.Binding
}

func bind(help string, on ...string) key.Binding {
	return key.NewBinding(key.WithKeys(on...), key.WithHelp(on[0], help))
}

var keys = keyMap{
	Start:  bind("start", "s"),
	Pause:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause/resume")),
	Save:   bind("save session", "w"),
	Reset:  bind("discard time", "r"),
	Choose: bind("choose subject", "c"),

	New:    bind("add", "n"),
	Clear:  bind("clear history", "D"),
	Export: bind("export", "e"),

	Tab1: bind("dashboard", "1"),
	Tab2: bind("disciplines", "2"),
	Tab3: bind("reports", "3"),
	Tab4: bind("settings", "4"),
	Tab:  bind("next view", "tab"),

	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "earlier period")),
	Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "later period")),
	Enter: bind("select", "enter"),
	Back:  bind("back", "esc"),

	Help: bind("help", "?"),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Save, k.Choose, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Pause, k.Save, k.Reset, k.Choose},
		{k.New, k.Clear, k.Export},
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4, k.Tab},
		{k.Up, k.Down, k.Left, k.Right, k.Enter, k.Back, k.Quit},
	}
}
