package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Pick     key.Binding
	Generate key.Binding
	Edit     key.Binding
	Done     key.Binding
	Critique key.Binding
	Save     key.Binding
	Restart  key.Binding
	Scroll   key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Pick: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "seleccionar"),
		),
		Generate: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "generar acta"),
		),
		Edit: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "escribir crítica"),
		),
		Done: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "volver al acta"),
		),
		Critique: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "enviar crítica"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "guardar acta"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "comenzar de nuevo"),
		),
		Scroll: key.NewBinding(
			key.WithKeys("up", "down", "pgup", "pgdown"),
			key.WithHelp("↑/↓", "desplazar"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "salir"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pick, k.Generate, k.Scroll, k.Edit, k.Done, k.Critique, k.Save, k.Restart, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
