package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	esc     key.Binding
	quit    key.Binding
	newConv key.Binding
	delete  key.Binding
	rename  key.Binding
	export  key.Binding
	copy    key.Binding
	lock    key.Binding
	reset   key.Binding
}

var keys = keyMap{
	up:      key.NewBinding(key.WithKeys("up", "k")),
	down:    key.NewBinding(key.WithKeys("down", "j")),
	enter:   key.NewBinding(key.WithKeys("enter")),
	esc:     key.NewBinding(key.WithKeys("esc")),
	quit:    key.NewBinding(key.WithKeys("q", "ctrl+c")),
	newConv: key.NewBinding(key.WithKeys("n")),
	delete:  key.NewBinding(key.WithKeys("ctrl+d")),
	rename:  key.NewBinding(key.WithKeys("r")),
	export:  key.NewBinding(key.WithKeys("x")),
	copy:    key.NewBinding(key.WithKeys("ctrl+y")),
	lock:    key.NewBinding(key.WithKeys("ctrl+l")),
	reset:   key.NewBinding(key.WithKeys("ctrl+r")),
}
