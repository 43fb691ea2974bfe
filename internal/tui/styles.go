package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	helpStyle      = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	corruptedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	selectedStyle  = lipgloss.NewStyle().Reverse(true)
)
