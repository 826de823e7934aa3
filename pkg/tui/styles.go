package tui

import "github.com/charmbracelet/lipgloss"

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

const helpText = "drag/arrows move · +/- or wheel zoom · r reset · e export · q quit"
