package main

import "github.com/charmbracelet/lipgloss"

var (
	colorOK     = lipgloss.Color("#10b981")
	colorFail   = lipgloss.Color("#ef4444")
	colorDim    = lipgloss.Color("#6b7280")
	colorBorder = lipgloss.Color("#374151")
	colorHeader = lipgloss.Color("#06b6d4")

	styleOK     = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	styleFail   = lipgloss.NewStyle().Foreground(colorFail).Bold(true)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true).Padding(0, 1)
	styleCell   = lipgloss.NewStyle().Padding(0, 1)
)

var (
	styleTitle    = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	styleRunning  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	styleCursor   = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	styleSelected = lipgloss.NewStyle().Bold(true)
	styleHelp     = lipgloss.NewStyle().Foreground(colorDim).Italic(true)
)
