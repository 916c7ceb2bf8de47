// Package styles provides shared lipgloss styles for CLI output.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Tokyo Night color palette.
var (
	ColorBlue = lipgloss.Color("#7aa2f7")
	ColorGray = lipgloss.Color("#565f89")
)

// AuthorStyle styles the author key column of dumped records.
var AuthorStyle = lipgloss.NewStyle().
	Foreground(ColorBlue)

// FooterStyle styles summary lines under a table.
var FooterStyle = lipgloss.NewStyle().
	Foreground(ColorGray)
