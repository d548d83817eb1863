// Package styles provides shared lipgloss styles for cicache output.
//
// Styles always render full ANSI sequences. Writers wrapped with
// colorprofile (see cmd/cicache) downsample or strip them, so CI logs
// without a terminal stay plain text.
package styles

import "charm.land/lipgloss/v2"

// Palette
var (
	// Primary is the main accent color (cyan/teal)
	Primary = lipgloss.Color("62")

	// Success is used for cache hits (green)
	Success = lipgloss.Color("82")

	// Warning is used for tolerated failures (orange)
	Warning = lipgloss.Color("214")

	// Muted is used for debug output and secondary columns (gray)
	Muted = lipgloss.Color("240")
)

var (
	// Bold applies bold formatting
	Bold = lipgloss.NewStyle().Bold(true)

	// SuccessStyle applies the success color
	SuccessStyle = lipgloss.NewStyle().Foreground(Success)

	// WarningStyle applies the warning color with bold
	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	// MutedStyle applies the muted color
	MutedStyle = lipgloss.NewStyle().Foreground(Muted)

	// HeaderStyle is used for table headers
	HeaderStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			PaddingRight(2)
)
