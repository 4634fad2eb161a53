// Package theme provides the Lip Gloss color palette and reusable styles
// for the Streamverse TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Brand colors.
var (
	ColorAccent  = lipgloss.Color("#e50914")
	ColorAccent2 = lipgloss.Color("#a855f7")
	ColorDefault = lipgloss.Color("#9ca3af")
)

// Media type colors.
var (
	ColorMovie  = lipgloss.Color("#3b82f6")
	ColorSeries = lipgloss.Color("#06b6d4")
	ColorAnime  = lipgloss.Color("#f472b6")
	ColorDoc    = lipgloss.Color("#22c55e")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// TypeColor returns the color for a media type such as "movie" or "series".
func TypeColor(mediaType string) lipgloss.Color {
	switch strings.ToLower(mediaType) {
	case "movie", "film":
		return ColorMovie
	case "series", "tv", "show":
		return ColorSeries
	case "anime":
		return ColorAnime
	case "documentary":
		return ColorDoc
	default:
		return ColorDefault
	}
}

// SeverityColor returns the toast color for a feedback severity name.
func SeverityColor(severity string) lipgloss.Color {
	switch severity {
	case "success":
		return ColorHealthy
	case "error":
		return ColorDanger
	default:
		return ColorDefault
	}
}

// SeverityGlyph returns the toast prefix for a feedback severity name.
func SeverityGlyph(severity string) string {
	switch severity {
	case "success":
		return "✓"
	case "error":
		return "✗"
	default:
		return "·"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleCard = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleCardSelected = StyleCard.
				BorderForeground(ColorAccent)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorDanger)

	StyleButton = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright).
			Background(ColorAccent).
			Padding(0, 2)
)

// Badge renders a small colored label such as a genre chip.
func Badge(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(color).Render("[" + text + "]")
}
