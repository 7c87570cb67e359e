package tui

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/hara-ai/hara/internal/config"
)

const haraGreen = "#34A853"

var haraArt = []string{
	" ██╗  ██╗ █████╗ ██████╗  █████╗ ",
	" ██║  ██║██╔══██╗██╔══██╗██╔══██╗",
	" ███████║███████║██████╔╝███████║",
	" ██╔══██║██╔══██║██╔══██╗██╔══██║",
	" ██║  ██║██║  ██║██║  ██║██║  ██║",
	" ╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝",
}

// Styles holds every lipgloss style the views use.
type Styles struct {
	Banner    lipgloss.Style
	Title     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
	Selected  lipgloss.Style
	Dim       lipgloss.Style
	Field     lipgloss.Style
}

// NewStyles builds the style set for a theme. The dark palette is the
// default; light swaps the grays so text stays readable on white.
func NewStyles(theme string) Styles {
	dim := lipgloss.Color("240")
	if theme == config.ThemeLight {
		dim = lipgloss.Color("245")
	}
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(haraGreen)),
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(haraGreen)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(dim),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(dim),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Dim:       lipgloss.NewStyle().Foreground(dim),
		Field:     lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
	}
}

// RenderBanner returns the HARA ASCII banner.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range haraArt {
		b.WriteString(s.Banner.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

var welcomeTips = []string{
	"Tips for getting started:",
	"  • Ask anything, in English, Hindi, or Hinglish",
	"  • \"draw an image of ...\" generates a picture",
	"  • /sessions switches conversations, /help lists commands",
	"  • Press Ctrl+C to cancel, Ctrl+D to exit",
}

// RenderWelcomeTips returns the tips block shown under the banner.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		b.WriteString(s.Field.Render(tip))
		b.WriteString("\n")
	}
	return b.String()
}
