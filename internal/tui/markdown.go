package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/hara-ai/hara/internal/config"
)

// markdownRenderer converts assistant Markdown to styled terminal
// output. It caches the glamour renderer and only rebuilds on width or
// theme changes. A nil renderer degrades to plain text.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	theme    string
}

func newMarkdownRenderer(width int, theme string) *markdownRenderer {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(themeOption(theme), glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return &markdownRenderer{renderer: r, width: width, theme: theme}
}

func themeOption(theme string) glamour.TermRendererOption {
	switch theme {
	case config.ThemeLight:
		return glamour.WithStandardStyle("light")
	case config.ThemeDark:
		return glamour.WithStandardStyle("dark")
	default:
		return glamour.WithAutoStyle()
	}
}

// UpdateWidth rebuilds the renderer when the terminal is resized.
func (m *markdownRenderer) UpdateWidth(width int) {
	if m == nil || width <= 0 || m.width == width {
		return
	}
	r, err := glamour.NewTermRenderer(themeOption(m.theme), glamour.WithWordWrap(width))
	if err != nil {
		return
	}
	m.renderer = r
	m.width = width
}

// Render returns styled output, or the input unchanged on failure.
func (m *markdownRenderer) Render(markdown string) string {
	if m == nil || m.renderer == nil {
		return markdown
	}
	rendered, err := m.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSuffix(rendered, "\n")
}
