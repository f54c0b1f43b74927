package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive palette (Ayu light/dark).
var (
	ColorDone   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

var (
	DoneStyle     = lipgloss.NewStyle().Foreground(ColorDone)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	CategoryStyle = lipgloss.NewStyle().Bold(true)
	KeyStyle      = lipgloss.NewStyle().Foreground(ColorMuted).Width(22)
)

const (
	IconDone = "✓"
	IconTodo = "○"
	IconWarn = "⚠"
	IconFail = "✗"

	SeparatorLight = "──────────────────────────────────────────"
)

func RenderDone(s string) string   { return DoneStyle.Render(s) }
func RenderWarn(s string) string   { return WarnStyle.Render(s) }
func RenderFail(s string) string   { return FailStyle.Render(s) }
func RenderMuted(s string) string  { return MutedStyle.Render(s) }
func RenderAccent(s string) string { return AccentStyle.Render(s) }
func RenderTitle(s string) string  { return TitleStyle.Render(s) }

// RenderCategory renders a section header in uppercase.
func RenderCategory(s string) string {
	return CategoryStyle.Render(strings.ToUpper(s))
}

// RenderSeparator renders the light separator line in muted color.
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

// RenderPercent colors a completion percentage by how far along it is.
func RenderPercent(pct int) string {
	s := strconv.Itoa(pct) + "%"
	switch {
	case pct >= 100:
		return DoneStyle.Render(s)
	case pct >= 50:
		return AccentStyle.Render(s)
	case pct > 0:
		return WarnStyle.Render(s)
	}
	return MutedStyle.Render(s)
}
