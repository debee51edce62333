package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for the TUI.
type Theme struct {
	Primary lipgloss.Color // Main accent color
	Dim     lipgloss.Color // Dimmed/help text color
	Error   lipgloss.Color // Failure messages
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Error:   lipgloss.Color("#ff5f5f"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
	Error  lipgloss.Style
	Bar    lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
		Error:  lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Bar:    lipgloss.NewStyle().Foreground(t.Primary),
	}
}

// Section is a labeled block of the frame. Content is called on every
// render; when it returns more lines than fit, the last ones are shown.
type Section struct {
	Label   string
	Content func() []string

	// Height fixes the number of content rows. Zero shares the rows left
	// over by fixed sections evenly.
	Height int
}

// Frame renders a complete TUI frame with title, sections, and help text.
type Frame struct {
	Styles   Styles
	Title    string
	Status   string
	Sections []Section
	Help     string
}

// Render renders the frame to a string.
func (f Frame) Render(width, height int) string {
	if width == 0 || height == 0 {
		return "Loading..."
	}

	r := frameRenderer{border: f.Styles.Border, width: width}

	lines := []string{r.edge("╭", "╮")}
	title := f.Styles.Title.Render(f.Title)
	status := f.Styles.Help.Render("[" + f.Status + "]")
	lines = append(lines, r.row(title+" "+status), r.row(""))

	for i, rows := range f.sectionHeights(height) {
		sec := f.Sections[i]
		lines = append(lines, r.separator(f.Styles.Label.Render(sec.Label)))
		lines = append(lines, r.block(sec.Content(), rows)...)
	}

	lines = append(lines, r.edge("╰", "╯"), f.Styles.Help.Render(f.Help))
	return strings.Join(lines, "\n")
}

// sectionHeights assigns content rows to each section. Besides content the
// frame uses top, title, spacer, bottom and help lines plus one separator
// per section.
func (f Frame) sectionHeights(height int) []int {
	heights := make([]int, len(f.Sections))
	free := height - 5 - len(f.Sections)
	flexible := 0
	for i, sec := range f.Sections {
		if sec.Height > 0 {
			heights[i] = sec.Height
			free -= sec.Height
		} else {
			flexible++
		}
	}
	if flexible == 0 {
		return heights
	}
	share := max(free/flexible, 2)
	for i := range heights {
		if heights[i] == 0 {
			heights[i] = share
		}
	}
	return heights
}

// frameRenderer draws the box pieces of a frame width cells wide.
type frameRenderer struct {
	border lipgloss.Style
	width  int
}

func (r frameRenderer) edge(left, right string) string {
	return r.border.Render(left + strings.Repeat("─", r.width-2) + right)
}

// separator draws ├─Label──────┤.
func (r frameRenderer) separator(label string) string {
	fill := max(0, r.width-3-lipgloss.Width(label))
	return r.border.Render("├─") + label + r.border.Render(strings.Repeat("─", fill)+"┤")
}

// row draws │ text │, truncating text that does not fit.
func (r frameRenderer) row(text string) string {
	inner := r.width - 4
	if inner > 1 && lipgloss.Width(text) > inner {
		text = truncateString(text, inner-1) + "…"
	}
	pad := max(0, inner-lipgloss.Width(text))
	return r.border.Render("│") + " " + text + strings.Repeat(" ", pad) + " " + r.border.Render("│")
}

// block draws exactly rows rows showing the tail of content.
func (r frameRenderer) block(content []string, rows int) []string {
	if len(content) > rows {
		content = content[len(content)-rows:]
	}
	out := make([]string, rows)
	for i := range out {
		text := ""
		if i < len(content) {
			text = content[i]
		}
		out[i] = r.row(text)
	}
	return out
}

// truncateString safely truncates a string to the given width,
// handling multi-byte characters correctly.
func truncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	currentWidth := 0
	for i, r := range runes {
		w := lipgloss.Width(string(r))
		if currentWidth+w > width {
			return string(runes[:i])
		}
		currentWidth += w
	}
	return s
}

// ScoreBar renders frac (clamped to [0, 1]) as a bar of width cells.
func (s Styles) ScoreBar(frac float64, width int) string {
	if width <= 0 {
		return ""
	}
	frac = min(max(frac, 0), 1)
	filled := int(frac*float64(width) + 0.5)
	return s.Bar.Render(strings.Repeat("█", filled)) +
		s.Help.Render(strings.Repeat("░", width-filled))
}
