package livetable

import (
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TerminalTarget prints the visible rows as a coloured text table each time
// the rendered table changes.
type TerminalTarget struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	header   lipgloss.Style
	classes  map[string]lipgloss.Style
	plain    lipgloss.Style
}

// NewTerminalTarget creates a target writing to w.
func NewTerminalTarget(w io.Writer) *TerminalTarget {
	r := lipgloss.NewRenderer(w)
	return &TerminalTarget{
		w:        w,
		renderer: r,
		header:   r.NewStyle().Bold(true),
		plain:    r.NewStyle(),
		classes: map[string]lipgloss.Style{
			"ok":    r.NewStyle().Foreground(lipgloss.Color("2")),
			"ko":    r.NewStyle().Foreground(lipgloss.Color("8")),
			"error": r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
	}
}

// Name implements Target.
func (t *TerminalTarget) Name() string {
	return "TerminalTarget"
}

// Update implements Target.
func (t *TerminalTarget) Update(ctx context.Context, frame *Frame) error {
	if frame.Patch.Empty() {
		return nil
	}
	if _, err := io.WriteString(t.w, t.Render(frame)); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

// Render formats the visible rows of frame.
func (t *TerminalTarget) Render(frame *Frame) string {
	headers := make([]string, len(frame.Columns))
	for i, c := range frame.Columns {
		headers[i] = StripMarkup(c.Label)
		if headers[i] == "" {
			headers[i] = c.Tooltip
		}
	}

	var rows []*Row
	if frame.Document != nil {
		rows = frame.Document.VisibleRows()
	}
	texts := make([][]string, len(rows))
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for r, row := range rows {
		texts[r] = make([]string, len(headers))
		for col := range headers {
			text := Placeholder
			if col < len(row.Cells) {
				text = cellText(row.Cells[col])
			}
			texts[r][col] = text
			if w := lipgloss.Width(text); w > widths[col] {
				widths[col] = w
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- %s view, %d/%d rows\n", frame.Mode, len(rows), len(frame.Nodes))
	for i, h := range headers {
		b.WriteString(t.header.Width(widths[i] + 1).Render(h))
	}
	b.WriteString("\n")
	for r, row := range rows {
		for col, text := range texts[r] {
			style := t.plain
			if col < len(row.Cells) {
				style = t.styleFor(row.Cells[col].Class)
			}
			b.WriteString(style.Width(widths[col] + 1).Render(text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// styleFor picks the style of the first status token found in class.
func (t *TerminalTarget) styleFor(class string) lipgloss.Style {
	for _, token := range strings.Fields(class) {
		if style, ok := t.classes[token]; ok {
			return style
		}
	}
	return t.plain
}

// Close implements Target.
func (t *TerminalTarget) Close() error {
	return nil
}

// cellText falls back to the tooltip, then the class, for icon-only cells.
func cellText(cell RenderedCell) string {
	if text := StripMarkup(cell.HTML); text != "" {
		return text
	}
	if cell.Tooltip != "" {
		return cell.Tooltip
	}
	return cell.Class
}

var markupTag = regexp.MustCompile(`<[^>]*>`)

// StripMarkup reduces an HTML fragment to its text.
func StripMarkup(fragment string) string {
	text := html.UnescapeString(markupTag.ReplaceAllString(fragment, ""))
	return strings.Join(strings.Fields(text), " ")
}
