// Package view renders minutes and the critique log as terminal text.
package view

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/strrl/minutes-workspace/pkg/models"
)

// Section labels.
const (
	LabelDate        = "Fecha:"
	LabelAttendees   = "Asistentes:"
	LabelSummary     = "Resumen:"
	LabelTakeaways   = "Puntos clave:"
	LabelConclusions = "Conclusiones:"
	LabelNextMeeting = "Próxima reunión:"
	LabelTasks       = "Tareas:"
	LabelMessage     = "Mensaje:"
	LabelCritiques   = "Críticas procesadas:"
)

var (
	AttendeeHeaders = []string{"Nombre", "Posición", "Rol"}
	TaskHeaders     = []string{"Responsable", "Descripción", "Fecha límite"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("63")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	tableBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

// Minutes renders doc followed by the critique log. width bounds wrapped
// text; zero means 80 columns.
func Minutes(doc models.MinutesDocument, critiques []string, width int) string {
	if width <= 0 {
		width = 80
	}
	textWidth := width - 2
	if textWidth < 20 {
		textWidth = 20
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render(doc.Title) + "\n\n")
	s.WriteString(sectionStyle.Render(LabelDate) + " " + textStyle.Render(doc.Date) + "\n\n")

	s.WriteString(sectionStyle.Render(LabelAttendees) + "\n")
	attendeeRows := make([][]string, 0, len(doc.Attendees))
	for _, a := range doc.Attendees {
		attendeeRows = append(attendeeRows, []string{a.Name, a.Position, a.Role})
	}
	s.WriteString(Table(AttendeeHeaders, attendeeRows, width) + "\n\n")

	s.WriteString(sectionStyle.Render(LabelSummary) + "\n")
	for _, paragraph := range strings.Split(doc.Summary, "\n") {
		for _, line := range wrapText(paragraph, textWidth) {
			s.WriteString(textStyle.Render(line) + "\n")
		}
	}
	s.WriteString("\n")

	writeList(&s, LabelTakeaways, doc.Takeaways, textWidth)
	writeList(&s, LabelConclusions, doc.Conclusions, textWidth)
	writeList(&s, LabelNextMeeting, doc.NextMeeting, textWidth)

	s.WriteString(sectionStyle.Render(LabelTasks) + "\n")
	taskRows := make([][]string, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		taskRows = append(taskRows, []string{t.Responsible, t.Description, t.Date})
	}
	s.WriteString(Table(TaskHeaders, taskRows, width) + "\n")

	if doc.Message != "" {
		s.WriteString("\n" + sectionStyle.Render(LabelMessage) + "\n")
		for _, line := range wrapText(doc.Message, textWidth) {
			s.WriteString(textStyle.Render(line) + "\n")
		}
	}

	if len(critiques) > 0 {
		s.WriteString("\n")
		writeList(&s, LabelCritiques, critiques, textWidth)
	}

	return strings.TrimRight(s.String(), "\n")
}

func writeList(s *strings.Builder, label string, items []string, width int) {
	s.WriteString(sectionStyle.Render(label) + "\n")
	for _, item := range items {
		for i, line := range wrapText(item, width-4) {
			prefix := "  • "
			if i > 0 {
				prefix = "    "
			}
			s.WriteString(prefix + textStyle.Render(line) + "\n")
		}
	}
	s.WriteString("\n")
}

// Table renders a static table. The header row is always present, even
// without rows.
func Table(headers []string, rows [][]string, width int) string {
	columns := columnWidths(headers, rows, width)

	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		cols[i] = table.Column{Title: h, Width: columns[i]}
	}
	tableRows := make([]table.Row, len(rows))
	for i, r := range rows {
		tableRows[i] = table.Row(r)
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = lipgloss.NewStyle()

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(tableRows),
		table.WithHeight(len(rows)+lipgloss.Height(headerProbe(styles))),
		table.WithFocused(false),
		table.WithStyles(styles),
	)
	return tableBorder.Render(trimBlankLines(t.View()))
}

func headerProbe(styles table.Styles) string {
	return styles.Header.Render("x")
}

// trimBlankLines drops the padding the table viewport adds below the rows.
func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	for len(lines) > 1 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// columnWidths sizes each column to its widest cell and shrinks the widest
// columns until the table fits in width.
func columnWidths(headers []string, rows [][]string, width int) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
		for _, r := range rows {
			if i < len(r) {
				if w := lipgloss.Width(r[i]); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	// Each cell has one column of padding on both sides, plus the border.
	available := width - 2 - 2*len(headers)
	for {
		total := 0
		widest := 0
		for i, w := range widths {
			total += w
			if w > widths[widest] {
				widest = i
			}
		}
		if total <= available || widths[widest] <= 8 {
			break
		}
		widths[widest]--
	}
	return widths
}

// wrapText wraps text to fit within the specified width
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	currentLine := words[0]
	for _, word := range words[1:] {
		if lipgloss.Width(currentLine)+1+lipgloss.Width(word) > width {
			lines = append(lines, currentLine)
			currentLine = word
		} else {
			currentLine += " " + word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}
