// Package markdown renders war-room style tables for command output.
package markdown

import "strings"

var cellEscaper = strings.NewReplacer("|", "\\|", "\n", "<br>")

// Table renders rows as a titled markdown table with the columns in the
// given order. Missing cells render empty. With no rows the title is
// followed by a no-entries marker instead of a table.
func Table(title string, headers []string, rows []map[string]string) string {
	var b strings.Builder
	b.WriteString("### ")
	b.WriteString(title)
	b.WriteString("\n")

	if len(rows) == 0 {
		b.WriteString("**No entries.**\n")
		return b.String()
	}

	b.WriteString("|")
	b.WriteString(strings.Join(headers, "|"))
	b.WriteString("|\n")

	b.WriteString("|")
	b.WriteString(strings.Repeat("---|", len(headers)))
	b.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(headers))
		for i, h := range headers {
			cells[i] = cellEscaper.Replace(row[h])
		}
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
	}

	return b.String()
}
