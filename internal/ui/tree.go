package ui

import (
	"strings"
)

// Row is one line of a rendered tree.
type Row struct {
	Level    int
	Text     string
	Detail   string // rendered muted after Text
	Group    bool
	Modified bool
	Closed   bool
}

// RenderTree draws rows as an indented tree. Rows must be in depth-first
// order with Level starting at 0 for roots.
func RenderTree(rows []Row) string {
	var b strings.Builder
	for i, row := range rows {
		b.WriteString(prefix(rows, i))
		b.WriteString(renderRow(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func renderRow(row Row) string {
	var text string
	switch {
	case row.Group:
		text = GroupStyle.Render(row.Text)
	case row.Closed:
		text = ClosedStyle.Render(row.Text)
	default:
		text = row.Text
	}
	if row.Modified {
		text = ModifiedStyle.Render(IconModified) + " " + text
	}
	if row.Detail != "" {
		text += " " + RenderMuted(row.Detail)
	}
	return text
}

// prefix builds the branch drawing for rows[i] from its ancestors.
func prefix(rows []Row, i int) string {
	level := rows[i].Level
	if level == 0 {
		return ""
	}
	var parts []string
	for l := level; l >= 1; l-- {
		last := isLastAt(rows, i, l)
		switch {
		case l == level && last:
			parts = append(parts, TreeLast)
		case l == level:
			parts = append(parts, TreeBranch)
		case last:
			parts = append(parts, TreeIndent)
		default:
			parts = append(parts, TreePipe)
		}
	}
	var b strings.Builder
	for j := len(parts) - 1; j >= 0; j-- {
		b.WriteString(parts[j])
	}
	return b.String()
}

// isLastAt reports whether the ancestor of rows[i] at level l (or rows[i]
// itself) has no later sibling.
func isLastAt(rows []Row, i, l int) bool {
	for j := i + 1; j < len(rows); j++ {
		switch {
		case rows[j].Level < l:
			return true
		case rows[j].Level == l:
			return false
		}
	}
	return true
}

// ChangeLine renders a pending change for the changes list.
func ChangeLine(target, description string) string {
	return RenderAccent(target) + " " + description
}
