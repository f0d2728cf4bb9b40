package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/story-grid/pkg/editor"
	"github.com/jwebster45206/story-grid/pkg/grid"
	"github.com/jwebster45206/story-grid/pkg/script"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

const (
	cellWidth  = 18
	cellHeight = 3
)

var (
	cellStyle = lipgloss.NewStyle().
			Width(cellWidth).
			Height(cellHeight).
			Align(lipgloss.Center, lipgloss.Center).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("238"))

	cursorCellStyle = cellStyle.
			BorderForeground(lipgloss.Color("205")).
			Border(lipgloss.ThickBorder())

	activeColumnStyle = cellStyle.
				BorderForeground(lipgloss.Color("62"))

	hiddenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("236"))

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	addStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)
)

// renderGrid draws the story grid as a table of bordered cells. The cursor
// cell is highlighted and cells the policy hides are drawn blank.
func renderGrid(g *grid.Grid, cursor editor.Cell) string {
	addRow, canAdd := g.AddTarget()
	rows := make([]string, 0, g.Rows())
	for row := 0; row < g.Rows(); row++ {
		cells := make([]string, 0, script.Columns)
		for col := 0; col < script.Columns; col++ {
			style := cellStyle
			if col == g.ActiveStep() && row >= grid.FirstLaneRow {
				style = activeColumnStyle
			}
			if cursor.Row == row && cursor.Column == col {
				style = cursorCellStyle
			}
			content := cellContent(g, row, col, canAdd && row == addRow && col == g.ActiveStep())
			cells = append(cells, style.Render(content))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func cellContent(g *grid.Grid, row, col int, isAddTarget bool) string {
	if row == grid.PathRow {
		step := g.PathCell(col)
		label := truncate.StringWithTail(step.Title, cellWidth-2, "…")
		if step.Locked {
			return lockedStyle.Render(step.Symbol + "\n" + label)
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color(step.Color)).Bold(true).Render(step.Symbol + "\n" + label)
	}

	access := g.CellAccess(row, col)
	if !access.Visible {
		return hiddenStyle.Render("·")
	}
	if m, ok := g.MarkerAt(row, col); ok {
		glyph := lipgloss.NewStyle().Foreground(lipgloss.Color(m.Color)).Render(m.Symbol)
		if m.Description == "" {
			return glyph
		}
		return glyph + "\n" + truncate.StringWithTail(m.Description, cellWidth-2, "…")
	}
	if isAddTarget {
		return addStyle.Render("+")
	}
	return ""
}

// renderStoryBoxes lists the narratives of unlocked steps, wrapped to width.
func renderStoryBoxes(boxes []grid.StoryBox, width int) string {
	if width < 20 {
		width = 20
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("STORY") + "\n\n")
	if len(boxes) == 0 {
		b.WriteString(promptStyle.Render("Advance a step to start the story.") + "\n")
		return b.String()
	}
	for _, box := range boxes {
		heading := fmt.Sprintf("%s Step %d: %s", box.Symbol, box.Step, box.Title)
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(box.Color)).Bold(true).Render(heading) + "\n")
		b.WriteString(wordwrap.String(box.Content, width) + "\n")
		b.WriteString(promptStyle.Render(box.Timestamp.Local().Format("15:04:05")) + "\n\n")
	}
	return b.String()
}

// renderPicker draws the character panel with the placement hints of each type.
func renderPicker(options []editor.Option, selected int) string {
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("Place a character") + "\n\n")
	for i, opt := range options {
		glyph := lipgloss.NewStyle().Foreground(lipgloss.Color(opt.Color)).Render(opt.Symbol)
		line := fmt.Sprintf("%s %-8s placed %d / %s", glyph, opt.Name, opt.Placed, opt.Limit)
		if i == selected {
			b.WriteString(modalSelectedItemStyle.Render("▶ "+line) + "\n")
		} else {
			b.WriteString(modalItemStyle.Render("  "+line) + "\n")
		}
	}
	b.WriteString("\n" + promptStyle.Render("↑/↓ to choose, Enter to place, Esc to cancel"))
	return b.String()
}
