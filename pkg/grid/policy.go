package grid

import "github.com/jwebster45206/story-grid/pkg/script"

// Access is the visibility and editability of one cell.
type Access struct {
	Visible  bool
	Editable bool
}

// CellAccess applies the cell policy for the current active step:
//
//	row 0:  columns 1-3 visible and editable, King and Goal empty
//	row 1:  the step path, always visible, never editable
//	row 2+: visible up to the active column, editable only in it
func (g *Grid) CellAccess(row, col int) Access {
	if col < 0 || col >= script.Columns || row < 0 {
		return Access{}
	}
	switch {
	case row == TopRow:
		if col == script.ColumnKing || col == script.ColumnGoal {
			return Access{}
		}
		return Access{Visible: true, Editable: true}
	case row == PathRow:
		return Access{Visible: true}
	case col < g.activeStep:
		return Access{Visible: true}
	case col == g.activeStep:
		return Access{Visible: true, Editable: true}
	default:
		return Access{}
	}
}

// Locked placeholder shown on the path for columns not yet unlocked.
const (
	LockedTitle  = "Locked"
	LockedSymbol = "🔒"
)

// PathStep is what the step path shows in one column.
type PathStep struct {
	script.StepInfo
	Locked bool
}

// PathCell returns the path metadata for a column: the frozen step for
// unlocked columns and the Goal, a locked placeholder otherwise.
func (g *Grid) PathCell(col int) PathStep {
	st, ok := g.Structure()
	info, inRange := st.Column(col)
	if !ok || !inRange {
		return PathStep{StepInfo: script.StepInfo{Title: LockedTitle, Symbol: LockedSymbol}, Locked: true}
	}
	if col <= g.activeStep || col == script.ColumnGoal {
		return PathStep{StepInfo: info}
	}
	return PathStep{StepInfo: script.StepInfo{Title: LockedTitle, Symbol: LockedSymbol}, Locked: true}
}

// CurrentStep returns the frozen metadata of the active column.
func (g *Grid) CurrentStep() script.StepInfo {
	st, _ := g.Structure()
	info, _ := st.Column(g.activeStep)
	return info
}
