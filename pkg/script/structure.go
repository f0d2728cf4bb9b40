package script

// Columns is the width of the step path: King, three steps, Goal.
const Columns = 5

const (
	ColumnKing = 0
	ColumnGoal = Columns - 1
)

// StepInfo is the display metadata of one column of the step path.
type StepInfo struct {
	StepID      string `json:"step_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Symbol      string `json:"symbol"`
	Color       string `json:"color"`
}

// Structure is a resolved step path keyed by column.
type Structure [Columns]StepInfo

var (
	kingStep = StepInfo{Title: "King", Symbol: "♔", Color: "#ff6b6b", Description: "Starting point of your journey"}
	goalStep = StepInfo{Title: "Goal - Opponent King", Symbol: "♚", Color: "#2c3e50", Description: "The destination of your journey"}
)

// DefaultStructure is used when a scenario key has no usable script.
func DefaultStructure() Structure {
	return Structure{
		kingStep,
		{StepID: "1", Title: "Brainstorm", Symbol: "💡", Color: "#4fc3f7"},
		{StepID: "2", Title: "Embed in workflow", Symbol: "⚙️", Color: "#10b981"},
		{StepID: "3", Title: "Result", Symbol: "📊", Color: "#ff9f43"},
		goalStep,
	}
}

func stepInfo(s Step) StepInfo {
	return StepInfo{
		StepID:      s.ID,
		Title:       s.Title,
		Description: s.Description,
		Symbol:      s.Symbol,
		Color:       s.Color,
	}
}

// Column returns the metadata for a column, or false when out of range.
func (s Structure) Column(col int) (StepInfo, bool) {
	if col < 0 || col >= Columns {
		return StepInfo{}, false
	}
	return s[col], true
}
