package script

// Keys of the built-in scripts.
const (
	KeySettingsExist    = "settingsExist"
	KeySettingsNotThere = "settingsNotThere"
)

// AlternativeHelpTitle is the title of the settingsNotThere branch step. The
// narratives switch wording when this branch was drawn.
const AlternativeHelpTitle = "Reach out for help"

// StepCount is the number of scripted steps between King and Goal.
const StepCount = 3

// Step is one scripted step of a story path.
type Step struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Color       string  `json:"color" yaml:"color"`
	Symbol      string  `json:"symbol" yaml:"symbol"`
	Branch      *Branch `json:"random_branch,omitempty" yaml:"random_branch,omitempty"`
}

// Branch is a probabilistic alternative to a step. The alternative is chosen
// when a uniform sample in [0,1) falls below Probability.
type Branch struct {
	Probability float64 `json:"probability" yaml:"probability"`
	Alternative Step    `json:"alternative_step" yaml:"alternative_step"`
}

// Script is the template for one scenario key.
type Script struct {
	Key         string `json:"key" yaml:"key"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

// Builtin returns the scripts shipped with the survey.
func Builtin() []Script {
	return []Script{
		{
			Key:         KeySettingsExist,
			Title:       "Settings Exist",
			Description: "Working with settings that are already in place",
			Steps: []Step{
				{ID: "1", Title: "How to use it", Description: "Learn how to use the existing settings and options.", Color: "#ff6b6b", Symbol: "⚙️"},
				{ID: "2", Title: "Complete the task", Description: "Use the existing settings to finish the task.", Color: "#4fc3f7", Symbol: "✅"},
				{ID: "3", Title: "Get a solution", Description: "Reach a result based on the existing settings.", Color: "#10b981", Symbol: "🎯"},
			},
		},
		{
			Key:         KeySettingsNotThere,
			Title:       "Settings Not There",
			Description: "Creating new settings when none exist",
			Steps: []Step{
				{ID: "1", Title: "Brainstorm", Description: "Brainstorm which settings and configuration are needed.", Color: "#ff9f43", Symbol: "💡"},
				{
					ID:          "2-1",
					Title:       "Embed in workflow",
					Description: "Embed the new settings into the existing workflow.",
					Color:       "#9c27b0",
					Symbol:      "🔧",
					Branch: &Branch{
						Probability: 0.5,
						Alternative: Step{ID: "2-2", Title: AlternativeHelpTitle, Description: "Look for outside help and support.", Color: "#ff9800", Symbol: "🤝"},
					},
				},
				{ID: "3", Title: "Get a solution", Description: "Reach a solution with the newly created settings.", Color: "#00bcd4", Symbol: "🚀"},
			},
		},
	}
}
