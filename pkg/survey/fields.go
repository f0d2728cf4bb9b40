package survey

import "github.com/jwebster45206/story-grid/pkg/script"

// Kind is the input type of a form field.
type Kind string

const (
	KindText      Kind = "text"
	KindEmail     Kind = "email"
	KindNumber    Kind = "number"
	KindMultiline Kind = "multiline"
	KindStoryGrid Kind = "story_grid"
)

// Field describes one entry of the learning route map form.
type Field struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Kind     Kind   `json:"kind"`
	Question string `json:"question,omitempty"`
	// ScenarioKey selects the story script of a story-grid field.
	ScenarioKey string `json:"scenario_key,omitempty"`
	// ExportName is the name a story-grid field goes by in reports.
	ExportName string `json:"export_name,omitempty"`
}

// IsStoryGrid reports whether the field is backed by a grid.
func (f Field) IsStoryGrid() bool { return f.Kind == KindStoryGrid }

var fields = []Field{
	{Key: "name", Label: "Name", Kind: KindText},
	{Key: "email", Label: "Email", Kind: KindEmail},
	{
		Key:         "routeMap2-1",
		Label:       "Settings Exist Story Path",
		Kind:        KindStoryGrid,
		Question:    "Design your journey from King to Goal when settings already exist",
		ScenarioKey: script.KeySettingsExist,
		ExportName:  "learningAbilities",
	},
	{
		Key:         "routeMap2-2",
		Label:       "Settings Not There Story Path",
		Kind:        KindStoryGrid,
		Question:    "Design your journey from King to Goal when settings need to be created",
		ScenarioKey: script.KeySettingsNotThere,
		ExportName:  "learningMethods",
	},
	{
		Key:         "routeMap2-3",
		Label:       "Settings Exist Story Path (Alternative)",
		Kind:        KindStoryGrid,
		Question:    "Design your journey from King to Goal when settings already exist (alternative path)",
		ScenarioKey: script.KeySettingsExist,
		ExportName:  "learningOutcomes",
	},
	{Key: "age", Label: "Age", Kind: KindNumber},
	{
		Key:         "routeMap3-1",
		Label:       "Settings Not There Story Path (Game)",
		Kind:        KindStoryGrid,
		Question:    "Design your journey from King to Goal when settings need to be created (game mode)",
		ScenarioKey: script.KeySettingsNotThere,
		ExportName:  "learningGoals",
	},
	{
		Key:         "routeMap3-2",
		Label:       "Settings Exist Story Path (Game)",
		Kind:        KindStoryGrid,
		Question:    "Design your journey from King to Goal when settings already exist (game mode)",
		ScenarioKey: script.KeySettingsExist,
		ExportName:  "learningReflection",
	},
	{Key: "reflection", Label: "Learning Reflection", Kind: KindMultiline},
	{Key: "feedback", Label: "Additional Comments on Learning Path", Kind: KindMultiline},
}

// Fields returns the form fields in display order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// LookupField finds a field by key.
func LookupField(key string) (Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// StoryGridFields returns the grid-backed fields in display order.
func StoryGridFields() []Field {
	var out []Field
	for _, f := range fields {
		if f.IsStoryGrid() {
			out = append(out, f)
		}
	}
	return out
}
