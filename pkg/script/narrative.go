package script

import (
	"fmt"
	"strings"
)

var columnNames = [Columns]string{"King", "Step 1", "Step 2", "Step 3", "Goal"}

// Narrate returns the story box text shown when a column unlocks.
func Narrate(col int, step StepInfo, scenarioKey string) string {
	switch scenarioKey {
	case KeySettingsExist:
		switch col {
		case 1:
			return "You begin by understanding how to use existing settings and configurations. This involves exploring the current system and identifying what's already available."
		case 2:
			return "You proceed to complete the task using the existing settings. This step involves applying the known configurations to achieve your objectives."
		case 3:
			return "You successfully obtain a solution based on the existing settings. The outcome demonstrates the effectiveness of working with established configurations."
		}
	case KeySettingsNotThere:
		switch col {
		case 1:
			return "You start by brainstorming ideas and approaches. This involves creative thinking and exploring different possibilities for your needs."
		case 2:
			if step.Title == AlternativeHelpTitle {
				return "When the initial approach doesn't work, you reach out for help and support from others to find alternative solutions."
			}
			return "You implement your chosen method and integrate it into your workflow to address the challenges."
		case 3:
			return "You successfully achieve your goals and obtain a solution. The process has led to a positive outcome that meets your needs."
		}
	}
	return fmt.Sprintf("This is %s in your journey.", columnName(col))
}

func columnName(col int) string {
	if col >= 0 && col < Columns {
		return columnNames[col]
	}
	return fmt.Sprintf("Step %d", col)
}

// StoryInput feeds Tell.
type StoryInput struct {
	Name        string
	Needs       string
	ScenarioKey string
	Structure   Structure
	// Characters lists the marker types placed under each column.
	Characters [Columns][]string
}

// Tell writes the closing free-text story for a filled-in grid. Only the
// settingsNotThere script has a story; other keys yield "".
func (r *Resolver) Tell(in StoryInput) string {
	if in.ScenarioKey != KeySettingsNotThere {
		return ""
	}

	name := in.Name
	if name == "" {
		name = "Someone"
	}
	step1, step2 := in.Structure[1], in.Structure[2]

	var b strings.Builder
	fmt.Fprintf(&b, "%s is going to start the customization for an unmet need on %s but with no prior settings. ", name, in.Needs)
	fmt.Fprintf(&b, "They firstly %s with %s about workarounds and combinations, and got some ideas.\n\n",
		strings.ToLower(step1.Title), characterNames(in.Characters[1]))

	r.mu.Lock()
	defer r.mu.Unlock()
	if step2.Title == AlternativeHelpTitle {
		fmt.Fprintf(&b, "Unluckily, the workaround didn't work. So with the help of %s they started to %s. Finally they got a %s solution within a %s time.",
			characterNames(in.Characters[2]), strings.ToLower(step2.Title), r.quality(), r.duration())
	} else {
		fmt.Fprintf(&b, "Luckily, the workaround worked! So they started to %s with %s, and finally they got a %s solution.",
			strings.ToLower(step2.Title), characterNames(in.Characters[2]), r.quality())
	}
	return b.String()
}

func characterNames(types []string) string {
	if len(types) == 0 {
		return "some colleagues"
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		if t == "" {
			t = "colleague"
		}
		names = append(names, t)
	}
	return strings.Join(names, ", ")
}

// quality and duration expect r.mu to be held.
func (r *Resolver) quality() string {
	v := r.sampler.Float64()
	switch {
	case v < 0.5:
		return "successful"
	case v < 0.8:
		return "usable"
	default:
		return "not too bad"
	}
}

func (r *Resolver) duration() string {
	if r.sampler.Float64() < 0.8 {
		return "long"
	}
	return "ok"
}
