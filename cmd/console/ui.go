package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/story-grid/internal/autosave"
	"github.com/jwebster45206/story-grid/internal/storage"
	"github.com/jwebster45206/story-grid/pkg/editor"
	"github.com/jwebster45206/story-grid/pkg/grid"
	"github.com/jwebster45206/story-grid/pkg/script"
	"github.com/jwebster45206/story-grid/pkg/survey"
	"github.com/muesli/reflow/wordwrap"
)

const PlaceHolderText = "Describe this character..."

// pane is one editable grid: a story-grid field of the form, or the scratch
// grid that is not saved with the form.
type pane struct {
	key     string
	label   string
	surface *editor.Surface
}

// ConsoleUI is the BubbleTea model that runs the editor.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	form      *survey.Form
	panes     []pane
	current   int
	cursor    editor.Cell
	saver     *autosave.Saver
	scenarios []string
	exportDir string
	needs     string
	log       *slog.Logger

	storyViewport viewport.Model
	textarea      textarea.Model
	ready         bool
	width         int
	height        int

	status    string
	statusErr bool

	showPicker    bool
	pickerIdx     int
	showQuitModal bool

	events <-chan SSEEvent
}

type draftSavedMsg struct {
	timestamp string
}

type draftErrorMsg struct {
	err error
}

type remoteEventMsg struct {
	event SSEEvent
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	sidePanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2)

	gridPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

// NewConsoleUI builds the editor over form. scratch, when not nil, is shown
// after the form's grids. events may be nil when no live stream is attached.
func NewConsoleUI(form *survey.Form, scratch *grid.Grid, saver *autosave.Saver, resolver *script.Resolver, exportDir string, log *slog.Logger, events <-chan SSEEvent) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Blur()

	vp := viewport.New(40, 20)
	vp.MouseWheelEnabled = true

	var panes []pane
	for _, f := range survey.StoryGridFields() {
		g, _ := form.Grid(f.Key)
		panes = append(panes, pane{key: f.Key, label: f.Label, surface: editor.New(g)})
	}
	if scratch != nil {
		panes = append(panes, pane{label: "Scratch grid", surface: editor.New(scratch)})
	}

	m := ConsoleUI{
		form:          form,
		panes:         panes,
		cursor:        editor.Cell{Row: grid.FirstLaneRow, Column: grid.InitialStep},
		saver:         saver,
		scenarios:     resolver.Keys(),
		exportDir:     exportDir,
		log:           log,
		storyViewport: vp,
		textarea:      ta,
		events:        events,
	}
	m.refreshStory()
	return m
}

func (m ConsoleUI) surface() *editor.Surface { return m.panes[m.current].surface }

func (m ConsoleUI) Init() tea.Cmd {
	if m.events != nil {
		return waitForEvent(m.events)
	}
	return nil
}

func waitForEvent(ch <-chan SSEEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return remoteEventMsg{ev}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		sideWidth := m.width - script.Columns*(cellWidth+2) - 6
		if sideWidth < 24 {
			sideWidth = 24
		}
		m.storyViewport.Width = sideWidth
		m.storyViewport.Height = m.height - 4
		m.textarea.SetWidth(script.Columns * (cellWidth + 2))
		m.ready = true
		m.refreshStory()
		return m, nil

	case draftSavedMsg:
		m.setStatus("Draft saved at "+msg.timestamp, false)
		return m, nil

	case draftErrorMsg:
		m.setStatus("Autosave failed: "+msg.err.Error(), true)
		return m, nil

	case remoteEventMsg:
		m.applyRemoteEvent(msg.event)
		return m, waitForEvent(m.events)
	}

	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showPicker {
		return m.updatePicker(msg)
	}
	if m.surface().Mode() == editor.ModeEditing {
		return m.updateEditing(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.storyViewport, cmd = m.storyViewport.Update(msg)
		return m, cmd
	}
	return m.handleKey(keyMsg)
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.surface()
	g := s.Grid()

	switch msg.String() {
	case "ctrl+c", "esc", "q":
		m.showQuitModal = true
	case "up", "k":
		if m.cursor.Row > 0 {
			m.cursor.Row--
		}
	case "down", "j":
		if m.cursor.Row < g.Rows()-1 {
			m.cursor.Row++
		}
	case "left", "h":
		if m.cursor.Column > 0 {
			m.cursor.Column--
		}
	case "right", "l":
		if m.cursor.Column < script.Columns-1 {
			m.cursor.Column++
		}
	case "enter", " ":
		if !s.Click(m.cursor.Row, m.cursor.Column) {
			m.setStatus("That cell cannot be edited now", true)
			break
		}
		return m.enterMode()
	case "a":
		if !s.OpenPicker() {
			m.setStatus("No room left in this step", true)
			break
		}
		if target, ok := s.Target(); ok {
			m.cursor = target
		}
		return m.enterMode()
	case "n":
		if s.Advance() {
			m.cursor = editor.Cell{Row: grid.FirstLaneRow, Column: g.ActiveStep()}
			m.setStatus(fmt.Sprintf("Step %d unlocked", g.ActiveStep()), false)
		} else {
			m.setStatus("All steps are unlocked", true)
		}
		m.refreshStory()
	case "c":
		s.Clean()
		m.cursor = editor.Cell{Row: grid.FirstLaneRow, Column: grid.InitialStep}
		m.setStatus("Grid cleaned", false)
		m.refreshStory()
	case "s":
		key := m.nextScenario(g.ScenarioKey())
		s.ChangeScenario(key)
		m.setStatus("Scenario: "+key, false)
		m.refreshStory()
	case "tab":
		m.current = (m.current + 1) % len(m.panes)
		m.cursor = editor.Cell{Row: grid.FirstLaneRow, Column: m.surface().Grid().ActiveStep()}
		m.refreshStory()
	case "shift+tab":
		m.current = (m.current + len(m.panes) - 1) % len(m.panes)
		m.cursor = editor.Cell{Row: grid.FirstLaneRow, Column: m.surface().Grid().ActiveStep()}
		m.refreshStory()
	case "e":
		path, err := storage.WriteExport(m.exportDir, m.form.Snapshot())
		if err != nil {
			m.log.Error("Failed to export survey", "error", err)
			m.setStatus("Export failed: "+err.Error(), true)
			break
		}
		m.setStatus("Exported to "+path, false)
	case "y":
		data, err := m.form.Snapshot().Encode()
		if err == nil {
			err = clipboard.WriteAll(string(data))
		}
		if err != nil {
			m.setStatus("Copy failed: "+err.Error(), true)
			break
		}
		m.setStatus("Survey JSON copied to clipboard", false)
	case "t":
		m.refreshStory()
		m.storyViewport.GotoBottom()
	default:
		var cmd tea.Cmd
		m.storyViewport, cmd = m.storyViewport.Update(msg)
		return m, cmd
	}

	if rows := m.surface().Grid().Rows(); m.cursor.Row >= rows {
		m.cursor.Row = rows - 1
	}
	return m, nil
}

// enterMode opens the picker or the description editor for the surface's
// new mode.
func (m ConsoleUI) enterMode() (tea.Model, tea.Cmd) {
	s := m.surface()
	switch s.Mode() {
	case editor.ModePicking:
		m.showPicker = true
		m.pickerIdx = 0
		return m, nil
	case editor.ModeEditing:
		m.textarea.SetValue(s.Pending())
		m.textarea.Focus()
		return m, textarea.Blink
	}
	return m, nil
}

func (m ConsoleUI) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	s := m.surface()
	options := s.Options()

	switch keyMsg.String() {
	case "esc", "ctrl+c":
		s.Cancel()
		m.showPicker = false
	case "up", "k":
		if m.pickerIdx > 0 {
			m.pickerIdx--
		}
	case "down", "j":
		if m.pickerIdx < len(options)-1 {
			m.pickerIdx++
		}
	case "enter":
		m.showPicker = false
		if len(options) == 0 {
			s.Cancel()
			return m, nil
		}
		marker, ok := s.Pick(options[m.pickerIdx].Type)
		if !ok {
			s.Cancel()
			m.setStatus("That cell is no longer free", true)
			return m, nil
		}
		m.cursor = editor.Cell{Row: marker.Row, Column: marker.Column}
		return m.enterMode()
	}
	return m, nil
}

func (m ConsoleUI) updateEditing(msg tea.Msg) (tea.Model, tea.Cmd) {
	s := m.surface()
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+s":
			s.SetPending(m.textarea.Value())
			if s.Save() {
				m.setStatus("Description saved", false)
			}
			return m.leaveEditing()
		case "esc":
			s.Cancel()
			return m.leaveEditing()
		case "ctrl+d":
			if s.Delete() {
				m.setStatus("Character removed", false)
			}
			return m.leaveEditing()
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m ConsoleUI) leaveEditing() (tea.Model, tea.Cmd) {
	m.textarea.Reset()
	m.textarea.Blur()
	if rows := m.surface().Grid().Rows(); m.cursor.Row >= rows {
		m.cursor.Row = rows - 1
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "ctrl+c", "esc", "enter", "y", "Y":
		m.flush()
		return m, tea.Quit
	case "n", "N":
		m.showQuitModal = false
	}
	return m, nil
}

// flush writes any pending draft before the program exits.
func (m ConsoleUI) flush() {
	if m.saver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), autosave.DefaultWriteTimeout)
	defer cancel()
	if err := m.saver.Flush(ctx); err != nil {
		m.log.Warn("Final draft write failed", "error", err)
	}
}

func (m *ConsoleUI) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m ConsoleUI) nextScenario(current string) string {
	if len(m.scenarios) == 0 {
		return current
	}
	for i, key := range m.scenarios {
		if key == current {
			return m.scenarios[(i+1)%len(m.scenarios)]
		}
	}
	return m.scenarios[0]
}

func (m *ConsoleUI) applyRemoteEvent(ev SSEEvent) {
	switch ev.Type {
	case "draft.saved":
		if ts, ok := ev.Data["timestamp"].(string); ok {
			m.setStatus("Server stored draft at "+ts, false)
		}
	case "draft.deleted":
		m.setStatus("Draft was deleted on the server", true)
	case "field.changed":
		if field, ok := ev.Data["field"].(string); ok {
			m.log.Debug("Remote field change", "field", field)
		}
	}
}

// refreshStory rebuilds the side panel: the step narratives of the current
// grid, then the closing story for scripts that have one.
func (m *ConsoleUI) refreshStory() {
	p := m.panes[m.current]
	width := m.storyViewport.Width - 2
	content := renderStoryBoxes(p.surface.Grid().StoryBoxes(), width)
	if p.key != "" {
		story, err := m.form.Story(p.key, m.needs)
		if err == nil && story != "" && p.surface.Grid().ActiveStep() == grid.MaxActiveStep {
			content += titleStyle.Render("YOUR STORY") + "\n\n" + wrapParagraphs(story, width) + "\n"
		}
	}
	m.storyViewport.SetContent(content)
}

func wrapParagraphs(text string, width int) string {
	if width < 20 {
		width = 20
	}
	parts := strings.Split(text, "\n\n")
	for i, p := range parts {
		parts[i] = wordwrap.String(p, width)
	}
	return strings.Join(parts, "\n\n")
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	p := m.panes[m.current]
	g := p.surface.Grid()

	var header strings.Builder
	header.WriteString(titleStyle.Render(fmt.Sprintf("%s (%d/%d)", p.label, m.current+1, len(m.panes))))
	header.WriteString(promptStyle.Render(fmt.Sprintf("  scenario %s · step %d · %d characters", g.ScenarioKey(), g.ActiveStep(), len(g.Markers()))))

	left := []string{header.String(), "", renderGrid(g, m.cursor)}
	if m.surface().Mode() == editor.ModeEditing {
		left = append(left, "", separatorStyle.Render(strings.Repeat("─", script.Columns*(cellWidth+2))), m.textarea.View(),
			promptStyle.Render("Ctrl+S save · Esc cancel · Ctrl+D delete"))
	} else {
		left = append(left, "", promptStyle.Render("←↑↓→ move · Enter select · a add · n next step · c clean · s scenario · Tab next grid · e export · y copy · q quit"))
	}
	if m.status != "" {
		style := statusStyle
		if m.statusErr {
			style = errorStyle
		}
		left = append(left, style.Render(m.status))
	}

	gridPanel := gridPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, left...))
	sidePanel := sidePanelStyle.Render(m.storyViewport.View())
	view := lipgloss.JoinHorizontal(lipgloss.Top, gridPanel, sidePanel)

	if m.showPicker {
		modal := modalStyle.Width(50).Render(renderPicker(m.surface().Options(), m.pickerIdx))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
	}
	return view
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Quit? (y/n)"
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Editor?"))
	content.WriteString("\n\n")
	content.WriteString("Your draft is saved before the editor closes.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}
