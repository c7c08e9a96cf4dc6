package ui

import (
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"
	"golang.org/x/term"

	"github.com/cybre/chroma-pulse/internal/utils"
)

var (
	ErrSelectionAborted = eris.New("selection aborted")
	ErrNoInteractiveTTY = eris.New("no interactive terminal available")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")).
			Bold(true)
	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246"))
	pointerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213"))
	inactivePointerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("219")).
				Bold(true)
	instructionKeyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("213")).
				Bold(true)
	instructionTextStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))
	instructionDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
	summaryLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("246"))
	summaryValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Bold(true)
	emptyStateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

type Option struct {
	Label string
}

// Picker is one step of the setup wizard.
type Picker struct {
	Title   string
	Label   string
	Options []Option
	Initial int
	// When, if set, decides from the earlier choices whether the step is shown. A
	// skipped step keeps its Initial choice.
	When func(choices []int) bool
}

// RunSetup walks the user through pickers and returns one chosen index per picker.
// Without a terminal it returns the initial choices and ErrNoInteractiveTTY.
func RunSetup(pickers []Picker) ([]int, error) {
	if len(pickers) == 0 {
		return nil, nil
	}

	if !isInteractiveTerminal() {
		return initialChoices(pickers), ErrNoInteractiveTTY
	}

	program := tea.NewProgram(newSetupModel(pickers))
	finalModel, err := program.Run()
	if err != nil {
		return nil, err
	}

	result := finalModel.(setupModel)
	if result.err != nil {
		return nil, result.err
	}
	return result.choices, nil
}

func initialChoices(pickers []Picker) []int {
	choices := make([]int, len(pickers))
	for i, p := range pickers {
		choices[i] = utils.ClampIndex(p.Initial, len(p.Options))
	}
	return choices
}

type setupModel struct {
	pickers []Picker
	choices []int

	// step indexes pickers; len(pickers) is the confirm page
	step   int
	cursor int
	done   bool
	err    error
}

func newSetupModel(pickers []Picker) setupModel {
	m := setupModel{
		pickers: pickers,
		choices: initialChoices(pickers),
		step:    -1,
	}
	m.advance()
	return m
}

func (m setupModel) confirming() bool {
	return m.step >= len(m.pickers)
}

func (m setupModel) visible(i int) bool {
	p := m.pickers[i]
	if len(p.Options) == 0 {
		return false
	}
	return p.When == nil || p.When(m.choices[:i])
}

// advance moves to the next visible picker, or to the confirm page.
func (m *setupModel) advance() {
	for m.step++; m.step < len(m.pickers); m.step++ {
		if m.visible(m.step) {
			m.cursor = m.choices[m.step]
			return
		}
	}
	m.step = len(m.pickers)
	m.cursor = 0
}

// retreat moves back to the previous visible picker, staying put on the first one.
func (m *setupModel) retreat() {
	for i := m.step - 1; i >= 0; i-- {
		if m.visible(i) {
			m.step = i
			m.cursor = m.choices[i]
			return
		}
	}
}

func (m setupModel) Init() tea.Cmd {
	return nil
}

func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, tea.Quit
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.err = ErrSelectionAborted
		return m, tea.Quit
	case "up", "k":
		if !m.confirming() {
			m.cursor = utils.WrapIndex(m.cursor-1, len(m.pickers[m.step].Options))
		}
	case "down", "j":
		if !m.confirming() {
			m.cursor = utils.WrapIndex(m.cursor+1, len(m.pickers[m.step].Options))
		}
	case "enter", "tab", "right", "l":
		if m.confirming() {
			if key.String() == "enter" {
				m.done = true
				return m, tea.Quit
			}
			return m, nil
		}
		m.choices[m.step] = m.cursor
		m.advance()
	case "shift+tab", "left", "h", "backspace", "b":
		if !m.confirming() {
			m.choices[m.step] = m.cursor
		}
		m.retreat()
	}

	return m, nil
}

func (m setupModel) View() string {
	if m.done {
		return ""
	}
	if m.confirming() {
		return renderSummaryView(m)
	}
	return renderPickerView(m)
}

func renderPickerView(m setupModel) string {
	p := m.pickers[m.step]
	instructions := []string{"↑/k ↓/j move", "enter confirm", "←/h back", "esc cancel"}

	lines := []string{
		"",
		titleStyle.Render(p.Title),
	}
	if summary := m.summaryRows(m.step); summary != "" {
		lines = append(lines, "", summary)
	}
	lines = append(lines,
		"",
		renderOptionList(p.Options, m.cursor),
		"",
		renderInstructions(instructions),
		"",
	)
	return strings.Join(lines, "\n")
}

func renderSummaryView(m setupModel) string {
	instructions := []string{"enter start", "←/h/b/backspace edit", "esc cancel"}

	lines := []string{
		"",
		titleStyle.Render("Ready to start"),
		"",
		m.summaryRows(len(m.pickers)),
		"",
		renderInstructions(instructions),
		"",
	}
	return strings.Join(lines, "\n")
}

// summaryRows lists the visible choices made before step.
func (m setupModel) summaryRows(step int) string {
	var rows []string
	for i := 0; i < step && i < len(m.pickers); i++ {
		if !m.visible(i) {
			continue
		}
		rows = append(rows, renderSummaryRow(m.pickers[i].Label, m.choiceLabel(i)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m setupModel) choiceLabel(i int) string {
	opts := m.pickers[i].Options
	if c := m.choices[i]; c >= 0 && c < len(opts) {
		return opts[c].Label
	}
	return "not selected"
}

func renderPointer(active bool) string {
	if active {
		return pointerStyle.Render("›")
	}
	return inactivePointerStyle.Render(" ")
}

func renderOptionLabel(text string, active bool) string {
	if active {
		return selectedItemStyle.Render(text)
	}
	return itemStyle.Render(text)
}

func renderOptionList(items []Option, cursor int) string {
	if len(items) == 0 {
		return emptyStateStyle.Render("No options detected")
	}

	rows := make([]string, len(items))
	for i, item := range items {
		rows[i] = lipgloss.JoinHorizontal(lipgloss.Left,
			renderPointer(cursor == i),
			" ",
			renderOptionLabel(item.Label, cursor == i),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderInstructions(parts []string) string {
	if len(parts) == 0 {
		return ""
	}

	if len(parts) == 1 {
		return renderInstruction(parts[0])
	}

	var segments []string
	for i, part := range parts {
		if i > 0 {
			segments = append(segments, instructionDividerStyle.Render(" · "))
		}
		segments = append(segments, renderInstruction(part))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, segments...)
}

func renderInstruction(part string) string {
	tokens := strings.Fields(part)
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) == 1 {
		return instructionTextStyle.Render(tokens[0])
	}

	var segments []string
	keyTokens := tokens[:len(tokens)-1]
	for i, token := range keyTokens {
		if i > 0 {
			segments = append(segments, instructionTextStyle.Render(" "))
		}
		segments = append(segments, instructionKeyStyle.Render(token))
	}
	segments = append(segments, instructionTextStyle.Render(" "))
	segments = append(segments, instructionTextStyle.Render(tokens[len(tokens)-1]))
	return lipgloss.JoinHorizontal(lipgloss.Left, segments...)
}

func renderSummaryRow(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		summaryLabelStyle.Render(label+": "),
		summaryValueStyle.Render(value),
	)
}

func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
