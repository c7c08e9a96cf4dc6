package ui

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/crazy3lf/colorconv"
	"github.com/rotisserie/eris"

	"github.com/cybre/chroma-pulse/internal/capture"
	"github.com/cybre/chroma-pulse/internal/controller"
	"github.com/cybre/chroma-pulse/internal/modes"
	"github.com/cybre/chroma-pulse/internal/render"
	"github.com/cybre/chroma-pulse/internal/utils"
)

type Visualizer struct {
	program   *tea.Program
	mu        sync.Mutex
	canvas    *render.Canvas
	lastSend  time.Time
	throttle  time.Duration
	closeOnce sync.Once
}

type frameMsg struct {
	report     controller.Report
	canvas     *render.Canvas
	receivedAt time.Time
}

type visualizerModel struct {
	report      controller.Report
	canvas      *render.Canvas
	lastUpdated time.Time
	ready       bool
	width       int
	height      int
	onExit      func()
	send        func(controller.Command)
	exitOnce    sync.Once
}

var (
	vizContainerStyle   = lipgloss.NewStyle().Padding(0, 1)
	vizTimestampStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	vizMetricLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	vizMetricValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	vizAudioOkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	vizAudioBusyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	vizAudioFailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197")).Bold(true)
	vizWaitingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	vizHintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	vizCursorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
)

const (
	vizBarWidth   = 24
	renderLatency = 45 * time.Millisecond
	// HUDHeight is the number of terminal rows below the canvas.
	HUDHeight = 8
)

// NewVisualizer starts the full-screen view. send receives control commands from key
// presses; onExit runs once when the user quits.
func NewVisualizer(onExit func(), send func(controller.Command)) *Visualizer {
	model := &visualizerModel{onExit: onExit, send: send}
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithoutSignalHandler())

	v := &Visualizer{
		program:  program,
		throttle: renderLatency,
	}

	go program.Run()

	return v
}

// Present records the newest rendered canvas. It is shown with the next report.
func (v *Visualizer) Present(canvas *render.Canvas) {
	v.mu.Lock()
	v.canvas = canvas
	v.mu.Unlock()
}

func (v *Visualizer) Update(report controller.Report) {
	v.mu.Lock()
	if time.Since(v.lastSend) < v.throttle {
		v.mu.Unlock()
		return
	}
	v.lastSend = time.Now()
	canvas := v.canvas
	v.mu.Unlock()

	v.program.Send(frameMsg{
		report:     report,
		canvas:     canvas,
		receivedAt: time.Now(),
	})
}

func (v *Visualizer) Close() {
	v.closeOnce.Do(func() {
		v.program.Quit()
	})
}

func (m *visualizerModel) Init() tea.Cmd {
	return nil
}

func (m *visualizerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.dispatch(controller.Resize(CanvasSize(msg.Width, msg.Height)))
	case frameMsg:
		m.report = msg.report
		m.canvas = msg.canvas
		m.lastUpdated = msg.receivedAt
		m.ready = true
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.invokeExit()
			return m, tea.Quit
		}
		if cmd, ok := keyCommand(msg.String()); ok {
			m.dispatch(cmd)
		}
	case tea.QuitMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *visualizerModel) dispatch(cmd controller.Command) {
	if m.send != nil {
		m.send(cmd)
	}
}

// CanvasSize returns the canvas dimensions that leave room for the HUD in a terminal
// of the given size.
func CanvasSize(termWidth, termHeight int) (int, int) {
	return max(termWidth-2, 1), max(termHeight-HUDHeight, 1)
}

// keyCommand maps a key to the control command it triggers.
func keyCommand(key string) (controller.Command, bool) {
	names := modes.Names()
	switch key {
	case "1", "2", "3", "4":
		return controller.SelectMode(names[int(key[0]-'1')]), true
	case "-", "_":
		return controller.StepQuality(-1), true
	case "+", "=":
		return controller.StepQuality(1), true
	case "[":
		return controller.AdjustReactivity(-0.1), true
	case "]":
		return controller.AdjustReactivity(0.1), true
	case "left", "h":
		return controller.MoveCursor(-1), true
	case "right", "l":
		return controller.MoveCursor(1), true
	case "enter":
		return controller.PromoteCursor(), true
	case "m":
		return controller.Connect(capture.KindMicrophone), true
	case "s":
		return controller.Connect(capture.KindSystem), true
	}
	return controller.Command{}, false
}

func (m *visualizerModel) View() string {
	if !m.ready {
		header := titleStyle.Render("Chroma Pulse")
		waiting := vizWaitingStyle.Render("Waiting for the first frame…")
		return vizContainerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "", waiting))
	}
	return vizContainerStyle.Render(renderVisualizerView(m.report, m.canvas, m.lastUpdated))
}

func renderVisualizerView(report controller.Report, canvas *render.Canvas, updatedAt time.Time) string {
	parts := []string{}
	if canvas != nil {
		parts = append(parts, renderCanvas(canvas))
	}
	parts = append(parts,
		renderHeader(report, updatedAt),
		renderMetrics(report),
		renderMeter("Audio Signal", report.Level, signalMeter),
		lipgloss.JoinHorizontal(lipgloss.Left,
			renderMeter("Bass", report.Bass, bassMeter),
			"  ",
			renderMeter("Treble", report.Treble, trebleMeter),
		),
		renderPalette(report),
		vizHintStyle.Render("1-4 mode · -/+ quality · [/] reactivity · ←/→ swatch · enter promote · m mic · s system · q quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderCanvas paints each row, merging runs of equally coloured cells into one styled
// segment.
func renderCanvas(canvas *render.Canvas) string {
	rows := make([]string, canvas.Height)
	var row strings.Builder
	for y := range canvas.Height {
		row.Reset()
		runStart := 0
		runHex := ""
		flush := func(end int) {
			if end <= runStart {
				return
			}
			var glyphs strings.Builder
			for x := runStart; x < end; x++ {
				glyphs.WriteRune(canvas.At(x, y).Glyph)
			}
			row.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(runHex)).Render(glyphs.String()))
		}
		for x := range canvas.Width {
			hex := canvas.At(x, y).Color.Hex()
			if hex != runHex {
				flush(x)
				runStart, runHex = x, hex
			}
		}
		flush(canvas.Width)
		rows[y] = row.String()
	}
	return strings.Join(rows, "\n")
}

func renderHeader(report controller.Report, updatedAt time.Time) string {
	title := titleStyle
	if len(report.Palette) > 0 {
		title = title.Foreground(lipgloss.Color(report.Palette[0].Hex()))
	}
	timestamp := vizTimestampStyle.Render(updatedAt.Format("15:04:05.000"))
	return lipgloss.JoinHorizontal(lipgloss.Left, title.Render("Chroma Pulse"), "  ", timestamp)
}

func renderMetrics(report controller.Report) string {
	mode := renderMetric("Mode", normalizeMode(string(report.Mode)))
	quality := renderMetric("Quality", report.Quality.String())
	reactivity := renderMetric("Reactivity", fmt.Sprintf("%3.1f", report.Reactivity))
	audio := renderAudioStatus(report.Audio)

	return lipgloss.JoinHorizontal(lipgloss.Left, mode, "   ", quality, "   ", reactivity, "   ", audio)
}

func renderMetric(label, value string) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		vizMetricLabelStyle.Render(label+":"),
		" ",
		vizMetricValueStyle.Render(value),
	)
}

func renderAudioStatus(status capture.Status) string {
	var value string
	switch status.State {
	case capture.StateActive:
		label := status.Label
		if label == "" {
			label = status.Kind.String()
		}
		value = vizAudioOkStyle.Render("● " + label)
	case capture.StatePending:
		value = vizAudioBusyStyle.Render("◌ connecting " + status.Kind.String())
	case capture.StateFailed:
		value = vizAudioFailStyle.Render("✕ " + describeAudioError(status.Err))
	default:
		value = vizWaitingStyle.Render("○ no source (m/s)")
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, vizMetricLabelStyle.Render("Audio:"), " ", value)
}

func describeAudioError(err error) string {
	switch {
	case err == nil:
		return "failed"
	case eris.Is(err, capture.ErrPermissionDenied):
		return "permission denied"
	case eris.Is(err, capture.ErrCancelled):
		return "cancelled"
	default:
		return "failed"
	}
}

func renderPalette(report controller.Report) string {
	if len(report.Palette) == 0 {
		return lipgloss.JoinHorizontal(lipgloss.Left,
			subtitleStyle.Render("Palette"), "  ", vizWaitingStyle.Render("default gradient"))
	}

	blocks := make([]string, len(report.Palette))
	for i, c := range report.Palette {
		swatch := lipgloss.NewStyle().Background(lipgloss.Color(c.Hex())).Render("   ")
		marker := " "
		if i == report.Cursor {
			marker = vizCursorStyle.Render("›")
		}
		blocks[i] = marker + swatch
	}

	cursor := utils.ClampIndex(report.Cursor, len(report.Palette))
	info := vizMetricValueStyle.Render(report.Palette[cursor].Hex())

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		subtitleStyle.Render("Palette"),
		" ",
		strings.Join(blocks, ""),
		"  ",
		info,
	)
}

// meterTheme colours a level meter with a hue sweep from HueStart to HueEnd.
type meterTheme struct {
	Label    lipgloss.Color
	HueStart float64
	HueEnd   float64
}

var (
	signalMeter = meterTheme{Label: "45", HueStart: 190, HueEnd: 140}
	bassMeter   = meterTheme{Label: "205", HueStart: 300, HueEnd: 330}
	trebleMeter = meterTheme{Label: "123", HueStart: 170, HueEnd: 200}

	meterEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	meterValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

const (
	meterSaturation = 0.85
	meterFilled     = "█"
	meterEmpty      = "░"
)

// meterCells returns how many of width cells a level in [0, 1] fills. Any non-zero
// level lights at least one cell.
func meterCells(level float64, width int) int {
	level = utils.Clamp(level, 0.0, 1.0)
	n := int(math.Round(level * float64(width)))
	if level > 0 && n == 0 {
		n = 1
	}
	return min(n, width)
}

func renderMeter(label string, level float64, theme meterTheme) string {
	filled := meterCells(level, vizBarWidth)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Label).Bold(true).Render(fmt.Sprintf("%-13s", label)))
	b.WriteString(" [")
	for i := range filled {
		t := 0.0
		if filled > 1 {
			t = float64(i) / float64(filled-1)
		}
		hue := utils.Mix(theme.HueStart, theme.HueEnd, t)
		color := lipgloss.Color(hexColorFromHSV(hue, meterSaturation, utils.Mix(0.4, 0.95, t)))
		b.WriteString(lipgloss.NewStyle().Foreground(color).Render(meterFilled))
	}
	if empty := vizBarWidth - filled; empty > 0 {
		b.WriteString(meterEmptyStyle.Render(strings.Repeat(meterEmpty, empty)))
	}
	b.WriteString("] ")
	b.WriteString(meterValueStyle.Render(fmt.Sprintf("%3.0f%%", utils.Clamp(level, 0.0, 1.0)*100)))
	return b.String()
}

func hexColorFromHSV(h, s, v float64) string {
	r, g, b, err := colorconv.HSVToRGB(math.Mod(h+360, 360), utils.Clamp(s, 0.0, 1.0), utils.Clamp(v, 0.0, 1.0))
	if err != nil {
		return "#FFFFFF"
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func normalizeMode(mode string) string {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return "none"
	}
	return mode
}

func (m *visualizerModel) invokeExit() {
	m.exitOnce.Do(func() {
		if m.onExit != nil {
			m.onExit()
		}
	})
}
