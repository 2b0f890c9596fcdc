package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/cutscene-engine/internal/storage"
	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/playback"
	"github.com/jwebster45206/cutscene-engine/pkg/property"
)

const maxLogLines = 200

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config *ConsoleConfig

	// local playback
	player  *Player
	changes <-chan string

	// remote rehearsal
	client    *http.Client
	sessionID uuid.UUID
	events    <-chan SSEEvent
	started   bool
	remoteErr error

	logViewport viewport.Model
	progress    progress.Model
	logLines    []string
	ready       bool
	width       int
	height      int
	status      string

	// Quit confirmation state
	showQuitModal bool
}

type frameMsg struct{}

type fileChangedMsg struct{ path string }

type sseMsg struct{ event SSEEvent }

type remoteStartedMsg struct {
	requestID string
	err       error
}

var (
	stagePanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2).
			PaddingRight(1)

	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	stageBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	captionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

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
)

func newConsoleUI(cfg *ConsoleConfig) ConsoleUI {
	vp := viewport.New(30, 20)
	vp.MouseWheelEnabled = true
	return ConsoleUI{
		config:      cfg,
		logViewport: vp,
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// NewLocalUI plays p in the terminal. changes, when non-nil, delivers edits
// to the source file.
func NewLocalUI(cfg *ConsoleConfig, p *Player, changes <-chan string) ConsoleUI {
	m := newConsoleUI(cfg)
	m.player = p
	m.changes = changes
	m.appendLog("playing " + filepath.Base(p.Source()))
	return m
}

// NewRemoteUI rehearses the source on the worker and shows its events
func NewRemoteUI(cfg *ConsoleConfig, client *http.Client, sessionID uuid.UUID, events <-chan SSEEvent) ConsoleUI {
	m := newConsoleUI(cfg)
	m.client = client
	m.sessionID = sessionID
	m.events = events
	m.status = "connecting..."
	return m
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.player != nil {
		return tea.Batch(m.nextFrame(), waitForChange(m.changes))
	}
	return waitForEvent(m.events)
}

func (m ConsoleUI) nextFrame() tea.Cmd {
	return tea.Tick(m.config.TickInterval, func(time.Time) tea.Msg {
		return frameMsg{}
	})
}

func waitForChange(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		path, ok := <-ch
		if !ok {
			return nil
		}
		return fileChangedMsg{path}
	}
}

func waitForEvent(ch <-chan SSEEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return sseMsg{SSEEvent{Type: "disconnected"}}
		}
		return sseMsg{ev}
	}
}

func (m *ConsoleUI) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
	m.refreshLog()
}

// refreshLog rewraps the log for the current panel width
func (m *ConsoleUI) refreshLog() {
	m.logViewport.SetContent(wordwrap.String(strings.Join(m.logLines, "\n"), max(m.logViewport.Width, 10)))
	m.logViewport.GotoBottom()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		stageWidth := m.stageWidth()
		m.logViewport.Width = max(m.width-stageWidth-6, 10)
		m.logViewport.Height = max(m.height-4, 3)
		m.progress.Width = max(stageWidth-2, 10)
		m.ready = true
		m.refreshLog()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameMsg:
		if m.player == nil {
			return m, nil
		}
		m.player.Tick()
		if m.player.Done() && m.status != "finished" {
			m.status = "finished"
			m.appendLog("sequence finished, r to replay")
		}
		return m, m.nextFrame()

	case fileChangedMsg:
		if err := m.player.Load(context.Background()); err != nil {
			m.appendLog(errorStyle.Render("reload failed: " + err.Error()))
		} else if err := m.player.Start(); err != nil {
			m.appendLog(errorStyle.Render(err.Error()))
		} else {
			m.status = ""
			m.appendLog("reloaded " + filepath.Base(msg.path))
		}
		return m, waitForChange(m.changes)

	case sseMsg:
		m.appendLog(describeEvent(msg.event))
		var cmd tea.Cmd
		switch msg.event.Type {
		case "connected":
			if !m.started {
				m.started = true
				m.status = "starting..."
				cmd = m.startRemote()
			}
		case "rehearsal.completed", "rehearsal.failed":
			m.status = strings.TrimPrefix(msg.event.Type, "rehearsal.")
		case "disconnected":
			m.status = "disconnected"
			return m, nil
		}
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case remoteStartedMsg:
		if msg.err != nil {
			m.remoteErr = msg.err
			m.status = "failed"
			m.appendLog(errorStyle.Render(msg.err.Error()))
		} else {
			m.status = "rehearsing"
			m.appendLog("request " + msg.requestID)
		}
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "q":
		m.showQuitModal = true
		return m, nil
	}
	if m.player == nil {
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case " ":
		if m.player.TogglePause() {
			m.appendLog("paused")
		} else {
			m.appendLog("resumed")
		}
	case "n", "right":
		m.player.Skip()
	case "r":
		if err := m.player.Start(); err != nil {
			m.appendLog(errorStyle.Render(err.Error()))
		} else {
			m.status = ""
			m.appendLog("restarted")
		}
	case "c":
		if err := clipboard.WriteAll(m.player.Summary()); err != nil {
			m.appendLog(errorStyle.Render("copy failed: " + err.Error()))
		} else {
			m.appendLog("summary copied to clipboard")
		}
	default:
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// startRemote uploads a local script file if one was given, then queues
// the rehearsal
func (m ConsoleUI) startRemote() tea.Cmd {
	cfg := m.config
	return func() tea.Msg {
		kind, name := "script", cfg.Source
		switch filepath.Ext(cfg.Source) {
		case storage.ScriptExt:
			data, err := os.ReadFile(cfg.Source)
			if err != nil {
				return remoteStartedMsg{err: fmt.Errorf("failed to read script: %w", err)}
			}
			name = strings.TrimSuffix(filepath.Base(cfg.Source), storage.ScriptExt)
			v, err := uploadScript(m.client, cfg.APIBaseURL, name, storage.SplitLines(string(data)))
			if err != nil {
				return remoteStartedMsg{err: err}
			}
			if !v.Valid {
				return remoteStartedMsg{err: fmt.Errorf("line %d: %s", v.Line, v.Error)}
			}
		case ".yaml", ".yml":
			kind = "playlist"
			name = strings.TrimSuffix(filepath.Base(cfg.Source), filepath.Ext(cfg.Source))
		}
		r, err := startRehearsal(m.client, cfg.APIBaseURL, kind, name, m.sessionID)
		if err != nil {
			return remoteStartedMsg{err: err}
		}
		return remoteStartedMsg{requestID: r.RequestID}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "enter", "y", "Y":
			return m, tea.Quit
		case "n", "N", "esc":
			m.showQuitModal = false
		}
	}
	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Stop playback and leave the console?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) stageWidth() int {
	return max(int(float64(m.width)*0.65)-4, 20)
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	stageWidth := m.stageWidth()
	var left string
	if m.player != nil {
		left = m.renderLocal(stageWidth)
	} else {
		left = m.renderRemote(stageWidth)
	}

	stagePanel := stagePanelStyle.Width(stageWidth + 3).Height(m.height - 1).Render(left)
	logPanel := logPanelStyle.Width(m.width - stageWidth - 3).Height(m.height - 1).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("LOG"),
			m.logViewport.View(),
		),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, stagePanel, logPanel)
}

func (m ConsoleUI) renderLocal(width int) string {
	st := m.player.Status()
	gridH := max(m.height-12, 4)

	var header string
	switch {
	case st.Done:
		header = loadingStyle.Render("finished")
	case st.Paused:
		header = loadingStyle.Render(fmt.Sprintf("%s (%d/%d) paused", st.Clip, st.Index+1, st.Total))
	default:
		header = fmt.Sprintf("%s (%d/%d)  %.1fs / %.1fs", st.Clip, st.Index+1, st.Total, st.Elapsed, st.Duration)
	}

	caption := ""
	if text, tint, ok := m.player.captions.Current(); ok {
		style := captionStyle
		if tint != nil {
			style = style.Foreground(colorOf(*tint))
		}
		caption = style.Render(wordwrap.String(text, width-2))
	}

	sounds, song := m.player.surface.recent()
	audioLine := promptStyle.Render("sounds: " + strings.Join(sounds, " "))
	if song != "" {
		audioLine += promptStyle.Render("  music: " + song)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("CUTSCENE")+"  "+header,
		stageBorderStyle.Render(renderStage(m.player.stage.Snapshot(), width-2, gridH)),
		m.progress.ViewAs(st.Fraction()),
		caption,
		audioLine,
		promptStyle.Render("space pause · n skip · r restart · c copy summary · q quit"),
	)
}

func (m ConsoleUI) renderRemote(width int) string {
	lines := []string{
		titleStyle.Render("REHEARSAL") + "  " + m.config.Source,
		"session " + m.sessionID.String(),
		loadingStyle.Render(m.status),
	}
	if m.remoteErr != nil {
		lines = append(lines, errorStyle.Render(wordwrap.String(m.remoteErr.Error(), width)))
	}
	lines = append(lines, "", promptStyle.Render("q quit"))
	return strings.Join(lines, "\n")
}

// renderStage draws entities onto a width x height character grid, later
// entities on top. The script's 0-100 grid is stretched to fit.
func renderStage(states []playback.EntityState, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	cells := make([][]string, height)
	for y := range cells {
		cells[y] = make([]string, width)
		for x := range cells[y] {
			cells[y][x] = " "
		}
	}

	for _, st := range states {
		if st.Kind == clip.KindStage || st.Kind == clip.KindStageLight {
			continue
		}
		if st.Color.IsSet() && st.Color.A <= 0 {
			continue
		}
		x := cellIndex(st.GridX, width)
		y := cellIndex(st.GridY, height)
		glyph := "?"
		if st.ID != "" {
			glyph = strings.ToUpper(st.ID[:1])
		}
		if st.Color.IsSet() {
			glyph = lipgloss.NewStyle().Foreground(colorOf(st.Color)).Render(glyph)
		}
		cells[y][x] = glyph
	}

	rows := make([]string, height)
	for y, row := range cells {
		rows[y] = strings.Join(row, "")
	}
	return strings.Join(rows, "\n")
}

func cellIndex(grid float64, n int) int {
	i := int(grid / 100 * float64(n-1))
	return min(max(i, 0), n-1)
}

func colorOf(c property.Color) lipgloss.Color {
	channel := func(v float64) int {
		return int(min(max(v, 0), 1) * 255)
	}
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B)))
}
