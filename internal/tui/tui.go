// Package tui provides a Bubble Tea terminal user interface for tidal-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/tidal-downloader/internal/app"
	"github.com/handiism/tidal-downloader/internal/config"
	"github.com/handiism/tidal-downloader/internal/download"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	targetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// maxLogs is how many progress lines stay on screen.
const maxLogs = 10

var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logger    *slog.Logger
	logs      []LogEntry
	target    app.Target
	summary   download.Summary
	err       error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	// events carries progress from the running download.
	events chan download.ProgressEvent
	app    *app.App

	// Download progress
	doneFiles   int32
	failedFiles int32
	totalFiles  int32

	// Options
	multiThread bool
	playlist    bool
	verbose     bool

	width  int
	height int
}

// NewModel creates a new TUI model for settings.
func NewModel(settings *config.Settings, logger *slog.Logger) Model {
	ti := textinput.New()
	ti.Placeholder = "https://tidal.com/browse/album/77646168"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:       StateInput,
		textInput:   ti,
		spinner:     sp,
		progress:    prog,
		settings:    settings,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		multiThread: settings.MultiThread,
		playlist:    settings.CreatePlaylist,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent when download progress updates.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// DownloadDoneMsg is sent when the download finishes.
	DownloadDoneMsg struct {
		Summary download.Summary
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading {
				m.cancel()
				m.state = StateError
				m.err = errCancelled
			}

		case "enter":
			if m.state == StateInput && m.textInput.Value() != "" {
				target, err := app.ParseTarget(m.textInput.Value())
				if err != nil {
					m.logs = []LogEntry{{Message: err.Error(), Level: download.LevelError}}
					return m, nil
				}
				return m.start(target)
			}

		case "ctrl+t":
			if m.state == StateInput {
				m.multiThread = !m.multiThread
				return m, nil
			}

		case "ctrl+p":
			if m.state == StateInput {
				m.playlist = !m.playlist
				return m, nil
			}

		case "ctrl+o":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				return m.reset(), textinput.Blink
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Level != download.LevelVerbose || m.verbose {
			m.logs = append(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
			if len(m.logs) > maxLogs {
				m.logs = m.logs[len(m.logs)-maxLogs:]
			}
		}
		if m.events != nil {
			cmds = append(cmds, waitForEvent(m.events))
		}

	case DownloadDoneMsg:
		m.summary = msg.Summary
		m.refreshCounts()
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.state == StateDownloading {
			m.refreshCounts()
			cmds = append(cmds, m.progress.SetPercent(m.percent()), tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// start builds the application with the chosen options and launches the
// download in the background.
func (m Model) start(target app.Target) (tea.Model, tea.Cmd) {
	settings := *m.settings
	settings.MultiThread = m.multiThread
	settings.CreatePlaylist = m.playlist

	events := make(chan download.ProgressEvent, 64)
	ctx := m.ctx
	a, err := app.New(&settings, m.logger, func(e download.ProgressEvent) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	})
	if err != nil {
		m.state = StateError
		m.err = err
		return m, nil
	}

	m.app = a
	m.events = events
	m.target = target
	m.logs = nil
	m.state = StateDownloading
	return m, tea.Batch(
		runDownload(ctx, a, target, events),
		waitForEvent(events),
		tickProgress(),
		m.spinner.Tick,
	)
}

func (m Model) reset() Model {
	m.state = StateInput
	m.logs = nil
	m.err = nil
	m.app = nil
	m.events = nil
	m.summary = download.Summary{}
	m.doneFiles, m.failedFiles, m.totalFiles = 0, 0, 0
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.SetValue("")
	m.textInput.Focus()
	return m
}

func (m *Model) refreshCounts() {
	if m.app != nil {
		m.doneFiles, m.failedFiles, m.totalFiles = m.app.Manager.GetProgress()
	}
}

func (m Model) percent() float64 {
	if m.totalFiles == 0 {
		return 0
	}
	return float64(m.doneFiles+m.failedFiles) / float64(m.totalFiles)
}

// runDownload performs the download and reports its summary. events is
// closed once no more progress can be reported.
func runDownload(ctx context.Context, a *app.App, target app.Target, events chan download.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		defer close(events)
		summary, err := a.Download(ctx, target, 1)
		return DownloadDoneMsg{Summary: summary, Err: err}
	}
}

// waitForEvent delivers the next progress event, or nothing once the
// channel is closed.
func waitForEvent(events <-chan download.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: e}
	}
}

// tickProgress returns a command to tick progress updates.
func tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("TIDAL Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download tracks, albums, playlists and videos"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter a track, album, playlist or video link:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s Parallel downloads (ctrl+t)\n", checkbox(m.multiThread))
	fmt.Fprintf(&b, "  %s Create playlist file (ctrl+p)\n", checkbox(m.playlist))
	fmt.Fprintf(&b, "  %s Verbose output (ctrl+o)\n", checkbox(m.verbose))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Download path: %s | Quality: %s", m.settings.DownloadPath, m.settings.AudioQuality)))
	b.WriteString("\n")
	if len(m.logs) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderLogs())
	}

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(targetStyle.Render(m.target.String()))
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Items: %d/%d | Failed: %d", m.doneFiles, m.totalFiles, m.failedFiles)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	box := boxStyle.Render(fmt.Sprintf(
		"Download complete: %s\n\n"+
			"Downloaded: %d\n"+
			"Skipped: %d\n"+
			"Failed: %d",
		m.target,
		m.summary.Downloaded,
		m.summary.Skipped,
		len(m.summary.Failed),
	))

	var b strings.Builder
	b.WriteString(box)
	b.WriteString("\n")
	for _, f := range m.summary.Failed {
		b.WriteString(errorStyle.Render("  " + f.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		fmt.Fprintf(&b, "  %s\n", m.err.Error())
	}
	b.WriteString("\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ctrl+t: parallel • ctrl+p: playlist • ctrl+o: verbose • esc: quit"
	case StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run(settings *config.Settings, logger *slog.Logger) error {
	p := tea.NewProgram(NewModel(settings, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
