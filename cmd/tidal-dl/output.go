package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/tidal-downloader/internal/download"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1A3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8DADC"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
)

// printer renders progress events as styled lines.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

func newPrinter(out io.Writer, verbose bool) *printer {
	return &printer{out: out, verbose: verbose}
}

func (p *printer) print(event download.ProgressEvent) {
	if event.Level == download.LevelVerbose && !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, formatEvent(event))
}

func formatEvent(event download.ProgressEvent) string {
	switch event.Level {
	case download.LevelError:
		return errorStyle.Render("✗ " + event.Message)
	case download.LevelWarning:
		return warningStyle.Render("! " + event.Message)
	case download.LevelSuccess:
		return successStyle.Render("✓ " + event.Message)
	case download.LevelInfo:
		return infoStyle.Render("› " + event.Message)
	default:
		return dimStyle.Render("  " + event.Message)
	}
}
