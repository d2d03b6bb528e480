package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/handiism/tidal-downloader/internal/config"
	"github.com/handiism/tidal-downloader/internal/download"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	settings := config.DefaultSettings()
	settings.DownloadPath = t.TempDir()
	return NewModel(settings, nil)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestToggleOptions(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if !m.multiThread || !m.playlist || !m.verbose {
		t.Errorf("options = %v %v %v, want all on", m.multiThread, m.playlist, m.verbose)
	}
	if !strings.Contains(m.View(), "[x] Parallel downloads") {
		t.Errorf("view does not show the toggled option:\n%s", m.View())
	}
}

func TestTypingLettersKeepsOptions(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("pv")})
	if m.playlist || m.verbose {
		t.Error("typed letters toggled options")
	}
	if m.textInput.Value() != "pv" {
		t.Errorf("input = %q", m.textInput.Value())
	}
}

func TestEnterRejectsBadLink(t *testing.T) {
	m := newTestModel(t)
	m.textInput.SetValue("https://tidal.com/browse/artist/1")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != StateInput {
		t.Errorf("state = %v, want StateInput", m.state)
	}
	if len(m.logs) != 1 || m.logs[0].Level != download.LevelError {
		t.Errorf("logs = %+v", m.logs)
	}
}

func TestProgressMsgFiltersVerbose(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: "detail", Level: download.LevelVerbose}})
	for range maxLogs + 2 {
		m = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: "line", Level: download.LevelInfo}})
	}
	if len(m.logs) != maxLogs {
		t.Errorf("logs = %d, want %d", len(m.logs), maxLogs)
	}
	for _, l := range m.logs {
		if l.Message == "detail" {
			t.Error("verbose message shown without verbose mode")
		}
	}
}

func TestDownloadDone(t *testing.T) {
	tests := []struct {
		name string
		msg  DownloadDoneMsg
		want State
	}{
		{"success", DownloadDoneMsg{Summary: download.Summary{Downloaded: 3}}, StateComplete},
		{"failure", DownloadDoneMsg{Err: errors.New("album 1: not found")}, StateError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t)
			m.state = StateDownloading
			m = update(t, m, tt.msg)
			if m.state != tt.want {
				t.Errorf("state = %v, want %v", m.state, tt.want)
			}
			m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
			if m.state != StateInput {
				t.Errorf("state after reset = %v", m.state)
			}
		})
	}
}
