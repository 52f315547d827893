// Package cli holds the interactive terminal views.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/inovacc/aimodels/internal/assets"
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// DownloadModel shows asset download progress.
type DownloadModel struct {
	model string
	files int

	spinner  spinner.Model
	progress progress.Model

	current assets.Progress
	done    bool
	err     error

	progressCh chan assets.Progress
	download   func(context.Context, func(assets.Progress)) error
}

type downloadProgressMsg struct {
	progress assets.Progress
}

type downloadDoneMsg struct {
	err error
}

// NewDownloadModel builds the download view. The download callback runs
// in the background and reports through the progress function it is
// handed.
func NewDownloadModel(model string, files int, download func(context.Context, func(assets.Progress)) error) *DownloadModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return &DownloadModel{
		model:      model,
		files:      files,
		spinner:    s,
		progress:   progress.New(progress.WithDefaultGradient()),
		progressCh: make(chan assets.Progress, 16),
		download:   download,
	}
}

func (m *DownloadModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start(), m.waitForProgress())
}

func (m *DownloadModel) start() tea.Cmd {
	return func() tea.Msg {
		err := m.download(context.Background(), func(p assets.Progress) {
			select {
			case m.progressCh <- p:
			default:
			}
		})
		close(m.progressCh)

		return downloadDoneMsg{err: err}
	}
}

func (m *DownloadModel) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-m.progressCh
		if !ok {
			return nil
		}
		return downloadProgressMsg{progress: p}
	}
}

func (m *DownloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch keyMsg := msg.(type) {
	case tea.KeyMsg:
		if keyMsg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.done {
			return m, tea.Quit
		}

	case downloadProgressMsg:
		m.current = keyMsg.progress
		return m, m.waitForProgress()

	case downloadDoneMsg:
		m.done = true
		m.err = keyMsg.err

		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd

		m.spinner, cmd = m.spinner.Update(keyMsg)

		return m, cmd
	}

	return m, nil
}

func (m *DownloadModel) View() string {
	if m.done {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("\n  ✗ Download failed: %v\n\n", m.err))
		}

		return successStyle.Render(fmt.Sprintf("\n  ✓ Downloaded %d assets for %s\n\n", m.files, m.model))
	}

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(boldStyle.Render(fmt.Sprintf("Downloading assets for %s", m.model)))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" (%d files)", m.files)))
	b.WriteString("\n\n")

	total := m.current.FilesTotal
	if total == 0 {
		total = m.files
	}
	pct := 0.0
	if total > 0 {
		pct = float64(m.current.FilesCompleted) / float64(total)
	}
	b.WriteString("  ")
	b.WriteString(m.progress.ViewAs(pct))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" %d/%d", m.current.FilesCompleted, total)))
	b.WriteString("\n\n")

	if m.current.CurrentFile != "" {
		b.WriteString(fmt.Sprintf("  %s %s", m.spinner.View(), dimStyle.Render(m.current.CurrentFile)))
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s downloaded", humanBytes(m.current.BytesDownloaded))))
	b.WriteString("\n")

	return b.String()
}

// Error returns the download error, if any.
func (m *DownloadModel) Error() error {
	return m.err
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
