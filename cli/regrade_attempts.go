package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/quizgenius/backend/internal/attempt"
)

// RegradeSummary counts the outcome of a regrade run.
type RegradeSummary struct {
	Total   int
	Changed int
	Failed  int
}

// RegradeAttempt grades one closed attempt again. With dryRun nothing is saved.
func (c *Context) RegradeAttempt(ctx context.Context, attemptID int, dryRun bool) (attempt.RegradeResult, error) {
	return c.attempts.Regrade(ctx, attemptID, dryRun)
}

// RegradeAll regrades every closed attempt of the test, or of all tests when testID is 0,
// without a TUI.
func (c *Context) RegradeAll(ctx context.Context, testID int, dryRun bool) (RegradeSummary, error) {
	ids, err := c.attempts.ClosedAttemptIDs(ctx, testID)
	if err != nil {
		return RegradeSummary{}, err
	}

	summary := RegradeSummary{Total: len(ids)}
	for _, id := range ids {
		result, err := c.attempts.Regrade(ctx, id, dryRun)
		if err != nil {
			summary.Failed++
			continue
		}
		if result.Changed() {
			summary.Changed++
		}
	}

	return summary, nil
}

// RegradeAttempts regrades the closed attempts with a progress TUI.
func (c *Context) RegradeAttempts(ctx context.Context, testID int, dryRun bool) error {
	ids, err := c.attempts.ClosedAttemptIDs(ctx, testID)
	if err != nil {
		return fmt.Errorf("list closed attempts: %w", err)
	}

	if len(ids) == 0 {
		fmt.Println("No closed attempts found to regrade.")
		return nil
	}

	model := newRegradeModel(ctx, c, ids, dryRun)
	program := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}

	return nil
}

// regradeModel is the Bubble Tea model for the regrade progress UI.
type regradeModel struct {
	ctx          context.Context
	clictx       *Context
	attemptIDs   []int
	currentIndex int
	changed      int
	failed       int
	progress     progress.Model
	spinner      spinner.Model
	status       string
	done         bool
	dryRun       bool
	mu           sync.Mutex
}

func newRegradeModel(ctx context.Context, clictx *Context, attemptIDs []int, dryRun bool) *regradeModel {
	prog := progress.New(progress.WithScaledGradient("#7CC4FF", "#8CFFB4"))
	prog.Width = 50

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	return &regradeModel{
		ctx:        ctx,
		clictx:     clictx,
		attemptIDs: attemptIDs,
		progress:   prog,
		spinner:    s,
		status:     "Initializing...",
		dryRun:     dryRun,
	}
}

type regradeStartMsg struct{}

type regradeProgressMsg struct {
	Index   int
	Changed int
	Failed  int
	Status  string
	Done    bool
}

func (m *regradeModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg { return regradeStartMsg{} },
	)
}

func (m *regradeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" || m.done {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case regradeProgressMsg:
		m.mu.Lock()
		m.currentIndex = msg.Index
		m.changed = msg.Changed
		m.failed = msg.Failed
		m.status = msg.Status
		m.done = msg.Done
		m.mu.Unlock()

		if m.done {
			return m, nil
		}
		return m, m.processNext()

	case regradeStartMsg:
		return m, m.processNext()

	default:
		return m, nil
	}
}

func (m *regradeModel) View() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	if m.done {
		var result string
		result += "\n"
		if m.dryRun {
			result += yellow.Bold(true).Render("🔍 Dry Run Complete!") + "\n\n"
			result += fmt.Sprintf("Attempts checked: %d\n", len(m.attemptIDs))
			result += yellow.Render(fmt.Sprintf("Would change: %d", m.changed)) + "\n"
			result += "\nThis was a dry run. No grades were saved.\n"
		} else {
			result += green.Bold(true).Render("✅ Regrade Complete!") + "\n\n"
			result += fmt.Sprintf("Total: %d\n", len(m.attemptIDs))
			result += green.Render(fmt.Sprintf("Changed: %d", m.changed)) + "\n"
		}
		if m.failed > 0 {
			result += red.Render(fmt.Sprintf("Failed: %d", m.failed)) + "\n"
		}
		result += "\nPress 'q' to quit.\n"
		return result
	}

	var s string
	s += "\n"
	title := "🔄 Regrading Attempts"
	if m.dryRun {
		title = "🔍 Dry Run - Preview Mode"
	}
	s += lipgloss.NewStyle().Bold(true).Render(title) + "\n\n"

	percent := float64(m.currentIndex) / float64(len(m.attemptIDs))
	s += fmt.Sprintf("Progress: %s %.1f%%\n\n", m.progress.ViewAs(percent), percent*100)
	s += m.spinner.View() + " " + m.status + "\n\n"

	s += fmt.Sprintf("Total: %d | ", len(m.attemptIDs))
	s += green.Render(fmt.Sprintf("Changed: %d", m.changed))
	if m.failed > 0 {
		s += " | " + red.Render(fmt.Sprintf("Failed: %d", m.failed))
	}
	s += "\n\nPress 'q' to quit.\n"

	return s
}

func (m *regradeModel) processNext() tea.Cmd {
	return func() tea.Msg {
		m.mu.Lock()
		index := m.currentIndex
		changed := m.changed
		failed := m.failed
		m.mu.Unlock()

		if index >= len(m.attemptIDs) {
			return regradeProgressMsg{
				Index:   index,
				Changed: changed,
				Failed:  failed,
				Status:  "All done!",
				Done:    true,
			}
		}

		attemptID := m.attemptIDs[index]
		result, err := m.clictx.RegradeAttempt(m.ctx, attemptID, m.dryRun)
		if err != nil {
			return regradeProgressMsg{
				Index:   index + 1,
				Changed: changed,
				Failed:  failed + 1,
				Status:  fmt.Sprintf("Attempt %d failed: %v", attemptID, err),
			}
		}

		status := fmt.Sprintf("Attempt %d/%d (ID %d): %.2f%% ✓", index+1, len(m.attemptIDs), attemptID, result.After)
		if result.Changed() {
			changed++
			status = fmt.Sprintf("Attempt %d/%d (ID %d): %.2f%% → %.2f%%", index+1, len(m.attemptIDs), attemptID, result.Before, result.After)
		}

		return regradeProgressMsg{
			Index:   index + 1,
			Changed: changed,
			Failed:  failed,
			Status:  status,
		}
	}
}
