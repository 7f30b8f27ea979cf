package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/kagglementor/internal/client"
	"github.com/raphaelgruber/kagglementor/internal/models"
)

const pollInterval = 2 * time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the analysis status.
type tickMsg time.Time

// statusMsg carries the polled competition state.
type statusMsg struct {
	comp *models.Competition
	err  error
}

// analysisModel is the bubbletea model for an analysis run.
type analysisModel struct {
	client        *client.Client
	competitionID string
	comp          *models.Competition
	spinner       spinner.Model
	theme         Theme
	done          bool
	quitting      bool
	err           error
}

func newAnalysisModel(c *client.Client, competitionID string) analysisModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	return analysisModel{
		client:        c,
		competitionID: competitionID,
		spinner:       sp,
		theme:         defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m analysisModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.spinner.Tick,
	)
}

// Update handles messages and returns the updated model.
func (m analysisModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchStatus()

	case statusMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch analysis status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}

		m.comp = msg.comp
		if m.comp.Ingestion != nil {
			switch m.comp.Ingestion.Status {
			case models.IngestionComplete:
				m.done = true
				return m, tea.Quit
			case models.IngestionFailed:
				m.done = true
				m.err = fmt.Errorf("%s", m.comp.Ingestion.Error)
				return m, tea.Quit
			}
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m analysisModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m analysisModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	status := "pending"
	if m.comp != nil && m.comp.Ingestion != nil {
		status = string(m.comp.Ingestion.Status)
	}

	line := fmt.Sprintf("%s Analysing %s %s",
		m.spinner.View(),
		m.competitionID,
		m.theme.statusStyle().Render(fmt.Sprintf("[%s]", status)),
	)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")
	return line + "\n" + hint + "\n"
}

func (m analysisModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nAnalysis of %s continues in background.\nUse 'kagglementor competitions' to check status.\n", m.competitionID)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Analysis failed: %s\n", m.err))
	}

	if m.comp != nil && m.comp.Ingestion != nil {
		var output string
		output += m.theme.completedStyle().Render("✓ Analysis complete") + "\n\n"
		output += fmt.Sprintf("  Notebooks analysed: %d\n", len(m.comp.Ingestion.Notebooks))
		output += fmt.Sprintf("\n  %s\n", m.comp.Ingestion.Summary)
		return output
	}

	return m.theme.completedStyle().Render("✓ Analysis complete\n")
}

// fetchStatus polls the competition from the server.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m analysisModel) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		comp, err := m.client.GetCompetition(ctx, m.competitionID)
		return statusMsg{comp: comp, err: err}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// RunAnalysisProgress runs the interactive progress UI for an analysis run.
// Returns nil on success or Ctrl+C (background), error on failure.
func RunAnalysisProgress(c *client.Client, competitionID string) error {
	model := newAnalysisModel(c, competitionID)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(analysisModel); ok {
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}
	return nil
}
