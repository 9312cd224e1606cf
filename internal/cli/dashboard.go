package cli

import (
	"fmt"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ppm-baseline/internal/core"
	"github.com/valter-silva-au/ppm-baseline/internal/storage"
	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

// Dashboard panel indices.
const (
	panelVariance = iota
	panelScope
	panelSummary
	panelCount
)

// comparisonLoader produces the comparison shown by the dashboard. It is
// called again on refresh so edits to the snapshot files are picked up.
type comparisonLoader func() (*models.ComparisonResult, error)

type dashboardModel struct {
	activePanel int
	width       int
	height      int
	subtitle    string
	load        comparisonLoader

	// Data.
	result *models.ComparisonResult
	alerts []alertSnapshot

	// State.
	loading bool
	err     error
}

type alertSnapshot struct {
	severity string
	message  string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	result *models.ComparisonResult
	alerts []alertSnapshot
	err    error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	fieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel(subtitle string, load comparisonLoader) dashboardModel {
	return dashboardModel{
		activePanel: panelVariance,
		subtitle:    subtitle,
		load:        load,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return m.loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, m.loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.result = msg.result
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" PPMB Variance Dashboard ")
	if m.subtitle != "" {
		title += " " + helpStyle.Render(m.subtitle)
	}
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading comparison...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	variancePanel := m.renderVariancePanel()
	scopePanel := m.renderScopePanel()
	summaryPanel := m.renderSummaryPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		variancePanel = m.applyPanelStyle(panelVariance, variancePanel, colWidth-4)
		scopePanel = m.applyPanelStyle(panelScope, scopePanel, colWidth-4)
		summaryPanel = m.applyPanelStyle(panelSummary, summaryPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, variancePanel, scopePanel, summaryPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		variancePanel = m.applyPanelStyle(panelVariance, variancePanel, panelWidth)
		scopePanel = m.applyPanelStyle(panelScope, scopePanel, panelWidth)
		summaryPanel = m.applyPanelStyle(panelSummary, summaryPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, variancePanel, scopePanel, summaryPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderVariancePanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Variance"))
	b.WriteString("\n")

	if m.result == nil || len(m.result.ModifiedTasks) == 0 {
		b.WriteString("  No field changes.")
		return b.String()
	}

	for _, mt := range m.result.ModifiedTasks {
		b.WriteString(fmt.Sprintf("  %s %s\n", mt.ID, mutedStyle.Render(mt.Name)))
		for _, c := range mt.Changes {
			b.WriteString(fmt.Sprintf("    %s %s → %s\n",
				fieldStyle.Render(fmt.Sprintf("%-9s", c.Field)), c.OldValue, c.NewValue))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m dashboardModel) renderScopePanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Scope"))
	b.WriteString("\n")

	if m.result == nil || (len(m.result.AddedTasks) == 0 && len(m.result.DeletedTasks) == 0) {
		b.WriteString("  No scope changes.")
		return b.String()
	}

	for _, t := range m.result.AddedTasks {
		b.WriteString(addedStyle.Render(fmt.Sprintf("  + %s %s", t.ID, t.Name)))
		b.WriteString("\n")
	}
	for _, t := range m.result.DeletedTasks {
		b.WriteString(deletedStyle.Render(fmt.Sprintf("  - %s %s", t.ID, t.Name)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m dashboardModel) renderSummaryPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Summary"))
	b.WriteString("\n")

	if m.result == nil {
		b.WriteString("  No comparison loaded.")
		return b.String()
	}

	s := m.result.VarianceStats
	lines := []struct {
		label string
		value string
	}{
		{"Cost", varianceStyle(s.CostVariance).Render(formatCost(s.CostVariance))},
		{"Duration", varianceStyle(float64(s.DurationVariance)).Render(formatDays(s.DurationVariance))},
		{"Added", fmt.Sprintf("%d", s.AddedCount)},
		{"Deleted", fmt.Sprintf("%d", s.DeletedCount)},
		{"Modified", fmt.Sprintf("%d", s.ModifiedCount)},
	}
	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-10s %s\n", l.label, l.value))
	}

	b.WriteString("\n")
	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}
	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}
	return strings.TrimRight(b.String(), "\n")
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

// loadData runs the comparison, then evaluates alerts so the summary panel
// reflects the comparison just recorded.
func (m dashboardModel) loadData() tea.Msg {
	if m.load == nil {
		return dataLoadedMsg{err: fmt.Errorf("no comparison configured")}
	}

	result, err := m.load()
	if err != nil {
		return dataLoadedMsg{err: fmt.Errorf("loading comparison: %w", err)}
	}
	msg := dataLoadedMsg{result: result}

	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return dataLoadedMsg{err: fmt.Errorf("loading alerts: %w", err)}
		}
		msg.alerts = make([]alertSnapshot, 0, len(alerts))
		for _, a := range alerts {
			msg.alerts = append(msg.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
			})
		}
	}

	return msg
}

var dashboardBaseline string

// dashboardLoader builds the loader for the dashboard arguments: either
// two snapshot files, or a target file compared with --baseline NAME.
// Only the first successful load goes through BaselineMgr and records a
// comparison event; refreshes compare without one.
func dashboardLoader(args []string) (comparisonLoader, string, error) {
	var recorded atomic.Bool

	if dashboardBaseline != "" {
		if len(args) != 1 {
			return nil, "", fmt.Errorf("with --baseline, pass exactly one target file")
		}
		name, targetPath := dashboardBaseline, args[0]
		return func() (*models.ComparisonResult, error) {
			target, err := storage.ReadSnapshot(targetPath)
			if err != nil {
				return nil, err
			}
			if !recorded.Load() {
				result, err := BaselineMgr.CompareToBaseline(name, *target)
				if err == nil {
					recorded.Store(true)
				}
				return result, err
			}
			b, err := BaselineMgr.GetBaseline(name)
			if err != nil {
				return nil, err
			}
			return compareQuietly(b.Snapshot, *target)
		}, fmt.Sprintf("%s vs %s", name, targetPath), nil
	}

	if len(args) != 2 {
		return nil, "", fmt.Errorf("pass a baseline file and a target file, or --baseline NAME and a target file")
	}
	baselinePath, targetPath := args[0], args[1]
	return func() (*models.ComparisonResult, error) {
		baseline, err := storage.ReadSnapshot(baselinePath)
		if err != nil {
			return nil, err
		}
		target, err := storage.ReadSnapshot(targetPath)
		if err != nil {
			return nil, err
		}
		if !recorded.Load() {
			result, err := BaselineMgr.Compare(*baseline, *target)
			if err == nil {
				recorded.Store(true)
			}
			return result, err
		}
		return compareQuietly(*baseline, *target)
	}, fmt.Sprintf("%s vs %s", baselinePath, targetPath), nil
}

// compareQuietly validates and compares two snapshots without emitting a
// comparison event.
func compareQuietly(baseline, target models.ProjectSnapshot) (*models.ComparisonResult, error) {
	if err := core.ValidateSnapshot(baseline); err != nil {
		return nil, fmt.Errorf("validating baseline: %w", err)
	}
	if err := core.ValidateSnapshot(target); err != nil {
		return nil, fmt.Errorf("validating target: %w", err)
	}
	result := core.CompareProjects(baseline, target)
	return &result, nil
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard [baseline-file] <target-file>",
	Short: "Interactive TUI over one schedule comparison",
	Long: `Launch an interactive terminal dashboard showing field variances,
scope changes, summary figures and active alerts for one comparison.

Compare two snapshot files, or a target file against a captured baseline
with --baseline NAME. Navigate between panels with Tab, refresh with r,
quit with q.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if BaselineMgr == nil {
			return fmt.Errorf("baseline manager not initialized")
		}
		load, subtitle, err := dashboardLoader(args)
		if err != nil {
			return err
		}
		p := tea.NewProgram(newDashboardModel(subtitle, load), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardBaseline, "baseline", "", "Compare the target against this captured baseline")
	dashboardCmd.ValidArgsFunction = completeSnapshotFiles
	_ = dashboardCmd.RegisterFlagCompletionFunc("baseline", completeBaselineFlag)
	rootCmd.AddCommand(dashboardCmd)
}
