package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/valter-silva-au/ppm-baseline/pkg/models"
	"gopkg.in/yaml.v3"
)

// Report styles.
var (
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)

	counterStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2).
			Align(lipgloss.Center)

	counterLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	overStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	underStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	deletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// resolveFormat returns the format named by a --format flag, falling back to
// the configured default when the flag is empty.
func resolveFormat(flag string) (models.OutputFormat, error) {
	if flag == "" {
		return DefaultFormat, nil
	}
	switch f := models.OutputFormat(strings.ToLower(flag)); f {
	case models.FormatTable, models.FormatJSON, models.FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use table, json or yaml)", flag)
	}
}

// writeStructured encodes v as indented JSON or YAML.
func writeStructured(w io.Writer, v any, format models.OutputFormat) error {
	switch format {
	case models.FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("formatting output as JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case models.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("formatting output as YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported structured format %q", format)
	}
}

// writeComparison renders a comparison result in the requested format.
func writeComparison(w io.Writer, r *models.ComparisonResult, format models.OutputFormat) error {
	if format != models.FormatTable {
		return writeStructured(w, r, format)
	}
	_, err := fmt.Fprintln(w, renderComparison(r))
	return err
}

// renderComparison builds the terminal report: summary counters, the
// variance table and the scope lists.
func renderComparison(r *models.ComparisonResult) string {
	var b strings.Builder
	b.WriteString(renderCounters(r.VarianceStats))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Modified Tasks (%d)", len(r.ModifiedTasks))))
	b.WriteString("\n")
	if len(r.ModifiedTasks) == 0 {
		b.WriteString(mutedStyle.Render("  No field changes."))
	} else {
		b.WriteString(renderVarianceTable(r.ModifiedTasks))
	}
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Added Tasks (%d)", len(r.AddedTasks))))
	b.WriteString("\n")
	b.WriteString(renderScopeList(r.AddedTasks, addedStyle, "  No tasks added."))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Deleted Tasks (%d)", len(r.DeletedTasks))))
	b.WriteString("\n")
	b.WriteString(renderScopeList(r.DeletedTasks, deletedStyle, "  No tasks deleted."))

	return b.String()
}

// renderCounters shows the four headline figures side by side.
func renderCounters(s models.VarianceStats) string {
	counter := func(label, value string) string {
		return counterStyle.Render(counterLabelStyle.Render(label) + "\n" + value)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		counter("Cost Variance", varianceStyle(s.CostVariance).Render(formatCost(s.CostVariance))),
		counter("Duration Variance", varianceStyle(float64(s.DurationVariance)).Render(formatDays(s.DurationVariance))),
		counter("Added / Deleted", fmt.Sprintf("+%d / -%d", s.AddedCount, s.DeletedCount)),
		counter("Modified", fmt.Sprintf("%d", s.ModifiedCount)),
	)
}

// renderVarianceTable has one row per changed field.
func renderVarianceTable(tasks []models.ModifiedTask) string {
	t := newReportTable("TASK", "NAME", "FIELD", "BASELINE", "TARGET")
	for _, mt := range tasks {
		for _, c := range mt.Changes {
			t.Row(mt.ID, mt.Name, string(c.Field), c.OldValue.String(), c.NewValue.String())
		}
	}
	return t.String()
}

func renderScopeList(tasks []models.Task, style lipgloss.Style, empty string) string {
	if len(tasks) == 0 {
		return mutedStyle.Render(empty)
	}
	t := newReportTable("ID", "WBS", "NAME").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle.Inherit(style)
		})
	for _, task := range tasks {
		t.Row(task.ID, task.WBSCode, task.Name)
	}
	return t.String()
}

func newReportTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
}

func varianceStyle(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return overStyle
	case v < 0:
		return underStyle
	default:
		return lipgloss.NewStyle()
	}
}

func formatCost(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}

func formatDays(d int) string {
	if d == 1 || d == -1 {
		return fmt.Sprintf("%+d day", d)
	}
	return fmt.Sprintf("%+d days", d)
}
