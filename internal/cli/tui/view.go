package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/taskdesk-dev/taskdesk/internal/cli/view"
	"github.com/taskdesk-dev/taskdesk/internal/models"
)

var (
	accent      = lipgloss.AdaptiveColor{Light: "#4F46E5", Dark: "#818CF8"}
	muted       = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	danger      = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	success     = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	styleMuted  = lipgloss.NewStyle().Foreground(muted)
	styleError  = lipgloss.NewStyle().Foreground(danger)
	styleFlash  = lipgloss.NewStyle().Foreground(success)
	styleTab    = lipgloss.NewStyle().Padding(0, 2).Foreground(muted)
	styleActive = lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(accent).Underline(true)
	styleCursor = lipgloss.NewStyle().Bold(true).Foreground(accent)
	styleBox    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(1, 3)
)

func filteredTasks(tasks []models.Task, q string) []models.Task {
	return view.Limit(view.FilterTasks(tasks, q), view.DefaultTaskLimit)
}

func filteredClients(clients []models.Client, q string) []models.Client {
	return view.FilterClients(clients, q)
}

func filteredWorkers(workers []models.Worker, q string) []models.Worker {
	return view.FilterWorkers(workers, q)
}

func (m model) View() string {
	switch m.screen {
	case screenSplash:
		return m.viewSplash()
	case screenLogin:
		return m.viewLogin()
	default:
		return m.viewDashboard()
	}
}

func (m model) viewSplash() string {
	msg := "Checking your session..."
	if m.hint.Authenticated && m.hint.User != nil {
		msg = fmt.Sprintf("Welcome back, %s. Checking your session...", m.hint.User.Username)
	}
	return m.center(fmt.Sprintf("%s %s", m.spinner.View(), msg))
}

func (m model) viewLogin() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("taskdesk"))
	if m.opts.Deployment != "" {
		b.WriteString(styleMuted.Render("  " + m.opts.Deployment))
	}
	b.WriteString("\n\n")
	b.WriteString(m.username.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")
	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + " Signing in...")
	case m.loginErr != "":
		b.WriteString(styleError.Render(m.loginErr))
	default:
		b.WriteString(styleMuted.Render("enter: sign in   tab: next field   esc: quit"))
	}
	return m.center(styleBox.Render(b.String()))
}

func (m model) center(s string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}

func (m model) viewDashboard() string {
	var b strings.Builder

	header := styleTitle.Render("taskdesk")
	if u := m.opts.Session.User(); u != nil {
		header += styleMuted.Render("  signed in as " + u.Username)
	}
	b.WriteString(header)
	b.WriteString("\n")

	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if tab(i) == m.tab {
			tabs[i] = styleActive.Render(label)
		} else {
			tabs[i] = styleTab.Render(label)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	switch {
	case !m.loaded:
		b.WriteString(m.spinner.View() + " Loading...")
	case m.detail:
		if t, ok := m.selectedTask(); ok {
			b.WriteString(view.TaskDetail(t, m.width-4))
		}
	case m.tab == tabAnalytics:
		a := view.ComputeAnalytics(m.snap.Tasks, m.snap.Clients, m.snap.Workers, m.opts.Now())
		b.WriteString(view.RenderAnalytics(a, m.width-4))
	default:
		if m.searching || m.search.Value() != "" {
			b.WriteString(m.search.View())
			b.WriteString("\n\n")
		}
		b.WriteString(m.viewRows())
	}

	b.WriteString("\n")
	switch {
	case m.confirm != nil:
		note := ""
		switch m.confirm.tab {
		case tabClients:
			note = " Its tasks are deleted too."
		case tabWorkers:
			note = " Their tasks become unassigned."
		}
		b.WriteString(styleError.Render(fmt.Sprintf("Delete %s #%d %q?%s [y/N]", m.confirm.tab.entity(), m.confirm.id, m.confirm.name, note)))
	case m.errMsg != "":
		b.WriteString(styleError.Render(m.errMsg))
	case m.flash != "":
		b.WriteString(styleFlash.Render(m.flash))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m model) viewRows() string {
	var rows [][]string
	var headers []string

	switch m.tab {
	case tabTasks:
		headers = []string{"ID", "DESCRIPTION", "STATUS", "CLIENT", "WORKER", "DUE"}
		for _, t := range m.visibleTasks() {
			rows = append(rows, []string{
				fmt.Sprint(t.ID), t.Description.Summary(60), view.StatusBadge(t.Status),
				dash(t.ClientName()), dash(t.WorkerName()), t.DueDateLabel(),
			})
		}
		if total := len(view.FilterTasks(m.snap.Tasks, m.search.Value())); total > len(rows) {
			headers[1] = fmt.Sprintf("DESCRIPTION (%d of %d)", len(rows), total)
		}
	case tabClients:
		headers = []string{"ID", "NAME", "EMAIL", "PHONE"}
		for _, c := range m.visibleClients() {
			rows = append(rows, []string{fmt.Sprint(c.ID), c.Name, dash(c.ContactEmail), dash(c.Phone)})
		}
	case tabWorkers:
		headers = []string{"ID", "NAME", "SKILLS", "AVAILABILITY"}
		for _, w := range m.visibleWorkers() {
			rows = append(rows, []string{fmt.Sprint(w.ID), w.Name, dash(w.Skills), dash(w.Availability)})
		}
	}

	if len(rows) == 0 {
		if m.search.Value() != "" {
			return styleMuted.Render("No matches.")
		}
		return styleMuted.Render(fmt.Sprintf("No %ss yet.", m.tab.entity()))
	}

	widths := columnWidths(headers, rows, m.width-4)
	var b strings.Builder
	b.WriteString("  " + styleMuted.Render(formatRow(headers, widths)) + "\n")
	for i, row := range rows {
		line := formatRow(row, widths)
		if i == m.cursor {
			b.WriteString(styleCursor.Render("> ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// columnWidths sizes columns to content, shrinking the widest to fit total
func columnWidths(headers []string, rows [][]string, total int) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = xansi.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := xansi.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	sum := 0
	for _, w := range widths {
		sum += w + 2
	}
	for sum > total && total > 0 {
		widest := 0
		for i := range widths {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 8 {
			break
		}
		widths[widest]--
		sum--
	}
	return widths
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		cell = view.Truncate(cell, widths[i])
		parts[i] = cell + strings.Repeat(" ", widths[i]-xansi.StringWidth(cell))
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}
