package view

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/taskdesk-dev/taskdesk/internal/models"
)

// NoColor reports whether NO_COLOR is set
func NoColor() bool {
	return strings.TrimSpace(os.Getenv("NO_COLOR")) != ""
}

// ApplyColorProfile sets lipgloss's profile for output written to w.
// NO_COLOR and non-terminal writers get plain ASCII.
func ApplyColorProfile(w io.Writer) {
	if NoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	f, ok := w.(*os.File)
	if !ok {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(f).EnvColorProfile())
}

var (
	statusColors = map[models.Status]lipgloss.AdaptiveColor{
		models.StatusTodo:       {Light: "#6B7280", Dark: "#9CA3AF"},
		models.StatusInProgress: {Light: "#1D4ED8", Dark: "#60A5FA"},
		models.StatusDone:       {Light: "#15803D", Dark: "#4ADE80"},
		models.StatusBlocked:    {Light: "#B91C1C", Dark: "#F87171"},
	}
	barColor     = lipgloss.AdaptiveColor{Light: "#4F46E5", Dark: "#818CF8"}
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"})
	barCharacter = "█"
)

// StatusBadge renders a task status label in its color
func StatusBadge(s models.Status) string {
	c, ok := statusColors[s]
	if !ok {
		return s.Label()
	}
	return lipgloss.NewStyle().Foreground(c).Bold(s == models.StatusBlocked).Render(s.Label())
}

// Truncate cuts s to at most width terminal cells, ending in "…" when cut
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return xansi.Truncate(s, width, "…")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rules := make([]string, len(headers))
	for i, h := range headers {
		rules[i] = strings.Repeat("─", xansi.StringWidth(h))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	fmt.Fprintln(tw, strings.Join(rules, "\t"))
	return tw
}

// descriptionWidth bounds the description column of the task table
const descriptionWidth = 48

// TaskTable writes tasks as an aligned table
func TaskTable(w io.Writer, tasks []models.Task) error {
	tw := newTable(w, "ID", "DESCRIPTION", "STATUS", "CLIENT", "WORKER", "DUE")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			orDash(Truncate(t.Description.Summary(descriptionWidth*2), descriptionWidth)),
			t.Status.Label(),
			orDash(t.ClientName()),
			orDash(t.WorkerName()),
			t.DueDateLabel(),
		)
	}
	return tw.Flush()
}

// ClientTable writes clients as an aligned table
func ClientTable(w io.Writer, clients []models.Client) error {
	tw := newTable(w, "ID", "NAME", "EMAIL", "PHONE", "CREATED")
	for _, c := range clients {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, orDash(c.ContactEmail), orDash(c.Phone), c.CreatedAt.Format("Jan 2, 2006"))
	}
	return tw.Flush()
}

// WorkerTable writes workers as an aligned table
func WorkerTable(w io.Writer, workers []models.Worker) error {
	tw := newTable(w, "ID", "NAME", "SKILLS", "AVAILABILITY", "EMAIL")
	for _, wk := range workers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			wk.ID, wk.Name, orDash(Truncate(wk.Skills, 32)), orDash(wk.Availability), orDash(wk.ContactEmail))
	}
	return tw.Flush()
}

// TaskDetail renders a single task with its description as markdown
func TaskDetail(t models.Task, width int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", titleStyle.Render(fmt.Sprintf("Task #%d", t.ID)))
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Status:\t%s\n", StatusBadge(t.Status))
	fmt.Fprintf(tw, "Client:\t%s\n", orDash(t.ClientName()))
	fmt.Fprintf(tw, "Worker:\t%s\n", orDash(t.WorkerName()))
	fmt.Fprintf(tw, "Due:\t%s\n", t.DueDateLabel())
	fmt.Fprintf(tw, "Updated:\t%s\n", t.UpdatedAt.Local().Format("Jan 2, 2006 15:04"))
	if t.Notes != "" {
		fmt.Fprintf(tw, "Notes:\t%s\n", t.Notes)
	}
	_ = tw.Flush()

	if body := RenderMarkdown(t.Description.Markdown(), width); body != "" {
		sb.WriteString("\n")
		sb.WriteString(body)
		sb.WriteString("\n")
	}
	return sb.String()
}

// BarChart renders labelled horizontal bars scaled to width cells
func BarChart(title string, items []NamedCount, width int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	if len(items) == 0 {
		sb.WriteString(mutedStyle.Render("  no data"))
		sb.WriteString("\n")
		return sb.String()
	}

	labelW, maxCount := 0, 0
	for _, it := range items {
		if w := xansi.StringWidth(it.Name); w > labelW {
			labelW = w
		}
		if it.Count > maxCount {
			maxCount = it.Count
		}
	}
	if labelW > 24 {
		labelW = 24
	}
	barW := width - labelW - 8
	if barW < 10 {
		barW = 10
	}

	bar := lipgloss.NewStyle().Foreground(barColor)
	for _, it := range items {
		n := 0
		if maxCount > 0 {
			n = it.Count * barW / maxCount
		}
		if n == 0 && it.Count > 0 {
			n = 1
		}
		label := Truncate(it.Name, labelW)
		pad := strings.Repeat(" ", labelW-xansi.StringWidth(label))
		fmt.Fprintf(&sb, "  %s%s %s %d\n", label, pad, bar.Render(strings.Repeat(barCharacter, n)), it.Count)
	}
	return sb.String()
}

// RenderAnalytics lays out the summary cards and every chart
func RenderAnalytics(a Analytics, width int) string {
	if width <= 0 {
		width = 80
	}
	var sb strings.Builder

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(barColor).
		Padding(0, 2)
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card.Render(fmt.Sprintf("Clients\n%d", a.Summary.Clients)),
		card.Render(fmt.Sprintf("Workers\n%d", a.Summary.Workers)),
		card.Render(fmt.Sprintf("Active tasks\n%d", a.Summary.ActiveTasks)),
	)
	sb.WriteString(cards)
	sb.WriteString("\n\n")

	completed := make([]NamedCount, 0, len(a.Completed))
	for _, d := range a.Completed {
		completed = append(completed, NamedCount{Name: d.Day.Format("Jan 02"), Count: d.Count})
	}
	sb.WriteString(BarChart(fmt.Sprintf("Completed (last %d days)", len(a.Completed)), completed, width))
	sb.WriteString("\n")

	byStatus := make([]NamedCount, 0, len(a.ByStatus))
	for _, s := range a.ByStatus {
		byStatus = append(byStatus, NamedCount{Name: s.Label, Count: s.Count})
	}
	sb.WriteString(BarChart("Tasks by status", byStatus, width))
	sb.WriteString("\n")
	sb.WriteString(BarChart("Worker workload", a.Workload, width))
	sb.WriteString("\n")
	sb.WriteString(BarChart("Client activity", a.ClientActivity, width))
	return sb.String()
}
