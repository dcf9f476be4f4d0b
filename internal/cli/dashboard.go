package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/core"
)

// Dashboard panel indices.
const (
	panelTasks = iota
	panelQueue
	panelMetrics
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	taskCounts  map[string]int
	queue       []queueEntry
	metricsData *metricsSnapshot

	// State.
	loading bool
	err     error
}

type queueEntry struct {
	id       string
	title    string
	priority string
	status   string
	due      string
}

type metricsSnapshot struct {
	tasksCreated   int
	tasksImported  int
	tasksPromoted  int
	tasksCompleted int
	tasksArchived  int
	eventCount     int
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	taskCounts map[string]int
	queue      []queueEntry
	metrics    *metricsSnapshot
	err        error
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

	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusBlocked    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusReview     = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	statusTodo       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	priorityP0 = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	priorityP1 = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	priorityP2 = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	priorityP3 = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelTasks,
		loading:     true,
		taskCounts:  make(map[string]int),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
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
			return m, loadData
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
		m.taskCounts = msg.taskCounts
		m.queue = msg.queue
		m.metricsData = msg.metrics
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" Taskdeck Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	tasksPanel := m.renderTasksPanel()
	queuePanel := m.renderQueuePanel()
	metricsPanel := m.renderMetricsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Horizontal layout: three columns.
		colWidth := availableWidth / 3
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, colWidth-4)
		queuePanel = m.applyPanelStyle(panelQueue, queuePanel, colWidth-4)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, tasksPanel, queuePanel, metricsPanel)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, panelWidth)
		queuePanel = m.applyPanelStyle(panelQueue, queuePanel, panelWidth)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, tasksPanel, queuePanel, metricsPanel)
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

func (m dashboardModel) renderTasksPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tasks"))
	b.WriteString("\n")

	if len(m.taskCounts) == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	// Display in lifecycle order.
	order := []string{"in_progress", "blocked", "review", "todo", "done"}
	for _, status := range order {
		count, ok := m.taskCounts[status]
		if !ok || count == 0 {
			continue
		}
		label := fmt.Sprintf("  %-14s %d", status, count)
		b.WriteString(styleForStatus(status).Render(label))
		b.WriteString("\n")
	}

	total := 0
	for _, c := range m.taskCounts {
		total += c
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d", total))

	return b.String()
}

func (m dashboardModel) renderQueuePanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Up Next"))
	b.WriteString("\n")

	if len(m.queue) == 0 {
		b.WriteString("  Nothing ready to work on.")
		return b.String()
	}

	for i, entry := range m.queue {
		prio := styleForPriority(entry.priority).Render(entry.priority)
		line := fmt.Sprintf("  %d. %s %s  %s", i+1, prio, entry.id, entry.title)
		if entry.due != "" {
			line += helpStyle.Render("  due " + entry.due)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Metrics (7d)"))
	b.WriteString("\n")

	if m.metricsData == nil {
		b.WriteString("  No metrics available.")
		return b.String()
	}

	md := m.metricsData
	lines := []struct {
		label string
		value int
	}{
		{"Events", md.eventCount},
		{"Created", md.tasksCreated},
		{"Imported", md.tasksImported},
		{"Promoted", md.tasksPromoted},
		{"Completed", md.tasksCompleted},
		{"Archived", md.tasksArchived},
	}

	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %d\n", l.label, l.value))
	}

	return b.String()
}

func styleForStatus(status string) lipgloss.Style {
	switch status {
	case "in_progress":
		return statusInProgress
	case "done":
		return statusDone
	case "blocked":
		return statusBlocked
	case "review":
		return statusReview
	case "todo":
		return statusTodo
	default:
		return lipgloss.NewStyle()
	}
}

func styleForPriority(priority string) lipgloss.Style {
	switch priority {
	case "P0":
		return priorityP0
	case "P1":
		return priorityP1
	case "P2":
		return priorityP2
	case "P3":
		return priorityP3
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	result := dataLoadedMsg{
		taskCounts: make(map[string]int),
	}

	// Load task counts and the ready queue from the controller.
	if Lifecycle != nil {
		grouped, err := Lifecycle.ListTasks(core.ListFilter{})
		if err != nil {
			result.err = fmt.Errorf("loading tasks: %w", err)
			return result
		}
		for status, tasks := range grouped {
			result.taskCounts[string(status)] = len(tasks)
		}

		next, err := Lifecycle.NextTasks(core.NextOptions{})
		if err != nil {
			result.err = fmt.Errorf("loading ready queue: %w", err)
			return result
		}
		for _, t := range next {
			result.queue = append(result.queue, queueEntry{
				id:       t.ID,
				title:    t.Title,
				priority: string(t.Priority),
				status:   string(t.Status),
				due:      t.Due,
			})
		}
	}

	// Load metrics from MetricsCalc.
	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			tasksCreated:   metrics.TasksCreated,
			tasksImported:  metrics.TasksImported,
			tasksPromoted:  metrics.TasksPromoted,
			tasksCompleted: metrics.TasksCompleted,
			tasksArchived:  metrics.TasksArchived,
			eventCount:     metrics.EventCount,
		}
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for task status and metrics",
	Long: `Launch an interactive terminal dashboard showing task counts by status,
the ready-to-work queue, and event-log metrics.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle controller not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
