package tui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kelsos/roomfinder/internal/api/dto"
	"github.com/kelsos/roomfinder/internal/models"
)

type TaskStatus struct {
	TaskID        string
	State         models.TaskState
	Result        *dto.ResultResponse
	Error         *dto.TaskErrorResponse
	StartTime     time.Time
	CompletedTime time.Time
}

type Model struct {
	taskIDs      []string
	taskStatuses map[string]*TaskStatus
	logs         []string
	spinner      spinner.Model
	progress     progress.Model
	width        int
	height       int
	quit         bool
	errorCount   int
	successCount int
}

type TasksLoaded struct {
	TaskIDs []string
}

type TaskUpdate struct {
	Task dto.TaskResponse
}

type LogMessage struct {
	Message string
}

func NewModel() Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	pr := progress.New(progress.WithDefaultGradient())

	return Model{
		taskIDs:      []string{},
		taskStatuses: make(map[string]*TaskStatus),
		logs:         []string{},
		spinner:      sp,
		progress:     pr,
		width:        80,
		height:       24,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.handleKeyMsg(msg) {
			m.quit = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m = m.handleWindowSizeMsg(msg)

	case TasksLoaded:
		m = m.handleTasksLoaded(msg)

	case TaskUpdate:
		m = m.handleTaskUpdate(msg)

	case LogMessage:
		m = m.handleLogMessage(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		if progressModel, ok := progressModel.(progress.Model); ok {
			m.progress = progressModel
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "ctrl+c":
		return true
	}
	return false
}

func (m Model) handleWindowSizeMsg(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.progress.Width = max(msg.Width-50, 10)
	return m
}

func (m Model) handleTasksLoaded(msg TasksLoaded) Model {
	m.taskIDs = msg.TaskIDs
	for _, id := range msg.TaskIDs {
		m.taskStatuses[id] = &TaskStatus{
			TaskID: id,
			State:  models.TaskStatePending,
		}
	}
	return m
}

// handleTaskUpdate copies the status before changing it so earlier models
// handed out by Update stay untouched.
func (m Model) handleTaskUpdate(msg TaskUpdate) Model {
	current, exists := m.taskStatuses[msg.Task.TaskID]
	if !exists {
		return m
	}
	status := *current
	previous := status.State

	status.State = models.TaskState(msg.Task.State)
	status.Result = msg.Task.Result
	status.Error = msg.Task.Error
	if msg.Task.StartedAt != nil {
		status.StartTime = *msg.Task.StartedAt
	}
	if msg.Task.CompletedAt != nil {
		status.CompletedTime = *msg.Task.CompletedAt
	}

	if !previous.IsTerminal() && status.State.IsTerminal() {
		if status.State == models.TaskStateFailed {
			m.errorCount++
		} else {
			m.successCount++
		}
	}

	statuses := make(map[string]*TaskStatus, len(m.taskStatuses))
	for id, s := range m.taskStatuses {
		statuses[id] = s
	}
	statuses[status.TaskID] = &status
	m.taskStatuses = statuses
	return m
}

func (m Model) handleLogMessage(msg LogMessage) Model {
	m.logs = append(slices.Clone(m.logs), fmt.Sprintf("[%s] %s",
		time.Now().Format("15:04:05"), msg.Message))
	if len(m.logs) > 10 {
		m.logs = m.logs[len(m.logs)-10:]
	}
	return m
}

// Done reports whether every watched task reached a terminal state.
func (m Model) Done() bool {
	if len(m.taskIDs) == 0 {
		return false
	}
	for _, id := range m.taskIDs {
		if status, ok := m.taskStatuses[id]; !ok || !status.State.IsTerminal() {
			return false
		}
	}
	return true
}

func (m Model) View() string {
	if m.quit {
		return "Shutting down...\n"
	}

	var s strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		MarginBottom(1)

	s.WriteString(headerStyle.Render("🏫 Room Finder Monitor"))
	s.WriteString("\n\n")

	summaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))

	active := len(m.taskIDs) - m.successCount - m.errorCount
	summary := fmt.Sprintf("Tasks: %d | ✅ Completed: %d | ❌ Failed: %d | ⏳ Active: %d",
		len(m.taskIDs), m.successCount, m.errorCount, active)
	s.WriteString(summaryStyle.Render(summary))
	s.WriteString("\n\n")

	taskSectionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1).
		Width(m.width - 2)

	var taskStatus strings.Builder
	taskStatus.WriteString("📊 Scrape Tasks\n")
	taskStatus.WriteString(strings.Repeat("─", 60) + "\n")

	for _, id := range m.taskIDs {
		status, exists := m.taskStatuses[id]
		if !exists {
			continue
		}

		line := fmt.Sprintf("%s %-12s %-10s",
			getStateIcon(status.State),
			truncate(id, 12),
			status.State)

		if !status.State.IsTerminal() {
			line += fmt.Sprintf(" %s %s", m.spinner.View(), m.progress.ViewAs(stateProgress(status.State)))
		} else if !status.StartTime.IsZero() && !status.CompletedTime.IsZero() {
			line += fmt.Sprintf(" in %v", status.CompletedTime.Sub(status.StartTime).Round(time.Second))
		}

		if status.Error != nil {
			errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
			line += " " + errorStyle.Render(fmt.Sprintf("%s: %s", status.Error.Kind, status.Error.Message))
		} else if status.Result != nil {
			messageStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
			line += " " + messageStyle.Render(fmt.Sprintf("%d rooms", len(*status.Result)))
		}

		stateStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(getStateColor(status.State)))
		taskStatus.WriteString(stateStyle.Render(line) + "\n")
	}

	s.WriteString(taskSectionStyle.Render(taskStatus.String()))
	s.WriteString("\n\n")

	for _, id := range m.taskIDs {
		status, exists := m.taskStatuses[id]
		if !exists || status.Result == nil || len(*status.Result) == 0 {
			continue
		}
		s.WriteString(RenderResult(*status.Result))
		s.WriteString("\n")
	}

	logSectionStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(m.width - 2).
		Height(8)

	var logSection strings.Builder
	logSection.WriteString("📝 Recent Logs\n")
	for _, log := range m.logs {
		logSection.WriteString(log + "\n")
	}

	s.WriteString(logSectionStyle.Render(logSection.String()))
	s.WriteString("\n\n")

	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	footer := "Press 'q' to quit | Logs: logs/roomfinder_*.log"
	s.WriteString(footerStyle.Render(footer))

	return s.String()
}

var (
	availableCell = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("82"))
	takenCell     = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("196"))
	roomStyle     = lipgloss.NewStyle().Bold(true).Width(14)
)

// RenderResult draws one row per room, each slot as a coloured cell labelled
// with its start time. Rooms are sorted by name.
func RenderResult(result dto.ResultResponse) string {
	rooms := make([]string, 0, len(result))
	for room := range result {
		rooms = append(rooms, room)
	}
	slices.Sort(rooms)

	var s strings.Builder
	for _, room := range rooms {
		s.WriteString(roomStyle.Render(truncate(room, 14)))
		for _, slot := range result[room].Timeslots {
			start, _, _ := strings.Cut(slot.Time, "-")
			cell := takenCell
			if slot.Available {
				cell = availableCell
			}
			s.WriteString(" " + cell.Render(" "+start+" "))
		}
		s.WriteString("\n")
	}

	legend := fmt.Sprintf("%s available  %s taken",
		availableCell.Render("  "), takenCell.Render("  "))
	s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(legend))
	s.WriteString("\n")
	return s.String()
}

func stateProgress(state models.TaskState) float64 {
	switch state {
	case models.TaskStatePending:
		return 0.1
	case models.TaskStateRunning:
		return 0.5
	default:
		return 1.0
	}
}

func getStateIcon(state models.TaskState) string {
	switch state {
	case models.TaskStatePending:
		return "⏸"
	case models.TaskStateRunning:
		return "🔄"
	case models.TaskStateCompleted:
		return "✅"
	case models.TaskStateFailed:
		return "❌"
	default:
		return "❓"
	}
}

func getStateColor(state models.TaskState) string {
	switch state {
	case models.TaskStatePending:
		return "244"
	case models.TaskStateCompleted:
		return "82"
	case models.TaskStateFailed:
		return "196"
	default:
		return "39"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
