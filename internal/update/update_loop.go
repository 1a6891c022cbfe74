package update

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"remindd/internal/model"
	"remindd/internal/storage"
	"remindd/internal/views"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadTasksCmd(), m.refreshTickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}
		if m.captureMode {
			return m.handleQuickAddKey(typed)
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.SetValue("")
			m.commandInput.Focus()
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.Add:
			m.captureMode = true
			m.quickAddInput.SetValue("")
			m.quickAddInput.Focus()
			return m, nil
		case m.Keys.Upcoming:
			m.Filter = FilterUpcoming
			return m, m.loadTasksCmd()
		case m.Keys.All:
			m.Filter = FilterAll
			return m, m.loadTasksCmd()
		case m.Keys.Done:
			m.Filter = FilterDone
			return m, m.loadTasksCmd()
		case m.Keys.Refresh:
			m.loading = true
			return m, tea.Batch(m.loadSpinner.Tick, m.loadTasksCmd())
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			return m, nil
		case "j", "down":
			m.Cursor++
			m.syncSelection()
			return m, nil
		case "k", "up":
			m.Cursor--
			m.syncSelection()
			return m, nil
		case "enter", " ":
			if task := m.selectedTask(); task != nil && !task.Completed {
				return m, m.completeCmd(task.ID)
			}
			return m, nil
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.loadSpinner, cmd = m.loadSpinner.Update(typed)
			return m, cmd
		}
		return m, nil

	case tasksLoadedMsg:
		m.loading = false
		m.Tasks = typed.Tasks
		m.syncSelection()
		return m, nil

	case commandResultMsg:
		m.Status = StatusBar{Text: typed.Message}
		return m, m.loadTasksCmd()

	case appErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil

	case refreshTickMsg:
		return m, tea.Batch(m.loadTasksCmd(), m.refreshTickCmd())
	}

	return m, nil
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}
	if m.loading {
		status = m.loadSpinner.View() + " loading " + status
	}

	rightPane := ""
	switch {
	case m.Palette.Active:
		rightPane = views.RenderCommandPalette(true, m.Palette.Input)
	case m.HelpVisible:
		rightPane = renderHelp()
	default:
		rightPane = m.renderDetailPane()
	}

	return views.RenderApp(views.AppData{
		Header:     fmt.Sprintf("remindd | filter: %s | selected: %s", m.Filter, m.SelectedTaskID),
		LeftPane:   m.renderTaskPanel(),
		RightPane:  rightPane,
		StatusLine: status,
		Footer: fmt.Sprintf("keys: %s upcoming | %s all | %s done | %s add | / cmd | %s help | %s quit",
			m.Keys.Upcoming, m.Keys.All, m.Keys.Done, m.Keys.Add, m.Keys.Help, m.Keys.Quit),
	})
}

func (m Model) renderTaskPanel() string {
	items := make([]views.TaskItemData, 0, len(m.Tasks))
	now := m.now()
	for _, task := range m.Tasks {
		items = append(items, views.TaskItemData{
			ID:        task.ID,
			Title:     task.Title,
			Bucket:    bucketFor(task, now),
			DueAt:     dueLabel(task.DueAt),
			Pattern:   string(task.Pattern),
			Tags:      task.Tags,
			Completed: task.Completed,
		})
	}
	return views.RenderTaskPanel(views.TaskPanelData{
		Filter:       string(m.Filter),
		QuickAddView: m.quickAddInput.View(),
		CaptureMode:  m.captureMode,
		Items:        items,
		SelectedID:   m.SelectedTaskID,
	})
}

func (m Model) renderDetailPane() string {
	task := m.selectedTask()
	if task == nil {
		return views.RenderDetailPane(views.DetailPaneData{})
	}
	return views.RenderDetailPane(views.DetailPaneData{
		SelectedID:   task.ID,
		Title:        task.Title,
		DueAt:        dueLabel(task.DueAt),
		Pattern:      string(task.Pattern),
		ParentTaskID: task.ParentTaskID,
		ReminderSent: task.ReminderSent,
		Tags:         task.Tags,
	})
}

func (m Model) loadTasksCmd() tea.Cmd {
	repo := m.repo
	filter := m.Filter
	now := m.now()
	return func() tea.Msg {
		listFilter := storage.TaskListFilter{}
		completed := false
		done := true
		switch filter {
		case FilterDone:
			listFilter.Completed = &done
		default:
			listFilter.Completed = &completed
		}
		tasks, err := repo.ListTasks(context.Background(), listFilter)
		if err != nil {
			return appErrorMsg{Err: err}
		}
		if filter == FilterUpcoming {
			kept := tasks[:0]
			for _, task := range tasks {
				if task.DueAt != nil {
					kept = append(kept, task)
				}
			}
			tasks = kept
		}
		sortTasks(tasks, now)
		return tasksLoadedMsg{Tasks: tasks}
	}
}

func (m Model) completeCmd(id string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		res, err := svc.Run(context.Background(), "done "+id)
		if err != nil {
			return appErrorMsg{Err: err}
		}
		return commandResultMsg{Message: res.Message}
	}
}

func (m Model) refreshTickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

// sortTasks orders by due date ascending with unscheduled tasks last.
func sortTasks(tasks []model.Task, now time.Time) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueAt, tasks[j].DueAt
		switch {
		case a == nil && b == nil:
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

func bucketFor(task model.Task, now time.Time) string {
	if task.DueAt == nil || task.Completed {
		return "Later"
	}
	if task.DueAt.Before(now) {
		return "Overdue"
	}
	if task.DueAt.Sub(now) <= 24*time.Hour {
		return "DueSoon"
	}
	return "Later"
}

func dueLabel(due *time.Time) string {
	if due == nil {
		return ""
	}
	return due.UTC().Format("Jan 2 15:04")
}
