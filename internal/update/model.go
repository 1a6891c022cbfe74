// Package update holds the terminal UI: a bubbletea model over the task
// store with quick-add capture, a command palette, and a periodic
// refresh so reminder-driven changes show up without keypresses.
package update

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"remindd/internal/commands"
	"remindd/internal/model"
	"remindd/internal/storage"
)

type Filter string

const (
	FilterUpcoming Filter = "upcoming"
	FilterAll      Filter = "all"
	FilterDone     Filter = "done"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Upcoming string
	All      string
	Done     string
	Add      string
	Refresh  string
	Help     string
	Quit     string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Model struct {
	Filter         Filter
	Tasks          []model.Task
	Cursor         int
	SelectedTaskID string
	Palette        CommandPaletteState
	HelpVisible    bool
	Status         StatusBar
	Keys           GlobalKeyMap
	Quitting       bool
	LastError      error

	svc     *commands.Service
	repo    storage.Repository
	now     func() time.Time
	refresh time.Duration

	captureMode   bool
	quickAddInput textinput.Model
	commandInput  textinput.Model
	loadSpinner   spinner.Model
	loading       bool
}

type tasksLoadedMsg struct {
	Tasks []model.Task
}

type commandResultMsg struct {
	Message string
}

type appErrorMsg struct {
	Err error
}

type refreshTickMsg struct{}

func New(svc *commands.Service, repo storage.Repository) Model {
	quickAdd := textinput.New()
	quickAdd.Placeholder = "water plants by tomorrow every weekly"
	quickAdd.CharLimit = 200
	quickAdd.Width = 48

	command := textinput.New()
	command.Placeholder = "add | done | show | reschedule"
	command.CharLimit = 200
	command.Width = 48

	load := spinner.New()
	load.Spinner = spinner.Dot

	return Model{
		Filter: FilterUpcoming,
		Keys: GlobalKeyMap{
			Upcoming: "1",
			All:      "2",
			Done:     "3",
			Add:      "a",
			Refresh:  "r",
			Help:     "?",
			Quit:     "q",
		},
		svc:           svc,
		repo:          repo,
		now:           func() time.Time { return time.Now().UTC() },
		refresh:       30 * time.Second,
		quickAddInput: quickAdd,
		commandInput:  command,
		loadSpinner:   load,
	}
}

func (m Model) withClock(now func() time.Time) Model {
	m.now = now
	return m
}

func (m *Model) selectedTask() *model.Task {
	if m.Cursor < 0 || m.Cursor >= len(m.Tasks) {
		return nil
	}
	return &m.Tasks[m.Cursor]
}

func (m *Model) syncSelection() {
	m.Cursor = clamp(m.Cursor, 0, len(m.Tasks)-1)
	if task := m.selectedTask(); task != nil {
		m.SelectedTaskID = task.ID
	} else {
		m.SelectedTaskID = ""
	}
}
