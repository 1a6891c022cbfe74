package update

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handleQuickAddKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.captureMode = false
		m.quickAddInput.Blur()
		m.quickAddInput.SetValue("")
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.quickAddInput.Value())
		m.captureMode = false
		m.quickAddInput.Blur()
		m.quickAddInput.SetValue("")
		if text == "" {
			return m, nil
		}
		return m, m.runCommandCmd("add " + text)
	case "ctrl+c":
		m.Quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.quickAddInput, cmd = m.quickAddInput.Update(msg)
	return m, cmd
}

func (m Model) runCommandCmd(line string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		res, err := svc.Run(context.Background(), line)
		if err != nil {
			return appErrorMsg{Err: err}
		}
		return commandResultMsg{Message: res.Message}
	}
}
