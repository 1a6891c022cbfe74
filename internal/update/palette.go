package update

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Palette = CommandPaletteState{}
		m.commandInput.Blur()
		m.commandInput.SetValue("")
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		line := strings.TrimSpace(m.commandInput.Value())
		m.Palette = CommandPaletteState{}
		m.commandInput.Blur()
		m.commandInput.SetValue("")
		if line == "" {
			return m, nil
		}
		return m, m.runCommandCmd(line)
	case "ctrl+c":
		m.Quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, cmd
}
