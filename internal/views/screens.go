package views

import (
	"fmt"
	"strings"
)

type TaskItemData struct {
	ID        string
	Title     string
	Bucket    string
	DueAt     string
	Pattern   string
	Tags      []string
	Completed bool
}

type TaskPanelData struct {
	Filter       string
	QuickAddView string
	CaptureMode  bool
	Items        []TaskItemData
	SelectedID   string
}

type DetailPaneData struct {
	SelectedID   string
	Title        string
	DueAt        string
	Pattern      string
	ParentTaskID string
	ReminderSent bool
	Tags         []string
}

func RenderTaskPanel(data TaskPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("tasks (%s):\n", data.Filter))
	if data.CaptureMode {
		b.WriteString(data.QuickAddView + "\n")
		b.WriteString("quick-add: \"title by <when> every <pattern>\" | [enter]save [esc]cancel\n")
	} else {
		b.WriteString("actions: [j/k]move [enter]done [a]add [r]refresh\n")
	}

	overdue := make([]TaskItemData, 0)
	dueSoon := make([]TaskItemData, 0)
	later := make([]TaskItemData, 0)
	for _, item := range data.Items {
		switch item.Bucket {
		case "Overdue":
			overdue = append(overdue, item)
		case "DueSoon":
			dueSoon = append(dueSoon, item)
		default:
			later = append(later, item)
		}
	}
	renderTaskSection(&b, "Overdue", overdue, data.SelectedID)
	renderTaskSection(&b, "Due soon", dueSoon, data.SelectedID)
	renderTaskSection(&b, "Later", later, data.SelectedID)
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderDetailPane(data DetailPaneData) string {
	if strings.TrimSpace(data.SelectedID) == "" {
		return "details:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString("details:\n")
	b.WriteString(fmt.Sprintf("id: %s\n", data.SelectedID))
	b.WriteString(fmt.Sprintf("title: %s\n", data.Title))
	if data.DueAt != "" {
		b.WriteString(fmt.Sprintf("due: %s\n", data.DueAt))
	}
	if data.Pattern != "" {
		b.WriteString(fmt.Sprintf("repeats: %s\n", data.Pattern))
	}
	if data.ParentTaskID != "" {
		b.WriteString(fmt.Sprintf("spawned-from: %s\n", data.ParentTaskID))
	}
	if data.ReminderSent {
		b.WriteString("reminder: sent\n")
	}
	if len(data.Tags) > 0 {
		b.WriteString(fmt.Sprintf("tags: %s\n", strings.Join(data.Tags, ",")))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderTaskSection(b *strings.Builder, title string, items []TaskItemData, selectedID string) {
	b.WriteString(fmt.Sprintf("\n%s:\n", title))
	if len(items) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, item := range items {
		cursor := " "
		if selectedID == item.ID {
			cursor = ">"
		}
		check := "[ ]"
		if item.Completed {
			check = "[x]"
		}
		b.WriteString(fmt.Sprintf("%s %s %s %s", cursor, urgencyBadge(item), check, item.Title))
		if item.DueAt != "" {
			b.WriteString(fmt.Sprintf(" due:%s", item.DueAt))
		}
		if item.Pattern != "" {
			b.WriteString(fmt.Sprintf(" [%s]", item.Pattern))
		}
		if len(item.Tags) > 0 {
			b.WriteString(" #" + strings.Join(item.Tags, " #"))
		}
		b.WriteString("\n")
	}
}

func urgencyBadge(item TaskItemData) string {
	switch item.Bucket {
	case "Overdue":
		return "[RED]"
	case "DueSoon":
		return "[YELLOW]"
	default:
		return "[GREEN]"
	}
}
