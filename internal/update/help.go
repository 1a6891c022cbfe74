package update

import "remindd/internal/views"

const helpMarkdown = `# remindd

## Navigation
- **1 / 2 / 3** switch between upcoming, all, and done
- **j / k** move the cursor
- **enter** complete the selected task

## Capture
- **a** quick-add a task, e.g. ` + "`pay rent by friday at 5:00pm`" + `
- append ` + "`every daily|weekly|monthly`" + ` to make it recurring

## Commands
Open the palette with **/** and run:
- ` + "`add <title> [by <when>] [every <pattern>]`" + `
- ` + "`done <id>`" + `
- ` + "`show today|all|done [tag:x]`" + `
- ` + "`reschedule <id> <when>`" + `

Due phrases: today, tomorrow, 3d, 2w, friday, march 15, 2025-06-01,
optionally with ` + "`at 5:00pm`" + `.
`

func renderHelp() string {
	return views.RenderMarkdown(helpMarkdown)
}
