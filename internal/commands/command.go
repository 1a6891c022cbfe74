// Package commands parses the slash-command grammar shared by the TUI
// palette and the -c one-shot mode, and dispatches parsed commands to
// configured handlers.
package commands

import (
	"fmt"
	"strings"

	"remindd/internal/model"
)

type Type string

const (
	TypeAdd        Type = "add"
	TypeDone       Type = "done"
	TypeShow       Type = "show"
	TypeReschedule Type = "reschedule"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AddArgs carries a new task request. When holds the trailing "by ..."
// due phrase verbatim for the date parser; Every is set when the title
// ends with "every daily|weekly|monthly".
type AddArgs struct {
	Title string
	When  string
	Every model.Pattern
}

type DoneArgs struct {
	Target string
}

type ShowArgs struct {
	Subject string
	Tag     string
}

type RescheduleArgs struct {
	Target string
	When   string
}

type Command struct {
	Type       Type
	Raw        string
	Add        *AddArgs
	Done       *DoneArgs
	Show       *ShowArgs
	Reschedule *RescheduleArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeDone:
		return parseDone(input, args)
	case TypeShow:
		return parseShow(input, args)
	case TypeReschedule:
		return parseReschedule(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title"}
	}
	rest := strings.TrimSpace(strings.Join(args, " "))

	add := AddArgs{}
	if title, pattern, ok := splitEvery(rest); ok {
		add.Every = pattern
		rest = title
	}
	if title, when, ok := splitBy(rest); ok {
		add.When = when
		rest = title
	}
	add.Title = strings.TrimSpace(rest)
	if add.Title == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title"}
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &add}, nil
}

// splitEvery strips a trailing "every <pattern>" clause. An "every" with
// an unrecognised pattern is left in the title untouched.
func splitEvery(text string) (string, model.Pattern, bool) {
	idx := strings.LastIndex(strings.ToLower(text), " every ")
	if idx < 0 {
		return text, "", false
	}
	pattern, err := model.ParsePattern(strings.TrimSpace(text[idx+len(" every "):]))
	if err != nil {
		return text, "", false
	}
	return strings.TrimSpace(text[:idx]), pattern, true
}

func splitBy(text string) (string, string, bool) {
	idx := strings.LastIndex(strings.ToLower(text), " by ")
	if idx < 0 {
		return text, "", false
	}
	when := strings.TrimSpace(text[idx+len(" by "):])
	if when == "" {
		return text, "", false
	}
	return strings.TrimSpace(text[:idx]), when, true
}

func parseDone(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "done requires a task id"}
	}
	return Command{Type: TypeDone, Raw: raw, Done: &DoneArgs{Target: args[0]}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "show requires a subject"}
	}
	subject := strings.ToLower(args[0])
	tag := ""
	for _, arg := range args[1:] {
		if strings.HasPrefix(strings.ToLower(arg), "tag:") {
			tag = strings.TrimSpace(strings.TrimPrefix(arg, "tag:"))
		}
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject, Tag: tag}}, nil
}

func parseReschedule(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "reschedule requires a task id and a time"}
	}
	return Command{Type: TypeReschedule, Raw: raw, Reschedule: &RescheduleArgs{Target: args[0], When: strings.Join(args[1:], " ")}}, nil
}
