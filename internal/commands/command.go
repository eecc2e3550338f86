package commands

import (
	"fmt"
	"strconv"
	"strings"
)

type Type string

const (
	TypeGenerate Type = "generate"
	TypeSync     Type = "sync"
	TypeNext     Type = "next"
	TypePrev     Type = "prev"
	TypeComplete Type = "complete"
	TypeAdd      Type = "add"
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

// ShiftArgs moves the agenda window by Windows window lengths.
type ShiftArgs struct {
	Windows int
}

type CompleteArgs struct {
	Target string
}

type AddArgs struct {
	Minutes int
	Content string
}

type Command struct {
	Type     Type
	Raw      string
	Shift    *ShiftArgs
	Complete *CompleteArgs
	Add      *AddArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, ":") {
		raw = strings.TrimSpace(raw[1:])
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeGenerate, TypeSync:
		if len(args) > 0 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s takes no arguments", head)}
		}
		return Command{Type: Type(head), Raw: input}, nil
	case TypeNext, TypePrev:
		return parseShift(input, Type(head), args)
	case TypeComplete:
		return parseComplete(input, args)
	case TypeAdd:
		return parseAdd(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseShift(raw string, typ Type, args []string) (Command, error) {
	n := 1
	if len(args) > 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s takes at most one count", typ)}
	}
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s count must be a positive integer", typ)}
		}
		n = v
	}
	if typ == TypePrev {
		n = -n
	}
	return Command{Type: typ, Raw: raw, Shift: &ShiftArgs{Windows: n}}, nil
}

func parseComplete(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "complete requires a scheduled task id prefix"}
	}
	return Command{Type: TypeComplete, Raw: raw, Complete: &CompleteArgs{Target: strings.ToLower(args[0])}}, nil
}

func parseAdd(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires minutes and content"}
	}
	minutes, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(args[0]), "m"))
	if err != nil || minutes <= 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add duration must be a positive number of minutes"}
	}
	content := strings.TrimSpace(strings.Join(args[1:], " "))
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Minutes: minutes, Content: content}}, nil
}
