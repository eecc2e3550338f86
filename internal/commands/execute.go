package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Generate func() (Result, error)
	Sync     func() (Result, error)
	Shift    func(ShiftArgs) (Result, error)
	Complete func(CompleteArgs) (Result, error)
	Add      func(AddArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeGenerate:
		if handlers.Generate == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "generate handler not configured"}
		}
		return handlers.Generate()
	case TypeSync:
		if handlers.Sync == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "sync handler not configured"}
		}
		return handlers.Sync()
	case TypeNext, TypePrev:
		if handlers.Shift == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "shift handler not configured"}
		}
		return handlers.Shift(*cmd.Shift)
	case TypeComplete:
		if handlers.Complete == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "complete handler not configured"}
		}
		return handlers.Complete(*cmd.Complete)
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "add handler not configured"}
		}
		return handlers.Add(*cmd.Add)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
