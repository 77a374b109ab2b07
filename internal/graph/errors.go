package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by Build. All are fatal to a scheduling run.
var (
	ErrInvalidTaskData   = errors.New("invalid task data")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrCyclicDependency  = errors.New("cyclic dependency")
)

// Error describes a graph construction failure. It unwraps to its Kind so
// callers can match with errors.Is.
type Error struct {
	Kind   error
	TaskID string
	Msg    string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.TaskID != "" {
		fmt.Fprintf(&b, " (task %q)", e.TaskID)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

func invalidf(taskID, format string, args ...any) error {
	return &Error{Kind: ErrInvalidTaskData, TaskID: taskID, Msg: fmt.Sprintf(format, args...)}
}

func unknownDep(taskID, dep string) error {
	return &Error{Kind: ErrUnknownDependency, TaskID: taskID, Msg: fmt.Sprintf("dependency %q not found", dep)}
}

func cycleError(path []string) error {
	msg := ""
	if len(path) > 0 {
		msg = strings.Join(path, " -> ")
	}
	return &Error{Kind: ErrCyclicDependency, Msg: msg}
}
