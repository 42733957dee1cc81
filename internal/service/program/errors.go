package program

import (
	"errors"
	"fmt"
)

var (
	ErrMissingEntryPoint = errors.New("strategy missing required " + EntryPoint + " function")
	ErrTickTimeout       = errors.New("tick timeout")
	ErrClosed            = errors.New("program closed")
)

// CompileError means the source could not be loaded or has no entry point.
type CompileError struct {
	Name  string
	Cause error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Name, e.Cause)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

// RuntimeError is an exception raised by user code during one invocation.
type RuntimeError struct {
	Name  string
	Cause error
}

func (e *RuntimeError) Error() string {
	return e.Cause.Error()
}

func (e *RuntimeError) Unwrap() error {
	return e.Cause
}
