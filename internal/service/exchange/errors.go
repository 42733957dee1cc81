package exchange

import (
	"errors"
	"fmt"
)

var ErrExchange = errors.New("exchange error")

// Error normalizes client library failures. Code carries the venue error
// code when one is known.
type Error struct {
	Op     string
	Symbol string
	Code   int64
	Cause  error
}

func (e *Error) Error() string {
	msg := "exchange " + e.Op
	if e.Symbol != "" {
		msg += " " + e.Symbol
	}
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	return target == ErrExchange
}

func Wrap(op, symbol string, err error) error {
	if err == nil {
		return nil
	}
	var exErr *Error
	if errors.As(err, &exErr) {
		return err
	}
	return &Error{Op: op, Symbol: symbol, Cause: err}
}
