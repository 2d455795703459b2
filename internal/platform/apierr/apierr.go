// Package apierr carries an HTTP status and a stable error code from services to handlers.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a service failure the HTTP layer can surface as-is.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	case e.Status != 0:
		return fmt.Sprintf("api error (%d)", e.Status)
	default:
		return "api error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// BadRequest is a 400 whose message is msg.
func BadRequest(code, msg string) *Error {
	return New(http.StatusBadRequest, code, errors.New(msg))
}

// NotFound is a 404 wrapping err.
func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, code, err)
}

// As finds the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}
