// Package apperr defines the error kinds surfaced by the campaign pipeline
// and their mapping onto HTTP status classes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and transports
type Kind string

const (
	KindNoProviderConfigured  Kind = "no_provider_configured"
	KindInvalidInput          Kind = "invalid_input"
	KindInvalidState          Kind = "invalid_state"
	KindProviderNotConfigured Kind = "provider_not_configured"
	KindNotFound              Kind = "not_found"
	KindUpstreamFailure       Kind = "upstream_failure"
)

// Error carries a Kind, a user-facing message and an optional cause
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

// Sentinels for errors.Is comparisons
var (
	ErrNoProviderConfigured  = &Error{Kind: KindNoProviderConfigured}
	ErrInvalidInput          = &Error{Kind: KindInvalidInput}
	ErrInvalidState          = &Error{Kind: KindInvalidState}
	ErrProviderNotConfigured = &Error{Kind: KindProviderNotConfigured}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrUpstreamFailure       = &Error{Kind: KindUpstreamFailure}
)

func NoProviderConfigured(format string, args ...any) error {
	return &Error{Kind: KindNoProviderConfigured, Msg: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func ProviderNotConfigured(format string, args ...any) error {
	return &Error{Kind: KindProviderNotConfigured, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Upstream wraps a collaborator failure
func Upstream(err error, format string, args ...any) error {
	return &Error{Kind: KindUpstreamFailure, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error onto a response status code
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNoProviderConfigured, KindInvalidInput, KindInvalidState, KindProviderNotConfigured:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
