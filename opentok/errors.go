package opentok

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tidwall/gjson"
)

// maxErrorBody limits how much of a failed response is kept in the error message
const maxErrorBody = 4096

// ValidationError reports malformed input. It is returned before any request is sent, or
// when the remote service rejects the request body with 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "opentok: invalid input: " + e.Reason
	}
	return fmt.Sprintf("opentok: invalid %s: %s", e.Field, e.Reason)
}

// AuthError is returned when the remote service rejects the project credentials
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("opentok: authentication failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// ForceDisconnectError is returned when the remote service rejects the session or connection
// targeted by a disconnect or a signal
type ForceDisconnectError struct {
	StatusCode int
	Message    string
}

func (e *ForceDisconnectError) Error() string {
	return fmt.Sprintf("opentok: target rejected (HTTP %d): %s", e.StatusCode, e.Message)
}

// ServiceError covers every other non-2xx response
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("opentok: service returned HTTP %d: %s", e.StatusCode, e.Message)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// fromValidation turns ozzo-validation errors into a ValidationError. The first failing field
// in alphabetical order is reported so the message is stable.
func fromValidation(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, k)
		}
		first := keys[0]
		for _, k := range keys[1:] {
			if k < first {
				first = k
			}
		}
		return invalid(first, errs[first].Error())
	}
	var inner validation.Error
	if errors.As(err, &inner) {
		return invalid("", inner.Error())
	}
	return invalid("", err.Error())
}

// target tells checkResponse which kind of call produced the response, since 400 and 404 mean
// different things per endpoint
type target int

const (
	targetGeneric target = iota
	targetSignal
	targetDisconnect
)

// checkResponse maps a non-2xx response onto the error taxonomy
func checkResponse(res *http.Response, t target) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	msg := readErrorMessage(res)

	switch res.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{StatusCode: res.StatusCode, Message: msg}
	case http.StatusBadRequest:
		if t == targetDisconnect {
			return &ForceDisconnectError{StatusCode: res.StatusCode, Message: msg}
		}
		return &ValidationError{Reason: fmt.Sprintf("rejected by service: %s", msg)}
	case http.StatusNotFound:
		if t == targetSignal || t == targetDisconnect {
			return &ForceDisconnectError{StatusCode: res.StatusCode, Message: msg}
		}
	}
	return &ServiceError{StatusCode: res.StatusCode, Message: msg}
}

// readErrorMessage prefers the "message" field of a JSON error body and falls back to the
// raw body or the status text
func readErrorMessage(res *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return http.StatusText(res.StatusCode)
	}
	if gjson.ValidBytes(body) {
		if m := gjson.GetBytes(body, "message"); m.Exists() {
			return m.String()
		}
	}
	return strings.TrimSpace(string(body))
}
