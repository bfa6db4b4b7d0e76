package formact

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for submission handling.
var (
	ErrUnsupportedContentType = errors.New("formact: unsupported content type")
	ErrInvalidForm            = errors.New("formact: invalid form data")
	ErrBodyTooLarge           = errors.New("formact: request body too large")
	ErrNilHandler             = errors.New("formact: nil handler")
)

// Statuses used when a signal carries a code net/http cannot send.
const (
	DefaultRejectStatus   = http.StatusUnprocessableEntity
	DefaultRedirectStatus = http.StatusSeeOther
)

func validStatus(code int) bool {
	return code >= 100 && code <= 999
}

// RejectError is the signal a handler returns to reject a submission.
//
// The submission is reported as a reject result carrying Data as its error
// payload, and the response status is set to Status.
type RejectError struct {
	Status int
	Data   map[string]any
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("formact: submission rejected with status %d", e.StatusCode())
}

// StatusCode returns Status, or DefaultRejectStatus when Status is not a
// valid HTTP status code.
func (e *RejectError) StatusCode() int {
	if validStatus(e.Status) {
		return e.Status
	}
	return DefaultRejectStatus
}

// RedirectError is the signal a handler returns to redirect after a submission.
type RedirectError struct {
	Status   int
	Location string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("formact: redirect %d to %q", e.StatusCode(), e.Location)
}

// StatusCode returns Status, or DefaultRedirectStatus when Status is not a
// valid HTTP status code.
func (e *RedirectError) StatusCode() int {
	if validStatus(e.Status) {
		return e.Status
	}
	return DefaultRedirectStatus
}

// Reject creates a reject signal. Return it from a handler to short-circuit
// with a validation or business failure:
//
//	if !valid {
//	    return Out{}, formact.Reject(http.StatusUnprocessableEntity, map[string]any{
//	        "message": "Invalid username or password",
//	    })
//	}
//
// A nil data map is reported as an empty payload, and an invalid status
// (such as 0) becomes DefaultRejectStatus.
func Reject(status int, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	if !validStatus(status) {
		status = DefaultRejectStatus
	}
	return &RejectError{Status: status, Data: data}
}

// Redirect creates a redirect signal:
//
//	return Out{}, formact.Redirect(http.StatusSeeOther, "/home")
//
// An invalid status becomes DefaultRedirectStatus.
func Redirect(status int, location string) error {
	if !validStatus(status) {
		status = DefaultRedirectStatus
	}
	return &RedirectError{Status: status, Location: location}
}

// RejectWithMessage is shorthand for a reject carrying {"message": msg}.
func RejectWithMessage(status int, msg string) error {
	return Reject(status, map[string]any{"message": msg})
}

// SeeOther is shorthand for a 303 redirect, the usual answer to a POST.
func SeeOther(location string) error {
	return Redirect(http.StatusSeeOther, location)
}

// AsReject extracts a reject signal from err, following wrapped errors.
func AsReject(err error) (*RejectError, bool) {
	var rej *RejectError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// AsRedirect extracts a redirect signal from err, following wrapped errors.
func AsRedirect(err error) (*RedirectError, bool) {
	var red *RedirectError
	if errors.As(err, &red) {
		return red, true
	}
	return nil, false
}

// IsSignal reports whether err is a reject or redirect signal.
func IsSignal(err error) bool {
	_, rej := AsReject(err)
	_, red := AsRedirect(err)
	return rej || red
}
