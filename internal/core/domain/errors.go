package domain

import (
	"errors"
	"fmt"
)

var ErrUnauthorized = errors.New("unauthorized")
var ErrNetwork = errors.New("network error: unable to reach the server")
var ErrSessionBusy = errors.New("session operation already in progress")
var ErrSessionSuperseded = errors.New("session changed while the request was in flight")
var ErrProfileRequired = errors.New("an authenticated session requires a user profile")
var ErrTranscriptionFailed = errors.New("Transcription failed")

// ValidationError is a local, pre-network rejection of user input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// ServerError is a non-401 error status returned by the remote service.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// Message returns the text a user should see for err, falling back to
// fallback for errors outside the known taxonomy.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.Message
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrNetwork):
		return "Network error: Unable to reach the server"
	case errors.Is(err, ErrTranscriptionFailed):
		return ErrTranscriptionFailed.Error()
	case errors.Is(err, ErrSessionBusy):
		return "Please wait for the current request to finish."
	}
	return fallback
}
