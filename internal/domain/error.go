package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownOption   = errors.New("unknown settings option")
	ErrNotOwner        = errors.New("callback does not belong to this user")
	ErrSessionClosed   = errors.New("conversation manager is shut down")
	ErrMessageGone     = errors.New("message is no longer available")
)

// ValidationError is a user-supplied value that failed a business rule.
// Msg is shown to the user as is.
type ValidationError struct {
	Option string
	Msg    string
}

func (e *ValidationError) Error() string {
	return e.Option + ": " + e.Msg
}

func NewValidationError(option, msg string) error {
	return &ValidationError{Option: option, Msg: msg}
}

// AsValidation reports whether err is a ValidationError and returns it.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
