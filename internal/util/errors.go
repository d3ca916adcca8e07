package util

import "errors"

var (
	ErrFormNotFound          = errors.New("diagnostic form not found")
	ErrFormNotValidated      = errors.New("diagnostic form failed validation")
	ErrSessionNotFound       = errors.New("session not found")
	ErrResultNotFound        = errors.New("result not found")
	ErrMisconceptionNotFound = errors.New("misconception not found")
)
