package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrAuthRequired         = errors.New("authentication required")
	ErrValidation           = errors.New("validation failed")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrRemote               = errors.New("remote persistence failure")
	ErrAIFailure            = errors.New("ai provider failure")
	ErrBusy                 = errors.New("operation already in progress")
	ErrConfirmationRequired = errors.New("confirmation required")
)
