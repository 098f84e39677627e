package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound          = errors.New("domain: not found")
	ErrConflict          = errors.New("domain: conflict")
	ErrValidation        = errors.New("domain: validation failed")
	ErrForbiddenCommand  = errors.New("domain: forbidden command")
	ErrApprovalRequired  = errors.New("domain: approval required")
	ErrRateLimited       = errors.New("domain: rate limited")
	ErrCircuitOpen       = errors.New("domain: circuit open")
	ErrInvalidTransition = errors.New("domain: invalid state transition")
)
