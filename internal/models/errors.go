package models

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	// ErrTransientStorage marks failures that are safe to retry
	ErrTransientStorage = errors.New("transient storage failure")
)
