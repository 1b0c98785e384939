package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidStudent    = errors.New("invalid student record")
	ErrInvalidUniversity = errors.New("invalid university")
	ErrDuplicateStudent  = errors.New("student already registered")
	ErrAlreadyPlaced     = errors.New("student already on a team")
	ErrInvalidTeam       = errors.New("invalid team")
)
