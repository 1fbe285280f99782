package domain

import "errors"

var (
	// ErrNotFound is returned for missing rows and for rows outside the caller's project.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
)
