package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidRecord = errors.New("invalid record")
	ErrConflict      = errors.New("conflict")
)
