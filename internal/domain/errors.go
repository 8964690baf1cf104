package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyHolding = errors.New("user already holds a seat")
	ErrUnauthorized   = errors.New("not the current holder")
	ErrInvalidInput   = errors.New("invalid input")
)
