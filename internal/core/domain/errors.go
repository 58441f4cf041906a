package domain

import "errors"

var (
	ErrUnknownCategory    = errors.New("unknown category")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrRefillOverflow     = errors.New("refill overflow")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAlreadyExists      = errors.New("already exists")
	ErrStorageFailure     = errors.New("storage failure")
	ErrNotInitialized     = errors.New("machine not initialized")
	ErrAlreadyInitialized = errors.New("machine already initialized")
	ErrInvalidPrincipal   = errors.New("invalid principal")
	ErrInvalidMessage     = errors.New("invalid message")
	ErrUnsupportedCommand = errors.New("unsupported command")
)
