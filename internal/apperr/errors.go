package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	ErrInvalidCard    = errors.New("invalid card")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotInitialized = errors.New("card not initialized")
	ErrNotCreated     = errors.New("card not created")
)
