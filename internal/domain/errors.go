package domain

import "errors"

var (
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrDuplicatePin   = errors.New("duplicate pin")
	ErrNotFound       = errors.New("not found")
	ErrNoRowsAffected = errors.New("no rows affected")
)
