package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("highlight not found")
	ErrInvalidPlay  = errors.New("highlight has no play id")
	ErrStoreClosed  = errors.New("store closed")
	ErrInvalidQuery = errors.New("invalid highlight query")
)
