package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotConfigured  = errors.New("service is missing a collaborator")
	ErrNotStarted     = errors.New("service not started")
	ErrInvalidRequest = errors.New("invalid generate request")
	ErrDuplicate      = errors.New("generation already running or done")
	ErrRosterNotFound = errors.New("roster not found")
	ErrUpstream       = errors.New("league upstream error")
	ErrJobNotFound    = errors.New("job not found")
	ErrNothingToRun   = errors.New("no week to generate")
)
