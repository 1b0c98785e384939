package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidStage = errors.New("invalid allocation stage")
	ErrBackpressure = errors.New("allocation queue is full")
	ErrNotStarted   = errors.New("service not started")
)
