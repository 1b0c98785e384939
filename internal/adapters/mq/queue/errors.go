package queue

import "errors"

// Enqueue failures.
var (
	ErrQueueFull   = errors.New("allocation queue full")
	ErrQueueClosed = errors.New("allocation queue closed")
)
