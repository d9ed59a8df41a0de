package domain

import "errors"

var (
	// ErrInvalidInput is returned when request parameters are malformed
	ErrInvalidInput = errors.New("invalid input parameters")

	// ErrBlobNotFound is returned when a key is absent from the blob store
	ErrBlobNotFound = errors.New("blob not found")

	// ErrInvalidPattern is returned when a custom pattern fails validation
	ErrInvalidPattern = errors.New("invalid custom pattern")

	// ErrInvalidFeedback is returned when a feedback payload is malformed
	ErrInvalidFeedback = errors.New("invalid feedback payload")

	// ErrSchedulerStopped is returned when a task is scheduled on a stopped scheduler
	ErrSchedulerStopped = errors.New("scheduler is stopped")

	// ErrTaskFailed is returned when a scheduled analysis task fails
	ErrTaskFailed = errors.New("analysis task failed")

	// ErrRateLimited is returned when a client exceeds the request rate limit
	ErrRateLimited = errors.New("rate limit exceeded")
)
