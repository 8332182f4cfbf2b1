package jobs

import "errors"

var (
	ErrNotFound          = errors.New("job not found")
	ErrNoPendingJobs     = errors.New("no pending jobs")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrNotTerminal       = errors.New("job is still in progress")
	ErrNotReady          = errors.New("job has not completed")
	ErrReportUnavailable = errors.New("report unavailable")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrSourceTooLarge    = errors.New("document exceeds size limit")
)
