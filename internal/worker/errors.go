package worker

import "strconv"

// ErrClaim indicates the queue could not be read.
type ErrClaim struct {
	Err error
}

func (e ErrClaim) Error() string {
	if e.Err == nil {
		return "claim job"
	}
	return "claim job: " + e.Err.Error()
}

func (e ErrClaim) Unwrap() error { return e.Err }

// ErrProcess indicates a claimed job failed somewhere in the pipeline. The job
// has already been marked failed when this is returned.
type ErrProcess struct {
	JobID int64
	Err   error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process job " + strconv.FormatInt(e.JobID, 10)
	}
	return "process job " + strconv.FormatInt(e.JobID, 10) + ": " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }
