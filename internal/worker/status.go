package worker

import (
	"sync"
	"time"
)

// Status is a point-in-time view of one worker process.
type Status struct {
	WorkerID        string     `json:"workerId"`
	StartedAt       time.Time  `json:"startedAt"`
	Busy            bool       `json:"busy"`
	CurrentJobID    int64      `json:"currentJobId,omitempty"`
	CurrentProgress string     `json:"currentProgress,omitempty"`
	JobsCompleted   int64      `json:"jobsCompleted"`
	JobsFailed      int64      `json:"jobsFailed"`
	LastError       string     `json:"lastError,omitempty"`
	LastErrorAt     *time.Time `json:"lastErrorAt,omitempty"`
	LastPollAt      *time.Time `json:"lastPollAt,omitempty"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
}

type statusTracker struct {
	mu sync.Mutex
	s  Status
}

func (t *statusTracker) snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.s
	if t.s.LastErrorAt != nil {
		at := *t.s.LastErrorAt
		out.LastErrorAt = &at
	}
	if t.s.LastPollAt != nil {
		at := *t.s.LastPollAt
		out.LastPollAt = &at
	}
	return out
}

func (t *statusTracker) polled(at time.Time) {
	t.mu.Lock()
	t.s.LastPollAt = &at
	t.mu.Unlock()
}

func (t *statusTracker) begin(jobID int64, progress string) {
	t.mu.Lock()
	t.s.Busy = true
	t.s.CurrentJobID = jobID
	t.s.CurrentProgress = progress
	t.mu.Unlock()
}

func (t *statusTracker) progress(progress string) {
	t.mu.Lock()
	t.s.CurrentProgress = progress
	t.mu.Unlock()
}

func (t *statusTracker) finish(err error, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Busy = false
	t.s.CurrentJobID = 0
	t.s.CurrentProgress = ""
	if err == nil {
		t.s.JobsCompleted++
		return
	}
	t.s.JobsFailed++
	t.recordErrorLocked(err, at)
}

func (t *statusTracker) recordError(err error, at time.Time) {
	t.mu.Lock()
	t.recordErrorLocked(err, at)
	t.mu.Unlock()
}

func (t *statusTracker) recordErrorLocked(err error, at time.Time) {
	t.s.LastError = err.Error()
	t.s.LastErrorAt = &at
}
