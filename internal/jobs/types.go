package jobs

import "time"

// Status is the lifecycle state of a background job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "done"
	StatusFailed    Status = "error"
)

// ErrorInfo describes why a job failed.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Record is the current state of a job as shown on the admin dashboard.
type Record struct {
	JobID     string     `json:"jobId"`
	Type      string     `json:"type"`
	Status    Status     `json:"status"`
	Meta      any        `json:"meta,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}
