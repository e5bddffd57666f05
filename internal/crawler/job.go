// Package crawler defines the domain types shared across the crawl
// coordination service: jobs, their lifecycle states, the crawl result
// envelope, and the error taxonomy.
package crawler

import "time"

// JobStatus is the lifecycle state of a crawl job.
type JobStatus string

// Job lifecycle states. Error and Finished are terminal.
const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusError    JobStatus = "error"
	JobStatusFinished JobStatus = "finished"
)

// Terminal reports whether no further status transition is allowed.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusError, JobStatusFinished:
		return true
	default:
		return false
	}
}

// Job is one crawl submission tracked against the external crawl service.
// JobID is the opaque identifier returned by the service at submission time;
// it is set exactly once and never changes.
type Job struct {
	ID        int64     `json:"id"`
	JobID     string    `json:"job_id"`
	Spider    string    `json:"spider"`
	Workflow  string    `json:"workflow"`
	Status    JobStatus `json:"status"`
	Logs      string    `json:"logs,omitempty"`
	Results   string    `json:"results,omitempty"`
	Scheduled time.Time `json:"scheduled"`
}

// WorkflowObjectLink associates a crawl job with one downstream workflow
// object spawned from its results. Links are written once and never updated.
type WorkflowObjectLink struct {
	JobID    string `json:"job_id"`
	ObjectID int64  `json:"object_id"`
}
