package crawler

import (
	"fmt"
	"strings"
)

// DuplicateJobError indicates an attempt to record a second job for an
// external job id that is already tracked. This is a local bug or race and
// is never retried.
type DuplicateJobError struct {
	JobID string
}

func (e *DuplicateJobError) Error() string {
	return fmt.Sprintf("crawler job %q already exists", e.JobID)
}

// JobNotFoundError indicates a lookup miss for an external job id.
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("crawler job %q does not exist", e.JobID)
}

// ScheduleError indicates the crawl service accepted a submission but
// returned no job id, so no local job was recorded.
type ScheduleError struct {
	Spider  string
	Project string
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("could not schedule %q spider for project %q", e.Spider, e.Project)
}

// UnknownSpiderError is the client-facing condition reported by the crawl
// service when the requested spider does not exist in the project. It carries
// the spiders that are available so callers can present them.
type UnknownSpiderError struct {
	Spider    string
	Project   string
	Available []string
}

func (e *UnknownSpiderError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("spider %q not found in project %q", e.Spider, e.Project)
	}
	return fmt.Sprintf(
		"spider %q not found in project %q, available spiders: %s",
		e.Spider, e.Project, strings.Join(e.Available, ", "),
	)
}

// InvalidResultsPathError indicates the results location of a finished crawl
// does not resolve to a readable local path.
type InvalidResultsPathError struct {
	Path string
}

func (e *InvalidResultsPathError) Error() string {
	return fmt.Sprintf("path specified in result does not exist: %s", e.Path)
}

// WorkflowObjectNotFoundError indicates a workflow object id with no link to
// any crawl job, typically because the object was not spawned by a crawl.
type WorkflowObjectNotFoundError struct {
	ObjectID int64
}

func (e *WorkflowObjectNotFoundError) Error() string {
	return fmt.Sprintf("workflow object %d is not linked to any crawler job", e.ObjectID)
}

// JobError carries a batch-level failure reported by the crawl service for a
// whole crawl run. The job is marked errored before this is raised, so stored
// state stays consistent even though the call fails.
type JobError struct {
	JobID  string
	Errors []map[string]any
}

func (e *JobError) Error() string {
	return fmt.Sprintf("crawl job %q failed: %v", e.JobID, e.Errors)
}
