package crawler

import "context"

// JobStore persists crawl jobs and their workflow-object links. Mutations of
// status/logs/results happen on the Job value and are made durable with an
// explicit Save; the store never auto-persists.
type JobStore interface {
	Create(ctx context.Context, jobID, spider, workflow string) (Job, error)
	GetByJobID(ctx context.Context, jobID string) (Job, error)
	Save(ctx context.Context, job Job) error
	List(ctx context.Context, tail int) ([]Job, error)
	CreateLink(ctx context.Context, link WorkflowObjectLink) error
	ListLinks(ctx context.Context, tail int) ([]WorkflowObjectLink, error)
	GetJobByObjectID(ctx context.Context, objectID int64) (Job, error)
}

// Submitter schedules a crawl on the external crawl service and returns the
// external job id, empty when the service accepted the call but scheduled
// nothing.
type Submitter interface {
	Schedule(ctx context.Context, project, spider string, settings map[string]any, args map[string]string) (string, error)
	ListSpiders(ctx context.Context, project string) ([]string, error)
}
