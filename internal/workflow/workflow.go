// Package workflow models the downstream workflow engine that consumes
// ingested crawl records. The coordination service only creates objects,
// links them to jobs, and enqueues their processing; workflow content is
// owned by the downstream system.
package workflow

import "context"

// ObjectStatus is the processing state of a workflow object.
type ObjectStatus string

// Object states the coordination service writes. Downstream processing owns
// the rest of the lifecycle.
const (
	ObjectStatusInitial ObjectStatus = "initial"
	ObjectStatusError   ObjectStatus = "error"
)

// Object is one unit of downstream work spawned from a crawl result record.
type Object struct {
	ID        int64          `json:"id"`
	Status    ObjectStatus   `json:"status"`
	Data      map[string]any `json:"data"`
	ExtraData map[string]any `json:"extra_data"`
	DataType  string         `json:"data_type"`
}

// NewObject builds an unsaved object around record data. The object has no
// identity until its first Save.
func NewObject(data map[string]any) *Object {
	return &Object{
		Status:    ObjectStatusInitial,
		Data:      data,
		ExtraData: map[string]any{},
	}
}

// ObjectStore persists workflow objects. The first Save assigns the object
// id.
type ObjectStore interface {
	Save(ctx context.Context, obj *Object) error
}

// Starter enqueues asynchronous processing of a saved object on a named
// dispatch queue.
type Starter interface {
	Start(ctx context.Context, workflowName string, objectID int64, queue string) error
}

// Engine bundles object persistence and dispatch, the two operations the
// ingestion pipeline performs against the downstream system.
type Engine interface {
	ObjectStore
	Starter
}

type engine struct {
	ObjectStore
	Starter
}

// NewEngine combines an object store and a starter into an Engine.
func NewEngine(store ObjectStore, starter Starter) Engine {
	return &engine{ObjectStore: store, Starter: starter}
}
