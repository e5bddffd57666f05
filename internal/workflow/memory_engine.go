package workflow

import (
	"context"
	"sync"
)

// StartCall records one dispatch made through the MemoryEngine.
type StartCall struct {
	WorkflowName string
	ObjectID     int64
	Queue        string
}

// MemoryEngine is an in-memory Engine for development and tests. It assigns
// object ids sequentially and records every Start call.
type MemoryEngine struct {
	mu      sync.Mutex
	nextID  int64
	objects map[int64]*Object
	starts  []StartCall
}

// NewMemoryEngine constructs an empty MemoryEngine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{objects: make(map[int64]*Object)}
}

// Save assigns an id on first save and keeps a snapshot of the object.
func (e *MemoryEngine) Save(_ context.Context, obj *Object) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if obj.ID == 0 {
		e.nextID++
		obj.ID = e.nextID
	}
	snapshot := *obj
	e.objects[obj.ID] = &snapshot
	return nil
}

// Start records the dispatch.
func (e *MemoryEngine) Start(_ context.Context, workflowName string, objectID int64, queue string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.starts = append(e.starts, StartCall{
		WorkflowName: workflowName,
		ObjectID:     objectID,
		Queue:        queue,
	})
	return nil
}

// Object returns the saved snapshot for an id, or nil.
func (e *MemoryEngine) Object(id int64) *Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.objects[id]
}

// Objects returns saved snapshots in id order.
func (e *MemoryEngine) Objects() []*Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Object, 0, len(e.objects))
	for id := int64(1); id <= e.nextID; id++ {
		if obj, ok := e.objects[id]; ok {
			out = append(out, obj)
		}
	}
	return out
}

// Starts returns the recorded dispatches in call order.
func (e *MemoryEngine) Starts() []StartCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]StartCall, len(e.starts))
	copy(out, e.starts)
	return out
}
