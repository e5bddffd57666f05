package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubSubStarter dispatches workflow start messages over Google Cloud
// Pub/Sub. Each dispatch queue maps to a topic of the same name.
type PubSubStarter struct {
	client *pubsub.Client
	logger *zap.Logger

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPubSubStarter creates a starter around a project-scoped client.
func NewPubSubStarter(ctx context.Context, projectID string, logger *zap.Logger) (*PubSubStarter, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pubsub.project_id is required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSubStarter{
		client: client,
		logger: logger,
		topics: make(map[string]*pubsub.Topic),
	}, nil
}

type startMessage struct {
	WorkflowName string `json:"workflow_name"`
	ObjectID     int64  `json:"object_id"`
}

// Start publishes the start message and waits for the server ack, so enqueue
// order follows record order within one ingestion run.
func (p *PubSubStarter) Start(ctx context.Context, workflowName string, objectID int64, queue string) error {
	payload, err := json.Marshal(startMessage{WorkflowName: workflowName, ObjectID: objectID})
	if err != nil {
		return fmt.Errorf("marshal start message: %w", err)
	}

	result := p.topic(queue).Publish(ctx, &pubsub.Message{Data: payload})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish start message to %q: %w", queue, err)
	}
	p.logger.Debug("workflow start dispatched",
		zap.String("workflow", workflowName),
		zap.Int64("object_id", objectID),
		zap.String("queue", queue),
		zap.String("message_id", id),
	)
	return nil
}

func (p *PubSubStarter) topic(queue string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[queue]; ok {
		return t
	}
	t := p.client.Topic(queue)
	p.topics[queue] = t
	return t
}

// Close stops all topic publishers and closes the client.
func (p *PubSubStarter) Close() error {
	p.mu.Lock()
	for _, t := range p.topics {
		t.Stop()
	}
	p.mu.Unlock()
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
