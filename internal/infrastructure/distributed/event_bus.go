package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"coursebundler/internal/core/domain"
	"coursebundler/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const changeChannel = "coursebundler:changes"

// EventBus fans change events out to every instance through Redis pub/sub. Events
// from this instance are delivered too, so a single subscriber sees every write.
type EventBus struct {
	client     *redis.Client
	instanceID string
	channel    string
	logger     *zap.SugaredLogger

	mu     sync.Mutex
	pubsub *redis.PubSub
}

func NewEventBus(client *redis.Client, instanceID string, logger *zap.SugaredLogger) *EventBus {
	return &EventBus{
		client:     client,
		instanceID: instanceID,
		channel:    changeChannel,
		logger:     logger,
	}
}

func (eb *EventBus) Publish(ctx context.Context, event domain.ChangeEvent) error {
	if event.InstanceID == "" {
		event.InstanceID = eb.instanceID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = utils.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := eb.client.Publish(ctx, eb.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.Debugw("published change event",
		"collection", event.Collection,
		"op", event.Op,
		"document_id", event.DocumentID,
	)
	return nil
}

// Subscribe blocks, delivering events to handler until ctx is done.
func (eb *EventBus) Subscribe(ctx context.Context, handler func(domain.ChangeEvent)) error {
	eb.mu.Lock()
	if eb.pubsub != nil {
		eb.mu.Unlock()
		return fmt.Errorf("already subscribed")
	}
	pubsub := eb.client.Subscribe(ctx, eb.channel)
	eb.pubsub = pubsub
	eb.mu.Unlock()

	defer func() {
		eb.mu.Lock()
		eb.pubsub = nil
		eb.mu.Unlock()
		pubsub.Close()
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("change channel closed")
			}
			var event domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				eb.logger.Warnw("failed to unmarshal change event",
					"error", err,
					"payload", msg.Payload,
				)
				continue
			}
			handler(event)
		}
	}
}

func (eb *EventBus) Close() error {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.pubsub != nil {
		return eb.pubsub.Close()
	}
	return nil
}
