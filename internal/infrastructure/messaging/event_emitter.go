package messaging

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// EventEmitter publishes run progress notifications over Redis pub/sub,
// the same fire-and-forget, best-effort transport this was grounded on:
// a publish failure is logged and swallowed rather than surfaced, since a
// missed UI update must never fail the run it describes. NATS/JetStream
// (nats.Publisher, called directly rather than through the outbox relay) is this module's durable,
// at-least-once secondary channel for the same events, for consumers that
// need replay rather than a live feed.
type EventEmitter struct {
	redis     *redis.Client
	durable   DurablePublisher
}

// DurablePublisher is satisfied by the NATS outbox publisher; events are
// additionally appended there so a consumer that was offline at publish
// time can still catch up.
type DurablePublisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// NewEventEmitter wires a Redis-pub/sub-primary, NATS-secondary event
// emitter. durable may be nil if no durable transport is configured.
func NewEventEmitter(redisClient *redis.Client, durable DurablePublisher) *EventEmitter {
	return &EventEmitter{redis: redisClient, durable: durable}
}

// SendFlowEvent publishes a node lifecycle event to "execution_updates:{flow_id}".
func (e *EventEmitter) SendFlowEvent(ctx context.Context, flowID, runID, nodeID, eventType string, order int, status string) {
	message := map[string]interface{}{
		"type":     eventType,
		"flow_id":  flowID,
		"run_id":   runID,
		"node_id":  nodeID,
		"order":    order,
		"status":   status,
	}
	e.publish(ctx, "execution_updates:"+flowID, message)
}

// SendInteractionEvent publishes a human-in-the-loop interaction event to
// "interaction_events:{flow_id}" or, when tenantID is set,
// "interaction_events:{tenant_id}:{flow_id}".
func (e *EventEmitter) SendInteractionEvent(ctx context.Context, flowID, runID, nodeID, interactionType string, data map[string]interface{}, tenantID, userID string) {
	message := map[string]interface{}{
		"type":             "interaction_event",
		"flow_id":          flowID,
		"run_id":           runID,
		"node_id":          nodeID,
		"interaction_type": interactionType,
		"data":             data,
		"tenant_id":        tenantID,
		"user_id":          userID,
	}
	channel := "interaction_events:" + flowID
	if tenantID != "" {
		channel = "interaction_events:" + tenantID + ":" + flowID
	}
	e.publish(ctx, channel, message)
}

func (e *EventEmitter) publish(ctx context.Context, channel string, message map[string]interface{}) {
	go func() {
		data, err := json.Marshal(message)
		if err != nil {
			log.Printf("event emitter: failed to marshal event for %s: %v", channel, err)
			return
		}
		if err := e.redis.Publish(ctx, channel, data).Err(); err != nil {
			log.Printf("event emitter: failed to publish to %s: %v", channel, err)
		}
		if e.durable != nil {
			if err := e.durable.Publish(ctx, channel, message); err != nil {
				log.Printf("event emitter: failed to publish durable copy to %s: %v", channel, err)
			}
		}
	}()
}
