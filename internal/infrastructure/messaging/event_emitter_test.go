package messaging_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/messaging"
)

type recordingPublisher struct {
	mu    sync.Mutex
	calls []struct {
		topic   string
		payload interface{}
	}
	done chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{done: make(chan struct{}, 8)}
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	p.calls = append(p.calls, struct {
		topic   string
		payload interface{}
	}{topic, payload})
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func (p *recordingPublisher) waitForCall(t *testing.T) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for durable publish")
	}
}

func newMiniredisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestEventEmitter_SendFlowEventPublishesToFlowScopedChannel(t *testing.T) {
	client, _ := newMiniredisClient(t)
	durable := newRecordingPublisher()
	emitter := messaging.NewEventEmitter(client, durable)

	sub := client.Subscribe(context.Background(), "execution_updates:flow-1")
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	emitter.SendFlowEvent(context.Background(), "flow-1", "run-1", "node-1", "start_node", 3, "running")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "execution_updates:flow-1", msg.Channel)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
	assert.Equal(t, "start_node", payload["type"])
	assert.Equal(t, "node-1", payload["node_id"])
	assert.Equal(t, float64(3), payload["order"])

	durable.waitForCall(t)
	assert.Equal(t, "execution_updates:flow-1", durable.calls[0].topic)
}

func TestEventEmitter_SendInteractionEventScopesChannelByTenantWhenPresent(t *testing.T) {
	client, _ := newMiniredisClient(t)
	durable := newRecordingPublisher()
	emitter := messaging.NewEventEmitter(client, durable)

	sub := client.Subscribe(context.Background(), "interaction_events:tenant-1:flow-1")
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	emitter.SendInteractionEvent(context.Background(), "flow-1", "run-1", "human-1", "approval_requested",
		map[string]interface{}{"prompt": "approve?"}, "tenant-1", "user-1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "interaction_events:tenant-1:flow-1", msg.Channel)

	durable.waitForCall(t)
}

func TestEventEmitter_SendInteractionEventOmitsTenantSegmentWhenTenantIsEmpty(t *testing.T) {
	client, _ := newMiniredisClient(t)
	emitter := messaging.NewEventEmitter(client, nil)

	sub := client.Subscribe(context.Background(), "interaction_events:flow-2")
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	emitter.SendInteractionEvent(context.Background(), "flow-2", "run-2", "human-2", "approval_requested",
		nil, "", "user-1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "interaction_events:flow-2", msg.Channel)
}
