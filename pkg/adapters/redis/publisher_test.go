package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/domain"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestPublisher_Hooks(t *testing.T) {
	_, client := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pub := redis.NewPublisher(client, "", nil)
	assert.Equal(t, redis.DefaultChannel, pub.Channel())

	sub := client.Subscribe(ctx, pub.Channel())
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err, "subscription confirmation")

	h := pub.Hooks()
	base := domain.EventBase{Type: domain.EventToolReturn, RunID: "r1", GraphID: "g"}
	h.OnToolReturn(ctx, &domain.ToolEvent{EventBase: base, ToolName: "echo", Input: "secret", Output: "big"})

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, "tool_return", got["type"])
	assert.Equal(t, "r1", got["run_id"])
	assert.Equal(t, "echo", got["tool_name"])
	assert.NotContains(t, got, "input")
	assert.NotContains(t, got, "output")
}

func TestPublisher_FailureIsNotFatal(t *testing.T) {
	mr, client := newClient(t)
	pub := redis.NewPublisher(client, "events", nil)
	mr.Close()

	assert.NotPanics(t, func() {
		pub.Hooks().OnRunStart(context.Background(), &domain.RunEvent{})
	})
	assert.Error(t, pub.Publish(context.Background(), map[string]string{"a": "b"}))
}
