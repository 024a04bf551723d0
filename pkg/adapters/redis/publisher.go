package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "tendril:events"

// Publisher broadcasts lifecycle events as JSON messages on a Redis channel.
// Publishing is best effort: failures are logged and never affect the run.
type Publisher struct {
	client  backend.UniversalClient
	channel string
	logger  *slog.Logger
}

// NewPublisher creates a publisher. An empty channel means DefaultChannel.
func NewPublisher(client backend.UniversalClient, channel string, logger *slog.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{client: client, channel: channel, logger: logger}
}

// Channel returns the channel events are published on.
func (p *Publisher) Channel() string { return p.channel }

// Publish sends one event.
func (p *Publisher) Publish(ctx context.Context, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

func (p *Publisher) send(ctx context.Context, event any) {
	if err := p.Publish(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "publish event failed", "channel", p.channel, "error", err)
	}
}

// Hooks returns lifecycle hooks publishing every event. Tool events are sent
// without their input and output payloads.
func (p *Publisher) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart:  func(ctx context.Context, e *domain.RunEvent) { p.send(ctx, e) },
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) { p.send(ctx, e) },
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) { p.send(ctx, e) },
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) { p.send(ctx, e) },
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			p.send(ctx, stripPayload(e))
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			p.send(ctx, stripPayload(e))
		},
	}
}

func stripPayload(e *domain.ToolEvent) *domain.ToolEvent {
	c := *e
	c.Input, c.Output = nil, nil
	return &c
}
