package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"navigate-map/internal/navigation"
)

// Publisher delivers a fix to the session it belongs to. *ws.Manager
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, fix navigation.Fix) error
}

type Subscriber struct {
	logger    *slog.Logger
	client    *redis.Client
	topic     string
	publisher Publisher
}

func NewSubscriber(logger *slog.Logger, client *redis.Client, topic string, publisher Publisher) *Subscriber {
	return &Subscriber{
		logger:    logger,
		client:    client,
		topic:     topic,
		publisher: publisher,
	}
}

func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info("Redis subscriber is running", "topic", s.topic)
	pubsub := s.client.Subscribe(ctx, s.topic)
	defer func() {
		if err := pubsub.Close(); err != nil {
			s.logger.Warn("failed to close pubsub", "error", err)
		}
	}()

	msgCh := pubsub.Channel()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				s.logger.Warn("pubsub channel closed by Redis")
				return nil
			}
			if err := s.handleMessage(ctx, msg); err != nil {
				s.logger.Error("error handling message", "error", err)
			}
		case <-ctx.Done():
			s.logger.Info("shutting down Redis subscriber")
			return nil
		}
	}
}

func (s *Subscriber) handleMessage(ctx context.Context, msg *redis.Message) error {
	s.logger.Debug("received message", "payload", msg.Payload)

	fixMsg, err := parseFixMessage(msg.Payload)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, fixMsg.SessionID, fixMsg.Fix()); err != nil {
		return fmt.Errorf("failed to publish fix for session %q: %w", fixMsg.SessionID, err)
	}
	return nil
}

func parseFixMessage(payload string) (*FixMessage, error) {
	var msg FixMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fix message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fix message: %w", err)
	}
	return &msg, nil
}
