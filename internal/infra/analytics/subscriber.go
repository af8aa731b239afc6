package analytics

import (
	"context"
	"strings"

	"estore/internal/event"
	"estore/internal/logger"

	"go.uber.org/zap"
)

// ドメインイベントを分析イベントとして記録する。失敗はログのみ
type Subscriber struct {
	client *Client
}

func NewSubscriber(client *Client) *Subscriber {
	return &Subscriber{client: client}
}

func (s *Subscriber) Name() string { return "analytics" }

func (s *Subscriber) Handle(ctx context.Context, e event.Event) error {
	name := eventName(e.Topic)
	logger.Debug("analytics event", zap.String("name", name), zap.String("event_id", e.ID))

	if err := s.client.Track(ctx, name, map[string]interface{}{
		"event_id": e.ID,
		"topic":    e.Topic,
	}); err != nil {
		logger.Warn("analytics track failed", zap.String("name", name), zap.Error(err))
	}
	return nil
}

// GA4のイベント名はsnake_case
func eventName(topic string) string {
	var b strings.Builder
	for i, r := range topic {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
