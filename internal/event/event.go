package event

import (
	"context"
	"encoding/json"
	"time"

	"estore/internal/domain/model"
	"estore/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 購読側（画面）に流すイベント名
const (
	TopicCategoryCreated      = "CategoryCreated"
	TopicCategoryUpdated      = "CategoryUpdated"
	TopicCategoryDeleted      = "CategoryDeleted"
	TopicProductCreated       = "ProductCreated"
	TopicProductUpdated       = "ProductUpdated"
	TopicProductDeleted       = "ProductDeleted"
	TopicOrderCreated         = "OrderCreated"
	TopicOrderUpdated         = "OrderUpdated"
	TopicOrderDeleted         = "OrderDeleted"
	TopicStatusChanged        = "ReceiveStatusChange"
	TopicSalesReportGenerated = "SalesReportGenerated"
	TopicMemberUpdated        = "ReceiveUpdate"
)

// 配信単位
type Event struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type Subscriber interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

// 削除系の通知内容
type IDPayload struct {
	ID int64 `json:"id"`
}

// ReceiveStatusChange(orderId, statusName)
type StatusChangedPayload struct {
	OrderID    int64  `json:"order_id"`
	Status     int    `json:"status"`
	StatusName string `json:"status_name"`
}

// payloadをJSONにしてoutbox行を作る
func NewOutboxEvent(topic string, payload interface{}) (model.OutboxEvent, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return model.OutboxEvent{}, err
	}
	return model.OutboxEvent{
		ID:        uuid.NewString(),
		Topic:     topic,
		Payload:   string(b),
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now(),
	}, nil
}

func FromOutbox(o model.OutboxEvent) Event {
	return Event{
		ID:        o.ID,
		Topic:     o.Topic,
		Payload:   json.RawMessage(o.Payload),
		CreatedAt: o.CreatedAt,
	}
}

// 配信内容をログに出すだけの購読者
type LogSubscriber struct{}

func (LogSubscriber) Name() string { return "log" }

func (LogSubscriber) Handle(_ context.Context, e Event) error {
	logger.Info("event",
		zap.String("event_id", e.ID),
		zap.String("topic", e.Topic),
		zap.ByteString("payload", e.Payload))
	return nil
}
