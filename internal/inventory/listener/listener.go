package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-forecast-service/internal/velocity"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is satisfied by broker.KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// OrderListener refreshes sales velocity for products touched by new orders, so
// recommendations between scheduled batches see recent demand.
type OrderListener struct {
	consumer MessageReader
	uc       velocity.UseCase
	logger   logger.ZapLogger
}

func NewOrderListener(consumer MessageReader, uc velocity.UseCase, logger logger.ZapLogger) *OrderListener {
	return &OrderListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *OrderListener) Start(ctx context.Context) {
	l.logger.Info("Starting order events listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping order events listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID    string             `json:"id"`
	Items []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (l *OrderListener) processMessage(ctx context.Context, value []byte) {
	var event OrderEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != "OrderCreated" && event.EventType != "OrderFulfilled" {
		return
	}

	l.logger.Info("Processing order event",
		zap.String("event_type", event.EventType),
		zap.String("order_id", event.Payload.ID),
	)

	seen := make(map[string]bool, len(event.Payload.Items))
	for _, item := range event.Payload.Items {
		if item.ProductID == "" || seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true

		if _, err := l.uc.UpdateVelocity(ctx, item.ProductID); err != nil {
			l.logger.Error("Failed to refresh velocity for order item",
				zap.String("order_id", event.Payload.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
		}
	}
}
