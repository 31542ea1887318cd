package listener

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-forecast-service/internal/velocity"
	"github.com/segmentio/kafka-go"
)

type stubReader struct {
	messages []kafka.Message
	cancel   context.CancelFunc
}

func (r *stubReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

type recordingUseCase struct {
	velocity.UseCase
	mu      sync.Mutex
	updated []string
	failFor string
}

func (u *recordingUseCase) UpdateVelocity(_ context.Context, productID string) (*model.SalesVelocity, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updated = append(u.updated, productID)
	if productID == u.failFor {
		return nil, errors.New("boom")
	}
	return &model.SalesVelocity{ProductID: productID}, nil
}

func event(t *testing.T, eventType string, items ...OrderItemPayload) kafka.Message {
	t.Helper()
	body, err := json.Marshal(OrderEvent{
		EventID:   "e1",
		EventType: eventType,
		Payload:   OrderPayload{ID: "o1", Items: items},
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Value: body}
}

func TestOrderListenerRefreshesEachProductOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{cancel: cancel, messages: []kafka.Message{
		event(t, "OrderCreated",
			OrderItemPayload{ProductID: "p1", Quantity: 2},
			OrderItemPayload{ProductID: "p2", Quantity: 1},
			OrderItemPayload{ProductID: "p1", Quantity: 4},
		),
		event(t, "OrderCancelled", OrderItemPayload{ProductID: "p9", Quantity: 1}),
		{Value: []byte("not json")},
		event(t, "OrderFulfilled", OrderItemPayload{ProductID: "p3", Quantity: 1}),
	}}
	uc := &recordingUseCase{failFor: "p2"}

	done := make(chan struct{})
	go func() {
		NewOrderListener(reader, uc, logger.NewNop()).Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("listener did not stop")
	}

	want := []string{"p1", "p2", "p3"}
	if len(uc.updated) != len(want) {
		t.Fatalf("expected %v, got %v", want, uc.updated)
	}
	for i := range want {
		if uc.updated[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, uc.updated)
		}
	}
}
