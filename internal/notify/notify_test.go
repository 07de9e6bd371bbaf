package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

type publishCall struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type stubPublisher struct {
	calls []publishCall
	err   error
}

func (p *stubPublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, publishCall{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestAMQP_DatePeriodsChangedPublishesEvent(t *testing.T) {
	t.Parallel()

	now := time.Date(2020, time.October, 15, 9, 30, 0, 0, time.UTC)
	stub := &stubPublisher{}
	n := newAMQP(stub, "hauki", func() time.Time { return now })

	if err := n.DatePeriodsChanged(context.Background(), "r1", "abc"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(stub.calls) != 1 {
		t.Fatalf("expected one publish, got %d", len(stub.calls))
	}
	call := stub.calls[0]
	if call.exchange != "hauki" || call.key != RoutingKey {
		t.Fatalf("unexpected destination %s/%s", call.exchange, call.key)
	}
	if call.msg.DeliveryMode != amqp.Persistent || call.msg.ContentType != "application/json" {
		t.Fatalf("unexpected message properties %+v", call.msg)
	}

	var event Event
	if err := json.Unmarshal(call.msg.Body, &event); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if event.ResourceID != "r1" || event.DatePeriodsHash != "abc" || !event.ChangedAt.Equal(now) {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestAMQP_DatePeriodsChangedWrapsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("channel closed")
	n := newAMQP(&stubPublisher{err: boom}, "hauki", time.Now)
	if err := n.DatePeriodsChanged(context.Background(), "r1", "abc"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped publish error, got %v", err)
	}
}

func TestNop(t *testing.T) {
	t.Parallel()

	if err := (Nop{}).DatePeriodsChanged(context.Background(), "r1", "abc"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	var n *AMQP
	if err := n.Close(); err != nil {
		t.Fatalf("expected closing a nil notifier to succeed, got %v", err)
	}
}
