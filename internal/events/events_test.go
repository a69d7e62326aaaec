package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

type publishedMessage struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakePublisher struct {
	published []publishedMessage
	err       error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.published = append(f.published, publishedMessage{exchange: exchange, key: key, msg: msg})
	return f.err
}

func TestAMQPSinkPublishesEnvelope(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	pub := &fakePublisher{}
	sink := newAMQPSinkWithPublisher("courtwallet", pub, func() time.Time { return now })

	sink.BalanceChanged(context.Background(), BalanceChange{
		AccountID: 4,
		Balance:   decimal.NewFromInt(50000),
		Reason:    "reservation.confirmed",
	})

	if len(pub.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.published))
	}
	got := pub.published[0]
	if got.exchange != "courtwallet" || got.key != RoutingBalanceChanged {
		t.Fatalf("unexpected exchange/key %s/%s", got.exchange, got.key)
	}
	if got.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("expected persistent delivery")
	}

	var env Envelope
	if err := json.Unmarshal(got.msg.Body, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Type != RoutingBalanceChanged || env.ID == "" || !env.OccurredAt.Equal(now) {
		t.Fatalf("unexpected envelope %+v", env)
	}
	var payload BalanceChange
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.AccountID != 4 || !payload.Balance.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestAMQPSinkSwallowsPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	sink := newAMQPSinkWithPublisher("courtwallet", pub, time.Now)

	sink.CalendarChanged(context.Background(), CalendarChange{CourtIDs: []int64{1}, Reason: "test"})

	if len(pub.published) != 1 {
		t.Fatalf("expected publish attempt, got %d", len(pub.published))
	}
}

func TestMultiFansOut(t *testing.T) {
	first, second := &Recorder{}, &Recorder{}
	sink := Multi(first, nil, second)

	sink.Message(context.Background(), Notice{AccountID: 1, Subject: "hi"})
	sink.CalendarChanged(context.Background(), CalendarChange{CourtIDs: []int64{2}})

	for i, r := range []*Recorder{first, second} {
		if len(r.Notices()) != 1 || len(r.CalendarChanges()) != 1 {
			t.Fatalf("sink %d missed events", i)
		}
	}
}
