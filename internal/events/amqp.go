package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	RoutingCalendarChanged = "calendar.changed"
	RoutingBalanceChanged  = "balance.changed"
	RoutingMemberMessage   = "member.message"

	publishTimeout = 5 * time.Second
)

// Envelope is the JSON body published for every event.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes events as persistent JSON messages on a topic exchange.
type AMQPSink struct {
	exchange string
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       publisher
	now      func() time.Time
}

// DialAMQP connects to the broker and declares a durable topic exchange.
func DialAMQP(url, exchange string) (*AMQPSink, error) {
	if url == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	if exchange == "" {
		return nil, fmt.Errorf("amqp exchange is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPSink{exchange: exchange, conn: conn, ch: ch, now: time.Now}, nil
}

func newAMQPSinkWithPublisher(exchange string, p publisher, now func() time.Time) *AMQPSink {
	return &AMQPSink{exchange: exchange, ch: p, now: now}
}

// Close releases the channel and connection.
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.ch.(*amqp.Channel); ok {
		_ = ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *AMQPSink) CalendarChanged(ctx context.Context, change CalendarChange) {
	s.publish(ctx, RoutingCalendarChanged, change)
}

func (s *AMQPSink) BalanceChanged(ctx context.Context, change BalanceChange) {
	s.publish(ctx, RoutingBalanceChanged, change)
}

func (s *AMQPSink) Message(ctx context.Context, notice Notice) {
	s.publish(ctx, RoutingMemberMessage, notice)
}

func (s *AMQPSink) publish(ctx context.Context, routingKey string, payload any) {
	logger := log.Ctx(ctx)

	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Str("routing_key", routingKey).Msg("Failed to encode event payload")
		return
	}
	now := s.now().UTC()
	body, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       routingKey,
		OccurredAt: now,
		Payload:    raw,
	})
	if err != nil {
		logger.Error().Err(err).Str("routing_key", routingKey).Msg("Failed to encode event envelope")
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ch.PublishWithContext(pubCtx,
		s.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    now,
			Body:         body,
		},
	); err != nil {
		logger.Error().Err(err).Str("routing_key", routingKey).Msg("Failed to publish event")
	}
}
