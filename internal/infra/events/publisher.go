package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"telegram-usersettings/internal/domain/ports/adapter"
	"telegram-usersettings/internal/infra/logging"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const RoutingSettingsChanged = "settings.changed"

// Envelope is the wire format of every published event.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

var _ adapter.EventPublisher = (*AMQPPublisher)(nil)

// AMQPPublisher publishes to a durable topic exchange with confirms on.
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string
	log      *zerolog.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

func NewAMQPPublisher(url, exchange string, logger *zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	p := &AMQPPublisher{conn: conn, exchange: exchange, log: logger}
	ch, err := p.openChannel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.ch = ch
	return p, nil
}

func (p *AMQPPublisher) openChannel() (*amqp.Channel, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	return ch, nil
}

func (p *AMQPPublisher) PublishSettingsChanged(ctx context.Context, ev adapter.SettingsChanged) error {
	return p.publish(ctx, RoutingSettingsChanged, ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, key string, payload any) error {
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.openChannel()
		if err != nil {
			return err
		}
		p.ch = ch
	}

	corrID := logging.TraceID(ctx)
	if corrID == "" {
		corrID = env.ID
	}
	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.ID,
		CorrelationId: corrID,
		Timestamp:     env.OccurredAt,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("publish %s: nacked by broker", key)
	}
	p.log.Debug().Str("key", key).Str("exchange", p.exchange).Str("event_id", env.ID).Msg("published")
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	return p.conn.Close()
}
