package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/contracts"
)

type PublishMetadata struct {
	CorrelationID string
	CausationID   string
}

type CartEventsPublisher interface {
	PublishCartUpdated(ctx context.Context, sessionID string, action contracts.Action, s cart.Summary, meta PublishMetadata) error
	Close() error
}

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	exchangeDeclarer
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitCartEventsPublisher struct {
	mu  sync.Mutex
	ch  amqpChannel
	seq Sequencer
	now func() time.Time
}

func NewRabbitCartEventsPublisher(conn *amqp.Connection, seq Sequencer) (*RabbitCartEventsPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := newPublisher(ch, seq)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(ch amqpChannel, seq Sequencer) (*RabbitCartEventsPublisher, error) {
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}
	return &RabbitCartEventsPublisher{
		ch:  ch,
		seq: seq,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (p *RabbitCartEventsPublisher) PublishCartUpdated(ctx context.Context, sessionID string, action contracts.Action, s cart.Summary, meta PublishMetadata) error {
	seq, err := p.seq.NextSequence(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	env := contracts.BuildCartUpdatedEvent(sessionID, action, s, contracts.EnvelopeOptions{
		PartitionKey:  sessionID,
		Sequence:      seq,
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		OccurredAt:    p.now(),
	})
	if err := env.Validate(); err != nil {
		return fmt.Errorf("invalid %s event: %w", contracts.CartUpdatedEventName, err)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", contracts.CartUpdatedEventName, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		CartUpdatedRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.EventID,
			CorrelationId: env.CorrelationID,
			Type:          env.EventName,
			Timestamp:     env.OccurredAt,
			Body:          body,
		},
	)
}

func (p *RabbitCartEventsPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishCartUpdated(context.Context, string, contracts.Action, cart.Summary, PublishMetadata) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
