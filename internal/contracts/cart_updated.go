package contracts

import (
	"errors"
	"fmt"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/cart"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CartUpdatedEventName           = "CartUpdated"
	CartUpdatedEventVersion        = 1
	CartUpdatedEnvelopedSchemaPath = "contracts/events/cart/CartUpdated.v1.enveloped.schema.json"
	CartServiceProducer            = "storefront-cart"
)

// Action names the mutation that produced a CartUpdated event.
type Action string

const (
	ActionItemAdded       Action = "item_added"
	ActionItemRemoved     Action = "item_removed"
	ActionProductRemoved  Action = "product_removed"
	ActionQuantityChanged Action = "quantity_changed"
	ActionSizeChanged     Action = "size_changed"
	ActionCleared         Action = "cleared"
)

type EventEnvelope struct {
	EventName     string             `json:"eventName"`
	EventVersion  int                `json:"eventVersion"`
	EventID       string             `json:"eventId"`
	CorrelationID string             `json:"correlationId,omitempty"`
	CausationID   string             `json:"causationId,omitempty"`
	Producer      string             `json:"producer"`
	PartitionKey  string             `json:"partitionKey"`
	Sequence      int64              `json:"sequence"`
	OccurredAt    time.Time          `json:"occurredAt"`
	Schema        string             `json:"schema"`
	Payload       CartUpdatedPayload `json:"payload"`
}

type CartUpdatedPayload struct {
	SessionID   string            `json:"sessionId"`
	Action      Action            `json:"action"`
	Items       []CartUpdatedItem `json:"items"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	ItemCount   int               `json:"itemCount"`
	Timestamp   time.Time         `json:"timestamp"`
}

type CartUpdatedItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type EnvelopeOptions struct {
	PartitionKey  string
	Sequence      int64
	Producer      string
	SchemaPath    string
	CorrelationID string
	CausationID   string
	EventID       string
	OccurredAt    time.Time
}

func BuildCartUpdatedEvent(sessionID string, action Action, s cart.Summary, opts EnvelopeOptions) EventEnvelope {
	eventID := opts.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	occurredAt := opts.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	schemaPath := opts.SchemaPath
	if schemaPath == "" {
		schemaPath = CartUpdatedEnvelopedSchemaPath
	}

	producer := opts.Producer
	if producer == "" {
		producer = CartServiceProducer
	}

	partitionKey := opts.PartitionKey
	if partitionKey == "" {
		partitionKey = sessionID
	}

	payload := CartUpdatedPayload{
		SessionID:   sessionID,
		Action:      action,
		Items:       make([]CartUpdatedItem, 0, len(s.Items)),
		TotalAmount: s.Total,
		ItemCount:   s.ItemCount,
		Timestamp:   occurredAt,
	}
	for _, it := range s.Items {
		payload.Items = append(payload.Items, CartUpdatedItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
		})
	}

	return EventEnvelope{
		EventName:     CartUpdatedEventName,
		EventVersion:  CartUpdatedEventVersion,
		EventID:       eventID,
		CorrelationID: opts.CorrelationID,
		CausationID:   opts.CausationID,
		Producer:      producer,
		PartitionKey:  partitionKey,
		Sequence:      opts.Sequence,
		OccurredAt:    occurredAt,
		Schema:        schemaPath,
		Payload:       payload,
	}
}

// Validate checks the envelope against the CartUpdated v1 contract.
func (e EventEnvelope) Validate() error {
	switch {
	case e.EventName != CartUpdatedEventName:
		return fmt.Errorf("unexpected event name %q", e.EventName)
	case e.EventVersion != CartUpdatedEventVersion:
		return fmt.Errorf("unexpected event version %d", e.EventVersion)
	case e.Schema != CartUpdatedEnvelopedSchemaPath:
		return fmt.Errorf("unexpected schema %q", e.Schema)
	case e.EventID == "":
		return errors.New("eventId is required")
	case e.Producer == "":
		return errors.New("producer is required")
	case e.PartitionKey == "":
		return errors.New("partitionKey is required")
	case e.Sequence <= 0:
		return errors.New("sequence must be positive")
	case e.OccurredAt.IsZero():
		return errors.New("occurredAt is required")
	}
	return e.Payload.validate()
}

func (p CartUpdatedPayload) validate() error {
	if p.SessionID == "" {
		return errors.New("payload.sessionId is required")
	}
	if p.Action == "" {
		return errors.New("payload.action is required")
	}
	if p.TotalAmount.IsNegative() {
		return errors.New("payload.totalAmount must not be negative")
	}
	count := 0
	for i, it := range p.Items {
		if it.ProductID == "" {
			return fmt.Errorf("payload.items[%d].productId is required", i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("payload.items[%d].quantity must be at least 1", i)
		}
		count += it.Quantity
	}
	if count != p.ItemCount {
		return fmt.Errorf("payload.itemCount %d does not match items (%d)", p.ItemCount, count)
	}
	return nil
}
