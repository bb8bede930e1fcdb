package http_test

import (
	"context"
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/contracts"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/events"
)

type publishCall struct {
	SessionID string
	Action    contracts.Action
	Summary   cart.Summary
	Meta      events.PublishMetadata
}

type CartEventsPublisherMock struct {
	PublishCartUpdatedFunc func(ctx context.Context, sessionID string, action contracts.Action, s cart.Summary, meta events.PublishMetadata) error

	mu    sync.Mutex
	calls []publishCall
}

func (m *CartEventsPublisherMock) PublishCartUpdated(ctx context.Context, sessionID string, action contracts.Action, s cart.Summary, meta events.PublishMetadata) error {
	m.mu.Lock()
	m.calls = append(m.calls, publishCall{SessionID: sessionID, Action: action, Summary: s, Meta: meta})
	m.mu.Unlock()

	if m.PublishCartUpdatedFunc == nil {
		return nil
	}
	return m.PublishCartUpdatedFunc(ctx, sessionID, action, s, meta)
}

func (m *CartEventsPublisherMock) PublishCartUpdatedCalls() []publishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishCall(nil), m.calls...)
}
