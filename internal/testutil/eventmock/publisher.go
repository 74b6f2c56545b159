// Package eventmock provides a function-backed mock of event.Publisher that
// records published events for assertions.
package eventmock

import (
	"context"
	"sync"

	"lending-engine/internal/event"
)

type Publisher struct {
	mu sync.Mutex

	PublishLoanStatusChangedFn         func(ctx context.Context, routingKey string, evt event.LoanStatusChangedEvent) error
	PublishPaymentCreatedFn            func(ctx context.Context, evt event.PaymentCreatedEvent) error
	PublishParticipationCreatedFn      func(ctx context.Context, evt event.ParticipationCreatedEvent) error
	PublishLatePaymentNotificationsFn  func(ctx context.Context, evt event.LatePaymentNotificationEvent) error
	PublishEarlyPaymentNotificationsFn func(ctx context.Context, evt event.EarlyPaymentNotificationEvent) error

	StatusEvents        []event.LoanStatusChangedEvent
	RoutingKeys         []string
	PaymentEvents       []event.PaymentCreatedEvent
	ParticipationEvents []event.ParticipationCreatedEvent
	LateNotifications   []event.LatePaymentNotificationEvent
	EarlyNotifications  []event.EarlyPaymentNotificationEvent
}

var _ event.Publisher = (*Publisher)(nil)

func (p *Publisher) PublishLoanStatusChanged(ctx context.Context, routingKey string, evt event.LoanStatusChangedEvent) error {
	p.mu.Lock()
	p.StatusEvents = append(p.StatusEvents, evt)
	p.RoutingKeys = append(p.RoutingKeys, routingKey)
	p.mu.Unlock()
	if p.PublishLoanStatusChangedFn != nil {
		return p.PublishLoanStatusChangedFn(ctx, routingKey, evt)
	}
	return nil
}

func (p *Publisher) PublishPaymentCreated(ctx context.Context, evt event.PaymentCreatedEvent) error {
	p.mu.Lock()
	p.PaymentEvents = append(p.PaymentEvents, evt)
	p.mu.Unlock()
	if p.PublishPaymentCreatedFn != nil {
		return p.PublishPaymentCreatedFn(ctx, evt)
	}
	return nil
}

func (p *Publisher) PublishParticipationCreated(ctx context.Context, evt event.ParticipationCreatedEvent) error {
	p.mu.Lock()
	p.ParticipationEvents = append(p.ParticipationEvents, evt)
	p.mu.Unlock()
	if p.PublishParticipationCreatedFn != nil {
		return p.PublishParticipationCreatedFn(ctx, evt)
	}
	return nil
}

func (p *Publisher) PublishLatePaymentNotifications(ctx context.Context, evt event.LatePaymentNotificationEvent) error {
	p.mu.Lock()
	p.LateNotifications = append(p.LateNotifications, evt)
	p.mu.Unlock()
	if p.PublishLatePaymentNotificationsFn != nil {
		return p.PublishLatePaymentNotificationsFn(ctx, evt)
	}
	return nil
}

func (p *Publisher) PublishEarlyPaymentNotifications(ctx context.Context, evt event.EarlyPaymentNotificationEvent) error {
	p.mu.Lock()
	p.EarlyNotifications = append(p.EarlyNotifications, evt)
	p.mu.Unlock()
	if p.PublishEarlyPaymentNotificationsFn != nil {
		return p.PublishEarlyPaymentNotificationsFn(ctx, evt)
	}
	return nil
}
