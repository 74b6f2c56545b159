package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/pkg/apperrors"
)

// PaymentReconciler is implemented by the payment processor; the proof
// document travels over HTTP, never through the queue, so reconciliation by
// movement ID is all the consumer needs.
type PaymentReconciler interface {
	ReconcilePayment(ctx context.Context, movementID int64) error
}

// OverdueAccrualRunner is implemented by the daily accrual batch job so the
// settle_late_payment_interest key can also trigger it on demand.
type OverdueAccrualRunner interface {
	Run(ctx context.Context) error
}

// HandlerResult is the structured outcome logged for every consumed message.
type HandlerResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ReconciliationHandler consumes payment_created and
// settle_late_payment_interest deliveries. Every delivery is acked exactly
// once: failures are recorded as audit rows instead of being redelivered
// forever.
type ReconciliationHandler struct {
	reconciler  PaymentReconciler
	accrual     OverdueAccrualRunner
	audit       AuditRepository
	environment string
	logger      *slog.Logger
}

func NewReconciliationHandler(
	reconciler PaymentReconciler,
	accrual OverdueAccrualRunner,
	audit AuditRepository,
	environment string,
	logger *slog.Logger,
) *ReconciliationHandler {
	if reconciler == nil || accrual == nil || logger == nil {
		panic("ReconciliationHandler dependencies cannot be nil")
	}
	return &ReconciliationHandler{
		reconciler:  reconciler,
		accrual:     accrual,
		audit:       audit,
		environment: environment,
		logger:      logger.With("component", "ReconciliationHandler"),
	}
}

func (h *ReconciliationHandler) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	logCtx := h.logger.With(slog.Uint64("deliveryTag", d.DeliveryTag), slog.String("routingKey", d.RoutingKey))

	result := h.process(ctx, d)

	if result.Status == "ok" {
		monitoring.RecordConsumerMessage(d.RoutingKey, "success")
		logCtx.InfoContext(ctx, "Message processed", slog.Any("result", result))
	} else {
		monitoring.RecordConsumerMessage(d.RoutingKey, result.Status)
		logCtx.ErrorContext(ctx, "Message processing failed", slog.Any("result", result))
	}

	if err := d.Ack(false); err != nil {
		logCtx.ErrorContext(ctx, "Failed to ack delivery", slog.Any("error", err))
	}
}

func (h *ReconciliationHandler) process(ctx context.Context, d amqp.Delivery) HandlerResult {
	switch d.RoutingKey {
	case RoutingKeyPaymentCreated:
		return h.handlePaymentCreated(ctx, d)
	case RoutingKeySettleLatePaymentInterest:
		return h.handleSettleOverdueInterest(ctx, d)
	default:
		return HandlerResult{Status: "discarded", Message: fmt.Sprintf("unknown routing key %q", d.RoutingKey)}
	}
}

func (h *ReconciliationHandler) handlePaymentCreated(ctx context.Context, d amqp.Delivery) HandlerResult {
	var evt PaymentCreatedEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		h.recordFailure(ctx, d, "handlePaymentCreated", err)
		return HandlerResult{Status: "error", Message: "malformed payment_created payload"}
	}

	if err := h.reconciler.ReconcilePayment(ctx, evt.MovementID); err != nil {
		// A redelivered event hitting the processed flag is a success for
		// the consumer: the payment is already settled.
		if errors.Is(err, apperrors.ErrPaymentAlreadyProcessed) {
			return HandlerResult{
				Status:  "ok",
				Message: "payment already reconciled",
				Data:    map[string]int64{"movementId": evt.MovementID},
			}
		}
		h.recordFailure(ctx, d, "handlePaymentCreated", err)
		return HandlerResult{
			Status:  "error",
			Message: err.Error(),
			Data:    map[string]int64{"movementId": evt.MovementID, "loanId": evt.LoanID},
		}
	}

	return HandlerResult{
		Status:  "ok",
		Message: "payment reconciled",
		Data:    map[string]int64{"movementId": evt.MovementID, "loanId": evt.LoanID},
	}
}

func (h *ReconciliationHandler) handleSettleOverdueInterest(ctx context.Context, d amqp.Delivery) HandlerResult {
	if err := h.accrual.Run(ctx); err != nil {
		h.recordFailure(ctx, d, "handleSettleOverdueInterest", err)
		return HandlerResult{Status: "error", Message: err.Error()}
	}
	return HandlerResult{Status: "ok", Message: "overdue interest settled"}
}

func (h *ReconciliationHandler) recordFailure(ctx context.Context, d amqp.Delivery, functionName string, handlerErr error) {
	if h.audit == nil {
		return
	}
	rec := NewAuditRecord(d.RoutingKey, functionName, d.Body, handlerErr, h.environment)
	if err := h.audit.SaveAuditRecord(ctx, rec); err != nil {
		h.logger.ErrorContext(ctx, "Failed to save audit record",
			slog.String("routingKey", d.RoutingKey), slog.Any("error", err))
	}
}
