package event

import (
	"context"
	"time"
)

// Routing keys published on the topic exchange. Consumers bind per key; the
// notification fan-out consumers are external services.
const (
	RoutingKeyLoanApplication           = "loan_application"
	RoutingKeyLoanInReview              = "loan_in_review"
	RoutingKeyLoanApproved              = "loan_approved"
	RoutingKeyLoanRejected              = "loan_rejected"
	RoutingKeyLoanInFunding             = "loan_in_funding"
	RoutingKeyLoanDisbursement          = "loan_disbursement"
	RoutingKeyPaymentCreated            = "payment_created"
	RoutingKeySettleLatePaymentInterest = "settle_late_payment_interest"
	RoutingKeyParticipationCreated      = "loan_participation_created"
	RoutingKeyEarlyPaymentNotifications = "send_early_payment_notifications"
	RoutingKeyLatePaymentNotifications  = "send_late_payment_notifications"
)

type LoanStatusChangedEvent struct {
	LoanID     int64     `json:"loanId"`
	BorrowerID int64     `json:"borrowerId"`
	Status     string    `json:"status"`
	Comment    string    `json:"comment,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type PaymentCreatedEvent struct {
	MovementID  int64     `json:"movementId"`
	LoanID      int64     `json:"loanId"`
	Amount      string    `json:"amount"`
	PaymentDate time.Time `json:"paymentDate"`
	Timestamp   time.Time `json:"timestamp"`
}

type ParticipationCreatedEvent struct {
	ParticipationID int64     `json:"participationId"`
	LoanID          int64     `json:"loanId"`
	LenderID        int64     `json:"lenderId"`
	Amount          string    `json:"amount"`
	FullyFunded     bool      `json:"fullyFunded"`
	Timestamp       time.Time `json:"timestamp"`
}

type LatePaymentNotificationEvent struct {
	LoanIDs       []int64   `json:"loanIds"`
	ReferenceDate string    `json:"referenceDate"`
	Timestamp     time.Time `json:"timestamp"`
}

type EarlyPaymentNotificationEvent struct {
	LoanIDs       []int64   `json:"loanIds"`
	ReferenceDate string    `json:"referenceDate"`
	Timestamp     time.Time `json:"timestamp"`
}

type Publisher interface {
	PublishLoanStatusChanged(ctx context.Context, routingKey string, evt LoanStatusChangedEvent) error
	PublishPaymentCreated(ctx context.Context, evt PaymentCreatedEvent) error
	PublishParticipationCreated(ctx context.Context, evt ParticipationCreatedEvent) error
	PublishLatePaymentNotifications(ctx context.Context, evt LatePaymentNotificationEvent) error
	PublishEarlyPaymentNotifications(ctx context.Context, evt EarlyPaymentNotificationEvent) error
}
