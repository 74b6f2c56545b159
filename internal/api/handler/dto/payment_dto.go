package dto

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lending-engine/internal/domain/loan"
)

var paymentTypes = map[string]loan.MovementType{
	string(loan.MovementPayment):         loan.MovementPayment,
	string(loan.MovementTermReduction):   loan.MovementTermReduction,
	string(loan.MovementAmountReduction): loan.MovementAmountReduction,
}

type CreatePaymentRequest struct {
	Amount      string `json:"amount"`
	PaymentDate string `json:"paymentDate"`
	// Type is optional; when omitted the engine infers it from the amount.
	Type string `json:"type,omitempty"`
}

func (r *CreatePaymentRequest) Validate() error {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil || !amount.IsPositive() {
		return fmt.Errorf("amount must be a positive decimal string")
	}
	if _, err := time.Parse(dateLayout, r.PaymentDate); err != nil || r.PaymentDate == "" {
		return fmt.Errorf("invalid paymentDate format (use YYYY-MM-DD): %w", err)
	}
	if r.Type != "" {
		if _, ok := paymentTypes[r.Type]; !ok {
			return fmt.Errorf("unknown payment type %q", r.Type)
		}
	}
	return nil
}

// PaymentType resolves the optional type field. Validate must have passed.
func (r *CreatePaymentRequest) PaymentType() *loan.MovementType {
	if r.Type == "" {
		return nil
	}
	t := paymentTypes[r.Type]
	return &t
}

type ProofFileRequest struct {
	Name          string `json:"name"`
	ContentBase64 string `json:"contentBase64"`
}

func (r *ProofFileRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("proof name is required")
	}
	if _, err := base64.StdEncoding.DecodeString(r.ContentBase64); err != nil {
		return fmt.Errorf("proof contentBase64 is not valid base64: %w", err)
	}
	return nil
}

type ReconcilePaymentRequest struct {
	Proof *ProofFileRequest `json:"proof,omitempty"`
}

func (r *ReconcilePaymentRequest) Validate() error {
	if r.Proof != nil {
		return r.Proof.Validate()
	}
	return nil
}
