package dto

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/loan"
)

const dateLayout = "2006-01-02"

type CreateLoanRequest struct {
	BorrowerID         int64  `json:"borrowerId"`
	Principal          string `json:"principal"`
	AnnualInterestRate string `json:"annualInterestRate"`
	AnnualOverdueRate  string `json:"annualOverdueRate"`
	TermMonths         int    `json:"termMonths"`
	Alias              string `json:"alias,omitempty"`
}

func (r *CreateLoanRequest) Validate() error {
	if r.BorrowerID <= 0 {
		return fmt.Errorf("borrowerId must be positive")
	}
	principal, err := decimal.NewFromString(r.Principal)
	if err != nil || !principal.IsPositive() {
		return fmt.Errorf("principal must be a positive decimal string")
	}
	if _, err := decimal.NewFromString(r.AnnualInterestRate); err != nil {
		return fmt.Errorf("invalid annualInterestRate: %w", err)
	}
	if _, err := decimal.NewFromString(r.AnnualOverdueRate); err != nil {
		return fmt.Errorf("invalid annualOverdueRate: %w", err)
	}
	if !loan.IsValidTerm(r.TermMonths) {
		return fmt.Errorf("termMonths must be one of %v", loan.ValidTerms)
	}
	return nil
}

type TransitionRequest struct {
	Comment string `json:"comment,omitempty"`
}

type DisburseLoanRequest struct {
	StartDate string `json:"startDate"`
}

func (r *DisburseLoanRequest) Validate() error {
	if _, err := time.Parse(dateLayout, r.StartDate); err != nil || r.StartDate == "" {
		return fmt.Errorf("invalid startDate format (use YYYY-MM-DD): %w", err)
	}
	return nil
}

type LoanResponse struct {
	ID                 string             `json:"id"`
	BorrowerID         string             `json:"borrowerId"`
	Alias              string             `json:"alias,omitempty"`
	Principal          string             `json:"principal"`
	AnnualInterestRate string             `json:"annualInterestRate"`
	AnnualOverdueRate  string             `json:"annualOverdueRate"`
	TermMonths         int                `json:"termMonths"`
	StartDate          *string            `json:"startDate,omitempty"`
	Status             string             `json:"status"`
	Comment            string             `json:"comment,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
	Movements          []MovementResponse `json:"movements,omitempty"`
}

type MovementResponse struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Amount       string     `json:"amount"`
	Interest     string     `json:"interest"`
	Principal    string     `json:"principal"`
	Balance      string     `json:"balance"`
	DueDate      string     `json:"dueDate"`
	MovementDate *time.Time `json:"movementDate,omitempty"`
	Paid         *bool      `json:"paid,omitempty"`
	Processed    *bool      `json:"processed,omitempty"`
	Comment      string     `json:"comment,omitempty"`
	ProofURL     string     `json:"proofUrl,omitempty"`
	Generation   int        `json:"generation"`
	SupersededAt *time.Time `json:"supersededAt,omitempty"`
}

type PaymentAmountResponse struct {
	LoanID          string             `json:"loanId"`
	TotalAmount     string             `json:"totalAmount"`
	Interest        string             `json:"interest"`
	Principal       string             `json:"principal"`
	OverdueInterest string             `json:"overdueInterest"`
	ReferenceDate   string             `json:"referenceDate"`
	Movements       []MovementResponse `json:"movements"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}

func NewLoanResponse(l *loan.Loan, includeMovements bool) LoanResponse {
	resp := LoanResponse{
		ID:                 strconv.FormatInt(l.ID, 10),
		BorrowerID:         strconv.FormatInt(l.BorrowerID, 10),
		Alias:              l.Alias,
		Principal:          l.Principal.String(),
		AnnualInterestRate: l.AnnualInterestRate.String(),
		AnnualOverdueRate:  l.AnnualOverdueRate.String(),
		TermMonths:         l.TermMonths,
		Status:             string(l.Status),
		Comment:            l.Comment,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}

	if l.StartDate != nil {
		s := l.StartDate.Format(dateLayout)
		resp.StartDate = &s
	}

	if includeMovements && l.Movements != nil {
		resp.Movements = make([]MovementResponse, len(l.Movements))
		for i, m := range l.Movements {
			resp.Movements[i] = NewMovementResponse(&m)
		}
	}

	return resp
}

func NewMovementResponse(m *loan.Movement) MovementResponse {
	return MovementResponse{
		ID:           strconv.FormatInt(m.ID, 10),
		Type:         string(m.Type),
		Amount:       m.Amount.String(),
		Interest:     m.Interest.String(),
		Principal:    m.Principal.String(),
		Balance:      m.Balance.String(),
		DueDate:      m.DueDate.Format(dateLayout),
		MovementDate: m.MovementDate,
		Paid:         m.Paid,
		Processed:    m.Processed,
		Comment:      m.Comment,
		ProofURL:     m.ProofURL,
		Generation:   m.Generation,
		SupersededAt: m.SupersededAt,
	}
}

func NewPaymentAmountResponse(loanID int64, referenceDate time.Time, amount *ledger.PaymentAmount) PaymentAmountResponse {
	resp := PaymentAmountResponse{
		LoanID:          strconv.FormatInt(loanID, 10),
		TotalAmount:     amount.TotalAmount.String(),
		Interest:        amount.Interest.String(),
		Principal:       amount.Principal.String(),
		OverdueInterest: amount.OverdueInterest.String(),
		ReferenceDate:   referenceDate.Format(dateLayout),
		Movements:       make([]MovementResponse, len(amount.Movements)),
	}
	for i, m := range amount.Movements {
		resp.Movements[i] = NewMovementResponse(&m)
	}
	return resp
}
