package models

import (
	"time"

	"github.com/google/uuid"
)

// Candidate kinds.
const (
	CandidateKindInvoice = "INVOICE"
	CandidateKindPayment = "PAYMENT"
)

// Candidate is a read-only projection of an open receivable or an
// unreconciled payment, produced on demand by the candidate repository.
// It is never persisted by the engine.
type Candidate struct {
	Kind             string    `json:"kind"`
	ID               uuid.UUID `json:"id"`
	Reference        string    `json:"reference"`
	Amount           float64   `json:"amount"`
	Date             time.Time `json:"date"`
	CounterpartyName string    `json:"counterparty_name"`
}

// CandidateFromInvoice projects an invoice into the matching view.
func CandidateFromInvoice(inv *Invoice) Candidate {
	return Candidate{
		Kind:             CandidateKindInvoice,
		ID:               inv.ID,
		Reference:        inv.InvoiceNumber,
		Amount:           inv.Amount,
		Date:             inv.IssuedAt,
		CounterpartyName: inv.CustomerName,
	}
}

// CandidateFromPayment projects a payment into the matching view.
func CandidateFromPayment(p *Payment) Candidate {
	return Candidate{
		Kind:             CandidateKindPayment,
		ID:               p.ID,
		Reference:        p.PaymentReference,
		Amount:           p.Amount,
		Date:             p.PaymentDate,
		CounterpartyName: p.PayerName,
	}
}
