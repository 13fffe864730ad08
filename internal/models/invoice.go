package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice is an open receivable owned by the marketplace's order system.
// The engine reads unreconciled invoices as candidates and flips
// IsReconciled when a match is applied.
type Invoice struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID    uuid.UUID `gorm:"type:uuid;index" json:"business_id"`
	InvoiceNumber string    `gorm:"uniqueIndex" json:"invoice_number"`
	CustomerName  string    `gorm:"index" json:"customer_name"`
	Amount        float64   `gorm:"index" json:"amount"`
	Status        string    `gorm:"index" json:"status"`
	IssuedAt      time.Time `json:"issued_at"`
	DueDate       time.Time `json:"due_date"`
	IsReconciled  bool      `gorm:"index" json:"is_reconciled"`
	CreatedAt     time.Time `json:"created_at"`
}

// Payment is an unreconciled payment-gateway settlement record, the other
// candidate kind a bank credit can reconcile against.
type Payment struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID       uuid.UUID `gorm:"type:uuid;index" json:"business_id"`
	PaymentReference string    `gorm:"uniqueIndex" json:"payment_reference"`
	PayerName        string    `gorm:"index" json:"payer_name"`
	Amount           float64   `gorm:"index" json:"amount"`
	PaymentDate      time.Time `json:"payment_date"`
	IsReconciled     bool      `gorm:"index" json:"is_reconciled"`
	CreatedAt        time.Time `json:"created_at"`
}
