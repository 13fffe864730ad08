package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction directions as they arrive from the bank feed.
const (
	DirectionCredit = "CREDIT"
	DirectionDebit  = "DEBIT"
)

// BankTransaction is a normalized bank-feed record. The ingestion pipeline
// deposits these; the engine only reads them and flips IsReconciled.
type BankTransaction struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID       uuid.UUID `gorm:"type:uuid;index" json:"business_id"`
	TransactionDate  time.Time `gorm:"column:transaction_date;index" json:"transaction_date"`
	Description      string    `json:"description"`
	Amount           float64   `gorm:"index" json:"amount"`
	Direction        string    `json:"direction"`
	ReferenceNumber  string    `json:"reference_number"`
	CounterpartyName string    `json:"counterparty_name"`
	IsReconciled     bool      `gorm:"index" json:"is_reconciled"`
	CreatedAt        time.Time `json:"created_at"`
}
