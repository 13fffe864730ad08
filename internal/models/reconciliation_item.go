package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Item statuses. MATCHED means a qualifying candidate was found but the
// match has not been applied to the underlying records yet; APPLIED means
// the reconciled flags were flipped. PENDING is the post-unmatch state,
// eligible for re-evaluation.
const (
	ItemStatusUnmatched       = "UNMATCHED"
	ItemStatusMatched         = "MATCHED"
	ItemStatusManuallyMatched = "MANUALLY_MATCHED"
	ItemStatusApplied         = "APPLIED"
	ItemStatusException       = "EXCEPTION"
	ItemStatusPending         = "PENDING"
)

// ResolvedBySystem marks items applied automatically.
const ResolvedBySystem = "SYSTEM"

// ReconciliationItem is the append-only record of one bank transaction's
// matching outcome within a batch. Corrections are new state transitions
// (audited in MatchAuditLog), never edits of history.
type ReconciliationItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID    uuid.UUID `gorm:"type:uuid;index:idx_items_batch_tx,unique" json:"batch_id"`
	BusinessID uuid.UUID `gorm:"type:uuid;index" json:"business_id"`

	BankTransactionID uuid.UUID `gorm:"type:uuid;index:idx_items_batch_tx,unique" json:"bank_transaction_id"`
	BankAmount        float64   `json:"bank_amount"`
	BankDate          time.Time `json:"bank_date"`
	BankDescription   string    `json:"bank_description"`
	BankReference     string    `json:"bank_reference"`
	CounterpartyName  string    `json:"counterparty_name"`

	MatchedCandidateKind string     `json:"matched_candidate_kind,omitempty"`
	MatchedCandidateID   *uuid.UUID `gorm:"type:uuid" json:"matched_candidate_id,omitempty"`
	MatchScore           int        `json:"match_score"`
	ScoreBreakdown       datatypes.JSON `json:"score_breakdown,omitempty"`

	Status     string     `gorm:"index" json:"status"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Notes      string     `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
