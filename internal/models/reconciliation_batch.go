package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Batch statuses.
const (
	BatchStatusInProgress = "IN_PROGRESS"
	BatchStatusCompleted  = "COMPLETED"
	BatchStatusFailed     = "FAILED"
)

// ReconciliationBatch identifies one reconciliation run for a business
// over a date window. Only the orchestrator mutates it while IN_PROGRESS;
// after that, only counter corrections from manual actions on its items.
type ReconciliationBatch struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID  uuid.UUID `gorm:"type:uuid;index" json:"business_id"`
	BatchNumber string    `gorm:"uniqueIndex" json:"batch_number"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Status      string    `gorm:"index" json:"status"`

	TotalTransactions int `json:"total_transactions"`
	MatchedCount      int `json:"matched_count"`
	UnmatchedCount    int `json:"unmatched_count"`
	ManualCount       int `json:"manual_count"`
	FailedCount       int `json:"failed_count"`

	// FailureDetails records per-transaction processing failures
	// (upstream errors) without failing the whole batch.
	FailureDetails datatypes.JSON `json:"failure_details,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
