package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions.
const (
	AuditActionCreated       = "created"
	AuditActionAutoApplied   = "auto_applied"
	AuditActionApplied       = "applied"
	AuditActionManualMatched = "manual_matched"
	AuditActionException     = "exception"
	AuditActionUnmatched     = "unmatched"
)

// MatchAuditLog is an append-only record of every item state transition,
// so each transition stays independently queryable after later corrections.
type MatchAuditLog struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID        uuid.UUID  `gorm:"type:uuid;index" json:"item_id"`
	BatchID       uuid.UUID  `gorm:"type:uuid;index" json:"batch_id"`
	Action        string     `json:"action"`
	FromStatus    string     `json:"from_status"`
	ToStatus      string     `json:"to_status"`
	CandidateKind string     `json:"candidate_kind,omitempty"`
	CandidateID   *uuid.UUID `gorm:"type:uuid" json:"candidate_id,omitempty"`
	PerformedBy   string     `json:"performed_by"`
	Reason        string     `json:"reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
