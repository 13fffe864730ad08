package reconciliation

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"bank-reconciliation-backend/internal/apperrors"
	"bank-reconciliation-backend/internal/models"
)

// BatchWithItems is the batch detail view returned to clients.
type BatchWithItems struct {
	models.ReconciliationBatch
	Items []models.ReconciliationItem `json:"items"`
}

// GetBatch returns one batch with all of its items.
func (s *Service) GetBatch(ctx context.Context, batchID uuid.UUID) (*BatchWithItems, error) {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return &BatchWithItems{ReconciliationBatch: *batch, Items: items}, nil
}

// ListUnmatchedItems pages through a batch's items awaiting resolution.
func (s *Service) ListUnmatchedItems(ctx context.Context, batchID uuid.UUID, page, limit int) ([]models.ReconciliationItem, error) {
	if _, err := s.batches.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	return s.items.ListUnmatched(ctx, batchID, page, limit)
}

// GetAuditTrail returns an item's full transition history, oldest first.
func (s *Service) GetAuditTrail(ctx context.Context, itemID uuid.UUID) ([]models.MatchAuditLog, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.audit.ListByItem(ctx, itemID)
}

// Summary aggregates reconciliation outcomes for a business over a
// reporting period.
type Summary struct {
	BatchCount           int64   `json:"batch_count"`
	TotalTransactions    int64   `json:"total_transactions"`
	MatchedCount         int64   `json:"matched_count"`
	UnmatchedCount       int64   `json:"unmatched_count"`
	ManualMatchCount     int64   `json:"manual_match_count"`
	AutoMatchRatePercent float64 `json:"auto_match_rate_percent"`
}

// GetSummary reports batch counts and match rates over [from, to].
// AutoMatchRatePercent is the share of processed transactions matched
// without operator involvement.
func (s *Service) GetSummary(ctx context.Context, businessID uuid.UUID, from, to time.Time) (*Summary, error) {
	if businessID == uuid.Nil {
		return nil, apperrors.Validationf("business_id is required")
	}
	if from.After(to) {
		return nil, apperrors.Validationf("from must not be after to")
	}

	row, err := s.batches.Summarize(ctx, businessID, from, to)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		BatchCount:        row.BatchCount,
		TotalTransactions: row.TotalTransactions,
		MatchedCount:      row.MatchedCount,
		UnmatchedCount:    row.UnmatchedCount,
		ManualMatchCount:  row.ManualCount,
	}
	if row.TotalTransactions > 0 {
		auto := float64(row.MatchedCount - row.ManualCount)
		rate := auto / float64(row.TotalTransactions) * 100
		summary.AutoMatchRatePercent = math.Round(rate*100) / 100
	}
	return summary, nil
}
