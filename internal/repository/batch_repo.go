package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bank-reconciliation-backend/internal/apperrors"
	"bank-reconciliation-backend/internal/models"
)

// BatchRepository persists reconciliation batches and their running
// counters.
type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// isDuplicateKey detects a unique-index collision so callers can retry
// with the next sequence or report the conflict.
func isDuplicateKey(err error) bool {
	return err == gorm.ErrDuplicatedKey ||
		strings.Contains(strings.ToLower(err.Error()), "duplicate") ||
		strings.Contains(strings.ToLower(err.Error()), "unique")
}

func (r *BatchRepository) Create(ctx context.Context, batch *models.ReconciliationBatch) error {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		if isDuplicateKey(err) {
			return apperrors.Conflictf("batch number %s already exists", batch.BatchNumber)
		}
		return apperrors.Upstreamf(err, "creating batch")
	}
	return nil
}

func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReconciliationBatch, error) {
	var batch models.ReconciliationBatch
	err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFoundf("batch %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Upstreamf(err, "loading batch %s", id)
	}
	return &batch, nil
}

// CountByNumberPrefix counts batches for a business whose number starts
// with the given day prefix; the next sequence number is count+1.
func (r *BatchRepository) CountByNumberPrefix(ctx context.Context, businessID uuid.UUID, prefix string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReconciliationBatch{}).
		Where("business_id = ? AND batch_number LIKE ?", businessID, prefix+"%").
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Upstreamf(err, "counting batches with prefix %s", prefix)
	}
	return count, nil
}

// HasInProgress reports whether the business already has a running batch.
func (r *BatchRepository) HasInProgress(ctx context.Context, businessID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReconciliationBatch{}).
		Where("business_id = ? AND status = ?", businessID, models.BatchStatusInProgress).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Upstreamf(err, "checking in-progress batches")
	}
	return count > 0, nil
}

// CounterDelta is applied atomically to a batch's running counters so
// concurrent manual actions cannot lose updates.
type CounterDelta struct {
	Total     int
	Matched   int
	Unmatched int
	Manual    int
	Failed    int
}

func (r *BatchRepository) AddCounters(ctx context.Context, batchID uuid.UUID, d CounterDelta) error {
	updates := map[string]interface{}{}
	if d.Total != 0 {
		updates["total_transactions"] = gorm.Expr("total_transactions + ?", d.Total)
	}
	if d.Matched != 0 {
		updates["matched_count"] = gorm.Expr("matched_count + ?", d.Matched)
	}
	if d.Unmatched != 0 {
		updates["unmatched_count"] = gorm.Expr("unmatched_count + ?", d.Unmatched)
	}
	if d.Manual != 0 {
		updates["manual_count"] = gorm.Expr("manual_count + ?", d.Manual)
	}
	if d.Failed != 0 {
		updates["failed_count"] = gorm.Expr("failed_count + ?", d.Failed)
	}
	if len(updates) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.ReconciliationBatch{}).
		Where("id = ?", batchID).
		Updates(updates).Error
	if err != nil {
		return apperrors.Upstreamf(err, "updating counters for batch %s", batchID)
	}
	return nil
}

// Finalize sets the terminal status and failure metadata. Only an
// IN_PROGRESS batch can be finalized.
func (r *BatchRepository) Finalize(ctx context.Context, batchID uuid.UUID, status string, failureDetails []byte) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"completed_at": &now,
	}
	if len(failureDetails) > 0 {
		updates["failure_details"] = failureDetails
	}
	res := r.db.WithContext(ctx).Model(&models.ReconciliationBatch{}).
		Where("id = ? AND status = ?", batchID, models.BatchStatusInProgress).
		Updates(updates)
	if res.Error != nil {
		return apperrors.Upstreamf(res.Error, "finalizing batch %s", batchID)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflictf("batch %s is not in progress", batchID)
	}
	return nil
}

// SummaryRow aggregates batch counters over a reporting window.
type SummaryRow struct {
	BatchCount        int64
	TotalTransactions int64
	MatchedCount      int64
	UnmatchedCount    int64
	ManualCount       int64
}

func (r *BatchRepository) Summarize(ctx context.Context, businessID uuid.UUID, from, to time.Time) (*SummaryRow, error) {
	var row SummaryRow
	err := r.db.WithContext(ctx).Model(&models.ReconciliationBatch{}).
		Where("business_id = ? AND started_at BETWEEN ? AND ?", businessID, from, to).
		Select(
			"COUNT(*) as batch_count, " +
				"COALESCE(SUM(total_transactions),0) as total_transactions, " +
				"COALESCE(SUM(matched_count),0) as matched_count, " +
				"COALESCE(SUM(unmatched_count),0) as unmatched_count, " +
				"COALESCE(SUM(manual_count),0) as manual_count").
		Scan(&row).Error
	if err != nil {
		return nil, apperrors.Upstreamf(err, "summarizing batches for business %s", businessID)
	}
	return &row, nil
}
