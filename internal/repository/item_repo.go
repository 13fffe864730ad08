package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bank-reconciliation-backend/internal/apperrors"
	"bank-reconciliation-backend/internal/models"
)

// ItemRepository persists reconciliation items. Items are append-only:
// state changes go through Transition, which refuses to land unless the
// stored status is still what the caller saw.
type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Create(ctx context.Context, item *models.ReconciliationItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if isDuplicateKey(err) {
			return apperrors.Conflictf("transaction %s already has an item in batch %s", item.BankTransactionID, item.BatchID)
		}
		return apperrors.Upstreamf(err, "creating reconciliation item")
	}
	return nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReconciliationItem, error) {
	var item models.ReconciliationItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFoundf("item %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Upstreamf(err, "loading item %s", id)
	}
	return &item, nil
}

func (r *ItemRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.ReconciliationItem, error) {
	var items []models.ReconciliationItem
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, apperrors.Upstreamf(err, "listing items for batch %s", batchID)
	}
	return items, nil
}

// ListUnmatched pages through items still awaiting resolution
// (UNMATCHED or PENDING). Page is 1-based.
func (r *ItemRepository) ListUnmatched(ctx context.Context, batchID uuid.UUID, page, limit int) ([]models.ReconciliationItem, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var items []models.ReconciliationItem
	err := r.db.WithContext(ctx).
		Where("batch_id = ? AND status IN ?", batchID, []string{models.ItemStatusUnmatched, models.ItemStatusPending}).
		Order("created_at ASC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, apperrors.Upstreamf(err, "listing unmatched items for batch %s", batchID)
	}
	return items, nil
}

// Transition writes the item's mutable fields only if the stored status
// is one of expected. Returns false without error when the guard fails,
// letting the caller decide between conflict and idempotent no-op.
func (r *ItemRepository) Transition(ctx context.Context, item *models.ReconciliationItem, expected ...string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ReconciliationItem{}).
		Where("id = ? AND status IN ?", item.ID, expected).
		Updates(map[string]interface{}{
			"status":                 item.Status,
			"matched_candidate_kind": item.MatchedCandidateKind,
			"matched_candidate_id":   item.MatchedCandidateID,
			"match_score":            item.MatchScore,
			"score_breakdown":        item.ScoreBreakdown,
			"resolved_by":            item.ResolvedBy,
			"resolved_at":            item.ResolvedAt,
			"notes":                  item.Notes,
			"updated_at":             time.Now(),
		})
	if res.Error != nil {
		return false, apperrors.Upstreamf(res.Error, "transitioning item %s", item.ID)
	}
	return res.RowsAffected > 0, nil
}
