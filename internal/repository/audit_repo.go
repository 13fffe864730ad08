package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bank-reconciliation-backend/internal/apperrors"
	"bank-reconciliation-backend/internal/models"
)

// AuditRepository appends item transition records. Nothing updates or
// deletes rows here.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, entry *models.MatchAuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return apperrors.Upstreamf(err, "recording audit entry for item %s", entry.ItemID)
	}
	return nil
}

// ListByItem returns the full transition history of one item, oldest
// first, for audit queries.
func (r *AuditRepository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.MatchAuditLog, error) {
	var entries []models.MatchAuditLog
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Upstreamf(err, "listing audit entries for item %s", itemID)
	}
	return entries, nil
}
