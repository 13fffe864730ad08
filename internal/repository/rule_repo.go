package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bank-reconciliation-backend/internal/apperrors"
	"bank-reconciliation-backend/internal/models"
)

// RuleRepository is the store for tunable matching rules. Rules are
// soft-deleted (deactivated) so historical items keep their parameters.
type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Create(ctx context.Context, rule *models.MatchingRule) error {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return apperrors.Upstreamf(err, "creating matching rule")
	}
	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MatchingRule, error) {
	var rule models.MatchingRule
	err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFoundf("matching rule %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Upstreamf(err, "loading matching rule %s", id)
	}
	return &rule, nil
}

// List returns all rules for a business, active first, highest priority
// first within each group.
func (r *RuleRepository) List(ctx context.Context, businessID uuid.UUID) ([]models.MatchingRule, error) {
	var rules []models.MatchingRule
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("is_active DESC, priority DESC, created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, apperrors.Upstreamf(err, "listing matching rules")
	}
	return rules, nil
}

// ActiveRule returns the highest-priority active rule for a business, or
// a not-found error when none is configured.
func (r *RuleRepository) ActiveRule(ctx context.Context, businessID uuid.UUID) (*models.MatchingRule, error) {
	var rule models.MatchingRule
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessID, true).
		Order("priority DESC, created_at ASC").
		First(&rule).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFoundf("no active matching rule for business %s", businessID)
	}
	if err != nil {
		return nil, apperrors.Upstreamf(err, "loading active rule for business %s", businessID)
	}
	return &rule, nil
}

func (r *RuleRepository) Update(ctx context.Context, rule *models.MatchingRule) error {
	if err := r.db.WithContext(ctx).Save(rule).Error; err != nil {
		return apperrors.Upstreamf(err, "updating matching rule %s", rule.ID)
	}
	return nil
}

// Deactivate soft-deletes a rule. The row stays for audit.
func (r *RuleRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.MatchingRule{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":      false,
			"deactivated_at": &now,
		})
	if res.Error != nil {
		return apperrors.Upstreamf(res.Error, "deactivating matching rule %s", id)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundf("active matching rule %s not found", id)
	}
	return nil
}
