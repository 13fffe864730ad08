package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bank-reconciliation-backend/internal/apperrors"
	"bank-reconciliation-backend/internal/models"
)

// CandidateRepository is the read-only view over unmatched receivables
// and unreconciled payments, plus the reconciled-flag write used when a
// match is applied or reversed.
type CandidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// UnmatchedReceivables returns open, unreconciled invoices issued inside
// the window, projected into the matching view. Already-reconciled rows
// are excluded at read time so they can never re-enter matching.
func (r *CandidateRepository) UnmatchedReceivables(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]models.Candidate, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND is_reconciled = ?", businessID, false).
		Where("issued_at BETWEEN ? AND ?", from, to).
		Order("issued_at ASC, id ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, apperrors.Upstreamf(err, "listing unmatched receivables")
	}

	candidates := make([]models.Candidate, 0, len(invoices))
	for i := range invoices {
		candidates = append(candidates, models.CandidateFromInvoice(&invoices[i]))
	}
	return candidates, nil
}

// UnmatchedPayments returns unreconciled payments dated inside the window.
func (r *CandidateRepository) UnmatchedPayments(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]models.Candidate, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND is_reconciled = ?", businessID, false).
		Where("payment_date BETWEEN ? AND ?", from, to).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, apperrors.Upstreamf(err, "listing unmatched payments")
	}

	candidates := make([]models.Candidate, 0, len(payments))
	for i := range payments {
		candidates = append(candidates, models.CandidateFromPayment(&payments[i]))
	}
	return candidates, nil
}

// SetReconciled flips the candidate's reconciled flag with an optimistic
// check: the update only lands when the stored flag is the opposite of
// the target, so two concurrent batches cannot double-apply the same
// candidate.
func (r *CandidateRepository) SetReconciled(ctx context.Context, kind string, id uuid.UUID, reconciled bool) error {
	var model interface{}
	switch kind {
	case models.CandidateKindInvoice:
		model = &models.Invoice{}
	case models.CandidateKindPayment:
		model = &models.Payment{}
	default:
		return apperrors.Validationf("unknown candidate kind %q", kind)
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperrors.Upstreamf(err, "looking up candidate %s", id)
	}
	if count == 0 {
		return apperrors.NotFoundf("candidate %s not found", id)
	}

	res := r.db.WithContext(ctx).Model(model).
		Where("id = ? AND is_reconciled = ?", id, !reconciled).
		Update("is_reconciled", reconciled)
	if res.Error != nil {
		return apperrors.Upstreamf(res.Error, "updating reconciled flag for candidate %s", id)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflictf("candidate %s already has reconciled=%v", id, reconciled)
	}
	return nil
}
