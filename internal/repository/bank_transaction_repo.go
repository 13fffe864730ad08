package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bank-reconciliation-backend/internal/apperrors"
	"bank-reconciliation-backend/internal/models"
)

// BankTransactionRepository reads the normalized bank feed and owns the
// transaction-side reconciled flag.
type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

// UnreconciledTransactions returns inbound credits in the window that
// have not been reconciled yet, oldest first.
func (r *BankTransactionRepository) UnreconciledTransactions(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND is_reconciled = ?", businessID, false).
		Where("direction = ?", models.DirectionCredit).
		Where("transaction_date BETWEEN ? AND ?", from, to).
		Order("transaction_date ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, apperrors.Upstreamf(err, "listing unreconciled transactions")
	}
	return txs, nil
}

// SetReconciled flips the transaction's reconciled flag with the same
// optimistic check as the candidate side.
func (r *BankTransactionRepository) SetReconciled(ctx context.Context, id uuid.UUID, reconciled bool) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.BankTransaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperrors.Upstreamf(err, "looking up bank transaction %s", id)
	}
	if count == 0 {
		return apperrors.NotFoundf("bank transaction %s not found", id)
	}

	res := r.db.WithContext(ctx).Model(&models.BankTransaction{}).
		Where("id = ? AND is_reconciled = ?", id, !reconciled).
		Update("is_reconciled", reconciled)
	if res.Error != nil {
		return apperrors.Upstreamf(res.Error, "updating reconciled flag for transaction %s", id)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflictf("bank transaction %s already has reconciled=%v", id, reconciled)
	}
	return nil
}
