package reconciliation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"bank-reconciliation-backend/internal/apperrors"
	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"
)

// applyItem flips the candidate and transaction reconciled flags and
// moves the item to APPLIED, guarded at every step. The two flag writes
// plus the item transition form one atomic unit: any guard failure rolls
// back the flags already flipped and surfaces a conflict, leaving the
// item untouched.
func (s *Service) applyItem(ctx context.Context, item *models.ReconciliationItem, resolvedBy, action string, expected ...string) error {
	if item.MatchedCandidateID == nil {
		// An apply without a resolved candidate is a programming error.
		return apperrors.Internalf("item %s has no matched candidate to apply", item.ID)
	}

	candidateID := *item.MatchedCandidateID
	if err := s.candidates.SetReconciled(ctx, item.MatchedCandidateKind, candidateID, true); err != nil {
		return err
	}

	if err := s.bankFeed.SetReconciled(ctx, item.BankTransactionID, true); err != nil {
		s.rollbackFlag(ctx, item.MatchedCandidateKind, candidateID)
		return err
	}

	fromStatus := item.Status
	now := time.Now()
	item.Status = models.ItemStatusApplied
	item.ResolvedBy = resolvedBy
	item.ResolvedAt = &now

	ok, err := s.items.Transition(ctx, item, expected...)
	if err != nil || !ok {
		s.rollbackFlag(ctx, item.MatchedCandidateKind, candidateID)
		if rbErr := s.bankFeed.SetReconciled(ctx, item.BankTransactionID, false); rbErr != nil {
			s.log.WithError(rbErr).WithField("item_id", item.ID).Error("rolling back transaction flag failed")
		}
		if err != nil {
			return err
		}
		return apperrors.Conflictf("item %s changed state concurrently, re-fetch and retry", item.ID)
	}

	s.recordAudit(ctx, item, action, fromStatus, models.ItemStatusApplied, resolvedBy, "")
	return nil
}

func (s *Service) rollbackFlag(ctx context.Context, kind string, candidateID uuid.UUID) {
	if err := s.candidates.SetReconciled(ctx, kind, candidateID, false); err != nil {
		s.log.WithError(err).WithField("candidate_id", candidateID).Error("rolling back candidate flag failed")
	}
}

// ApplyMatch applies a MATCHED (or MANUALLY_MATCHED) item to the
// underlying records. Re-applying an already-APPLIED item is an
// idempotent success: no flags touched, no counters incremented.
func (s *Service) ApplyMatch(ctx context.Context, itemID uuid.UUID, resolvedBy string) (*models.ReconciliationItem, error) {
	if strings.TrimSpace(resolvedBy) == "" {
		return nil, apperrors.Validationf("resolved_by is required")
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if item.Status == models.ItemStatusApplied {
		return item, nil
	}
	if item.MatchedCandidateID == nil {
		return nil, apperrors.Conflictf("item %s has no matched candidate", itemID)
	}
	if item.Status != models.ItemStatusMatched && item.Status != models.ItemStatusManuallyMatched {
		return nil, apperrors.Conflictf("item %s is %s, not eligible for apply", itemID, item.Status)
	}

	if err := s.applyItem(ctx, item, resolvedBy, models.AuditActionApplied,
		models.ItemStatusMatched, models.ItemStatusManuallyMatched); err != nil {
		return nil, err
	}

	delta := repository.CounterDelta{Matched: 1}
	if resolvedBy != models.ResolvedBySystem {
		delta.Manual = 1
	}
	s.addCounters(ctx, item.BatchID, delta)
	return item, nil
}

// ManualMatch lets an operator choose or override the candidate for an
// UNMATCHED, MATCHED, or PENDING item. The match is applied immediately
// with the operator as resolver and a fixed score of 100.
func (s *Service) ManualMatch(ctx context.Context, itemID uuid.UUID, candidateKind string, candidateID uuid.UUID, notes, resolvedBy string) (*models.ReconciliationItem, error) {
	if strings.TrimSpace(resolvedBy) == "" {
		return nil, apperrors.Validationf("resolved_by is required")
	}
	if resolvedBy == models.ResolvedBySystem {
		return nil, apperrors.Validationf("manual match requires a human resolver")
	}
	if candidateKind != models.CandidateKindInvoice && candidateKind != models.CandidateKindPayment {
		return nil, apperrors.Validationf("candidate_kind must be %s or %s", models.CandidateKindInvoice, models.CandidateKindPayment)
	}
	if candidateID == uuid.Nil {
		return nil, apperrors.Validationf("candidate_id is required")
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	eligible := map[string]bool{
		models.ItemStatusUnmatched: true,
		models.ItemStatusMatched:   true,
		models.ItemStatusPending:   true,
	}
	if !eligible[item.Status] {
		return nil, apperrors.Conflictf("item %s is %s, not eligible for manual match", itemID, item.Status)
	}

	fromStatus := item.Status
	item.MatchedCandidateKind = candidateKind
	item.MatchedCandidateID = &candidateID
	item.MatchScore = 100
	item.Status = models.ItemStatusManuallyMatched
	item.Notes = notes

	ok, err := s.items.Transition(ctx, item,
		models.ItemStatusUnmatched, models.ItemStatusMatched, models.ItemStatusPending)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Conflictf("item %s changed state concurrently, re-fetch and retry", itemID)
	}
	s.recordAudit(ctx, item, models.AuditActionManualMatched, fromStatus, models.ItemStatusManuallyMatched, resolvedBy, notes)

	if err := s.applyItem(ctx, item, resolvedBy, models.AuditActionApplied, models.ItemStatusManuallyMatched); err != nil {
		return nil, err
	}

	delta := repository.CounterDelta{Matched: 1, Manual: 1}
	if fromStatus == models.ItemStatusUnmatched || fromStatus == models.ItemStatusPending {
		delta.Unmatched = -1
	}
	s.addCounters(ctx, item.BatchID, delta)
	return item, nil
}

// MarkException marks a non-applied item as unmatchable. No side effects
// on the underlying records; a note is mandatory.
func (s *Service) MarkException(ctx context.Context, itemID uuid.UUID, notes, resolvedBy string) (*models.ReconciliationItem, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, apperrors.Validationf("notes are required when marking an exception")
	}
	if strings.TrimSpace(resolvedBy) == "" {
		return nil, apperrors.Validationf("resolved_by is required")
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == models.ItemStatusApplied {
		return nil, apperrors.Conflictf("item %s is applied, unmatch it before marking an exception", itemID)
	}
	if item.Status == models.ItemStatusException {
		return nil, apperrors.Conflictf("item %s is already an exception", itemID)
	}

	fromStatus := item.Status
	now := time.Now()
	item.Status = models.ItemStatusException
	item.ResolvedBy = resolvedBy
	item.ResolvedAt = &now
	item.Notes = notes

	ok, err := s.items.Transition(ctx, item,
		models.ItemStatusUnmatched, models.ItemStatusMatched,
		models.ItemStatusManuallyMatched, models.ItemStatusPending)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Conflictf("item %s changed state concurrently, re-fetch and retry", itemID)
	}

	s.recordAudit(ctx, item, models.AuditActionException, fromStatus, models.ItemStatusException, resolvedBy, notes)

	if fromStatus == models.ItemStatusUnmatched || fromStatus == models.ItemStatusPending {
		s.addCounters(ctx, item.BatchID, repository.CounterDelta{Unmatched: -1})
	}
	return item, nil
}

// Unmatch reverses an applied match: both reconciled flags are cleared
// and the item returns to PENDING for re-evaluation. Refused for items
// that were never applied.
func (s *Service) Unmatch(ctx context.Context, itemID uuid.UUID, reason, resolvedBy string) (*models.ReconciliationItem, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validationf("a reason is required to unmatch")
	}
	if strings.TrimSpace(resolvedBy) == "" {
		return nil, apperrors.Validationf("resolved_by is required")
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.ItemStatusApplied && item.Status != models.ItemStatusManuallyMatched {
		return nil, apperrors.Conflictf("item %s is %s and was never applied", itemID, item.Status)
	}
	if item.MatchedCandidateID == nil {
		// Applied without a candidate means corrupted state; surface loudly.
		return nil, apperrors.Internalf("item %s is applied but has no matched candidate", itemID)
	}

	candidateKind := item.MatchedCandidateKind
	candidateID := *item.MatchedCandidateID

	if err := s.candidates.SetReconciled(ctx, candidateKind, candidateID, false); err != nil {
		return nil, err
	}
	if err := s.bankFeed.SetReconciled(ctx, item.BankTransactionID, false); err != nil {
		if rbErr := s.candidates.SetReconciled(ctx, candidateKind, candidateID, true); rbErr != nil {
			s.log.WithError(rbErr).WithField("item_id", item.ID).Error("restoring candidate flag failed")
		}
		return nil, err
	}

	fromStatus := item.Status
	wasManual := item.ResolvedBy != "" && item.ResolvedBy != models.ResolvedBySystem
	now := time.Now()
	item.Status = models.ItemStatusPending
	item.MatchedCandidateKind = ""
	item.MatchedCandidateID = nil
	item.MatchScore = 0
	item.ScoreBreakdown = nil
	item.ResolvedBy = resolvedBy
	item.ResolvedAt = &now
	item.Notes = reason

	ok, err := s.items.Transition(ctx, item,
		models.ItemStatusApplied, models.ItemStatusManuallyMatched)
	if err != nil || !ok {
		// Restore the flags so already-applied state stays valid.
		if rbErr := s.candidates.SetReconciled(ctx, candidateKind, candidateID, true); rbErr != nil {
			s.log.WithError(rbErr).WithField("item_id", item.ID).Error("restoring candidate flag failed")
		}
		if rbErr := s.bankFeed.SetReconciled(ctx, item.BankTransactionID, true); rbErr != nil {
			s.log.WithError(rbErr).WithField("item_id", item.ID).Error("restoring transaction flag failed")
		}
		if err != nil {
			return nil, err
		}
		return nil, apperrors.Conflictf("item %s changed state concurrently, re-fetch and retry", itemID)
	}

	auditEntry := &models.MatchAuditLog{
		ID:            uuid.New(),
		ItemID:        item.ID,
		BatchID:       item.BatchID,
		Action:        models.AuditActionUnmatched,
		FromStatus:    fromStatus,
		ToStatus:      models.ItemStatusPending,
		CandidateKind: candidateKind,
		CandidateID:   &candidateID,
		PerformedBy:   resolvedBy,
		Reason:        reason,
		CreatedAt:     time.Now(),
	}
	if err := s.audit.Record(ctx, auditEntry); err != nil {
		s.log.WithError(err).WithField("item_id", item.ID).Error("recording audit entry failed")
	}

	delta := repository.CounterDelta{Matched: -1, Unmatched: 1}
	if wasManual {
		delta.Manual = -1
	}
	s.addCounters(ctx, item.BatchID, delta)
	return item, nil
}
