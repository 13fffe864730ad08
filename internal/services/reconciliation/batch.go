package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bank-reconciliation-backend/internal/apperrors"
	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"
	"bank-reconciliation-backend/internal/services/matching"
)

const (
	batchNumberPrefix = "RB"
	batchNumberTries  = 3

	// Default window when the caller gives none.
	defaultWindowDays = 30

	// Candidates are fetched in a window widened around the bank
	// transactions to tolerate settlement lag.
	candidateLookBehindDays = 30
	candidateLookAheadDays  = 7
)

// batchFailure is one per-transaction processing failure recorded in the
// batch's failure details.
type batchFailure struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Stage         string    `json:"stage"`
	Error         string    `json:"error"`
}

// StartBatch creates an IN_PROGRESS batch and kicks off processing in the
// background. The caller gets the batch immediately and polls for
// completion. Batch starts are serialized per business: a second start
// while one is running is a conflict.
func (s *Service) StartBatch(ctx context.Context, businessID uuid.UUID, start, end *time.Time) (*models.ReconciliationBatch, error) {
	if businessID == uuid.Nil {
		return nil, apperrors.Validationf("business_id is required")
	}

	endDate := time.Now()
	if end != nil {
		endDate = *end
	}
	startDate := endDate.AddDate(0, 0, -defaultWindowDays)
	if start != nil {
		startDate = *start
	}
	if startDate.After(endDate) {
		return nil, apperrors.Validationf("start_date must not be after end_date")
	}

	if _, running := s.inFlight.LoadOrStore(businessID, struct{}{}); running {
		return nil, apperrors.Conflictf("a batch is already running for business %s", businessID)
	}
	release := func() { s.inFlight.Delete(businessID) }

	inProgress, err := s.batches.HasInProgress(ctx, businessID)
	if err != nil {
		release()
		return nil, err
	}
	if inProgress {
		release()
		return nil, apperrors.Conflictf("a batch is already in progress for business %s", businessID)
	}

	batch, err := s.createBatch(ctx, businessID, startDate, endDate)
	if err != nil {
		release()
		return nil, err
	}

	go func() {
		defer release()
		s.processBatch(context.Background(), batch)
	}()

	return batch, nil
}

// createBatch allocates the date-prefixed batch number and inserts the
// batch, retrying on a sequence race.
func (s *Service) createBatch(ctx context.Context, businessID uuid.UUID, startDate, endDate time.Time) (*models.ReconciliationBatch, error) {
	prefix := batchNumberPrefix + time.Now().UTC().Format("20060102")

	var lastErr error
	for attempt := 0; attempt < batchNumberTries; attempt++ {
		count, err := s.batches.CountByNumberPrefix(ctx, businessID, prefix)
		if err != nil {
			return nil, err
		}

		batch := &models.ReconciliationBatch{
			ID:          uuid.New(),
			BusinessID:  businessID,
			BatchNumber: fmt.Sprintf("%s%04d", prefix, count+1+int64(attempt)),
			StartDate:   startDate,
			EndDate:     endDate,
			Status:      models.BatchStatusInProgress,
			StartedAt:   time.Now(),
			CreatedAt:   time.Now(),
		}

		err = s.batches.Create(ctx, batch)
		if err == nil {
			return batch, nil
		}
		if !apperrors.Is(err, apperrors.KindConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// processBatch is the batch run: load rules and candidates, score each
// transaction, create its item, auto-apply high-confidence matches, and
// finalize. Per-transaction upstream failures are recorded and the run
// continues; a failure loading the initial inputs fails the whole batch.
func (s *Service) processBatch(ctx context.Context, batch *models.ReconciliationBatch) {
	log := s.log.WithFields(logrus.Fields{
		"batch_id":     batch.ID,
		"batch_number": batch.BatchNumber,
		"business_id":  batch.BusinessID,
	})
	log.Info("batch processing started")

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("batch processing panicked")
			s.failBatch(ctx, batch, nil)
		}
	}()

	rule, err := s.activeRule(ctx, batch.BusinessID)
	if err != nil {
		log.WithError(err).Error("loading matching rule failed")
		s.failBatch(ctx, batch, nil)
		return
	}

	txs, err := s.bankFeed.UnreconciledTransactions(ctx, batch.BusinessID, batch.StartDate, batch.EndDate)
	if err != nil {
		log.WithError(err).Error("loading bank transactions failed")
		s.failBatch(ctx, batch, nil)
		return
	}

	pool, err := s.loadCandidatePool(ctx, batch)
	if err != nil {
		log.WithError(err).Error("loading candidates failed")
		s.failBatch(ctx, batch, nil)
		return
	}

	consumed := make(map[uuid.UUID]bool)
	var failures []batchFailure
	matched, unmatched := 0, 0

	for i := range txs {
		tx := &txs[i]
		if tx.IsReconciled {
			continue
		}

		candidates := eligibleCandidates(tx, pool, consumed)
		sel := matching.SelectBestMatch(tx, candidates, rule)

		item, err := s.createItem(ctx, batch, tx, sel)
		if err != nil {
			log.WithError(err).WithField("transaction_id", tx.ID).Error("creating item failed")
			failures = append(failures, batchFailure{TransactionID: tx.ID, Stage: "create_item", Error: err.Error()})
			s.addCounters(ctx, batch.ID, repository.CounterDelta{Total: 1, Failed: 1})
			continue
		}

		delta := repository.CounterDelta{Total: 1}
		switch {
		case sel.Candidate != nil && sel.Score >= rule.AutoMatchScore:
			if err := s.applyItem(ctx, item, models.ResolvedBySystem, models.AuditActionAutoApplied, models.ItemStatusMatched); err != nil {
				log.WithError(err).WithField("item_id", item.ID).Warn("auto-apply failed, item left for manual review")
				failures = append(failures, batchFailure{TransactionID: tx.ID, Stage: "auto_apply", Error: err.Error()})
				delta.Failed = 1
			} else {
				consumed[sel.Candidate.ID] = true
				delta.Matched = 1
				matched++
			}
		case item.Status == models.ItemStatusUnmatched:
			delta.Unmatched = 1
			unmatched++
		}
		s.addCounters(ctx, batch.ID, delta)
	}

	details := marshalFailures(failures)
	if err := s.batches.Finalize(ctx, batch.ID, models.BatchStatusCompleted, details); err != nil {
		log.WithError(err).Error("finalizing batch failed")
		return
	}

	log.WithFields(logrus.Fields{
		"total":     len(txs),
		"matched":   matched,
		"unmatched": unmatched,
		"failed":    len(failures),
	}).Info("batch processing finished")
	s.notifier.BatchCompleted(batch.ID, matched, unmatched)
}

// activeRule resolves the business's highest-priority active rule,
// falling back to the built-in defaults when none is configured.
func (s *Service) activeRule(ctx context.Context, businessID uuid.UUID) (*models.MatchingRule, error) {
	rule, err := s.rules.ActiveRule(ctx, businessID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return models.DefaultMatchingRule(businessID), nil
		}
		return nil, err
	}
	if err := rule.Validate(); err != nil {
		return nil, apperrors.Validationf("active rule %s is invalid: %v", rule.ID, err)
	}
	return rule, nil
}

// loadCandidatePool fetches receivables and payments once, over the
// batch window widened by the settlement-lag margins. Receivables come
// first so they win score ties against payments.
func (s *Service) loadCandidatePool(ctx context.Context, batch *models.ReconciliationBatch) ([]models.Candidate, error) {
	from := batch.StartDate.AddDate(0, 0, -candidateLookBehindDays)
	to := batch.EndDate.AddDate(0, 0, candidateLookAheadDays)

	receivables, err := s.candidates.UnmatchedReceivables(ctx, batch.BusinessID, from, to)
	if err != nil {
		return nil, err
	}
	payments, err := s.candidates.UnmatchedPayments(ctx, batch.BusinessID, from, to)
	if err != nil {
		return nil, err
	}
	return append(receivables, payments...), nil
}

// eligibleCandidates filters the pool to the transaction's own widened
// window, skipping candidates already consumed in this run. Order is
// preserved so selection stays deterministic.
func eligibleCandidates(tx *models.BankTransaction, pool []models.Candidate, consumed map[uuid.UUID]bool) []models.Candidate {
	from := tx.TransactionDate.AddDate(0, 0, -candidateLookBehindDays)
	to := tx.TransactionDate.AddDate(0, 0, candidateLookAheadDays)

	var out []models.Candidate
	for _, c := range pool {
		if consumed[c.ID] {
			continue
		}
		if c.Date.Before(from) || c.Date.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// createItem records the matching outcome for one transaction. The
// selector's result determines the initial state.
func (s *Service) createItem(ctx context.Context, batch *models.ReconciliationBatch, tx *models.BankTransaction, sel matching.Selection) (*models.ReconciliationItem, error) {
	item := &models.ReconciliationItem{
		ID:                uuid.New(),
		BatchID:           batch.ID,
		BusinessID:        batch.BusinessID,
		BankTransactionID: tx.ID,
		BankAmount:        tx.Amount,
		BankDate:          tx.TransactionDate,
		BankDescription:   tx.Description,
		BankReference:     tx.ReferenceNumber,
		CounterpartyName:  tx.CounterpartyName,
		MatchScore:        sel.Score,
		Status:            models.ItemStatusUnmatched,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	if sel.Candidate != nil {
		item.Status = models.ItemStatusMatched
		item.MatchedCandidateKind = sel.Candidate.Kind
		candidateID := sel.Candidate.ID
		item.MatchedCandidateID = &candidateID
		if bd, err := json.Marshal(sel.Breakdown); err == nil {
			item.ScoreBreakdown = bd
		}
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, item, models.AuditActionCreated, "", item.Status, models.ResolvedBySystem, "")
	return item, nil
}

func (s *Service) failBatch(ctx context.Context, batch *models.ReconciliationBatch, failures []batchFailure) {
	if err := s.batches.Finalize(ctx, batch.ID, models.BatchStatusFailed, marshalFailures(failures)); err != nil {
		s.log.WithError(err).WithField("batch_id", batch.ID).Error("marking batch failed failed")
	}
}

func (s *Service) addCounters(ctx context.Context, batchID uuid.UUID, d repository.CounterDelta) {
	if err := s.batches.AddCounters(ctx, batchID, d); err != nil {
		s.log.WithError(err).WithField("batch_id", batchID).Error("updating batch counters failed")
	}
}

func marshalFailures(failures []batchFailure) []byte {
	if len(failures) == 0 {
		return nil
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return nil
	}
	return data
}

func (s *Service) recordAudit(ctx context.Context, item *models.ReconciliationItem, action, from, to, by, reason string) {
	entry := &models.MatchAuditLog{
		ID:          uuid.New(),
		ItemID:      item.ID,
		BatchID:     item.BatchID,
		Action:      action,
		FromStatus:  from,
		ToStatus:    to,
		PerformedBy: by,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}
	if item.MatchedCandidateID != nil {
		entry.CandidateKind = item.MatchedCandidateKind
		entry.CandidateID = item.MatchedCandidateID
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		// Audit must not block the operation, but it must be visible.
		s.log.WithError(err).WithField("item_id", item.ID).Error("recording audit entry failed")
	}
}
