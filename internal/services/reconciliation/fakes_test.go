package reconciliation_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bank-reconciliation-backend/internal/apperrors"
	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"
)

// In-memory implementations of the service's repository interfaces.

type fakeCandidateRepo struct {
	mu          sync.Mutex
	receivables []models.Candidate
	payments    []models.Candidate
	reconciled  map[uuid.UUID]bool
	listErr     error
}

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{reconciled: map[uuid.UUID]bool{}}
}

func (f *fakeCandidateRepo) filter(list []models.Candidate, from, to time.Time) []models.Candidate {
	var out []models.Candidate
	for _, c := range list {
		if f.reconciled[c.ID] {
			continue
		}
		if c.Date.Before(from) || c.Date.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (f *fakeCandidateRepo) UnmatchedReceivables(_ context.Context, _ uuid.UUID, from, to time.Time) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.filter(f.receivables, from, to), nil
}

func (f *fakeCandidateRepo) UnmatchedPayments(_ context.Context, _ uuid.UUID, from, to time.Time) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.filter(f.payments, from, to), nil
}

func (f *fakeCandidateRepo) SetReconciled(_ context.Context, _ string, id uuid.UUID, reconciled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for _, c := range append(f.receivables, f.payments...) {
		if c.ID == id {
			found = true
			break
		}
	}
	if !found {
		return apperrors.NotFoundf("candidate %s not found", id)
	}
	if f.reconciled[id] == reconciled {
		return apperrors.Conflictf("candidate %s already has reconciled=%v", id, reconciled)
	}
	f.reconciled[id] = reconciled
	return nil
}

func (f *fakeCandidateRepo) isReconciled(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconciled[id]
}

type fakeBankFeed struct {
	mu         sync.Mutex
	txs        []models.BankTransaction
	reconciled map[uuid.UUID]bool
	listErr    error
}

func newFakeBankFeed() *fakeBankFeed {
	return &fakeBankFeed{reconciled: map[uuid.UUID]bool{}}
}

func (f *fakeBankFeed) UnreconciledTransactions(_ context.Context, _ uuid.UUID, from, to time.Time) ([]models.BankTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.BankTransaction
	for _, tx := range f.txs {
		if f.reconciled[tx.ID] || tx.Direction != models.DirectionCredit {
			continue
		}
		if tx.TransactionDate.Before(from) || tx.TransactionDate.After(to) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (f *fakeBankFeed) SetReconciled(_ context.Context, id uuid.UUID, reconciled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for _, tx := range f.txs {
		if tx.ID == id {
			found = true
			break
		}
	}
	if !found {
		return apperrors.NotFoundf("bank transaction %s not found", id)
	}
	if f.reconciled[id] == reconciled {
		return apperrors.Conflictf("bank transaction %s already has reconciled=%v", id, reconciled)
	}
	f.reconciled[id] = reconciled
	return nil
}

func (f *fakeBankFeed) isReconciled(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconciled[id]
}

type fakeRuleStore struct {
	rule *models.MatchingRule
}

func (f *fakeRuleStore) ActiveRule(_ context.Context, businessID uuid.UUID) (*models.MatchingRule, error) {
	if f.rule == nil {
		return nil, apperrors.NotFoundf("no active matching rule for business %s", businessID)
	}
	r := *f.rule
	return &r, nil
}

type fakeBatchRepo struct {
	mu      sync.Mutex
	batches map[uuid.UUID]models.ReconciliationBatch
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: map[uuid.UUID]models.ReconciliationBatch{}}
}

func (f *fakeBatchRepo) Create(_ context.Context, batch *models.ReconciliationBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.batches {
		if b.BatchNumber == batch.BatchNumber {
			return apperrors.Conflictf("batch number %s already exists", batch.BatchNumber)
		}
	}
	f.batches[batch.ID] = *batch
	return nil
}

func (f *fakeBatchRepo) GetByID(_ context.Context, id uuid.UUID) (*models.ReconciliationBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[id]
	if !ok {
		return nil, apperrors.NotFoundf("batch %s not found", id)
	}
	return &b, nil
}

func (f *fakeBatchRepo) CountByNumberPrefix(_ context.Context, businessID uuid.UUID, prefix string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, b := range f.batches {
		if b.BusinessID == businessID && strings.HasPrefix(b.BatchNumber, prefix) {
			count++
		}
	}
	return count, nil
}

func (f *fakeBatchRepo) HasInProgress(_ context.Context, businessID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.batches {
		if b.BusinessID == businessID && b.Status == models.BatchStatusInProgress {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBatchRepo) AddCounters(_ context.Context, batchID uuid.UUID, d repository.CounterDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[batchID]
	if !ok {
		return apperrors.NotFoundf("batch %s not found", batchID)
	}
	b.TotalTransactions += d.Total
	b.MatchedCount += d.Matched
	b.UnmatchedCount += d.Unmatched
	b.ManualCount += d.Manual
	b.FailedCount += d.Failed
	f.batches[batchID] = b
	return nil
}

func (f *fakeBatchRepo) Finalize(_ context.Context, batchID uuid.UUID, status string, failureDetails []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[batchID]
	if !ok {
		return apperrors.NotFoundf("batch %s not found", batchID)
	}
	if b.Status != models.BatchStatusInProgress {
		return apperrors.Conflictf("batch %s is not in progress", batchID)
	}
	now := time.Now()
	b.Status = status
	b.CompletedAt = &now
	if len(failureDetails) > 0 {
		b.FailureDetails = failureDetails
	}
	f.batches[batchID] = b
	return nil
}

func (f *fakeBatchRepo) Summarize(_ context.Context, businessID uuid.UUID, from, to time.Time) (*repository.SummaryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var row repository.SummaryRow
	for _, b := range f.batches {
		if b.BusinessID != businessID || b.StartedAt.Before(from) || b.StartedAt.After(to) {
			continue
		}
		row.BatchCount++
		row.TotalTransactions += int64(b.TotalTransactions)
		row.MatchedCount += int64(b.MatchedCount)
		row.UnmatchedCount += int64(b.UnmatchedCount)
		row.ManualCount += int64(b.ManualCount)
	}
	return &row, nil
}

type fakeItemRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.ReconciliationItem
	order []uuid.UUID
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: map[uuid.UUID]models.ReconciliationItem{}}
}

func (f *fakeItemRepo) Create(_ context.Context, item *models.ReconciliationItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.BatchID == item.BatchID && existing.BankTransactionID == item.BankTransactionID {
			return apperrors.Conflictf("transaction %s already has an item in batch %s", item.BankTransactionID, item.BatchID)
		}
	}
	f.items[item.ID] = *item
	f.order = append(f.order, item.ID)
	return nil
}

func (f *fakeItemRepo) GetByID(_ context.Context, id uuid.UUID) (*models.ReconciliationItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, apperrors.NotFoundf("item %s not found", id)
	}
	return &item, nil
}

func (f *fakeItemRepo) ListByBatch(_ context.Context, batchID uuid.UUID) ([]models.ReconciliationItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ReconciliationItem
	for _, id := range f.order {
		if item := f.items[id]; item.BatchID == batchID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) ListUnmatched(_ context.Context, batchID uuid.UUID, page, limit int) ([]models.ReconciliationItem, error) {
	all, _ := f.ListByBatch(context.Background(), batchID)
	var unmatched []models.ReconciliationItem
	for _, item := range all {
		if item.Status == models.ItemStatusUnmatched || item.Status == models.ItemStatusPending {
			unmatched = append(unmatched, item)
		}
	}
	start := (page - 1) * limit
	if start >= len(unmatched) {
		return nil, nil
	}
	end := start + limit
	if end > len(unmatched) {
		end = len(unmatched)
	}
	return unmatched[start:end], nil
}

func (f *fakeItemRepo) Transition(_ context.Context, item *models.ReconciliationItem, expected ...string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.items[item.ID]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, status := range expected {
		if stored.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	stored.Status = item.Status
	stored.MatchedCandidateKind = item.MatchedCandidateKind
	stored.MatchedCandidateID = item.MatchedCandidateID
	stored.MatchScore = item.MatchScore
	stored.ScoreBreakdown = item.ScoreBreakdown
	stored.ResolvedBy = item.ResolvedBy
	stored.ResolvedAt = item.ResolvedAt
	stored.Notes = item.Notes
	stored.UpdatedAt = time.Now()
	f.items[item.ID] = stored
	return true, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.MatchAuditLog
}

func (f *fakeAudit) Record(_ context.Context, entry *models.MatchAuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) ListByItem(_ context.Context, itemID uuid.UUID) ([]models.MatchAuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MatchAuditLog
	for _, e := range f.entries {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type completionEvent struct {
	batchID   uuid.UUID
	matched   int
	unmatched int
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []completionEvent
}

func (f *fakeNotifier) BatchCompleted(batchID uuid.UUID, matched, unmatched int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, completionEvent{batchID: batchID, matched: matched, unmatched: unmatched})
}

func (f *fakeNotifier) lastEvent() (completionEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return completionEvent{}, false
	}
	return f.events[len(f.events)-1], true
}
