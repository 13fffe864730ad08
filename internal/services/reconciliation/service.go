// Package reconciliation drives batch matching of bank transactions
// against open receivables and payments, and owns the item state machine
// (apply, manual match, exception, unmatch).
package reconciliation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"
)

// CandidateRepository is the read-only view over unmatched receivables
// and payments, plus the reconciled-flag write applied on match.
type CandidateRepository interface {
	UnmatchedReceivables(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]models.Candidate, error)
	UnmatchedPayments(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]models.Candidate, error)
	SetReconciled(ctx context.Context, kind string, id uuid.UUID, reconciled bool) error
}

// BankFeed reads normalized bank transactions deposited by the ingestion
// pipeline and owns the transaction-side reconciled flag.
type BankFeed interface {
	UnreconciledTransactions(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]models.BankTransaction, error)
	SetReconciled(ctx context.Context, id uuid.UUID, reconciled bool) error
}

// RuleStore resolves the matching parameters for a business.
type RuleStore interface {
	ActiveRule(ctx context.Context, businessID uuid.UUID) (*models.MatchingRule, error)
}

// BatchRepository persists batches and their running counters.
type BatchRepository interface {
	Create(ctx context.Context, batch *models.ReconciliationBatch) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReconciliationBatch, error)
	CountByNumberPrefix(ctx context.Context, businessID uuid.UUID, prefix string) (int64, error)
	HasInProgress(ctx context.Context, businessID uuid.UUID) (bool, error)
	AddCounters(ctx context.Context, batchID uuid.UUID, d repository.CounterDelta) error
	Finalize(ctx context.Context, batchID uuid.UUID, status string, failureDetails []byte) error
	Summarize(ctx context.Context, businessID uuid.UUID, from, to time.Time) (*repository.SummaryRow, error)
}

// ItemRepository persists reconciliation items; Transition is the
// compare-and-swap every state change goes through.
type ItemRepository interface {
	Create(ctx context.Context, item *models.ReconciliationItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReconciliationItem, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.ReconciliationItem, error)
	ListUnmatched(ctx context.Context, batchID uuid.UUID, page, limit int) ([]models.ReconciliationItem, error)
	Transition(ctx context.Context, item *models.ReconciliationItem, expected ...string) (bool, error)
}

// AuditLog appends one record per item transition and serves the
// transition history back for audit queries.
type AuditLog interface {
	Record(ctx context.Context, entry *models.MatchAuditLog) error
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.MatchAuditLog, error)
}

// Notifier receives the completion event of a batch run.
type Notifier interface {
	BatchCompleted(batchID uuid.UUID, matched, unmatched int)
}

// Service is the reconciliation engine. It holds no state beyond its
// collaborators; everything persistent lives behind the repositories.
type Service struct {
	candidates CandidateRepository
	bankFeed   BankFeed
	rules      RuleStore
	batches    BatchRepository
	items      ItemRepository
	audit      AuditLog
	notifier   Notifier
	log        *logrus.Entry

	// inFlight serializes batch starts per business within this process.
	inFlight sync.Map
}

func NewService(
	candidates CandidateRepository,
	bankFeed BankFeed,
	rules RuleStore,
	batches BatchRepository,
	items ItemRepository,
	audit AuditLog,
	notifier Notifier,
) *Service {
	if notifier == nil {
		notifier = NewLogNotifier()
	}
	return &Service{
		candidates: candidates,
		bankFeed:   bankFeed,
		rules:      rules,
		batches:    batches,
		items:      items,
		audit:      audit,
		notifier:   notifier,
		log:        logrus.WithField("component", "reconciliation"),
	}
}

type logNotifier struct {
	log *logrus.Entry
}

// NewLogNotifier returns the default completion notifier, which logs the
// event for external subscribers to pick up from the log stream.
func NewLogNotifier() Notifier {
	return &logNotifier{log: logrus.WithField("component", "reconciliation.notifier")}
}

func (n *logNotifier) BatchCompleted(batchID uuid.UUID, matched, unmatched int) {
	n.log.WithFields(logrus.Fields{
		"batch_id":  batchID,
		"matched":   matched,
		"unmatched": unmatched,
	}).Info("batch completed")
}
