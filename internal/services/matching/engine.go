// Package matching implements the scoring engine used by reconciliation:
// a bank transaction is scored against each candidate with a weighted,
// additive rule set (reference, amount, date proximity, counterparty) and
// the best qualifying candidate wins.
package matching

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"bank-reconciliation-backend/internal/models"
)

// counterpartySimilarityFloor is the minimum bigram similarity below
// which a non-containment counterparty match contributes nothing.
const counterpartySimilarityFloor = 0.7

// Breakdown records the partial score each factor contributed. It is
// persisted on the item so reviewers can see why a match scored as it did.
type Breakdown struct {
	Reference     float64 `json:"reference"`
	Amount        float64 `json:"amount"`
	AmountExact   bool    `json:"amount_exact"`
	DateProximity float64 `json:"date_proximity"`
	Counterparty  float64 `json:"counterparty"`
	Total         int     `json:"total"`
}

// Score computes the 0..100 match score between a bank transaction and a
// candidate under the given rule. Partial scores are independent and
// additive, so a transaction can still match on amount alone. The caller
// guarantees the rule's weights sum to at most 100.
func Score(tx *models.BankTransaction, cand *models.Candidate, rule *models.MatchingRule) (int, Breakdown) {
	var bd Breakdown

	bd.Reference = referenceScore(tx.ReferenceNumber, cand.Reference, rule)
	bd.Amount, bd.AmountExact = amountScore(tx.Amount, cand.Amount, rule)
	bd.DateProximity = dateProximityScore(tx, cand, rule)
	bd.Counterparty = counterpartyScore(tx.CounterpartyName, cand.CounterpartyName, rule)

	total := bd.Reference + bd.Amount + bd.DateProximity + bd.Counterparty
	bd.Total = int(math.Round(total))
	return bd.Total, bd
}

// referenceScore gives full weight when either reference contains the
// other, case-insensitively. No partial credit.
func referenceScore(txRef, candRef string, rule *models.MatchingRule) float64 {
	a := strings.ToUpper(strings.TrimSpace(txRef))
	b := strings.ToUpper(strings.TrimSpace(candRef))
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return float64(rule.ReferenceWeight)
	}
	return 0
}

// amountScore awards the exact weight on numeric equality, else the fuzzy
// weight when the difference is within the percentage tolerance. The two
// tiers are mutually exclusive.
func amountScore(bankAmount, candAmount float64, rule *models.MatchingRule) (float64, bool) {
	bank := decimal.NewFromFloat(bankAmount)
	cand := decimal.NewFromFloat(candAmount)

	if bank.Equal(cand) {
		return float64(rule.ExactAmountWeight), true
	}
	if cand.IsZero() {
		return 0, false
	}

	diffPercent := bank.Sub(cand).Abs().Div(cand.Abs()).Mul(decimal.NewFromInt(100))
	if diffPercent.LessThanOrEqual(decimal.NewFromFloat(rule.AmountTolerancePercent)) {
		return float64(rule.FuzzyAmountWeight), false
	}
	return 0, false
}

// dateProximityScore decays linearly from full weight at zero days to
// zero at the tolerance boundary.
func dateProximityScore(tx *models.BankTransaction, cand *models.Candidate, rule *models.MatchingRule) float64 {
	if rule.DateToleranceDays <= 0 {
		return 0
	}
	days := math.Abs(tx.TransactionDate.Sub(cand.Date).Hours() / 24)
	tolerance := float64(rule.DateToleranceDays)
	if days > tolerance {
		return 0
	}
	score := float64(rule.DateProximityWeight) * (1 - days/tolerance)
	return math.Max(score, 0)
}

// counterpartyScore gives full weight on containment, else a similarity
// share when the bigram similarity clears the floor.
func counterpartyScore(txName, candName string, rule *models.MatchingRule) float64 {
	a := NormalizeName(txName)
	b := NormalizeName(candName)
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return float64(rule.CounterpartyWeight)
	}
	sim := DiceSimilarity(a, b)
	if sim > counterpartySimilarityFloor {
		return float64(rule.CounterpartyWeight) * sim
	}
	return 0
}
