package matching

import "bank-reconciliation-backend/internal/models"

// Selection is the outcome of ranking candidates for one transaction.
// Candidate is nil when nothing qualified; Score still reports the best
// score seen so callers can log near-misses.
type Selection struct {
	Candidate *models.Candidate
	Score     int
	Breakdown Breakdown
}

// SelectBestMatch scores every candidate and keeps the strict maximum;
// ties keep the first encountered, so results are deterministic for a
// given candidate ordering. A candidate qualifies only when its score
// reaches the rule's minimum match score.
func SelectBestMatch(tx *models.BankTransaction, candidates []models.Candidate, rule *models.MatchingRule) Selection {
	var best Selection

	for i := range candidates {
		score, bd := Score(tx, &candidates[i], rule)
		if best.Candidate == nil || score > best.Score {
			best = Selection{Candidate: &candidates[i], Score: score, Breakdown: bd}
		}
	}

	if best.Candidate == nil || best.Score < rule.MinMatchScore {
		return Selection{Score: best.Score, Breakdown: best.Breakdown}
	}
	return best
}
