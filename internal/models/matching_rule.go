package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MatchingRule holds the tunable matching parameters for one business.
// The highest-priority active rule is used by the scoring engine.
// Rules are deactivated, never hard-deleted, so historical items keep
// a valid reference to the parameters they were scored with.
type MatchingRule struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID uuid.UUID `gorm:"type:uuid;index" json:"business_id"`
	Name       string    `json:"name"`
	Priority   int       `gorm:"index" json:"priority"`

	AmountTolerancePercent float64 `json:"amount_tolerance_percent"`
	DateToleranceDays      int     `json:"date_tolerance_days"`
	MinMatchScore          int     `json:"min_match_score"`
	AutoMatchScore         int     `json:"auto_match_score"`

	ReferenceWeight     int `json:"reference_weight"`
	ExactAmountWeight   int `json:"exact_amount_weight"`
	FuzzyAmountWeight   int `json:"fuzzy_amount_weight"`
	DateProximityWeight int `json:"date_proximity_weight"`
	CounterpartyWeight  int `json:"counterparty_weight"`

	IsActive      bool       `gorm:"index" json:"is_active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DefaultMatchingRule returns the parameters used when a business has no
// active rule configured.
func DefaultMatchingRule(businessID uuid.UUID) *MatchingRule {
	return &MatchingRule{
		ID:                     uuid.New(),
		BusinessID:             businessID,
		Name:                   "default",
		AmountTolerancePercent: 1.0,
		DateToleranceDays:      7,
		MinMatchScore:          70,
		AutoMatchScore:         95,
		ReferenceWeight:        50,
		ExactAmountWeight:      20,
		FuzzyAmountWeight:      10,
		DateProximityWeight:    10,
		CounterpartyWeight:     10,
		IsActive:               true,
	}
}

// WeightSum is the maximum score this rule can produce.
func (r *MatchingRule) WeightSum() int {
	return r.ReferenceWeight + r.ExactAmountWeight + r.FuzzyAmountWeight +
		r.DateProximityWeight + r.CounterpartyWeight
}

// Validate checks the rule parameters before persisting.
func (r *MatchingRule) Validate() error {
	if r.BusinessID == uuid.Nil {
		return fmt.Errorf("business_id is required")
	}
	if r.AmountTolerancePercent < 0 {
		return fmt.Errorf("amount_tolerance_percent must not be negative")
	}
	if r.DateToleranceDays < 0 {
		return fmt.Errorf("date_tolerance_days must not be negative")
	}
	if r.MinMatchScore < 0 || r.MinMatchScore > 100 {
		return fmt.Errorf("min_match_score must be between 0 and 100")
	}
	if r.AutoMatchScore < r.MinMatchScore || r.AutoMatchScore > 100 {
		return fmt.Errorf("auto_match_score must be between min_match_score and 100")
	}
	for name, w := range map[string]int{
		"reference_weight":      r.ReferenceWeight,
		"exact_amount_weight":   r.ExactAmountWeight,
		"fuzzy_amount_weight":   r.FuzzyAmountWeight,
		"date_proximity_weight": r.DateProximityWeight,
		"counterparty_weight":   r.CounterpartyWeight,
	} {
		if w < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if sum := r.WeightSum(); sum > 100 {
		return fmt.Errorf("weights sum to %d, must not exceed 100", sum)
	}
	return nil
}
