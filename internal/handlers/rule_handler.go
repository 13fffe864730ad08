package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"
)

// RuleHandler exposes CRUD for the tunable matching parameters.
type RuleHandler struct {
	rules *repository.RuleRepository
}

func NewRuleHandler(rules *repository.RuleRepository) *RuleHandler {
	return &RuleHandler{rules: rules}
}

type rulePayload struct {
	BusinessID             string  `json:"business_id"`
	Name                   string  `json:"name"`
	Priority               int     `json:"priority"`
	AmountTolerancePercent float64 `json:"amount_tolerance_percent"`
	DateToleranceDays      int     `json:"date_tolerance_days"`
	MinMatchScore          int     `json:"min_match_score"`
	AutoMatchScore         int     `json:"auto_match_score"`
	ReferenceWeight        int     `json:"reference_weight"`
	ExactAmountWeight      int     `json:"exact_amount_weight"`
	FuzzyAmountWeight      int     `json:"fuzzy_amount_weight"`
	DateProximityWeight    int     `json:"date_proximity_weight"`
	CounterpartyWeight     int     `json:"counterparty_weight"`
}

func (h *RuleHandler) List(c *gin.Context) {
	businessID, err := uuid.Parse(c.Query("business_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid business_id"})
		return
	}
	rules, err := h.rules.List(c.Request.Context(), businessID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (h *RuleHandler) Create(c *gin.Context) {
	var payload rulePayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	businessID, err := uuid.Parse(payload.BusinessID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid business_id"})
		return
	}

	rule := &models.MatchingRule{
		ID:                     uuid.New(),
		BusinessID:             businessID,
		Name:                   payload.Name,
		Priority:               payload.Priority,
		AmountTolerancePercent: payload.AmountTolerancePercent,
		DateToleranceDays:      payload.DateToleranceDays,
		MinMatchScore:          payload.MinMatchScore,
		AutoMatchScore:         payload.AutoMatchScore,
		ReferenceWeight:        payload.ReferenceWeight,
		ExactAmountWeight:      payload.ExactAmountWeight,
		FuzzyAmountWeight:      payload.FuzzyAmountWeight,
		DateProximityWeight:    payload.DateProximityWeight,
		CounterpartyWeight:     payload.CounterpartyWeight,
		IsActive:               true,
		CreatedAt:              time.Now(),
		UpdatedAt:              time.Now(),
	}
	if err := rule.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.rules.Create(c.Request.Context(), rule); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

func (h *RuleHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var payload rulePayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	rule, err := h.rules.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	rule.Name = payload.Name
	rule.Priority = payload.Priority
	rule.AmountTolerancePercent = payload.AmountTolerancePercent
	rule.DateToleranceDays = payload.DateToleranceDays
	rule.MinMatchScore = payload.MinMatchScore
	rule.AutoMatchScore = payload.AutoMatchScore
	rule.ReferenceWeight = payload.ReferenceWeight
	rule.ExactAmountWeight = payload.ExactAmountWeight
	rule.FuzzyAmountWeight = payload.FuzzyAmountWeight
	rule.DateProximityWeight = payload.DateProximityWeight
	rule.CounterpartyWeight = payload.CounterpartyWeight
	rule.UpdatedAt = time.Now()

	if err := rule.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.rules.Update(c.Request.Context(), rule); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// Deactivate soft-deletes a rule; historical items keep referencing it.
func (h *RuleHandler) Deactivate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.rules.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rule deactivated"})
}
