package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bank-reconciliation-backend/internal/apperrors"
	service "bank-reconciliation-backend/internal/services/reconciliation"
)

const dateLayout = "2006-01-02"

type ReconciliationHandler struct {
	service *service.Service
}

func NewReconciliationHandler(s *service.Service) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}

// StartBatch kicks off a reconciliation run and returns the IN_PROGRESS
// batch immediately; clients poll GetBatch for completion.
func (h *ReconciliationHandler) StartBatch(c *gin.Context) {
	var payload struct {
		BusinessID string `json:"business_id"`
		StartDate  string `json:"start_date"`
		EndDate    string `json:"end_date"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	businessID, err := uuid.Parse(payload.BusinessID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid business_id"})
		return
	}

	var start, end *time.Time
	if payload.StartDate != "" {
		t, err := time.Parse(dateLayout, payload.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, expected YYYY-MM-DD"})
			return
		}
		start = &t
	}
	if payload.EndDate != "" {
		t, err := time.Parse(dateLayout, payload.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, expected YYYY-MM-DD"})
			return
		}
		end = &t
	}

	batch, err := h.service.StartBatch(c.Request.Context(), businessID, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"batch": batch})
}

func (h *ReconciliationHandler) GetBatch(c *gin.Context) {
	batchID, ok := parseID(c, "batchId")
	if !ok {
		return
	}
	batch, err := h.service.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *ReconciliationHandler) ListUnmatchedItems(c *gin.Context) {
	batchID, ok := parseID(c, "batchId")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	items, err := h.service.ListUnmatchedItems(c.Request.Context(), batchID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "page": page, "limit": limit})
}

func (h *ReconciliationHandler) GetSummary(c *gin.Context) {
	businessID, err := uuid.Parse(c.Query("business_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid business_id"})
		return
	}

	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from, expected YYYY-MM-DD"})
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to, expected YYYY-MM-DD"})
			return
		}
		// Include the whole end day.
		to = t.AddDate(0, 0, 1).Add(-time.Second)
	}

	summary, err := h.service.GetSummary(c.Request.Context(), businessID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReconciliationHandler) GetAuditTrail(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}
	entries, err := h.service.GetAuditTrail(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *ReconciliationHandler) ApplyMatch(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var payload struct {
		ResolvedBy string `json:"resolved_by"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	item, err := h.service.ApplyMatch(c.Request.Context(), itemID, payload.ResolvedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match applied", "item": item})
}

func (h *ReconciliationHandler) ManualMatch(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var payload struct {
		CandidateKind string `json:"candidate_kind"`
		CandidateID   string `json:"candidate_id"`
		Notes         string `json:"notes"`
		ResolvedBy    string `json:"resolved_by"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	candidateID, err := uuid.Parse(payload.CandidateID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid candidate_id"})
		return
	}

	item, err := h.service.ManualMatch(c.Request.Context(), itemID, payload.CandidateKind, candidateID, payload.Notes, payload.ResolvedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "manually matched", "item": item})
}

func (h *ReconciliationHandler) MarkException(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var payload struct {
		Notes      string `json:"notes"`
		ResolvedBy string `json:"resolved_by"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	item, err := h.service.MarkException(c.Request.Context(), itemID, payload.Notes, payload.ResolvedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked as exception", "item": item})
}

func (h *ReconciliationHandler) Unmatch(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var payload struct {
		Reason     string `json:"reason"`
		ResolvedBy string `json:"resolved_by"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	item, err := h.service.Unmatch(c.Request.Context(), itemID, payload.Reason, payload.ResolvedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match reversed", "item": item})
}
