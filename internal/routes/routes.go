package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "bank-reconciliation-backend/internal/handlers"
	"bank-reconciliation-backend/internal/repository"
	service "bank-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB) {
	candidateRepo := repository.NewCandidateRepository(db)
	transactionRepo := repository.NewBankTransactionRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	itemRepo := repository.NewItemRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	reconService := service.NewService(
		candidateRepo,
		transactionRepo,
		ruleRepo,
		batchRepo,
		itemRepo,
		auditRepo,
		service.NewLogNotifier(),
	)

	reconHandler := handler.NewReconciliationHandler(reconService)
	ruleHandler := handler.NewRuleHandler(ruleRepo)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Batch routes
	recon := api.Group("/reconciliation")
	recon.POST("/batches", reconHandler.StartBatch)
	recon.GET("/batches/:batchId", reconHandler.GetBatch)
	recon.GET("/batches/:batchId/unmatched", reconHandler.ListUnmatchedItems)
	recon.GET("/summary", reconHandler.GetSummary)

	// Item-level routes
	items := api.Group("/items")
	items.POST("/:id/apply", reconHandler.ApplyMatch)
	items.POST("/:id/match", reconHandler.ManualMatch)
	items.POST("/:id/exception", reconHandler.MarkException)
	items.POST("/:id/unmatch", reconHandler.Unmatch)
	items.GET("/:id/audit", reconHandler.GetAuditTrail)

	// Matching rule routes
	rules := api.Group("/rules")
	{
		rules.GET("", ruleHandler.List)
		rules.POST("", ruleHandler.Create)
		rules.PUT("/:id", ruleHandler.Update)
		rules.DELETE("/:id", ruleHandler.Deactivate)
	}
}
