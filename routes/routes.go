package routes

import (
	"tirestock-backend/cache"
	"tirestock-backend/handlers"
	"tirestock-backend/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRoutes(r *gin.Engine, db *gorm.DB, store cache.Cache) {
	// Initialize handlers
	authHandler := &handlers.AuthHandler{DB: db}
	tireHandler := &handlers.TireHandler{DB: db, Cache: store}
	wheelHandler := &handlers.WheelHandler{DB: db, Cache: store}
	sparePartHandler := &handlers.SparePartHandler{DB: db, Cache: store}
	categoryHandler := &handlers.CategoryHandler{DB: db, Cache: store}
	barcodeHandler := &handlers.BarcodeHandler{DB: db}
	movementHandler := &handlers.MovementHandler{DB: db, Cache: store}
	promotionHandler := &handlers.PromotionHandler{DB: db, Cache: store}
	commissionHandler := &handlers.CommissionHandler{DB: db}
	reconciliationHandler := &handlers.ReconciliationHandler{DB: db}
	reportHandler := &handlers.ReportHandler{DB: db}
	analyticsHandler := &handlers.AnalyticsHandler{DB: db}
	notificationHandler := &handlers.NotificationHandler{DB: db, Cache: store}
	referenceHandler := &handlers.ReferenceHandler{DB: db, Cache: store}
	importHandler := &handlers.ImportHandler{DB: db, Cache: store}
	adminHandler := &handlers.AdminHandler{DB: db, Cache: store}
	chatbotHandler := &handlers.ChatbotHandler{DB: db}

	api := r.Group("/api")

	// Public routes
	api.POST("/auth/login", authHandler.Login)

	// Chatbot routes (shared secret, no user token)
	chatbot := api.Group("/chatbot")
	chatbot.Use(middleware.ChatbotMiddleware())
	{
		chatbot.GET("/tires", chatbotHandler.SearchTires)
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	protected.Use(middleware.ActivityLogger(db, "api"))
	{
		protected.GET("/auth/profile", authHandler.GetProfile)
		protected.PUT("/auth/password", authHandler.ChangePassword)

		// Catalog reads
		protected.GET("/tires", tireHandler.GetTires)
		protected.GET("/tires/search", tireHandler.SearchTires)
		protected.GET("/tires/brands", tireHandler.GetBrands)
		protected.GET("/tires/:id", tireHandler.GetTire)
		protected.GET("/wheels", wheelHandler.GetWheels)
		protected.GET("/wheels/search", wheelHandler.SearchWheels)
		protected.GET("/wheels/brands", wheelHandler.GetBrands)
		protected.GET("/wheels/:id", wheelHandler.GetWheel)
		protected.GET("/spare-parts", sparePartHandler.GetSpareParts)
		protected.GET("/spare-parts/search", sparePartHandler.SearchSpareParts)
		protected.GET("/spare-parts/:id", sparePartHandler.GetSparePart)
		protected.GET("/categories/tree", categoryHandler.GetCategoryTree)

		// Barcodes
		protected.GET("/barcodes", barcodeHandler.ListBarcodes)
		protected.GET("/barcodes/resolve", barcodeHandler.ResolveBarcode)

		// Movements: recording is open to scanner roles too; the handler
		// enforces the per-type capability.
		protected.POST("/movements/:kind", movementHandler.RecordMovement)
		protected.GET("/movements/:kind", movementHandler.GetHistory)

		// Reference data
		protected.GET("/channels", referenceHandler.GetChannels)
		protected.GET("/platforms", referenceHandler.GetPlatforms)
		protected.GET("/wholesale-customers", referenceHandler.GetWholesaleCustomers)
		protected.GET("/wholesale-customers/summary", referenceHandler.GetWholesaleSummary)

		// Promotions
		protected.GET("/promotions", promotionHandler.GetPromotions)
		protected.POST("/promotions/:id/evaluate", promotionHandler.EvaluatePrice)

		// Notifications and announcements
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread", notificationHandler.GetUnreadCount)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)
		protected.GET("/announcements", notificationHandler.GetAnnouncements)
		protected.POST("/feedback", notificationHandler.SubmitFeedback)

		// Reports
		protected.GET("/reports/daily", reportHandler.GetDailyReport)
		protected.GET("/reports/range", reportHandler.GetRangeReport)

		// Reconciliation
		protected.GET("/reconciliations", reconciliationHandler.ListReconciliations)
		protected.GET("/reconciliations/day", reconciliationHandler.GetOrCreate)
		protected.GET("/reconciliations/cross-reference", reconciliationHandler.GetCrossReference)
		protected.PUT("/reconciliations/:id/ledger", reconciliationHandler.UpdateManagerLedger)
		protected.POST("/reconciliations/:id/complete", reconciliationHandler.Complete)

		// Analytics reads
		protected.GET("/analytics/lead-times", analyticsHandler.GetLeadTimes)
		protected.GET("/analytics/:kind", analyticsHandler.GetRecommendations)
		protected.GET("/analytics/:kind/:id", analyticsHandler.RecalcItem)

		// Export
		protected.GET("/export/:kind", importHandler.ExportItems)
	}

	// Editor routes (catalog write capability)
	editor := api.Group("")
	editor.Use(middleware.AuthMiddleware())
	editor.Use(middleware.EditorMiddleware())
	editor.Use(middleware.ActivityLogger(db, "catalog-write"))
	{
		editor.POST("/tires", tireHandler.CreateTire)
		editor.PUT("/tires/:id", tireHandler.UpdateTire)
		editor.DELETE("/tires/:id", tireHandler.DeleteTire)
		editor.POST("/wheels", wheelHandler.CreateWheel)
		editor.PUT("/wheels/:id", wheelHandler.UpdateWheel)
		editor.DELETE("/wheels/:id", wheelHandler.DeleteWheel)
		editor.POST("/spare-parts", sparePartHandler.CreateSparePart)
		editor.PUT("/spare-parts/:id", sparePartHandler.UpdateSparePart)
		editor.DELETE("/spare-parts/:id", sparePartHandler.DeleteSparePart)

		editor.POST("/categories", categoryHandler.CreateCategory)
		editor.PUT("/categories/:id", categoryHandler.UpdateCategory)
		editor.DELETE("/categories/:id", categoryHandler.DeleteCategory)

		editor.POST("/barcodes", barcodeHandler.AttachBarcode)
		editor.DELETE("/barcodes/:id", barcodeHandler.DetachBarcode)

		editor.PUT("/movements/:kind/:id", movementHandler.AmendMovement)

		editor.POST("/promotions", promotionHandler.CreatePromotion)
		editor.PUT("/promotions/:id", promotionHandler.UpdatePromotion)
		editor.DELETE("/promotions/:id", promotionHandler.DeletePromotion)

		editor.POST("/platforms", referenceHandler.CreatePlatform)
		editor.POST("/wholesale-customers", referenceHandler.CreateWholesaleCustomer)
		editor.PUT("/wholesale-customers/:id", referenceHandler.UpdateWholesaleCustomer)

		editor.PUT("/analytics/lead-times", analyticsHandler.SetLeadTime)
		editor.POST("/analytics/:kind/:id/ignore", analyticsHandler.IgnoreItem)
		editor.POST("/analytics/:kind/:id/restore", analyticsHandler.RestoreItem)

		editor.POST("/import/tires", importHandler.ImportTires)
		editor.POST("/import/wheels", importHandler.ImportWheels)
		editor.POST("/import/spare-parts", importHandler.ImportSpareParts)
	}

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	admin.Use(middleware.ActivityLogger(db, "admin"))
	{
		admin.GET("/dashboard", adminHandler.GetDashboard)
		admin.POST("/rebuild-quantities", adminHandler.RebuildQuantities)
		admin.GET("/jobs/:id", adminHandler.GetJobStatus)

		admin.GET("/deleted/:kind", adminHandler.GetDeletedItems)
		admin.POST("/restore/tires/:id", tireHandler.RestoreTire)
		admin.POST("/restore/wheels/:id", wheelHandler.RestoreWheel)
		admin.POST("/restore/spare-parts/:id", sparePartHandler.RestoreSparePart)
		admin.DELETE("/items/:kind/:id", adminHandler.HardDeleteItem)
		admin.DELETE("/movements/:kind/:id", movementHandler.DeleteMovement)
		admin.DELETE("/wholesale-customers/:id", referenceHandler.DeleteWholesaleCustomer)

		admin.POST("/commissions", commissionHandler.CreateProgram)
		admin.GET("/commissions", commissionHandler.GetPrograms)
		admin.DELETE("/commissions/:id", commissionHandler.DeleteProgram)
		admin.GET("/commissions/report", commissionHandler.GetReport)
		admin.POST("/commissions/repair", commissionHandler.RepairAccruals)

		admin.POST("/users", adminHandler.CreateUser)
		admin.GET("/users", adminHandler.GetUsers)
		admin.PUT("/users/:id", adminHandler.UpdateUser)

		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings", adminHandler.UpsertSetting)
		admin.GET("/activity-log", adminHandler.GetActivityLog)

		admin.POST("/announcements", notificationHandler.CreateAnnouncement)
		admin.DELETE("/announcements/:id", notificationHandler.DeleteAnnouncement)
		admin.GET("/feedback", notificationHandler.GetFeedback)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
