// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/backoffice-backend/internal/config"
	"github.com/your-org/backoffice-backend/internal/domain/idempotency"
	"github.com/your-org/backoffice-backend/internal/interfaces/http/handlers"
	"github.com/your-org/backoffice-backend/internal/interfaces/http/middleware"
	"github.com/your-org/backoffice-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

// SetupRoutes wires every API route. Mutating endpoints that clients retry
// (creation and lifecycle transitions) sit behind the idempotency guard;
// reads and auth do not.
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	coordinator := idempotency.NewCoordinator(
		idempotency.NewStore(db),
		cfg.Idempotency.KeyTTL,
		logger.New(cfg),
	)
	guarded := middleware.Idempotency(coordinator)

	setupAuthRoutes(rg, db, cfg)
	setupCatalogRoutes(rg, db, cfg)
	setupStockRoutes(rg, db, cfg, guarded)
	setupSaleRoutes(rg, db, cfg, guarded)
	setupPurchaseRoutes(rg, db, cfg, guarded)
}

func setupAuthRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg)

	auth := rg.Group("/auth")
	{
		// Public auth endpoints
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)

		// Protected auth endpoints
		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", authHandler.GetProfile)
		}
	}

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.AdminMiddleware())
	{
		admin.POST("/users", authHandler.CreateUser)
	}
}

func setupCatalogRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	catalogHandler := handlers.NewCatalogHandler(db, cfg)

	catalog := rg.Group("/catalog")
	catalog.Use(middleware.AuthMiddleware(cfg))
	{
		catalog.POST("", catalogHandler.Create)
		catalog.GET("", catalogHandler.List)
		catalog.GET("/:id", catalogHandler.Get)
	}
}

func setupStockRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config, guarded gin.HandlerFunc) {
	stockHandler := handlers.NewStockHandler(db, cfg)

	stock := rg.Group("/stock")
	stock.Use(middleware.AuthMiddleware(cfg))
	{
		stock.POST("/bulk", guarded, stockHandler.BulkAdd)
		stock.GET("/items", stockHandler.GetItems)
		stock.GET("/movements", stockHandler.GetMovements)
	}

	reservations := rg.Group("/reservations")
	reservations.Use(middleware.AuthMiddleware(cfg))
	{
		reservations.POST("", guarded, stockHandler.CreateReservation)
		reservations.POST("/:id/release", guarded, stockHandler.ReleaseReservation)
	}
}

func setupSaleRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config, guarded gin.HandlerFunc) {
	saleHandler := handlers.NewSaleHandler(db, cfg)

	sales := rg.Group("/sales")
	sales.Use(middleware.AuthMiddleware(cfg))
	{
		sales.POST("", guarded, saleHandler.Create)
		sales.GET("", saleHandler.List)
		sales.GET("/:id", saleHandler.Get)
		sales.PUT("/:id", saleHandler.Update)
		sales.DELETE("/:id", saleHandler.Delete)
		sales.GET("/:id/invoice", saleHandler.Invoice)

		sales.POST("/:id/pay", guarded, saleHandler.Pay)
		sales.POST("/:id/cancel", guarded, saleHandler.Cancel)
		sales.POST("/:id/ship", guarded, saleHandler.Ship)
		sales.POST("/:id/deliver", guarded, saleHandler.Deliver)
	}

	// Restore reverses a soft delete and is admin-only.
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.AdminMiddleware())
	{
		admin.POST("/sales/:id/restore", saleHandler.Restore)
	}
}

func setupPurchaseRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config, guarded gin.HandlerFunc) {
	purchaseHandler := handlers.NewPurchaseHandler(db, cfg)

	purchases := rg.Group("/purchases")
	purchases.Use(middleware.AuthMiddleware(cfg))
	{
		purchases.POST("", guarded, purchaseHandler.Create)
		purchases.GET("", purchaseHandler.List)
		purchases.GET("/:id", purchaseHandler.Get)
		purchases.PUT("/:id/status", guarded, purchaseHandler.Transition)
	}

	vendors := rg.Group("/vendors")
	vendors.Use(middleware.AuthMiddleware(cfg))
	{
		vendors.POST("", purchaseHandler.CreateVendor)
		vendors.GET("", purchaseHandler.ListVendors)
	}
}
