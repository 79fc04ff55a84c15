package routes

import (
	"time"

	"mira-backend/firebase"
	"mira-backend/handlers"
	"mira-backend/metrics"
	"mira-backend/middleware"
	"mira-backend/services"
	"mira-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer needs. Storage may be nil when image
// uploads are not configured.
type Deps struct {
	DB       *gorm.DB
	Cart     *services.CartService
	Storage  firebase.StorageClient
	TokenTTL time.Duration

	// RateLimitPerMinute applies per client IP to auth, review and contact writes.
	RateLimitPerMinute int
	SyncConcurrency    int
}

// SetupRoutes installs the middleware chain and every route. The returned
// limiter must be stopped on shutdown.
func SetupRoutes(r *gin.Engine, deps Deps) *middleware.RateLimiter {
	if deps.Cart == nil {
		deps.Cart = services.NewCartService(deps.DB, nil)
	}
	if deps.RateLimitPerMinute <= 0 {
		deps.RateLimitPerMinute = 30
	}

	utils.RegisterValidators()

	r.Use(middleware.RequestID(), middleware.Recovery(), middleware.RequestLogger(), metrics.Middleware())

	// Initialize handlers
	authHandler := &handlers.AuthHandler{DB: deps.DB, TokenTTL: deps.TokenTTL}
	productHandler := &handlers.ProductHandler{DB: deps.DB, Storage: deps.Storage}
	reviewHandler := &handlers.ReviewHandler{DB: deps.DB}
	contactHandler := handlers.NewContactHandler(deps.DB)
	cartHandler := handlers.NewCartHandler(deps.Cart)
	syncHandler := &handlers.CartSyncHandler{Service: deps.Cart, Concurrency: deps.SyncConcurrency}

	limiter := middleware.NewRateLimiter(deps.RateLimitPerMinute, time.Minute)
	limited := limiter.Middleware()

	// Public routes
	api := r.Group("/api")
	{
		// Auth routes
		api.POST("/auth/register", limited, authHandler.Register)
		api.POST("/auth/login", limited, authHandler.Login)

		// Catalog
		api.GET("/products", productHandler.GetProducts)
		api.GET("/products/:id", productHandler.GetProduct)

		// Reviews
		api.GET("/reviews", reviewHandler.GetReviews)
		api.POST("/reviews", limited, reviewHandler.CreateReview)
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/auth/profile", authHandler.GetProfile)

		protected.POST("/contact", limited, contactHandler.SendMessage)

		// Cart routes. The item id comes from the path or from ?id=.
		protected.GET("/cart", cartHandler.GetCart)
		protected.POST("/cart", cartHandler.AddToCart)
		protected.PUT("/cart", cartHandler.UpdateCartItem)
		protected.PUT("/cart/:id", cartHandler.UpdateCartItem)
		protected.DELETE("/cart", cartHandler.RemoveCartItem)
		protected.DELETE("/cart/:id", cartHandler.RemoveCartItem)
		protected.POST("/cart/sync", syncHandler.SyncCart)
	}

	// Admin routes (require admin role)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.POST("/products", productHandler.CreateProduct)
		admin.PUT("/products/:id", productHandler.UpdateProduct)
		admin.DELETE("/products/:id", productHandler.DeleteProduct)
		admin.POST("/products/:id/image", productHandler.UploadProductImage)
		admin.POST("/products/:id/image/import", productHandler.ImportProductImage)

		admin.DELETE("/reviews/:id", reviewHandler.DeleteReview)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	return limiter
}
