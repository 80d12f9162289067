package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/primeapparel/marketplace-backend/config"
	"github.com/primeapparel/marketplace-backend/internal/app/controller"
	"github.com/primeapparel/marketplace-backend/internal/db"
	"github.com/primeapparel/marketplace-backend/internal/middleware"
	"github.com/primeapparel/marketplace-backend/internal/policy"
	"gorm.io/gorm"
)

type Router struct {
	authController         *controller.AuthController
	userAdminController    *controller.UserAdminController
	leadController         *controller.LeadController
	productController      *controller.ProductController
	uploadController       *controller.UploadController
	notificationController *controller.NotificationController
	authMiddleware         *middleware.AuthMiddleware
	db                     *gorm.DB
	config                 *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	userAdminController *controller.UserAdminController,
	leadController *controller.LeadController,
	productController *controller.ProductController,
	uploadController *controller.UploadController,
	notificationController *controller.NotificationController,
	authMiddleware *middleware.AuthMiddleware,
	gormDB *gorm.DB,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:         authController,
		userAdminController:    userAdminController,
		leadController:         leadController,
		productController:      productController,
		uploadController:       uploadController,
		notificationController: notificationController,
		authMiddleware:         authMiddleware,
		db:                     gormDB,
		config:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)
	controller.RegisterValidators()

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", r.health)

	// Local uploads are served by the API itself.
	if r.config.Storage.Driver == "" || r.config.Storage.Driver == "local" {
		if prefix := mediaPrefix(r.config.Storage.MediaURL); prefix != "" {
			router.Static(prefix, r.config.Storage.MediaRoot)
		}
	}

	authn := r.authMiddleware.Authenticate()
	allow := r.authMiddleware.Authorize

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/token/refresh", r.authController.RefreshToken)
			auth.POST("/logout", authn, r.authController.Logout)
			auth.GET("/me", authn, r.authController.GetMe)
			auth.PATCH("/me", authn, r.authController.UpdateMe)
			auth.POST("/change-password", authn, r.authController.ChangePassword)
			auth.POST("/password-reset/request", r.authController.RequestPasswordReset)
			auth.POST("/password-reset/verify", r.authController.VerifyPasswordReset)
			auth.POST("/password-reset/confirm", r.authController.ConfirmPasswordReset)
		}

		users := v1.Group("/users/manage")
		users.Use(authn)
		{
			users.GET("", allow(policy.ResourceUser, policy.ActionList), r.userAdminController.ListUsers)
			users.GET("/:id", allow(policy.ResourceUser, policy.ActionRead), r.userAdminController.GetUser)
			users.PATCH("/:id", allow(policy.ResourceUser, policy.ActionUpdate), r.userAdminController.UpdateUser)
			users.DELETE("/:id", allow(policy.ResourceUser, policy.ActionDelete), r.userAdminController.DeleteUser)
			users.POST("/:id/notify", allow(policy.ResourceUser, policy.ActionNotify), r.userAdminController.ResendNotification)
		}

		leads := v1.Group("/leads")
		leads.Use(authn)
		{
			leads.GET("", allow(policy.ResourceLead, policy.ActionList), r.leadController.ListLeads)
			leads.GET("/my-leads", allow(policy.ResourceLead, policy.ActionMine), r.leadController.MyLeads)
			leads.GET("/:id", allow(policy.ResourceLead, policy.ActionRead), r.leadController.GetLead)
			leads.POST("", allow(policy.ResourceLead, policy.ActionCreate), r.leadController.CreateLead)
			leads.PATCH("/:id", allow(policy.ResourceLead, policy.ActionUpdate), r.leadController.UpdateLead)
			leads.DELETE("/:id", allow(policy.ResourceLead, policy.ActionDelete), r.leadController.DeleteLead)
		}

		products := v1.Group("/products")
		{
			optional := r.authMiddleware.OptionalAuthenticate()
			products.GET("", optional, allow(policy.ResourceProduct, policy.ActionList), r.productController.GetAllProducts)
			products.GET("/my-products", authn, allow(policy.ResourceProduct, policy.ActionMine), r.productController.GetMyProducts)
			products.GET("/:id", optional, allow(policy.ResourceProduct, policy.ActionRead), r.productController.GetProductByID)

			products.POST("",
				authn,
				allow(policy.ResourceProduct, policy.ActionCreate, "Only seller or admin users can create products"),
				r.productController.CreateProduct,
			)
			products.POST("/upload-image",
				authn,
				allow(policy.ResourceProduct, policy.ActionUpload),
				r.productController.UploadImages,
			)
			products.PATCH("/:id", authn, allow(policy.ResourceProduct, policy.ActionUpdate), r.productController.UpdateProduct)
			products.PUT("/:id", authn, allow(policy.ResourceProduct, policy.ActionUpdate), r.productController.UpdateProduct)
			products.DELETE("/:id", authn, allow(policy.ResourceProduct, policy.ActionDelete), r.productController.DeleteProduct)
		}

		uploads := v1.Group("/uploads")
		uploads.Use(authn)
		{
			uploads.POST("/presigned-url", allow(policy.ResourceProduct, policy.ActionUpload), r.uploadController.GeneratePresignedURL)
		}

		v1.GET("/ws/notifications", authn, r.notificationController.Connect)
	}

	return router
}

func (r *Router) health(c *gin.Context) {
	database := "ok"
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := db.Ping(ctx, r.db); err != nil {
		middleware.GetLoggerFromContext(c).Error("Health check database ping failed", err)
		database = "error"
	}

	status := http.StatusOK
	if database != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   "ok",
		"database": database,
	})
}

// mediaPrefix returns the route prefix for a host-relative MEDIA_URL, or ""
// when media is served from elsewhere.
func mediaPrefix(mediaURL string) string {
	if mediaURL == "" || !strings.HasPrefix(mediaURL, "/") {
		return ""
	}
	return strings.TrimRight(mediaURL, "/")
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, X-Request-ID, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", middleware.RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
