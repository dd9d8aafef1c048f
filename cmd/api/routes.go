package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/klimaatdesk/internal/auth"
	"github.com/yourusername/klimaatdesk/internal/config"
	"github.com/yourusername/klimaatdesk/internal/contact"
	"github.com/yourusername/klimaatdesk/internal/installations"
	"github.com/yourusername/klimaatdesk/internal/jobs"
	"github.com/yourusername/klimaatdesk/internal/quotes"
	"github.com/yourusername/klimaatdesk/internal/ratelimit"
	"github.com/yourusername/klimaatdesk/internal/reviews"
	"github.com/yourusername/klimaatdesk/internal/uploads"
	"github.com/yourusername/klimaatdesk/internal/wasco"
)

const rateWindow = 15 * time.Minute

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "klimaatdesk-api",
	})
}

// setupRoutes wires all endpoints. Middleware runs in a fixed order: the
// global rate limiter first, then the CSRF guard, then the session resolver,
// then any role gate.
func setupRoutes(router *gin.Engine, cfg *config.Config, a *app) {
	router.GET("/health", handleHealth)

	globalLimiter := ratelimit.New(a.rdb, "rl:global", 100, rateWindow)
	loginLimiter := ratelimit.New(a.rdb, "rl:login", 5, rateWindow)
	uploadLimiter := ratelimit.New(a.rdb, "rl:upload", 10, rateWindow)

	api := router.Group("/api")
	api.Use(globalLimiter.Middleware(), a.csrf.Middleware())

	// Public site endpoints.
	api.POST("/contact", contact.SubmitHandler(a.contactStore, a.jobManager))
	api.POST("/quotes", quotes.SubmitHandler(a.quoteStore, a.jobManager))
	api.POST("/reviews/submit", reviews.SubmitHandler(a.reviewStore))
	api.GET("/reviews", reviews.ListApprovedHandler(a.reviewStore))
	api.GET("/lookup/:code", installations.PublicLookupHandler(a.installStore))
	api.POST("/uploads", uploadLimiter.Middleware(), uploads.SubmitHandler(a.uploadStore, cfg.MaxUploadSize))

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/login", loginLimiter.Middleware(), a.authManager.Login)
		authRoutes.POST("/logout", a.authManager.RequireAuth(), a.authManager.Logout)
		authRoutes.GET("/me", a.authManager.RequireAuth(), a.authManager.Me)
		authRoutes.POST("/refresh", a.authManager.RequireAuth(), a.authManager.Refresh)
		authRoutes.PUT("/password",
			a.authManager.RequireAuth(),
			a.authManager.VerifyActiveUser(),
			a.authManager.ChangePassword,
		)
	}

	// Staff endpoints: any authenticated account (admin or moderator).
	staff := api.Group("/admin")
	staff.Use(a.authManager.RequireAuth())
	{
		staff.GET("/reviews", reviews.AdminListHandler(a.reviewStore))
		staff.PUT("/reviews/:id/approve", reviews.ApproveHandler(a.reviewStore))
		staff.GET("/contact", contact.AdminListHandler(a.contactStore))
		staff.PUT("/contact/:id/handled", contact.MarkHandledHandler(a.contactStore))
	}

	// Admin-only endpoints.
	admin := api.Group("/admin")
	admin.Use(a.authManager.RequireAuth(), a.authManager.RequireRole(auth.RoleAdmin))
	{
		admin.DELETE("/reviews/:id", reviews.DeleteHandler(a.reviewStore))

		admin.GET("/quotes", quotes.AdminListHandler(a.quoteStore))
		admin.PUT("/quotes/:id/status", quotes.AdminStatusHandler(a.quoteStore, a.jobManager))
		admin.GET("/quotes/:id/pdf", quotes.AdminPDFHandler(a.quoteStore))

		admin.GET("/installations", installations.ListHandler(a.installStore))
		admin.POST("/installations", installations.CreateHandler(a.installStore, a.jobManager))
		admin.PUT("/installations/:id", installations.UpdateHandler(a.installStore))
		admin.DELETE("/installations/:id", installations.DeleteHandler(a.installStore))
		admin.GET("/installations/:id/qr", installations.QRHandler(a.installStore, cfg.PublicBaseURL))

		admin.GET("/uploads/:name", uploads.AdminDownloadHandler(a.uploadStore))
		admin.GET("/prices/:sku", wasco.PriceHandler(a.wascoClient))
		admin.GET("/jobs/:id", jobs.StatusHandler(a.jobManager))
	}
}
