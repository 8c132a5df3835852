package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketing-backend/internal/shared"
	"ticketing-backend/internal/shared/middleware"
	"ticketing-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
		middleware.ClientIPMiddleware(),
	)

	router.GET("/health", healthHandler(c))
	router.GET("/health/ready", readinessHandler(c))

	auth := middleware.AuthMiddleware(c.Config.JWT.Secret)

	tickets := router.Group("/tickets", auth)
	{
		tickets.POST("/purchase", c.PaymentHandler.Purchase)
		tickets.POST("/verify", c.PaymentHandler.Verify)
		tickets.GET("/mine", c.TicketHandler.ListMine)
	}

	transactions := router.Group("/transactions", auth)
	{
		transactions.GET("", c.PaymentHandler.List)
		transactions.GET("/:id", c.PaymentHandler.Get)
		transactions.POST("/:id/retry", c.PaymentHandler.Retry)
		transactions.POST("/:id/refund", middleware.AdminMiddleware(), c.PaymentHandler.Refund)
	}

	router.GET("/orders/:id/tickets", auth, c.TicketHandler.ListByOrder)

	// Gate scans are restricted to staff roles; validators are further
	// checked against the event's assignment list inside the service.
	router.POST("/validate/scan",
		auth,
		middleware.RoleMiddleware(shared.RoleAdmin, shared.RoleOrganizer, shared.RoleValidator),
		c.TicketHandler.Scan,
	)

	// Gateway deliveries authenticate by signature, not JWT.
	router.POST("/webhooks/paystack", c.PaymentHandler.Webhook)

	return router
}

func healthHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": c.Config.App.Name,
			"version": c.Config.App.Version,
		})
	}
}

// readinessHandler probes the dependencies a request actually needs.
func readinessHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checks := gin.H{}
		healthy := true

		if err := c.DB.HealthCheck(ctx.Request.Context()); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}

		if err := c.Redis.HealthCheck(ctx.Request.Context()); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, gin.H{"status": checks})
	}
}
