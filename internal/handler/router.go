package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harold2001/financer-manager-api/shared/middleware"
	"github.com/rs/zerolog"
)

const (
	serviceName    = "Personal Finance Manager API"
	serviceVersion = "1.0.0"
)

type Handlers struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Transactions *TransactionHandler
}

// NewRouter builds the gin engine with the global middleware and all routes.
func NewRouter(h Handlers, verifier middleware.TokenVerifier, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(log),
		middleware.LoggingMiddleware(log),
		middleware.Recovery(log),
		middleware.CORS(),
	)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": serviceName + " is running",
			"version": serviceVersion,
			"endpoints": gin.H{
				"auth":         "/auth",
				"users":        "/users",
				"transactions": "/transactions",
			},
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/status", h.Auth.Status)
	}

	requireAuth := middleware.AuthMiddleware(verifier)

	users := router.Group("/users", requireAuth)
	{
		users.GET("/me", h.Users.GetUser)
		users.PUT("/me", h.Users.UpdateUser)
		users.DELETE("/me", h.Users.DeleteUser)
	}

	transactions := router.Group("/transactions", requireAuth)
	{
		transactions.POST("", h.Transactions.CreateTransaction)
		transactions.POST("/", h.Transactions.CreateTransaction)
		transactions.GET("", h.Transactions.ListTransactions)
		transactions.GET("/", h.Transactions.ListTransactions)
		transactions.GET("/summary", h.Transactions.SummarizeTransactions)
		transactions.GET("/:transactionId", h.Transactions.GetTransaction)
		transactions.PUT("/:transactionId", h.Transactions.UpdateTransaction)
		transactions.DELETE("/:transactionId", h.Transactions.DeleteTransaction)
	}

	return router
}
