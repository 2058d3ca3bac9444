package httpserver

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"tortaskeia-api/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func newRouter(cfg config.Config, deps Deps, logger *log.Logger) *gin.Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", func(c *gin.Context) {
		if deps.DB == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := deps.DB.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{deps: deps, logger: logger}

	api := router.Group("/api")
	api.Use(resolveIdentity(deps.Auth))

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.GET("/me", requireUser(), h.me)
	}

	api.GET("/products", h.listProducts)
	api.GET("/products/:slug", h.getProduct)

	cartGroup := api.Group("/cart")
	{
		cartGroup.GET("", h.getCart)
		cartGroup.DELETE("", h.clearCart)
		cartGroup.POST("/items", h.addCartItem)
		cartGroup.POST("/items/custom", h.addCustomCartItem)
		cartGroup.PUT("/items/:itemID", h.updateCartItem)
		cartGroup.DELETE("/items/:itemID", h.removeCartItem)
	}

	ordersGroup := api.Group("/orders")
	{
		ordersGroup.GET("/availability", h.availability)
		ordersGroup.POST("", h.checkout)
		ordersGroup.GET("", requireUser(), h.listOrders)
		ordersGroup.GET("/:number", h.getOrder)
	}

	paymentsGroup := api.Group("/payments")
	{
		paymentsGroup.POST("/preference/:number", h.createPreference)
		paymentsGroup.GET("/status/:number", h.paymentStatus)
		paymentsGroup.POST("/webhook", h.paymentWebhook)
	}

	adminGroup := api.Group("/admin", requireAdmin())
	{
		adminGroup.GET("/orders", h.adminListOrders)
		adminGroup.PATCH("/orders/:number/status", h.adminUpdateOrder)
	}

	return router
}

func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Printf("http: %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
