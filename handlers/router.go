package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	AdminToken  string
	CORSOrigins []string
	Metrics     http.Handler

	// Ping checks the remote store for /health; nil skips the check.
	Ping func(ctx context.Context) error
}

// NewRouter wires every route onto a gin engine.
func NewRouter(h *ProductHandler, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", userIDHeader}
	router.Use(cors.New(corsConfig))
	router.Use(Identify(cfg.AdminToken))

	api := router.Group("/api/v1")
	{
		products := api.Group("/products")
		{
			products.GET("", h.ListProducts)
			products.POST("", h.CreateProduct)
			products.GET("/pending", h.ListPending)
			products.POST("/upload", h.UploadProductPDF)
			products.POST("/import", h.ImportProducts)
			products.GET("/import/template", h.ImportTemplate)
			products.GET("/:id", h.GetProduct)
			products.PUT("/:id", h.UpdateProduct)
			products.POST("/:id/approve", h.ApproveProduct)
			products.DELETE("/:id", h.DeleteProduct)
		}
		api.GET("/quota", h.GetQuota)
		api.POST("/cache/invalidate", h.InvalidateCache)
		api.POST("/reload", h.Reload)
		api.PUT("/contributors/:id/tier", h.SetContributorTier)
	}

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	router.GET("/health", func(c *gin.Context) {
		if cfg.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Ping(ctx); err != nil {
				// Cached data is still served.
				c.JSON(http.StatusOK, gin.H{"status": "DEGRADED", "details": "remote store unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	return router
}
