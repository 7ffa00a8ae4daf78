// Package api exposes the operational HTTP surface beside the TCP listener:
// health probes, Prometheus metrics, and read-only peeks at the catalog and
// session count.
package api

import (
	"net/http"
	"time"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/server"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains the ops HTTP handlers
type Handler struct {
	shop     *service.ShopService
	registry *server.Registry
}

// NewHandler creates a new ops handler
func NewHandler(shop *service.ShopService, registry *server.Registry) *Handler {
	return &Handler{
		shop:     shop,
		registry: registry,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/sessions", h.sessionCount)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.shop.Products(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list products",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) sessionCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.registry.Count()})
}
