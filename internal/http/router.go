package http

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go.azmp.io/bottom-fields/internal/usecase"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(products *usecase.ProductService) *gin.Engine {

	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()

	// Default to allow all origins if not specified.
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))

	handler := NewHandler(products)

	v1 := router.Group("/v1")
	p := v1.Group("/products")
	p.GET("", handler.ListProducts)
	p.GET("/:name", handler.GetProduct)
	p.GET("/:name/value", handler.GetValue)
	p.GET("/:name/stats", handler.GetStats)

	v1.GET("/divisions", handler.ListDivisions)

	router.GET("/health", handler.HealthCheck)

	return router
}
