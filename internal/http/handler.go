package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"go.azmp.io/bottom-fields/internal/adapter/interp"
	"go.azmp.io/bottom-fields/internal/domain"
	"go.azmp.io/bottom-fields/internal/usecase"
)

// Handler handles HTTP requests for gridded bottom products.
type Handler struct {
	products *usecase.ProductService
}

// NewHandler creates a new HTTP handler.
func NewHandler(products *usecase.ProductService) *Handler {
	return &Handler{
		products: products,
	}
}

// errorStatus maps use case errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, interp.ErrNoData):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ListProducts handles GET /v1/products.
func (h *Handler) ListProducts(c *gin.Context) {
	names, err := h.products.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summaries := make([]usecase.ProductSummary, 0, len(names))
	for _, name := range names {
		s, err := h.products.Summary(name)
		if err != nil {
			// Unreadable files are listed by name only.
			summaries = append(summaries, usecase.ProductSummary{Name: name})
			continue
		}
		summaries = append(summaries, *s)
	}

	c.JSON(http.StatusOK, gin.H{
		"products": summaries,
		"count":    len(summaries),
	})
}

// GetProduct handles GET /v1/products/:name.
func (h *Handler) GetProduct(c *gin.Context) {
	detail, err := h.products.Detail(c.Param("name"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetValue handles GET /v1/products/:name/value.
func (h *Handler) GetValue(c *gin.Context) {
	name := c.Param("name")
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon parameters are required"})
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid latitude: %v", err)})
		return
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid longitude: %v", err)})
		return
	}

	v, err := h.products.Value(name, lat, lon)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			// Points off the grid.
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": name,
		"lat":     lat,
		"lon":     lon,
		"value":   v,
	})
}

// GetStats handles GET /v1/products/:name/stats.
func (h *Handler) GetStats(c *gin.Context) {
	name := c.Param("name")
	codes, err := domain.ParseDivisions(c.Query("divisions"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(codes) == 0 {
		codes = domain.StatsDivisions
	}

	res, err := h.products.Stats(name, codes)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	labels := make([]string, len(codes))
	for i, code := range codes {
		labels[i] = string(code)
	}
	c.JSON(http.StatusOK, gin.H{
		"product":   name,
		"divisions": labels,
		"stats":     res,
	})
}

// ListDivisions handles GET /v1/divisions.
func (h *Handler) ListDivisions(c *gin.Context) {
	divs, err := h.products.Divisions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"divisions": divs,
		"count":     len(divs),
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
