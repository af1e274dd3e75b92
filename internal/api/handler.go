package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fema-catalog/internal/catalog"
	catalogsvc "fema-catalog/internal/catalog/service"
	"fema-catalog/internal/logger"
	"fema-catalog/internal/models"
	"fema-catalog/internal/observability"
	"fema-catalog/internal/pagination"
	"fema-catalog/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler exposes the catalog as a read-only JSON API.
type Handler struct {
	Catalog *catalogsvc.CatalogService
	Store   Pinger
	Metrics *observability.Metrics
	Logger  *logger.Logger
}

func NewHandler(svc *catalogsvc.CatalogService, store Pinger, metrics *observability.Metrics, log *logger.Logger) *Handler {
	return &Handler{Catalog: svc, Store: store, Metrics: metrics, Logger: log}
}

// NewRouter builds the gin engine with recovery, CORS, request logging and a
// global rate limit in front of the routes.
func NewRouter(h *Handler, allowedOrigins []string, rps int) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))
	router.Use(h.requestLogger())
	router.Use(RateLimitMiddleware(rps))

	h.RegisterRoutes(router)
	return router
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.GET("/events", h.listEvents)
	api.GET("/events/:fema_id", h.getEvent)
	api.GET("/search", h.search)
	api.GET("/search/options", h.searchOptions)
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		elapsed := time.Since(start)
		h.Metrics.HTTPRequests.WithLabelValues("api", c.Request.Method, status).Inc()
		h.Metrics.HTTPDuration.WithLabelValues("api").Observe(elapsed.Seconds())
		h.Logger.LogAPI(c.Request.Method, c.Request.URL.Path, status, elapsed.String())
	}
}

func (h *Handler) listEvents(c *gin.Context) {
	page, err := pagination.ParsePage(c.Query("page"))
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid page", err.Error()))
		return
	}

	result, err := h.Catalog.ListEvents(c.Request.Context(), page)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse("Events retrieved", result))
}

// search accepts the same filters as the HTML search form. Unlike the form,
// an empty page is a normal 200 response.
func (h *Handler) search(c *gin.Context) {
	criteria, err := catalog.ParseCriteria(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid search", err.Error()))
		return
	}
	page, err := pagination.ParsePage(c.Query("page"))
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid page", err.Error()))
		return
	}

	result, err := h.Catalog.Search(c.Request.Context(), criteria, page)
	if err != nil && !errors.Is(err, models.ErrNoResults) {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse("Search completed", result))
}

func (h *Handler) getEvent(c *gin.Context) {
	femaID, err := strconv.Atoi(c.Param("fema_id"))
	if err != nil || femaID <= 0 {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid FEMA id", fmt.Sprintf("%q is not a FEMA id", c.Param("fema_id"))))
		return
	}

	detail, err := h.Catalog.GetDisaster(c.Request.Context(), femaID)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Event not found", err.Error()))
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Event retrieved", detail))
}

func (h *Handler) searchOptions(c *gin.Context) {
	opts, err := h.Catalog.SearchOptions(c.Request.Context())
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Search options retrieved", opts))
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, utils.ErrorResponse("Database unavailable", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.Logger.Error("API", fmt.Sprintf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err))
	c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "internal error"))
}

func pageResponse(message string, result *models.EventPage) utils.APIResponse {
	return utils.PageResponse(message, result.Events, utils.PageMeta{
		Page:     result.Page,
		Pages:    result.Pages,
		Total:    result.Total,
		PageSize: pagination.PageSize,
	})
}
