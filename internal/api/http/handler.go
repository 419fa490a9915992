package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/toolsascode/migrun/internal/api/http/dto"
	"github.com/toolsascode/migrun/internal/auth"
	"github.com/toolsascode/migrun/internal/executor"
	"github.com/toolsascode/migrun/internal/registry"
	"github.com/toolsascode/migrun/internal/runner"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP API requests
type Handler struct {
	executor *executor.Executor
	apiToken string
	metrics  http.Handler
}

// NewHandler creates a new HTTP handler. metrics may be nil.
func NewHandler(exec *executor.Executor, apiToken string, metrics http.Handler) *Handler {
	return &Handler{
		executor: exec,
		apiToken: apiToken,
		metrics:  metrics,
	}
}

// RegisterRoutes registers HTTP routes
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	api := router.Group("/api/v1")
	{
		api.GET("/health", h.Health)
		api.GET("/migrations", h.authenticate, h.listMigrations)
		api.POST("/migrations/up", h.authenticate, h.migrateUp)
		api.POST("/migrations/rollback", h.authenticate, h.rollback)
	}
}

// authenticate middleware validates API token
func (h *Handler) authenticate(c *gin.Context) {
	token, err := auth.ExtractToken(c.GetHeader("Authorization"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if err := auth.ValidateToken(h.apiToken, token); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.Next()
}

// migrateUp handles up migration requests
func (h *Handler) migrateUp(c *gin.Context) {
	var req dto.MigrateUpRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.executor.Up(c.Request.Context(), req.DryRun)
	h.respond(c, result, err)
}

// rollback handles requests to revert the latest applied migration
func (h *Handler) rollback(c *gin.Context) {
	result, err := h.executor.Rollback(c.Request.Context())
	h.respond(c, result, err)
}

func (h *Handler) respond(c *gin.Context, result *executor.ExecuteResult, err error) {
	if result == nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	response := dto.MigrateResponse{
		Operation:      string(result.Operation),
		Success:        result.Success,
		Applied:        result.Applied,
		Skipped:        result.Skipped,
		Pending:        result.Pending,
		RolledBack:     result.RolledBack,
		RolledBackName: result.RolledBackName,
		Errors:         result.Errors,
		Queued:         result.Queued,
		JobID:          result.JobID,
	}

	statusCode := http.StatusOK
	switch {
	case err != nil:
		statusCode = statusFor(err)
	case result.Queued:
		statusCode = http.StatusAccepted
	}

	c.JSON(statusCode, response)
}

// statusFor maps a failed operation to a response code. Failures caused by
// the migration catalog rather than the database are conflicts.
func statusFor(err error) int {
	if errors.Is(err, runner.ErrUnresolvableMigration) || errors.Is(err, registry.ErrIrreversible) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// listMigrations lists all migrations with their status
func (h *Handler) listMigrations(c *gin.Context) {
	status, err := h.executor.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]dto.MigrationListItem, 0, len(status.Items))
	for _, item := range status.Items {
		listItem := dto.MigrationListItem{
			Version:  item.Version,
			Name:     item.Name,
			Applied:  item.Applied,
			Orphaned: item.Orphaned,
		}
		if item.Applied && !item.ExecutedAt.IsZero() {
			listItem.AppliedAt = item.ExecutedAt.UTC().Format(time.RFC3339)
		}
		items = append(items, listItem)
	}

	c.JSON(http.StatusOK, dto.MigrationListResponse{
		Current:    status.Current,
		HasCurrent: status.HasCurrent,
		Applied:    status.Applied,
		Pending:    status.Pending,
		Total:      len(items),
		Items:      items,
	})
}

// Health handles health check requests
func (h *Handler) Health(c *gin.Context) {
	healthStatus := gin.H{
		"status": "healthy",
		"checks": gin.H{},
	}

	if err := h.executor.HealthCheck(c.Request.Context()); err != nil {
		healthStatus["status"] = "unhealthy"
		healthStatus["checks"].(gin.H)["runner"] = err.Error()
	} else {
		healthStatus["checks"].(gin.H)["runner"] = "ok"
	}

	statusCode := http.StatusOK
	if healthStatus["status"] == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthStatus)
}
