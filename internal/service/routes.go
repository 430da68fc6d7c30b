package service

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/impactlens/nlq-engine/internal/auth"
	"github.com/impactlens/nlq-engine/internal/catalog"
	apperrors "github.com/impactlens/nlq-engine/internal/errors"
	"github.com/impactlens/nlq-engine/internal/generator"
	"github.com/impactlens/nlq-engine/internal/observability"
)

// templateSummary is the public view of a catalog template. The raw
// SQL text stays server-side.
type templateSummary struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	Description         string              `json:"description"`
	Category            string              `json:"category"`
	Tags                []string            `json:"tags,omitempty"`
	AllowedTimeRanges   []string            `json:"allowed_time_ranges"`
	AllowedGroupBy      []string            `json:"allowed_group_by,omitempty"`
	AllowedFilters      map[string][]string `json:"allowed_filters,omitempty"`
	MaxTimeWindowDays   int                 `json:"max_time_window_days"`
	MaxResultRows       int                 `json:"max_result_rows"`
	DefaultLimit        int                 `json:"default_limit"`
	EstimatedComplexity string              `json:"estimated_complexity"`
	HasAnalyticsVariant bool                `json:"has_analytics_variant"`
}

func summarize(t *catalog.MetricTemplate) templateSummary {
	return templateSummary{
		ID:                  t.ID,
		Name:                t.Name,
		Description:         t.Description,
		Category:            t.Category,
		Tags:                t.Tags,
		AllowedTimeRanges:   t.AllowedTimeRanges,
		AllowedGroupBy:      t.AllowedGroupBy,
		AllowedFilters:      t.AllowedFilters,
		MaxTimeWindowDays:   t.MaxTimeWindowDays,
		MaxResultRows:       t.MaxResultRows,
		DefaultLimit:        t.DefaultLimit,
		EstimatedComplexity: string(t.EstimatedComplexity),
		HasAnalyticsVariant: t.HasCHQL(),
	}
}

// SetupRoutes configures the HTTP routes. Recovery and request
// logging are installed here, ahead of route registration; gin only
// applies middleware to handlers registered after the Use call.
func (s *Service) SetupRoutes(authManager *auth.Manager) *gin.Engine {
	r := gin.New()

	r.Use(observability.RecoveryMiddleware(s.logger))
	r.Use(observability.RequestLoggingMiddleware(s.logger))

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Public health check endpoint
	r.GET("/health", s.handleHealth)

	// Process-level metrics snapshot
	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, observability.GetGlobalMetrics().GetAll())
	})

	api := r.Group("/api/v1")
	if authManager != nil {
		api.Use(authManager.Middleware())
	}
	{
		api.POST("/query/generate", s.handleGenerate)
		api.POST("/query/validate", s.handleValidate)
		api.POST("/query/execute", s.handleExecute)

		api.GET("/templates", s.handleListTemplates)
		api.GET("/templates/:id", s.handleGetTemplate)
		api.GET("/templates/:id/cost", s.handleTemplateCost)

		api.GET("/audit", s.handleAuditLog)
		api.POST("/suggestions", s.handleSuggestions)
	}

	return r
}

func (s *Service) handleHealth(c *gin.Context) {
	if s.healthChecker == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "nlq-engine",
		})
		return
	}

	response := s.healthChecker.GetHealthResponse(c.Request.Context())
	statusCode := http.StatusOK
	if response.Status == observability.HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

func (s *Service) handleGenerate(c *gin.Context) {
	var intent generator.IntentClassification
	if err := c.ShouldBindJSON(&intent); err != nil {
		c.JSON(http.StatusBadRequest, formatErrorResponse(
			apperrors.NewInvalidInputError("request body", err.Error())))
		return
	}

	companyID := auth.TenantID(c)
	result, err := s.GenerateQuery(c.Request.Context(), intent, companyID)
	if err != nil {
		c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Service) handleValidate(c *gin.Context) {
	var intent generator.IntentClassification
	if err := c.ShouldBindJSON(&intent); err != nil {
		c.JSON(http.StatusBadRequest, formatErrorResponse(
			apperrors.NewInvalidInputError("request body", err.Error())))
		return
	}

	companyID := auth.TenantID(c)
	result, err := s.ValidateQuery(c.Request.Context(), intent, companyID)
	if err != nil {
		c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

type executeRequest struct {
	Intent  generator.IntentClassification `json:"intent" binding:"required"`
	Backend string                         `json:"backend"`
}

func (s *Service) handleExecute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, formatErrorResponse(
			apperrors.NewInvalidInputError("request body", err.Error())))
		return
	}
	if req.Backend == "" {
		req.Backend = "postgres"
	}

	companyID := auth.TenantID(c)
	result, rows, err := s.ExecuteQuery(c.Request.Context(), req.Intent, companyID, req.Backend)
	if err != nil {
		c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"preview":     result.Preview,
		"template_id": result.TemplateID,
		"result":      rows,
	})
}

func (s *Service) handleListTemplates(c *gin.Context) {
	var summaries []templateSummary
	for _, id := range s.catalog.AllTemplateIDs() {
		tpl, err := s.catalog.GetTemplate(id)
		if err != nil {
			continue
		}
		if category := c.Query("category"); category != "" && tpl.Category != category {
			continue
		}
		summaries = append(summaries, summarize(tpl))
	}

	c.JSON(http.StatusOK, gin.H{
		"templates": summaries,
		"count":     len(summaries),
	})
}

func (s *Service) handleGetTemplate(c *gin.Context) {
	tpl, err := s.catalog.GetTemplate(c.Param("id"))
	if err != nil {
		c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, summarize(tpl))
}

func (s *Service) handleTemplateCost(c *gin.Context) {
	estimate, err := s.generator.EstimateQueryCost(c.Param("id"))
	if err != nil {
		c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, estimate)
}

func (s *Service) handleAuditLog(c *gin.Context) {
	if s.auditStore == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit log not configured"})
		return
	}

	companyID := auth.TenantID(c)
	if companyID == "" {
		authErr := apperrors.NewNotAuthenticatedError()
		c.JSON(http.StatusUnauthorized, formatErrorResponse(authErr))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := s.auditStore.ListByCompany(c.Request.Context(), companyID, limit)
	if err != nil {
		c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

type suggestionRequest struct {
	Embedding []float32 `json:"embedding" binding:"required"`
	Limit     int       `json:"limit"`
}

func (s *Service) handleSuggestions(c *gin.Context) {
	if s.suggestions == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "suggestions not configured"})
		return
	}

	var req suggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, formatErrorResponse(
			apperrors.NewInvalidInputError("request body", err.Error())))
		return
	}

	results, err := s.suggestions.SuggestTemplates(c.Request.Context(), req.Embedding, req.Limit)
	if err != nil {
		c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
		return
	}

	// Only surface templates that still exist in the catalog
	var valid []interface{}
	for _, suggestion := range results {
		if _, err := s.catalog.GetTemplate(suggestion.TemplateID); err == nil {
			valid = append(valid, suggestion)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"suggestions": valid,
		"count":       len(valid),
	})
}
