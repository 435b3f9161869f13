package handler

import (
	"net/http"

	"reggenie/internal/audit"
	"reggenie/internal/models"
	"reggenie/internal/requirements"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RecordsHandler interface {
	AuditLog(c *gin.Context)
	Requirements(c *gin.Context)
	AddRequirement(c *gin.Context)
}

type recordsHandler struct {
	audit  *audit.Service
	reqs   *requirements.Service
	logger *zap.Logger
}

func NewRecordsHandler(auditService *audit.Service, reqs *requirements.Service, logger *zap.Logger) RecordsHandler {
	return &recordsHandler{audit: auditService, reqs: reqs, logger: logger}
}

// AuditLog handles GET /audit?module=
func (h *recordsHandler) AuditLog(c *gin.Context) {
	module := models.AppModule(c.Query("module"))
	c.JSON(http.StatusOK, gin.H{"entries": h.audit.List(c.Request.Context(), module)})
}

// Requirements handles GET /requirements
func (h *recordsHandler) Requirements(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"requirements": h.reqs.List(c.Request.Context())})
}

// AddRequirement handles POST /requirements
func (h *recordsHandler) AddRequirement(c *gin.Context) {
	var req requirements.AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	r, err := h.reqs.Add(c.Request.Context(), req)
	if err != nil {
		fail(c, h.logger, err, "Failed to add requirement")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"requirement": r})
}
