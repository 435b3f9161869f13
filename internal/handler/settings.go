package handler

import (
	"net/http"

	"reggenie/internal/middleware"
	"reggenie/internal/settings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SettingsHandler interface {
	GetSettings(c *gin.Context)
	UpdateSettings(c *gin.Context)
}

type settingsHandler struct {
	svc    *settings.Service
	logger *zap.Logger
}

func NewSettingsHandler(svc *settings.Service, logger *zap.Logger) SettingsHandler {
	return &settingsHandler{svc: svc, logger: logger}
}

// GetSettings handles GET /settings
func (h *settingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}

// UpdateSettings handles PUT /settings
func (h *settingsHandler) UpdateSettings(c *gin.Context) {
	var req settings.Update
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind settings request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := h.svc.Apply(c.Request.Context(), req, middleware.User(c))
	if err != nil {
		fail(c, h.logger, err, "Failed to save settings")
		return
	}
	c.JSON(http.StatusOK, status)
}
