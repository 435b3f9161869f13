package handler

import (
	"net/http"

	"reggenie/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler interface {
	Status(c *gin.Context)
	Guest(c *gin.Context)
	Register(c *gin.Context)
	Login(c *gin.Context)
	Reset(c *gin.Context)
}

type authHandler struct {
	auth   *auth.Service
	logger *zap.Logger
}

func NewAuthHandler(authService *auth.Service, logger *zap.Logger) AuthHandler {
	return &authHandler{auth: authService, logger: logger}
}

type RegisterRequest struct {
	Code    string `json:"code" binding:"required"`
	Confirm string `json:"confirm" binding:"required"`
}

type LoginRequest struct {
	Code string `json:"code" binding:"required"`
}

// Status handles GET /auth/status
func (h *authHandler) Status(c *gin.Context) {
	registered, err := h.auth.IsRegistered()
	if err != nil {
		fail(c, h.logger, err, "Failed to read access code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": registered})
}

// Guest handles POST /auth/guest
func (h *authHandler) Guest(c *gin.Context) {
	session, err := h.auth.Guest()
	if err != nil {
		fail(c, h.logger, err, "Failed to issue session")
		return
	}
	c.JSON(http.StatusOK, session)
}

// Register handles POST /auth/admin/register
func (h *authHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	session, err := h.auth.Register(req.Code, req.Confirm)
	if err != nil {
		fail(c, h.logger, err, "Failed to register access code")
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Login handles POST /auth/admin/login
func (h *authHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	session, err := h.auth.Login(req.Code)
	if err != nil {
		fail(c, h.logger, err, "Failed to log in")
		return
	}
	c.JSON(http.StatusOK, session)
}

// Reset handles POST /auth/admin/reset
func (h *authHandler) Reset(c *gin.Context) {
	if err := h.auth.Reset(); err != nil {
		fail(c, h.logger, err, "Failed to reset access code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Access code reset"})
}
