package handler

import (
	"net/http"

	"reggenie/internal/icf"
	"reggenie/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ICFHandler interface {
	Options(c *gin.Context)
	Generate(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Translate(c *gin.Context)
	Download(c *gin.Context)
}

type icfHandler struct {
	svc    *icf.Service
	logger *zap.Logger
}

func NewICFHandler(svc *icf.Service, logger *zap.Logger) ICFHandler {
	return &icfHandler{svc: svc, logger: logger}
}

// Options handles GET /icf/options
func (h *icfHandler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": icf.Types, "languages": icf.Languages})
}

// Generate handles POST /icf. File inputs travel as base64 in fileData.
func (h *icfHandler) Generate(c *gin.Context) {
	var req icf.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	doc, err := h.svc.Generate(c.Request.Context(), req, middleware.User(c))
	if err != nil {
		fail(c, h.logger, err, "Failed to generate ICF")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

// List handles GET /icf
func (h *icfHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"documents": h.svc.List(c.Request.Context())})
}

// Get handles GET /icf/:id
func (h *icfHandler) Get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, "Failed to retrieve ICF")
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

type ICFTranslateRequest struct {
	Language string `json:"language" binding:"required"`
}

// Translate handles POST /icf/:id/translate
func (h *icfHandler) Translate(c *gin.Context) {
	var req ICFTranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	doc, err := h.svc.Translate(c.Request.Context(), c.Param("id"), req.Language)
	if err != nil {
		fail(c, h.logger, err, "Translation failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// Download handles GET /icf/:id/download
func (h *icfHandler) Download(c *gin.Context) {
	file, err := h.svc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, "Failed to render ICF")
		return
	}
	attach(c, file.Name, file.ContentType, file.Body)
}
