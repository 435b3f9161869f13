package handler

import (
	"net/http"

	"reggenie/internal/dose"
	"reggenie/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DoseHandler interface {
	ListStudies(c *gin.Context)
	GetStudy(c *gin.Context)
	Configure(c *gin.Context)
	NewSubject(c *gin.Context)
	AddSubject(c *gin.Context)
	Analyze(c *gin.Context)
}

type doseHandler struct {
	svc    *dose.Service
	logger *zap.Logger
}

func NewDoseHandler(svc *dose.Service, logger *zap.Logger) DoseHandler {
	return &doseHandler{svc: svc, logger: logger}
}

// ListStudies handles GET /dose/studies
func (h *doseHandler) ListStudies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"studies": h.svc.List(c.Request.Context())})
}

// GetStudy handles GET /dose/studies/:id
func (h *doseHandler) GetStudy(c *gin.Context) {
	st, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, "Failed to retrieve study")
		return
	}
	c.JSON(http.StatusOK, gin.H{"study": st})
}

// Configure handles PUT /dose/studies
func (h *doseHandler) Configure(c *gin.Context) {
	var cfg dose.Study
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	st, err := h.svc.Configure(c.Request.Context(), cfg)
	if err != nil {
		fail(c, h.logger, err, "Failed to save study")
		return
	}
	c.JSON(http.StatusOK, gin.H{"study": st})
}

// NewSubject handles GET /dose/subjects/template, the entry form defaults.
func (h *doseHandler) NewSubject(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subject": dose.NewSubject()})
}

// AddSubject handles POST /dose/studies/:id/subjects
func (h *doseHandler) AddSubject(c *gin.Context) {
	var sub dose.Subject
	if err := c.ShouldBindJSON(&sub); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	st, err := h.svc.AddSubject(c.Request.Context(), c.Param("id"), sub, middleware.User(c))
	if err != nil {
		fail(c, h.logger, err, "Failed to record subject")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"study": st})
}

// Analyze handles POST /dose/studies/:id/analyze
func (h *doseHandler) Analyze(c *gin.Context) {
	res, err := h.svc.Analyze(c.Request.Context(), c.Param("id"), middleware.User(c))
	if err != nil {
		fail(c, h.logger, err, "AI analysis failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": res})
}
