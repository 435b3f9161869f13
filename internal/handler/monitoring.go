package handler

import (
	"net/http"

	"reggenie/internal/ingest"
	"reggenie/internal/middleware"
	"reggenie/internal/monitoring"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MonitoringHandler interface {
	Templates(c *gin.Context)
	Synthesize(c *gin.Context)
	History(c *gin.Context)
	Get(c *gin.Context)
	FollowUp(c *gin.Context)
	Confirmation(c *gin.Context)
	Transcribe(c *gin.Context)
	UploadTemplate(c *gin.Context)
}

type monitoringHandler struct {
	svc    *monitoring.Service
	logger *zap.Logger
}

func NewMonitoringHandler(svc *monitoring.Service, logger *zap.Logger) MonitoringHandler {
	return &monitoringHandler{svc: svc, logger: logger}
}

// Templates handles GET /monitoring/templates
func (h *monitoringHandler) Templates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"templates":  monitoring.Templates,
		"visitTypes": []monitoring.VisitType{monitoring.VisitSSV, monitoring.VisitSMV, monitoring.VisitSCV},
	})
}

// Synthesize handles POST /monitoring/reports
func (h *monitoringHandler) Synthesize(c *gin.Context) {
	var req monitoring.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	report, err := h.svc.Synthesize(c.Request.Context(), req, middleware.User(c))
	if err != nil {
		fail(c, h.logger, err, "Report synthesis failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// History handles GET /monitoring/reports
func (h *monitoringHandler) History(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reports": h.svc.History(c.Request.Context())})
}

// Get handles GET /monitoring/reports/:id
func (h *monitoringHandler) Get(c *gin.Context) {
	report, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, "Failed to retrieve report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// FollowUp handles POST /monitoring/reports/:id/follow-up
func (h *monitoringHandler) FollowUp(c *gin.Context) {
	report, err := h.svc.FollowUp(c.Request.Context(), c.Param("id"), middleware.User(c))
	if err != nil {
		fail(c, h.logger, err, "Letter generation failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

type ConfirmationRequest struct {
	NextVisitDate string `json:"nextVisitDate"`
}

// Confirmation handles POST /monitoring/reports/:id/confirmation
func (h *monitoringHandler) Confirmation(c *gin.Context) {
	var req ConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	report, err := h.svc.Confirmation(c.Request.Context(), c.Param("id"), req.NextVisitDate, middleware.User(c))
	if err != nil {
		fail(c, h.logger, err, "Letter generation failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

type TranscribeRequest struct {
	// Audio is base64 or a data URL.
	Audio      string `json:"audio" binding:"required"`
	MIMEType   string `json:"mimeType"`
	FileName   string `json:"fileName"`
	Transcript string `json:"transcript"`
}

// Transcribe handles POST /monitoring/transcribe. The reply carries the new
// text and the transcript with it appended.
func (h *monitoringHandler) Transcribe(c *gin.Context) {
	var req TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	mime, data, err := ingest.DecodeBase64(req.Audio, or(req.MIMEType, "audio/webm"))
	if err != nil {
		badJSON(c, h.logger, err)
		return
	}
	text, err := h.svc.Transcribe(c.Request.Context(), mime, data)
	if err != nil {
		fail(c, h.logger, err, "Transcription failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"text":       text,
		"transcript": monitoring.AppendTranscript(req.Transcript, or(req.FileName, "recording"), text),
	})
}

// UploadTemplate handles POST /monitoring/templates (multipart "file", DOCX)
func (h *monitoringHandler) UploadTemplate(c *gin.Context) {
	up, err := readUpload(c, "file")
	if err != nil {
		badJSON(c, h.logger, err)
		return
	}
	tmpl, err := monitoring.LoadTemplate(up.Name, up.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
