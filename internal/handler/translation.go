package handler

import (
	"net/http"
	"strconv"

	"reggenie/internal/export"
	"reggenie/internal/ingest"
	"reggenie/internal/middleware"
	"reggenie/internal/models"
	"reggenie/internal/translation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TranslationHandler interface {
	Languages(c *gin.Context)
	Logs(c *gin.Context)
	Create(c *gin.Context)
	Ingest(c *gin.Context)
	Get(c *gin.Context)
	Translate(c *gin.Context)
	Alternatives(c *gin.Context)
	Correct(c *gin.Context)
	StartReview(c *gin.Context)
	StopReview(c *gin.Context)
	Finalize(c *gin.Context)
	Export(c *gin.Context)
	Speech(c *gin.Context)
}

type translationHandler struct {
	svc    *translation.Service
	ingest *ingest.Ingester
	logger *zap.Logger
}

func NewTranslationHandler(svc *translation.Service, ingester *ingest.Ingester, logger *zap.Logger) TranslationHandler {
	return &translationHandler{svc: svc, ingest: ingester, logger: logger}
}

// Languages handles GET /translation/languages
func (h *translationHandler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": translation.Languages})
}

// Logs handles GET /translation/logs
func (h *translationHandler) Logs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"logs": h.svc.Logs(c.Request.Context())})
}

// Create handles POST /translation/jobs
func (h *translationHandler) Create(c *gin.Context) {
	var req translation.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	view, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, h.logger, err, "Failed to create translation job")
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Ingest handles POST /translation/jobs/ingest: a multipart "file" plus the
// job fields as form values.
func (h *translationHandler) Ingest(c *gin.Context) {
	up, err := readUpload(c, "file")
	if err != nil {
		badJSON(c, h.logger, err)
		return
	}
	pages, err := h.ingest.Pages(c.Request.Context(), up.Name, up.ContentType, up.Data)
	if err != nil {
		fail(c, h.logger, err, "Failed to read document")
		return
	}

	nuances, _ := strconv.ParseBool(c.PostForm("culturalNuances"))
	view, err := h.svc.Create(c.Request.Context(), translation.CreateRequest{
		ProjectNumber:   c.PostForm("projectNumber"),
		TargetLanguage:  c.PostForm("targetLanguage"),
		DocType:         models.TranslationDocType(c.PostForm("docType")),
		Dimension:       models.TranslationDimension(c.PostForm("dimension")),
		CulturalNuances: nuances,
		FunctionalGroup: models.FunctionalGroup(c.PostForm("functionalGroup")),
		Pages:           pages,
	})
	if err != nil {
		fail(c, h.logger, err, "Failed to create translation job")
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Get handles GET /translation/jobs/:id
func (h *translationHandler) Get(c *gin.Context) {
	view, err := h.svc.Get(c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, "Failed to retrieve translation job")
		return
	}
	c.JSON(http.StatusOK, view)
}

type TranslateRequest struct {
	BackTranslation bool `json:"backTranslation"`
}

// Translate handles POST /translation/jobs/:id/translate
func (h *translationHandler) Translate(c *gin.Context) {
	var req TranslateRequest
	// an empty body means no back translation
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badJSON(c, h.logger, err)
			return
		}
	}
	view, err := h.svc.Translate(c.Request.Context(), c.Param("id"), req.BackTranslation)
	if err != nil {
		fail(c, h.logger, err, "Translation failed")
		return
	}
	c.JSON(http.StatusOK, view)
}

type AlternativesQuery struct {
	Page int `form:"page"`
	Word int `form:"word"`
}

// Alternatives handles GET /translation/jobs/:id/alternatives?page=&word=
func (h *translationHandler) Alternatives(c *gin.Context) {
	var q AlternativesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	alts, err := h.svc.Alternatives(c.Request.Context(), c.Param("id"), q.Page, q.Word)
	if err != nil {
		fail(c, h.logger, err, "Failed to fetch alternatives")
		return
	}
	c.JSON(http.StatusOK, gin.H{"alternatives": alts})
}

// Correct handles POST /translation/jobs/:id/corrections
func (h *translationHandler) Correct(c *gin.Context) {
	var req translation.Correction
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	view, err := h.svc.Correct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, h.logger, err, "Failed to apply correction")
		return
	}
	c.JSON(http.StatusOK, view)
}

// StartReview handles POST /translation/jobs/:id/review/start
func (h *translationHandler) StartReview(c *gin.Context) {
	view, err := h.svc.StartReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, "Failed to start review")
		return
	}
	c.JSON(http.StatusOK, view)
}

// StopReview handles POST /translation/jobs/:id/review/stop
func (h *translationHandler) StopReview(c *gin.Context) {
	view, err := h.svc.StopReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, "Failed to stop review")
		return
	}
	c.JSON(http.StatusOK, view)
}

type FinalizeRequest struct {
	Reviewer string `json:"reviewer"`
}

// Finalize handles POST /translation/jobs/:id/finalize
func (h *translationHandler) Finalize(c *gin.Context) {
	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	view, err := h.svc.Finalize(c.Request.Context(), c.Param("id"), req.Reviewer, middleware.User(c))
	if err != nil {
		fail(c, h.logger, err, "Failed to finalize QC")
		return
	}
	c.JSON(http.StatusOK, view)
}

// Export handles GET /translation/jobs/:id/export?format=doc|pdf|certificate
func (h *translationHandler) Export(c *gin.Context) {
	id := c.Param("id")
	format := export.Format(c.DefaultQuery("format", string(export.FormatDoc)))

	view, err := h.svc.Get(id)
	if err != nil {
		fail(c, h.logger, err, "Failed to retrieve translation job")
		return
	}
	if format != export.FormatCertificate && len(view.Pages) == 0 {
		fail(c, h.logger, translation.ErrNotTranslated, "Nothing to export")
		return
	}

	log := view.Log
	file, err := export.Render(format, export.Document{
		ProjectNumber:  log.ProjectNumber,
		TrackingID:     log.TrackingID,
		DocType:        string(log.DocType),
		TargetLanguage: log.TargetLanguage,
		Pages:          view.Pages,
		Reviewer:       log.QCReviewerName,
		Date:           h.svc.ExportDate(log),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.svc.MarkExported(c.Request.Context(), id, string(format), middleware.User(c)); err != nil {
		fail(c, h.logger, err, "Failed to record export")
		return
	}
	attach(c, file.Name, file.ContentType, file.Body)
}

type SpeechRequest struct {
	PageIndex int                 `json:"pageIndex"`
	Source    bool                `json:"source"`
	Start     int                 `json:"start"`
	Voices    []translation.Voice `json:"voices"`
}

// Speech handles POST /translation/jobs/:id/speech. It returns the text,
// locale, voice and word cues for reading a page aloud.
func (h *translationHandler) Speech(c *gin.Context) {
	var req SpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	view, err := h.svc.Get(c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, "Failed to retrieve translation job")
		return
	}

	pages, lang := view.Pages, view.Log.TargetLanguage
	if req.Source {
		pages, lang = view.Source, view.Log.SourceLanguage
	}
	if req.PageIndex < 0 || req.PageIndex >= len(pages) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page index out of range"})
		return
	}
	c.JSON(http.StatusOK, translation.PlanSpeech(pages[req.PageIndex], lang, req.Start, req.Voices))
}
