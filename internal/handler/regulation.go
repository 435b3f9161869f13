package handler

import (
	"net/http"
	"time"

	"reggenie/internal/catalog"
	"reggenie/internal/intel"
	"reggenie/internal/middleware"
	"reggenie/internal/models"
	"reggenie/internal/regulation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegulationHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Extract(c *gin.Context)
	Analyze(c *gin.Context)
	Search(c *gin.Context)
	Import(c *gin.Context)
	OverrideRisk(c *gin.Context)
	Stats(c *gin.Context)
	News(c *gin.Context)
	Archive(c *gin.Context)
	Triage(c *gin.Context)
	Catalog(c *gin.Context)
	TMFChecklist(c *gin.Context)
}

type regulationHandler struct {
	regs   *regulation.Service
	intel  *intel.Service
	logger *zap.Logger
	now    func() time.Time
}

func NewRegulationHandler(regs *regulation.Service, intelService *intel.Service, logger *zap.Logger) RegulationHandler {
	return &regulationHandler{regs: regs, intel: intelService, logger: logger, now: time.Now}
}

// List handles GET /regulations
func (h *regulationHandler) List(c *gin.Context) {
	var (
		filters models.DatabaseFilters
		srt     regulation.Sort
	)
	if err := c.ShouldBindQuery(&filters); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	if err := c.ShouldBindQuery(&srt); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	list, tier := h.regs.List(c.Request.Context(), filters, srt)
	c.JSON(http.StatusOK, gin.H{"regulations": list, "source": tier})
}

// Get handles GET /regulations/:id
func (h *regulationHandler) Get(c *gin.Context) {
	entry, err := h.regs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, "Failed to retrieve regulation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"regulation": entry})
}

// Create handles POST /regulations
func (h *regulationHandler) Create(c *gin.Context) {
	var entry models.RegulationEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	saved, err := h.regs.Add(c.Request.Context(), entry, middleware.User(c))
	if err != nil {
		fail(c, h.logger, err, "Failed to save regulation")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"regulation": saved})
}

type ExtractRequest struct {
	Text string `json:"text" binding:"required"`
	Save bool   `json:"save"`
}

// Extract handles POST /regulations/extract. With save the draft is stored.
func (h *regulationHandler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}

	var (
		entry models.RegulationEntry
		err   error
	)
	if req.Save {
		entry, err = h.intel.ImportText(c.Request.Context(), req.Text, middleware.User(c))
	} else {
		entry, err = h.intel.Extract(c.Request.Context(), req.Text)
	}
	if err != nil {
		fail(c, h.logger, err, "Failed to extract regulation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"regulation": entry})
}

// Analyze handles POST /regulations/:id/analyze. It always answers with an
// assessment, the fallback one when the model fails.
func (h *regulationHandler) Analyze(c *gin.Context) {
	entry, err := h.regs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, "Failed to retrieve regulation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": h.intel.Analyze(c.Request.Context(), entry)})
}

type SearchRequest struct {
	Query        string `json:"query" binding:"required"`
	Jurisdiction string `json:"jurisdiction"`
}

// Search handles POST /regulations/search
func (h *regulationHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	res, err := h.intel.SearchRegulations(c.Request.Context(), req.Query, req.Jurisdiction)
	if err != nil {
		fail(c, h.logger, err, "Web search failed")
		return
	}
	c.JSON(http.StatusOK, res)
}

type ImportRequest struct {
	Entries []models.RegulationEntry `json:"entries" binding:"required"`
}

// Import handles POST /regulations/import
func (h *regulationHandler) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	saved, err := h.intel.ImportEntries(c.Request.Context(), req.Entries, middleware.User(c))
	if err != nil {
		fail(c, h.logger, err, "Failed to import search results")
		return
	}
	c.JSON(http.StatusOK, gin.H{"regulations": saved})
}

type RiskOverrideRequest struct {
	RiskLevel string `json:"riskLevel" binding:"required"`
	Rationale string `json:"riskRationale"`
}

// OverrideRisk handles PUT /regulations/:id/risk (admin only)
func (h *regulationHandler) OverrideRisk(c *gin.Context) {
	var req RiskOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	entry, err := h.regs.OverrideRisk(c.Request.Context(), c.Param("id"), req.RiskLevel, req.Rationale, middleware.User(c))
	if err != nil {
		fail(c, h.logger, err, "Failed to override risk")
		return
	}
	c.JSON(http.StatusOK, gin.H{"regulation": entry})
}

// Stats handles GET /dashboard/stats
func (h *regulationHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.regs.Stats(c.Request.Context()))
}

// News handles GET /news. "news" holds the last week, "all" the full feed.
func (h *regulationHandler) News(c *gin.Context) {
	all := h.intel.RecentNews(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"news": intel.DisplayedNews(all, h.now()),
		"all":  all,
	})
}

// Archive handles GET /news/archive
func (h *regulationHandler) Archive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"news": h.intel.Archive(c.Request.Context())})
}

// Triage handles POST /news/triage
func (h *regulationHandler) Triage(c *gin.Context) {
	var item models.NewsItem
	if err := c.ShouldBindJSON(&item); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	entry, err := h.intel.Triage(c.Request.Context(), item, middleware.User(c))
	if err != nil {
		fail(c, h.logger, err, "Failed to process news item")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"regulation": entry})
}

// Catalog handles GET /catalog
func (h *regulationHandler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"regions":     catalog.RegionCountries,
		"countries":   catalog.Countries(),
		"authorities": catalog.CountryAuthorities,
	})
}

// TMFChecklist handles GET /tmf?country=
func (h *regulationHandler) TMFChecklist(c *gin.Context) {
	country := c.DefaultQuery("country", "Global")
	c.JSON(http.StatusOK, gin.H{
		"country":   country,
		"documents": h.intel.TMFChecklist(c.Request.Context(), country),
	})
}
