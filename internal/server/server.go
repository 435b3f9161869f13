package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"reggenie/internal/handler"
	"reggenie/internal/metrics"
	"reggenie/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Handlers groups every HTTP handler the router serves.
type Handlers struct {
	Auth        handler.AuthHandler
	Regulations handler.RegulationHandler
	Chat        handler.ChatHandler
	Translation handler.TranslationHandler
	Monitoring  handler.MonitoringHandler
	Dose        handler.DoseHandler
	ICF         handler.ICFHandler
	Records     handler.RecordsHandler
	Settings    handler.SettingsHandler
}

type Options struct {
	Port            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	// Metrics, when set, instruments every route and serves GET /metrics.
	Metrics *metrics.Collector
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	opts   Options
	logger *zap.Logger
}

func NewServer(h Handlers, tokens middleware.TokenParser, health func() gin.H, opts Options, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	s := &Server{router: router, opts: opts, logger: logger}
	s.setupRoutes(h, tokens, health)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.http = &http.Server{
		Addr: ":" + opts.Port,
		Handler: cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           300,
		})(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router exposes the gin engine, without CORS, for tests.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) setupRoutes(h Handlers, tokens middleware.TokenParser, health func() gin.H) {
	api := s.router.Group("/api/v1")

	api.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if health != nil {
			for k, v := range health() {
				body[k] = v
			}
		}
		c.JSON(http.StatusOK, body)
	})

	authGroup := api.Group("/auth")
	authGroup.GET("/status", h.Auth.Status)
	authGroup.POST("/guest", h.Auth.Guest)
	authGroup.POST("/admin/register", h.Auth.Register)
	authGroup.POST("/admin/login", h.Auth.Login)
	authGroup.POST("/admin/reset", h.Auth.Reset)

	authRequired := api.Group("")
	authRequired.Use(middleware.AuthMiddleware(tokens, s.logger))
	{
		regs := authRequired.Group("/regulations")
		regs.GET("", h.Regulations.List)
		regs.POST("", h.Regulations.Create)
		regs.POST("/extract", h.Regulations.Extract)
		regs.POST("/search", h.Regulations.Search)
		regs.POST("/import", h.Regulations.Import)
		regs.GET("/:id", h.Regulations.Get)
		regs.POST("/:id/analyze", h.Regulations.Analyze)
		regs.PUT("/:id/risk", middleware.RequireAdmin(), h.Regulations.OverrideRisk)

		authRequired.GET("/dashboard/stats", h.Regulations.Stats)
		authRequired.GET("/news", h.Regulations.News)
		authRequired.GET("/news/archive", h.Regulations.Archive)
		authRequired.POST("/news/triage", h.Regulations.Triage)
		authRequired.GET("/catalog", h.Regulations.Catalog)
		authRequired.GET("/tmf", h.Regulations.TMFChecklist)

		chatGroup := authRequired.Group("/chat")
		chatGroup.GET("/providers", h.Chat.Providers)
		chatGroup.POST("/sessions", h.Chat.CreateSession)
		chatGroup.GET("/sessions/:id", h.Chat.GetSession)
		chatGroup.DELETE("/sessions/:id", h.Chat.DeleteSession)
		chatGroup.POST("/sessions/:id/messages", h.Chat.SendMessage)
		chatGroup.POST("/feedback", h.Chat.SubmitFeedback)
		chatGroup.GET("/feedback", h.Chat.ListFeedback)

		tr := authRequired.Group("/translation")
		tr.GET("/languages", h.Translation.Languages)
		tr.GET("/logs", h.Translation.Logs)
		tr.POST("/jobs", h.Translation.Create)
		tr.POST("/jobs/ingest", h.Translation.Ingest)
		tr.GET("/jobs/:id", h.Translation.Get)
		tr.POST("/jobs/:id/translate", h.Translation.Translate)
		tr.GET("/jobs/:id/alternatives", h.Translation.Alternatives)
		tr.POST("/jobs/:id/corrections", h.Translation.Correct)
		tr.POST("/jobs/:id/review/start", h.Translation.StartReview)
		tr.POST("/jobs/:id/review/stop", h.Translation.StopReview)
		tr.POST("/jobs/:id/finalize", h.Translation.Finalize)
		tr.GET("/jobs/:id/export", h.Translation.Export)
		tr.POST("/jobs/:id/speech", h.Translation.Speech)

		mon := authRequired.Group("/monitoring")
		mon.GET("/templates", h.Monitoring.Templates)
		mon.POST("/templates", h.Monitoring.UploadTemplate)
		mon.POST("/transcribe", h.Monitoring.Transcribe)
		mon.GET("/reports", h.Monitoring.History)
		mon.POST("/reports", h.Monitoring.Synthesize)
		mon.GET("/reports/:id", h.Monitoring.Get)
		mon.POST("/reports/:id/follow-up", h.Monitoring.FollowUp)
		mon.POST("/reports/:id/confirmation", h.Monitoring.Confirmation)

		doseGroup := authRequired.Group("/dose")
		doseGroup.GET("/subjects/template", h.Dose.NewSubject)
		doseGroup.GET("/studies", h.Dose.ListStudies)
		doseGroup.PUT("/studies", h.Dose.Configure)
		doseGroup.GET("/studies/:id", h.Dose.GetStudy)
		doseGroup.POST("/studies/:id/subjects", h.Dose.AddSubject)
		doseGroup.POST("/studies/:id/analyze", h.Dose.Analyze)

		icfGroup := authRequired.Group("/icf")
		icfGroup.GET("/options", h.ICF.Options)
		icfGroup.GET("", h.ICF.List)
		icfGroup.POST("", h.ICF.Generate)
		icfGroup.GET("/:id", h.ICF.Get)
		icfGroup.POST("/:id/translate", h.ICF.Translate)
		icfGroup.GET("/:id/download", h.ICF.Download)

		authRequired.GET("/audit", h.Records.AuditLog)
		authRequired.GET("/requirements", h.Records.Requirements)
		authRequired.POST("/requirements", h.Records.AddRequirement)

		admin := authRequired.Group("/settings")
		admin.Use(middleware.RequireAdmin())
		admin.GET("", h.Settings.GetSettings)
		admin.PUT("", h.Settings.UpdateSettings)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
