package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"reggenie/internal/audit"
	"reggenie/internal/auth"
	"reggenie/internal/chat"
	"reggenie/internal/config"
	"reggenie/internal/crypto"
	"reggenie/internal/docstore"
	"reggenie/internal/dose"
	"reggenie/internal/gemini"
	"reggenie/internal/handler"
	"reggenie/internal/icf"
	"reggenie/internal/ingest"
	"reggenie/internal/intel"
	"reggenie/internal/llm"
	"reggenie/internal/localstore"
	"reggenie/internal/metrics"
	"reggenie/internal/monitoring"
	"reggenie/internal/openai"
	"reggenie/internal/regulation"
	"reggenie/internal/requirements"
	"reggenie/internal/server"
	"reggenie/internal/settings"
	"reggenie/internal/store"
	"reggenie/internal/translation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Log.Production {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting RegGenie service...")

	if cfg.Gemini.APIKey == "" || cfg.Gemini.APIKey == "YOUR_API_KEY_HERE" {
		logger.Fatal("Gemini API key not configured. Please set it in configs/config.yml or GEMINI_API_KEY")
	}

	// Local cache
	if err := os.MkdirAll(filepath.Dir(cfg.LocalStore.Path), 0755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}
	local, err := localstore.Open(cfg.LocalStore.Path, logger)
	if err != nil {
		logger.Fatal("Failed to initialize local store", zap.Error(err))
	}
	defer local.Close()

	keys, err := crypto.NewKeyManager(cfg.Settings.MasterKey, local)
	if err != nil {
		logger.Fatal("Failed to initialize key manager", zap.Error(err))
	}
	if !keys.HasMasterKey() {
		logger.Warn("No settings master key configured, saved secrets use an unwrapped data key")
	}
	settingsStore := settings.NewStore(local, keys, logger)

	// Remote document store. Any failure degrades to local mode.
	var remote store.Remote
	if dsn := cfg.ResolveStoreDSN(settingsStore.StoreDSN()); dsn != "" {
		docs, err := docstore.Connect(dsn, logger)
		if err != nil {
			logger.Error("Remote store unavailable, running in local mode", zap.Error(err))
		} else {
			defer docs.Close()
			if cfg.RemoteStore.Migrate {
				if err := docs.Migrate(); err != nil {
					logger.Fatal("Failed to migrate document store", zap.Error(err))
				}
			}
			remote = docs
		}
	} else {
		logger.Info("No remote store configured, running in local mode")
	}

	// Generative AI
	geminiClient, err := gemini.NewClient(gemini.Config{
		APIKey:     cfg.Gemini.APIKey,
		ModelName:  cfg.Gemini.ModelName,
		MaxRetries: cfg.Gemini.MaxRetries,
		RetryDelay: cfg.Gemini.RetryDelay,
		BaseURL:    cfg.Gemini.BaseURL,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Gemini client", zap.Error(err))
	}
	defer geminiClient.Close()

	collector := metrics.NewCollector("reggenie")

	// Wrap with circuit breaking, then rate limiting
	breaker := llm.NewBreaker(geminiClient, geminiClient, llm.DefaultBreakerConfig("gemini"), collector.ObserveModelCall, logger)
	ai := llm.NewRateLimited(breaker, breaker, cfg.Gemini.RequestsPerMinute, logger)

	newOpenAI := func(apiKey string) (llm.ChatStreamer, error) {
		client, err := openai.NewClient(openai.Config{
			APIKey:    apiKey,
			ModelName: cfg.OpenAI.ModelName,
			BaseURL:   cfg.OpenAI.BaseURL,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	// Services
	auditService := audit.NewService(local, remote, logger)
	settingsService := settings.NewService(settingsStore, cfg.OpenAI.APIKey, remote != nil, auditService, logger)

	authService, err := auth.NewService(local, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize auth service", zap.Error(err))
	}

	regulations := regulation.NewService(local, remote, auditService, logger)
	intelService := intel.NewService(ai, local, regulations, logger)
	chatService := chat.NewService(ai, newOpenAI, settingsService.OpenAIKey, logger)
	feedback := chat.NewFeedback(local, chatService, logger)
	translationService := translation.NewService(ai, local, auditService, logger)
	ingester := ingest.New(ingest.NewModelExtractor(ai, logger), logger)
	monitoringService := monitoring.NewService(ai, local, remote, auditService, logger)
	doseService := dose.NewService(ai, local, auditService, logger)
	icfService := icf.NewService(ai, local, auditService, logger)
	requirementsService := requirements.NewService(local, remote, logger)

	handlers := server.Handlers{
		Auth:        handler.NewAuthHandler(authService, logger),
		Regulations: handler.NewRegulationHandler(regulations, intelService, logger),
		Chat:        handler.NewChatHandler(chatService, feedback, logger),
		Translation: handler.NewTranslationHandler(translationService, ingester, logger),
		Monitoring:  handler.NewMonitoringHandler(monitoringService, logger),
		Dose:        handler.NewDoseHandler(doseService, logger),
		ICF:         handler.NewICFHandler(icfService, logger),
		Records:     handler.NewRecordsHandler(auditService, requirementsService, logger),
		Settings:    handler.NewSettingsHandler(settingsService, logger),
	}

	health := func() gin.H {
		return gin.H{
			"database": settingsService.Status().Database,
			"model":    geminiClient.GetModelInfo()["model"],
			"breaker":  breaker.State(),
		}
	}

	if cfg.Log.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.NewServer(handlers, authService, health, server.Options{
		Port:            cfg.Server.Port,
		CORSOrigins:     cfg.Server.CORSOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Metrics:         collector,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Chat sessions live in memory only; drop the ones nobody touched for a while.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := chatService.Prune(2 * time.Hour); n > 0 {
					logger.Info("Pruned idle chat sessions", zap.Int("count", n))
				}
			}
		}
	}()

	logger.Info("RegGenie service is running",
		zap.String("port", cfg.Server.Port),
		zap.String("model", cfg.Gemini.ModelName),
		zap.String("database", settingsService.Status().Database))

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}

	logger.Info("Server exited")
}
