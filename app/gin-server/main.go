package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/vartik/vartikgpt/config"
	"github.com/vartik/vartikgpt/internal/api/handlers"
	"github.com/vartik/vartikgpt/internal/api/middleware"
	"github.com/vartik/vartikgpt/internal/api/routes"
	"github.com/vartik/vartikgpt/internal/auth"
	"github.com/vartik/vartikgpt/internal/cache"
	"github.com/vartik/vartikgpt/internal/clients/directory"
	"github.com/vartik/vartikgpt/internal/clients/ingestion"
	"github.com/vartik/vartikgpt/internal/logger"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/prefs"
	"github.com/vartik/vartikgpt/internal/providers/identity"
	"github.com/vartik/vartikgpt/internal/providers/inference"
	"github.com/vartik/vartikgpt/internal/providers/provisioning"
	"github.com/vartik/vartikgpt/internal/providers/stt"
	"github.com/vartik/vartikgpt/internal/repositories"
	"github.com/vartik/vartikgpt/internal/repositories/memory"
	mongorepo "github.com/vartik/vartikgpt/internal/repositories/mongo"
	pgrepo "github.com/vartik/vartikgpt/internal/repositories/postgres"
	"github.com/vartik/vartikgpt/internal/services"
	"github.com/vartik/vartikgpt/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Fatalf("startup error: %v", err)
	}
}

// run owns every backend connection so their deferred Close calls run on any exit path.
func run(cfg *config.AppConfig, log *logrus.Logger) error {
	ctx := context.Background()

	// Preference store (Redis, or in-process when REDIS_ADDR is unset)
	var prefCache cache.Cache = cache.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rdb, err := config.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis init: %w", err)
		}
		defer rdb.Close()
		prefCache = cache.NewRedisCache(rdb, "vartikgpt:prefs")
		log.Info("Redis connected")
	}
	prefStore := prefs.NewStore(prefCache, cfg.PrefsTTL)

	// Transcript buffer
	var transcripts repositories.TranscriptRepository = memory.NewTranscriptRepo()
	if cfg.MongoURI != "" {
		client, err := config.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return fmt.Errorf("mongo init: %w", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		db := client.Database(cfg.MongoDB)
		if err := config.EnsureTranscriptIndexes(ctx, db); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		transcripts = mongorepo.NewTranscriptRepo(db, cfg.TranscriptTTL)
		log.Info("MongoDB connected")
	}

	// Audit ledger
	var auditRepo repositories.AuditRepository = memory.NewAuditRepo()
	if cfg.PostgresURI != "" {
		db, err := config.NewPostgres(cfg.PostgresURI, &models.AuditRecord{})
		if err != nil {
			return fmt.Errorf("postgres init: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		auditRepo = pgrepo.NewAuditRepo(db)
		log.Info("PostgreSQL connected")
	}

	// Upstream collaborators
	dir := directory.New(cfg.DirectoryURL, cfg.HTTPTimeout, log)
	completer := inference.New(cfg.InferenceURL, cfg.HTTPTimeout, log)
	trigger := ingestion.New(cfg.IngestionURL, cfg.HTTPTimeout, log)

	provisioners := provisioning.NewSet(
		provisioning.NewPinecone(cfg.ProvisioningURL, cfg.HTTPTimeout, log),
		provisioning.NewQdrant(cfg.ProvisioningURL, cfg.HTTPTimeout, log),
		provisioning.NewAzureSearch(cfg.ProvisioningURL, cfg.HTTPTimeout, log),
	)
	if cfg.QdrantHost != "" {
		qd, err := provisioning.NewQdrantDirect(provisioning.QdrantConfig{
			Host:   cfg.QdrantHost,
			Port:   cfg.QdrantPort,
			APIKey: cfg.QdrantAPIKey,
			UseTLS: cfg.QdrantTLS,
		}, log)
		if err != nil {
			return fmt.Errorf("qdrant init: %w", err)
		}
		defer qd.Close()
		provisioners.Register(qd)
		log.Info("Qdrant connected")
	}

	idp := identity.NewAzure(identity.AzureConfig{
		TenantID:      cfg.AzureTenantID,
		ClientID:      cfg.AzureClientID,
		ClientSecret:  cfg.AzureClientSecret,
		RedirectURL:   cfg.AzureRedirectURL,
		PostLogoutURL: cfg.PostLogoutURL,
	}, log)
	graph := identity.NewGraph(cfg.GraphURL, cfg.HTTPTimeout, log)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	var uploader storage.Uploader
	if cfg.GCSBucket != "" {
		up, err := storage.NewGCSUploader(ctx, cfg.GCSBucket, cfg.GoogleCredentialsFile)
		if err != nil {
			return fmt.Errorf("gcs init: %w", err)
		}
		defer up.Close()
		uploader = up
	}

	var speech stt.Transcriber
	if cfg.SpeechEnabled {
		sp, err := stt.NewGoogleSpeech(ctx, cfg.GoogleCredentialsFile)
		if err != nil {
			return fmt.Errorf("speech init: %w", err)
		}
		defer sp.Close()
		speech = sp
	}

	defaults := cfg.SessionDefaults()

	// Services
	bootstrapSvc := services.NewBootstrapService(services.BootstrapDeps{
		Identity:    idp,
		Departments: graph,
		Users:       dir,
		Sessions:    dir,
		Directory:   dir,
		Prefs:       prefStore,
		Tokens:      issuer,
		Defaults:    defaults,
		Log:         log,
	})
	settingsSvc := services.NewSettingsService(services.SettingsDeps{
		Sessions:     dir,
		References:   dir,
		Registry:     dir,
		Provisioners: provisioners,
		Prefs:        prefStore,
		Log:          log,
	})
	chatSvc := services.NewChatService(services.ChatDeps{
		Users:       dir,
		Sessions:    dir,
		Chats:       dir,
		Inference:   completer,
		Transcripts: transcripts,
		Prefs:       prefStore,
		Speech:      speech,
		Log:         log,
	})
	recentSvc := services.NewRecentChatsService(dir, dir, log)
	departmentSvc := services.NewDepartmentService(dir, auditRepo, log)
	indexSvc := services.NewVectorIndexService(provisioners, dir, auditRepo, log)
	ingestionSvc := services.NewIngestionService(services.IngestionDeps{
		Jobs:         dir,
		Departments:  dir,
		References:   dir,
		Registry:     dir,
		Provisioners: provisioners,
		Trigger:      trigger,
		Uploader:     uploader,
		Prefs:        prefStore,
		Audit:        auditRepo,
		Defaults:     defaults,
		Log:          log,
	})

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Issuer:      issuer,
		Auth:        handlers.NewAuthHandler(bootstrapSvc),
		Settings:    handlers.NewSettingsHandler(settingsSvc),
		Chat:        handlers.NewChatHandler(chatSvc),
		RecentChats: handlers.NewRecentChatsHandler(recentSvc, cfg.RecentChatsInterval, cfg.AllowedOrigins, log),
		Departments: handlers.NewDepartmentHandler(departmentSvc),
		Indexes:     handlers.NewIndexHandler(indexSvc),
		Ingestion:   handlers.NewIngestionHandler(ingestionSvc),
		Audit:       handlers.NewAuditHandler(auditRepo),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
	return nil
}
