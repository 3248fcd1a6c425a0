package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nhatro-app/report-service/internal"
	"github.com/nhatro-app/report-service/internal/config"
	"github.com/nhatro-app/report-service/internal/handlers"
	"github.com/nhatro-app/report-service/internal/services"
	"github.com/nhatro-app/report-service/internal/storage"
	"github.com/nhatro-app/report-service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	db, err := internal.Connect(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer internal.Close(db)

	renderer, err := services.NewPDFRenderer(cfg.Gotenberg.URL, cfg.Gotenberg.Timeout, cfg.Reports.MaxRenders)
	if err != nil {
		slog.Error("failed to initialize PDF renderer", "error", err)
		os.Exit(1)
	}

	variables := services.NewVariableManager()
	connector := services.NewConnector(db)
	templateService := services.NewTemplateService(db, connector, variables)
	procedureService := services.NewProcedureService(db)
	historyService := services.NewHistoryService(db)
	activityLogService := services.NewActivityLogService(db)

	localStore := storage.NewLocalStore(cfg.Reports.OutputDir, cfg.Reports.PublicPath)

	generator := services.NewGenerator(
		templateService,
		connector,
		variables,
		renderer,
		localStore,
		cfg.Reports.GenerationTimeout,
	).WithRecorder(historyService)

	if cfg.GCS.Enabled() {
		archiver, err := storage.NewArchiver(context.Background(), cfg.GCS.BucketName, cfg.GCS.CredentialsPath)
		if err != nil {
			slog.Error("failed to initialize GCS archiver", "error", err)
			os.Exit(1)
		}
		defer archiver.Close()
		generator.WithArchiver(archiver)
		slog.Info("GCS archival enabled", "bucket", cfg.GCS.BucketName)
	}

	reportsHandler := handlers.NewReportsHandler(generator, historyService)
	templatesHandler := handlers.NewTemplatesHandler(templateService, procedureService)
	logsHandler := handlers.NewLogsHandler(activityLogService)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(activityLogService.LoggingMiddleware())

	// Generated PDFs are served straight from the public reports directory.
	r.Static(cfg.Reports.PublicPath, cfg.Reports.OutputDir)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/reports/generate", reportsHandler.Generate)
		v1.POST("/reports/preview", reportsHandler.Preview)
		v1.GET("/reports", reportsHandler.ListReports)

		v1.GET("/templates", templatesHandler.List)
		v1.POST("/templates", templatesHandler.Create)
		v1.GET("/templates/:templateId", templatesHandler.Get)
		v1.PUT("/templates/:templateId", templatesHandler.Update)
		v1.DELETE("/templates/:templateId", templatesHandler.Delete)
		v1.GET("/templates/:templateId/variables", templatesHandler.Variables)

		v1.GET("/procedures", templatesHandler.ListProcedures)

		v1.GET("/logs", logsHandler.GetAllLogs)
		v1.GET("/logs/stats", logsHandler.GetLogStats)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
}
