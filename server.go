package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
	"bitbucket.org/partsadmin/parts_backend/controllers"
	"bitbucket.org/partsadmin/parts_backend/middlewares"
	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("parts-backend")

func registerRoutes(r *gin.Engine) {
	r.POST("/api/auth/login", controllers.Login)

	api := r.Group("/api", middlewares.SessionMiddleware())
	{
		api.POST("/auth/logout", controllers.Logout)
		api.GET("/auth/me", controllers.Me)

		api.GET("/categories", controllers.ListCategories)
		api.GET("/categories/:id", controllers.GetCategory)
		api.POST("/categories", controllers.CreateCategory)
		api.PUT("/categories/:id", controllers.UpdateCategory)
		api.PUT("/categories/:id/deactivate", controllers.DeactivateCategory)
		api.DELETE("/categories/:id", controllers.DeleteCategory)

		api.GET("/incoming", controllers.ListIncoming)
		api.GET("/incoming/search", controllers.SearchIncomingAdvanced)
		api.GET("/incoming/:id", controllers.GetIncoming)
		api.GET("/incoming/part/:partNumber", controllers.GetIncomingByPartNumber)
		api.GET("/incoming/category/:id", controllers.GetIncomingByCategory)
		api.POST("/incoming", controllers.RegisterIncoming)
		api.PUT("/incoming/:id", controllers.UpdateIncoming)
		api.DELETE("/incoming/:id", controllers.DeleteIncoming)

		api.GET("/usage", controllers.ListUsage)
		api.GET("/usage/:id", controllers.GetUsage)
		api.GET("/usage/part/:partNumber", controllers.GetUsageByPartNumber)
		api.GET("/usage/category/:id", controllers.GetUsageByCategory)
		api.GET("/usage/by-location", controllers.GetUsageByLocation)
		api.GET("/usage/by-date", controllers.GetUsageByDateRange)
		api.GET("/usage/summary", controllers.GetUsageSummary)
		api.POST("/usage", controllers.RegisterUsage)
		api.PUT("/usage/:id", controllers.UpdateUsage)
		api.DELETE("/usage/:id", controllers.DeleteUsage)

		api.GET("/locations", controllers.ListLocations)
		api.GET("/locations/incoming/:id", controllers.GetLocationByIncomingId)
		api.GET("/locations/code/:code", controllers.GetLocationByCode)
		api.POST("/locations/code", controllers.SaveLocationByCode)
		api.DELETE("/locations/code/:code", controllers.DeleteLocationByCode)
		api.GET("/locations/check", controllers.CheckCabinetSlot)

		api.GET("/inventory", controllers.GetCurrentInventory)
		api.GET("/inventory/low-stock", controllers.GetLowStock)
		api.GET("/inventory/export", controllers.ExportInventory)

		api.GET("/audits", controllers.ListAudits)
		api.GET("/audits/actor/:actor", controllers.ListAuditsByActor)

		api.GET("/map-spots", controllers.GetMapSpots)
		api.POST("/map-spots/sync", controllers.SyncMapSpots)

		api.POST("/images", controllers.UploadImage)
		api.GET("/images", controllers.ListImages)
		api.DELETE("/images/:id", controllers.DeleteImage)

		api.POST("/documents", controllers.UploadDocument)
		api.GET("/documents", controllers.ListDocuments)
		api.DELETE("/documents/:id", controllers.DeleteDocument)

		api.GET("/document-templates", controllers.ListDocumentTemplates)
		api.GET("/document-templates/:id", controllers.GetDocumentTemplate)
		api.POST("/document-templates", controllers.CreateDocumentTemplate)
		api.PUT("/document-templates/:id", controllers.UpdateDocumentTemplate)
		api.DELETE("/document-templates/:id", controllers.DeleteDocumentTemplate)

		api.GET("/generated-documents", controllers.ListGeneratedDocuments)
		api.GET("/generated-documents/:id", controllers.GetGeneratedDocument)
		api.POST("/generated-documents", controllers.CreateGeneratedDocument)
		api.DELETE("/generated-documents/:id", controllers.DeleteGeneratedDocument)

		admin := api.Group("", middlewares.AdminOnly())
		{
			admin.GET("/users", controllers.ListUsers)
			admin.GET("/users/:id", controllers.GetUser)
			admin.POST("/users", controllers.CreateUser)
			admin.PUT("/users/:id", controllers.UpdateUser)
			admin.DELETE("/users/:id", controllers.DeleteUser)

			admin.GET("/access-logs", controllers.ListAccessLogs)
			admin.POST("/categories/sync-sequences", controllers.SyncCategorySequences)
		}
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	controllers.RegisterValidators()

	// Start the HTTP server ASAP so the startup probe passes. Until DB/Redis
	// are ready, app endpoints return 503.
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerRoutes(r)
	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running it as a
	// separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Catch sequence counters up with manually entered part numbers.
	if config.SequenceSyncOnStartup() {
		go func() {
			ctx, span := tracer.Start(context.Background(), "startup-sequence-sync")
			defer span.End()
			if err := workflow.SyncCategorySequencesGuarded(ctx); err != nil {
				config.LogError(logger, "server.go", "main", "sequence sync", nil, err)
			}
		}()
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger logs only requests that collected errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
