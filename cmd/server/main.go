// main.go
//
// Auto loan origination service: applications, staff console and dealer portal
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of autofin.
// autofin is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// autofin is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with autofin.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/config"
	"github.com/localnerve/autofin/internal/database"
	"github.com/localnerve/autofin/internal/handlers"
	"github.com/localnerve/autofin/internal/jobs"
	"github.com/localnerve/autofin/internal/logger"
	"github.com/localnerve/autofin/internal/middleware"
	"github.com/localnerve/autofin/internal/notify"
	"github.com/localnerve/autofin/internal/outbox"
	"github.com/localnerve/autofin/internal/realtime"
	"github.com/localnerve/autofin/internal/services"
	"github.com/localnerve/autofin/internal/storage"
	"github.com/localnerve/autofin/internal/types"
	"github.com/redis/go-redis/v9"
	cron "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	_ "github.com/localnerve/autofin/docs/api" // Swagger docs
)

// @title Autofin API
// @version 1.0.0
// @description Auto-loan origination service: applications, lifecycle, customer, dealer and admin consoles
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/autofin
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer zlog.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database (service pool)
	appDB, err := database.Connect(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to service database", zap.Error(err))
	}
	defer database.Close(appDB)

	// Connect to database (user pool)
	userDB, err := database.ConnectUser(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to user database", zap.Error(err))
	}
	defer database.Close(userDB)

	// Run auto-migrations
	if err := database.AutoMigrate(appDB); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Optional collaborators
	var objects storage.ObjectStore
	if cfg.S3Bucket != "" {
		s3, err := storage.NewS3Store(ctx, cfg.AWSRegion, cfg.S3Bucket)
		if err != nil {
			zlog.Fatal("Failed to create document store", zap.Error(err))
		}
		objects = s3
	} else {
		zlog.Warn("S3_BUCKET not set, document uploads are disabled")
	}

	var mailer notify.Mailer = notify.NewLogMailer(zlog)
	if cfg.SESFrom != "" {
		ses, err := notify.NewSESMailer(ctx, cfg.AWSRegion, cfg.SESFrom)
		if err != nil {
			zlog.Fatal("Failed to create mailer", zap.Error(err))
		}
		mailer = ses
	}

	// Realtime: the hub serves local subscribers; with Redis every instance
	// publishes through the channel and feeds its hub from it
	hub := realtime.NewHub(cfg.RealtimeCoalesce, zlog)
	defer hub.Close()
	var publisher realtime.Publisher = hub
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer client.Close()
		bridge := realtime.NewRedisBridge(client, "", hub, zlog)
		ps, err := bridge.Subscribe(ctx)
		if err != nil {
			zlog.Fatal("Failed to subscribe to realtime channel", zap.Error(err))
		}
		go bridge.Run(ctx, ps)
		publisher = bridge
	}

	// Services on the service pool
	settings := services.NewSettingsService(appDB, zlog)
	delivery := services.NewDeliveryService(publisher, mailer, settings, cfg.PublicURL, zlog)
	worker := outbox.NewWorker(appDB, delivery.Handlers(), zlog,
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize))

	accounts := services.NewAccountService(appDB, zlog)
	dealers := services.NewDealerService(appDB, cfg.PublicURL, zlog)
	staffApps := services.NewApplicationService(appDB, zlog,
		services.WithSettings(settings),
		services.WithObjectStore(objects),
		services.WithKicker(worker),
		services.WithPageSize(cfg.PageSize))

	// Services on the restricted user pool
	userApps := services.NewApplicationService(userDB, zlog,
		services.WithSettings(services.NewSettingsService(userDB, zlog)),
		services.WithKicker(worker),
		services.WithPageSize(cfg.PageSize))
	documents := services.NewDocumentService(userDB, objects, zlog)
	staffDocuments := services.NewDocumentService(appDB, objects, zlog)

	// Identity
	identity, err := services.NewAuthorizerClient(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize authorizer", zap.Error(err))
	}
	chain := auth.Chain{Cookie: identity, Bearer: services.NewJWTAuthenticator(cfg.JWTSecret)}
	resolver := auth.NewResolver(accounts, zlog)
	guard := middleware.NewGuard(chain, resolver, zlog)

	routes := &handlers.Handlers{
		Session: &handlers.SessionHandler{Identity: identity, Resolver: resolver, Apps: userApps, Logger: zlog},
		Customer: &handlers.CustomerHandler{
			Apps:          userApps,
			Documents:     documents,
			Notifications: services.NewNotificationService(userDB),
			Activity:      services.NewActivityService(userDB),
			Messages:      services.NewMessageService(userDB, worker),
			Logger:        zlog,
		},
		Dealer: &handlers.DealerHandler{Dealers: dealers, Apps: userApps, Logger: zlog},
		Admin: &handlers.AdminHandler{
			Apps:      staffApps,
			Flags:     services.NewFlagService(appDB, zlog),
			Messages:  services.NewMessageService(appDB, worker),
			Activity:  services.NewActivityService(appDB),
			Documents: staffDocuments,
			Settings:  settings,
			Logger:    zlog,
		},
		Privileged: &handlers.PrivilegedHandler{Accounts: accounts, Dealers: dealers},
		Chat:       &handlers.ChatHandler{Relay: services.NewChatRelay(cfg.ChatbotURL, cfg.ChatbotAPIKey, cfg.ChatbotTimeout, zlog)},
		Changes:    &handlers.ChangesHandler{Hub: hub, Dealers: dealers, Logger: zlog},
	}
	health := &handlers.HealthHandler{Config: cfg, DB: appDB, Logger: zlog}

	// Background work
	go worker.Start(ctx)

	scheduler := cron.New()
	retention := &jobs.Retention{
		Documents: staffDocuments,
		Settings:  settings,
		Outbox:    worker,
		Timeout:   10 * time.Minute,
		Logger:    zlog,
	}
	if _, err := retention.Schedule(scheduler, jobs.DefaultSchedule); err != nil {
		zlog.Fatal("Failed to schedule retention", zap.Error(err))
	}
	scheduler.Start()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler(zlog),
		DisableStartupMessage: cfg.LogFormat == "json",
		BodyLimit:             12 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(compress.New(compress.Config{
		// compression buffers the change stream
		Next: func(c *fiber.Ctx) bool { return c.Path() == "/api/changes" },
	}))

	// Prometheus metrics
	prometheus := fiberprometheus.New("autofin")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", health.Health)

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	routes.Mount(api, guard)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		zlog.Info("Gracefully shutting down...")
		<-scheduler.Stop().Done()
		stop()
		hub.Close()
		_ = app.ShutdownWithTimeout(15 * time.Second)
	}()

	// Start server
	zlog.Info("Starting server", zap.String("port", cfg.Port), zap.String("dbType", cfg.DBType))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("Failed to start server", zap.Error(err))
	}

	zlog.Info("Server stopped")
}

// customErrorHandler renders errors that escaped the handlers in the
// standard envelope
func customErrorHandler(zlog *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := err.Error()
		errorType := "unknown"

		var fe *fiber.Error
		var ce *types.CustomError
		switch {
		case errors.As(err, &fe):
			code = fe.Code
			message = fe.Message
		case errors.As(err, &ce):
			code = ce.Code
			message = ce.Message
			errorType = ce.Type
		case errors.Is(err, services.ErrVersionConflict):
			code = fiber.StatusConflict
		}

		// Check for version errors
		versionError := false
		if errors.Is(err, services.ErrVersionConflict) {
			versionError = true
			errorType = "version"
		}

		if code >= fiber.StatusInternalServerError {
			zlog.Error("unhandled request error",
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"status":       code,
			"message":      message,
			"ok":           false,
			"versionError": versionError,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
			"url":          c.OriginalURL(),
			"type":         errorType,
		})
	}
}
