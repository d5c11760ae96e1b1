package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/mchoapp/backend/config"
	"github.com/mchoapp/backend/handlers"
	"github.com/mchoapp/backend/history"
	"github.com/mchoapp/backend/middleware"
	"github.com/mchoapp/backend/patients"
)

const sessionCookieName = "mcho_session"

type App struct {
	Fiber       *fiber.App
	Postgres    *pgxpool.Pool
	Redis       *redis.Client
	Mongo       *mongo.Client
	MinioClient *minio.Client
	Ctx         context.Context
	Config      *config.Config
	Logger      *zap.Logger
}

func NewApp() (*App, error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	// Setup context with cancellation
	ctx := context.Background()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %v", err)
	}

	// Setup PostgreSQL connection with retry logic
	var pgPool *pgxpool.Pool
	maxRetries := 5

	// Create pool config
	poolConfig, err := pgxpool.ParseConfig(cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pool config: %v", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	for i := 0; i < maxRetries; i++ {
		pgPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			// Test the connection
			if err = pgPool.Ping(ctx); err == nil {
				break
			}
			pgPool.Close()
		}
		logger.Warn("failed to connect to postgres, retrying...",
			zap.Error(err),
			zap.Int("attempt", i+1))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		return nil, fmt.Errorf("postgres connection failed after %d attempts: %v", maxRetries, err)
	}

	// Setup Redis connection with retry logic
	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis URL parsing failed: %v", err)
	}

	redisClient := redis.NewClient(redisOpt)
	maxRedisRetries := 5
	for i := 0; i < maxRedisRetries; i++ {
		_, err = redisClient.Ping(ctx).Result()
		if err == nil {
			break
		}
		logger.Warn("failed to connect to redis, retrying...",
			zap.Error(err),
			zap.Int("attempt", i+1))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		return nil, fmt.Errorf("redis connection failed after %d attempts: %v", maxRedisRetries, err)
	}

	// Setup MongoDB connection for the audit trail
	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoDBURL))
	if err != nil {
		return nil, fmt.Errorf("mongodb connection failed: %v", err)
	}
	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		logger.Warn("mongodb ping failed, audit writes may be delayed",
			zap.Error(err))
	}
	cancelPing()

	// Setup MinIO connection with retry logic
	var minioClient *minio.Client
	maxMinioRetries := 5
	for i := 0; i < maxMinioRetries; i++ {
		minioClient, err = minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
			Secure: cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Warn("failed to create minio client, retrying...",
				zap.Error(err),
				zap.Int("attempt", i+1))
			time.Sleep(time.Second * time.Duration(i+1))
			continue
		}
		break
	}
	if err != nil {
		return nil, fmt.Errorf("minio connection failed after %d attempts: %v", maxMinioRetries, err)
	}

	// Create required buckets
	requiredBuckets := []string{"patient-photos"}
	for _, bucket := range requiredBuckets {
		exists, err := minioClient.BucketExists(ctx, bucket)
		if err != nil {
			logger.Error("failed to check bucket existence",
				zap.String("bucket", bucket),
				zap.Error(err))
			continue
		}

		if exists {
			logger.Info("bucket verified",
				zap.String("bucket", bucket))
			continue
		}

		// Create bucket if it doesn't exist
		err = minioClient.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			logger.Error("failed to create bucket",
				zap.String("bucket", bucket),
				zap.Error(err))
		} else {
			logger.Info("bucket created",
				zap.String("bucket", bucket))
		}
	}

	// Fiber setup with improved error handling
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			logger.Error("request error",
				zap.Error(err),
				zap.String("path", c.Path()),
				zap.Int("status", code))
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
	})

	// Add recover middleware
	fiberApp.Use(middleware.RecoveryMiddleware(logger))

	// CORS configuration
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		ExposeHeaders:    "Set-Cookie",
		MaxAge:           300,
	}))

	// Request logging middleware
	fiberApp.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		logger.Info("request completed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Duration("duration", duration),
			zap.Int("status", c.Response().StatusCode()),
		)
		return err
	})

	return &App{
		Fiber:       fiberApp,
		Postgres:    pgPool,
		Redis:       redisClient,
		Mongo:       mongoClient,
		MinioClient: minioClient,
		Ctx:         ctx,
		Config:      cfg,
		Logger:      logger,
	}, nil
}

func (a *App) setupRoutes() error {
	authMiddleware := middleware.NewAuthMiddleware(a.Logger, a.Redis, sessionCookieName)

	patientStore := patients.NewStore(a.Postgres, a.Logger)
	historyService := history.NewService(history.NewPGStore(a.Postgres), a.Logger)

	authHandler := handlers.NewAuthHandler(a.Config, a.Logger, a.Postgres, a.Redis, sessionCookieName)
	profileHandler := handlers.NewProfileHandler(a.Config, a.Logger, patientStore, historyService, a.MinioClient)
	historyHandler := handlers.NewHistoryHandler(a.Config, a.Logger, historyService, a.Mongo)
	dashboardHandler := handlers.NewDashboardHandler(a.Config, a.Logger, a.Postgres, a.Redis)

	// Auth routes
	auth := a.Fiber.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authHandler.Logout)

	// Authenticated API routes
	api := a.Fiber.Group("/api", authMiddleware.Handler())

	// Patient portal: the session owner's own profile and history
	patient := api.Group("/patient")
	patient.Get("/profile", profileHandler.GetProfile)
	patient.Post("/profile/photo", profileHandler.UploadPhoto)
	patient.Get("/history/:category", historyHandler.ListCategory)
	patient.Post("/history/:category", historyHandler.AddRecord)
	patient.Put("/history/:category/:recordId", historyHandler.UpdateRecord)
	patient.Delete("/history/:category/:recordId", historyHandler.DeleteRecord)
	patient.Post("/history/:category/na", historyHandler.ToggleNA)

	// Staff views: any patient by id, read-only profile
	staff := api.Group("/patients", authMiddleware.RequireRoles(middleware.StaffRoles...))
	staff.Get("/:id/profile", profileHandler.GetProfile)
	staff.Get("/:id/history/:category", historyHandler.ListCategory)

	// Role dashboards
	api.Get("/dashboard", authMiddleware.RequireRoles(middleware.StaffRoles...), dashboardHandler.GetDashboard)

	// Stored photos
	a.Fiber.Get("/api/media/patient-photos/:filename", profileHandler.GetPhoto)

	return nil
}

func (a *App) Start() error {
	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Setup routes
	if err := a.setupRoutes(); err != nil {
		return fmt.Errorf("failed to setup routes: %v", err)
	}

	// Start server in a goroutine
	go func() {
		if err := a.Fiber.Listen(":" + a.Config.ServerPort); err != nil {
			a.Logger.Fatal("failed to start server",
				zap.Error(err),
				zap.String("port", a.Config.ServerPort))
		}
	}()

	a.Logger.Info("server started",
		zap.String("port", a.Config.ServerPort))

	// Wait for interrupt signal
	<-sigChan
	a.Logger.Info("shutting down server...")

	// Cleanup
	if err := a.Fiber.Shutdown(); err != nil {
		a.Logger.Error("error during server shutdown",
			zap.Error(err))
	}
	a.Postgres.Close()
	if err := a.Redis.Close(); err != nil {
		a.Logger.Error("error closing redis connection",
			zap.Error(err))
	}
	if err := a.Mongo.Disconnect(context.Background()); err != nil {
		a.Logger.Error("error closing mongodb connection",
			zap.Error(err))
	}
	if err := a.Logger.Sync(); err != nil {
		log.Printf("error syncing logger: %v", err)
	}

	return nil
}

func main() {
	app, err := NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Start(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
