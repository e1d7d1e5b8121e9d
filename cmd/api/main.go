package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/tarpaulin-lms/tarpaulin-api/api/swagger"
	"github.com/tarpaulin-lms/tarpaulin-api/internal/handler"
	"github.com/tarpaulin-lms/tarpaulin-api/internal/middleware"
	"github.com/tarpaulin-lms/tarpaulin-api/internal/models"
	"github.com/tarpaulin-lms/tarpaulin-api/internal/repository"
	"github.com/tarpaulin-lms/tarpaulin-api/internal/service"
	"github.com/tarpaulin-lms/tarpaulin-api/pkg/blob"
	"github.com/tarpaulin-lms/tarpaulin-api/pkg/cache"
	"github.com/tarpaulin-lms/tarpaulin-api/pkg/config"
	"github.com/tarpaulin-lms/tarpaulin-api/pkg/database"
	"github.com/tarpaulin-lms/tarpaulin-api/pkg/logger"
	corsmiddleware "github.com/tarpaulin-lms/tarpaulin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tarpaulin-lms/tarpaulin-api/pkg/middleware/requestid"
)

// @title Tarpaulin API
// @version 1.0.0
// @description Course management API: courses, assignments, submissions and users
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	blobs, err := blob.New(cfg.Uploads.StorageDir, cfg.Uploads.AllowedMIMEs)
	if err != nil {
		logr.Sugar().Fatalw("failed to init blob store", "error", err)
	}
	if err := os.MkdirAll(cfg.Uploads.TempDir, 0o750); err != nil {
		logr.Sugar().Fatalw("failed to create upload temp dir", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, list cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
		}
	}

	validate := validator.New()

	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)

	courseSvc := service.NewCourseService(courseRepo, cacheSvc, validate, logr, cfg.Pagination.PageSize)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, courseRepo, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, assignmentRepo, blobs, metricsSvc, logr, cfg.Pagination.PageSize)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, logr)
	userSvc := service.NewUserService(userRepo, courseRepo, enrollmentRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "tarpaulin-api",
	})

	courseHandler := handler.NewCourseHandler(courseSvc, enrollmentSvc, assignmentSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, submissionSvc, cfg.Uploads.TempDir)
	mediaHandler := handler.NewMediaHandler(submissionSvc, logr)
	userHandler := handler.NewUserHandler(userSvc, authSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := middleware.JWT(authSvc)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)
	admin := middleware.RequireRoles(models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)
	{
		users := api.Group("/users")
		{
			users.POST("/login", userHandler.Login)
			users.POST("", auth, admin, userHandler.Create)
			users.GET("/:id", auth, middleware.RBAC("ADMIN", "SELF"), userHandler.Get)
		}

		courses := api.Group("/courses")
		{
			courses.GET("", courseHandler.List)
			courses.GET("/:id", courseHandler.Get)
			courses.GET("/:id/assignments", courseHandler.ListAssignments)
			courses.POST("", auth, admin, courseHandler.Create)
			courses.PATCH("/:id", auth, staff, courseHandler.Update)
			courses.DELETE("/:id", auth, admin, courseHandler.Delete)
			courses.GET("/:id/students", auth, staff, courseHandler.ListStudents)
			courses.POST("/:id/students", auth, staff, courseHandler.UpdateEnrollment)
		}

		assignments := api.Group("/assignments")
		{
			assignments.GET("/:id", assignmentHandler.Get)
			assignments.POST("", auth, staff, assignmentHandler.Create)
			assignments.PATCH("/:id", auth, staff, assignmentHandler.Update)
			assignments.DELETE("/:id", auth, staff, assignmentHandler.Delete)
			assignments.GET("/:id/submissions", auth, staff, assignmentHandler.ListSubmissions)
			assignments.POST("/:id/submissions", auth, middleware.RequireRoles(models.RoleStudent), assignmentHandler.CreateSubmission)
		}

		api.GET("/media/submissions/:token", auth, mediaHandler.DownloadSubmission)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
