package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/acadops/course-allocation-api/api/swagger"
	"github.com/acadops/course-allocation-api/internal/handler"
	"github.com/acadops/course-allocation-api/internal/middleware"
	"github.com/acadops/course-allocation-api/internal/models"
	"github.com/acadops/course-allocation-api/internal/repository"
	"github.com/acadops/course-allocation-api/internal/service"
	"github.com/acadops/course-allocation-api/pkg/cache"
	"github.com/acadops/course-allocation-api/pkg/config"
	"github.com/acadops/course-allocation-api/pkg/database"
	"github.com/acadops/course-allocation-api/pkg/logger"
	corsmiddleware "github.com/acadops/course-allocation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/acadops/course-allocation-api/pkg/middleware/requestid"
)

// @title Course Allocation API
// @version 1.0.0
// @description Faculty-to-course allocation and student enrollment engine
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo *repository.CacheRepository
	if cfg.Stats.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without stats cache", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, true)
	}

	courseRepo := repository.NewCourseRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	conflictSvc := service.NewConflictService(courseRepo, logr)
	assignmentSvc := service.NewAssignmentService(courseRepo, facultyRepo, conflictSvc, db, validate, logr, cfg.Allocation.MaxBatchSize)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, db, validate, logr, cfg.Allocation.MaxBatchSize)
	statsSvc := service.NewStatsService(statsRepo, cacheSvc, metricsSvc, logr)
	exportSvc := service.NewExportService(statsSvc, logr)
	authSvc := service.NewAuthService(cfg.JWT)

	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, cacheSvc, metricsSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, cacheSvc, metricsSvc)
	statsHandler := handler.NewStatsHandler(statsSvc, exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		registrar := middleware.RBAC(models.RoleAdmin, models.RoleRegistrar)

		api.POST("/courses/:id/faculty", registrar, assignmentHandler.Assign)
		api.POST("/allocations/faculty/bulk", registrar, assignmentHandler.BulkAssign)

		api.POST("/enrollments", registrar, enrollmentHandler.Enroll)
		api.POST("/enrollments/bulk", registrar, enrollmentHandler.BulkEnroll)

		api.GET("/allocations/stats", statsHandler.Stats)
		api.GET("/allocations/stats/export", statsHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}
