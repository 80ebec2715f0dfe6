package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/cimas-project/cimas-api/api/swagger"
	"github.com/cimas-project/cimas-api/internal/handler"
	"github.com/cimas-project/cimas-api/internal/middleware"
	"github.com/cimas-project/cimas-api/internal/models"
	"github.com/cimas-project/cimas-api/internal/repository"
	"github.com/cimas-project/cimas-api/internal/service"
	"github.com/cimas-project/cimas-api/pkg/cache"
	"github.com/cimas-project/cimas-api/pkg/config"
	"github.com/cimas-project/cimas-api/pkg/database"
	"github.com/cimas-project/cimas-api/pkg/export"
	"github.com/cimas-project/cimas-api/pkg/logger"
	corsmiddleware "github.com/cimas-project/cimas-api/pkg/middleware/cors"
	reqidmiddleware "github.com/cimas-project/cimas-api/pkg/middleware/requestid"
	"github.com/cimas-project/cimas-api/pkg/storage"
)

// @title CIMAS API
// @version 1.0.0
// @description Cybercrime incident management and support backend
// @BasePath /api
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

	userRepo := repository.NewUserRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	evidenceRepo := repository.NewEvidenceRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	awarenessRepo := repository.NewAwarenessRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	systemUser, err := userRepo.EnsureAdminPanelUser(bootCtx, cfg.Bootstrap.AdminPanelEmail)
	cancel()
	if err != nil {
		logr.Sugar().Fatalw("failed to provision admin panel user", "error", err)
	}

	evidenceStore, err := storage.NewLocalStorage(cfg.Evidence.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init evidence storage", "error", err)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, activityRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	incidentSvc := service.NewIncidentService(incidentRepo, activityRepo, validate, logr)
	caseSvc := service.NewCaseService(incidentRepo, assignmentRepo, userRepo, activityRepo, validate, logr)
	chatSvc := service.NewChatService(messageRepo, userRepo, assignmentRepo, activityRepo, validate, logr, systemUser.ID)
	evidenceSvc := service.NewEvidenceService(evidenceRepo, incidentRepo, evidenceStore, activityRepo, validate, logr, cfg.Evidence.MaxFileSizeBytes)
	awarenessSvc := service.NewAwarenessService(awarenessRepo, validate, logr)
	activitySvc := service.NewActivityService(activityRepo, logr)
	reportSvc := service.NewReportService(caseSvc, evidenceRepo, export.NewPDFExporter(), logr)

	var analyticsSvc *service.AnalyticsService
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient)
		analyticsSvc = service.NewAnalyticsService(analyticsRepo, cacheRepo, metricsSvc, logr, cfg.Analytics.CacheTTL)
	} else {
		analyticsSvc = service.NewAnalyticsService(analyticsRepo, nil, metricsSvc, logr, cfg.Analytics.CacheTTL)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	incidentHandler := handler.NewIncidentHandler(incidentSvc)
	caseHandler := handler.NewCaseHandler(caseSvc, reportSvc)
	chatHandler := handler.NewChatHandler(chatSvc)
	evidenceHandler := handler.NewEvidenceHandler(evidenceSvc)
	awarenessHandler := handler.NewAwarenessHandler(awarenessSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)

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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("/me", userHandler.Me)
		users.PUT("/me", userHandler.UpdateMe)
		users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), userHandler.List)
		users.GET("/:id", middleware.RequireRoles(middleware.SelfParam, models.RoleAdmin, models.RoleSuperAdmin), userHandler.Get)
		users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), userHandler.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), userHandler.Delete)
	}

	incidents := api.Group("/incidents", middleware.JWT(authSvc))
	{
		incidents.POST("", incidentHandler.Create)
		incidents.GET("", incidentHandler.List)
		incidents.GET("/crime-types", incidentHandler.CrimeTypes)
		incidents.GET("/crime-types/:ctid/solutions", incidentHandler.Solutions)
		incidents.GET("/:id", incidentHandler.Get)
		incidents.PUT("/:id", incidentHandler.Update)
		incidents.DELETE("/:id", incidentHandler.Delete)
		incidents.GET("/:id/evidence", evidenceHandler.ListByIncident)
		incidents.POST("/:id/evidence", evidenceHandler.Create)
	}

	evidence := api.Group("/evidence", middleware.JWT(authSvc))
	{
		evidence.GET("/:eid", evidenceHandler.Get)
		evidence.GET("/:eid/download", evidenceHandler.Download)
		evidence.PUT("/:eid", evidenceHandler.Update)
		evidence.DELETE("/:eid", evidenceHandler.Delete)
	}

	cases := api.Group("/cases", middleware.JWT(authSvc))
	{
		cases.GET("/assigned", caseHandler.Assigned)
		cases.GET("/assigned/export", caseHandler.Export)
		cases.GET("/unassigned", caseHandler.Unassigned)
		cases.GET("/:id", caseHandler.Detail)
		cases.PUT("/:id", caseHandler.Update)
		cases.POST("/:id/assign/:userId", caseHandler.Assign)
		cases.POST("/:id/reassign/:userId", caseHandler.Reassign)
		cases.GET("/:id/report", caseHandler.Report)
	}

	chat := api.Group("/chat", middleware.JWT(authSvc))
	{
		chat.GET("/messages", chatHandler.Messages)
		chat.POST("/messages", chatHandler.Send)
		chat.GET("/messages/:id", chatHandler.GetMessage)
		chat.PATCH("/messages/:id", chatHandler.UpdateFlags)
		chat.GET("/available-users", chatHandler.AvailableUsers)
		chat.GET("/admin-panel-broadcasts", chatHandler.Broadcasts)
	}

	awareness := api.Group("/awareness")
	{
		awareness.GET("/resources", middleware.OptionalJWT(authSvc), awarenessHandler.List)
		awareness.GET("/resources/:id", middleware.OptionalJWT(authSvc), awarenessHandler.Get)
		awareness.GET("/flairs", middleware.OptionalJWT(authSvc), awarenessHandler.Flairs)
		awareness.POST("/resources", middleware.JWT(authSvc), awarenessHandler.Create)
		awareness.PUT("/resources/:id", middleware.JWT(authSvc), awarenessHandler.Update)
		awareness.DELETE("/resources/:id", middleware.JWT(authSvc), awarenessHandler.Delete)
	}

	logs := api.Group("/logs", middleware.JWT(authSvc))
	{
		logs.GET("", activityHandler.List)
		logs.GET("/user/:id", activityHandler.ListByUser)
		logs.GET("/incidents/:id", activityHandler.ListByIncident)
		logs.GET("/:id", activityHandler.Get)
	}

	api.GET("/analytics/summary", middleware.JWT(authSvc), analyticsHandler.Summary)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
