package main

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/classquest-api/api/swagger"
	"github.com/noah-isme/classquest-api/internal/handler"
	"github.com/noah-isme/classquest-api/internal/middleware"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/service"
	"github.com/noah-isme/classquest-api/pkg/config"
	"github.com/noah-isme/classquest-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classquest-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classquest-api/pkg/middleware/requestid"
)

type routeServices struct {
	auth      *service.AuthService
	grants    *service.GrantService
	ledger    *service.LedgerService
	progress  *service.ProgressService
	shop      *service.ShopService
	phases    *service.PhaseService
	transfers *service.TransferService
	powers    *service.PowerService
	standings *service.StandingsService
	portal    *service.PortalService
	incidents *service.IncidentService
	artifacts *service.ArtifactService
	metrics   *service.MetricsService
	ready     map[string]handler.Pinger
}

func newRouter(cfg *config.Config, logr *zap.Logger, svc routeServices) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(svc.metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", handler.NewReadinessHandler(svc.ready, 2*time.Second).Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(svc.auth)
	ledgerHandler := handler.NewLedgerHandler(svc.grants, svc.ledger)
	progressHandler := handler.NewProgressHandler(svc.progress)
	shopHandler := handler.NewShopHandler(svc.shop)
	phaseHandler := handler.NewPhaseHandler(svc.phases)
	rosterHandler := handler.NewRosterHandler(svc.transfers, svc.powers)
	standingsHandler := handler.NewStandingsHandler(svc.standings)
	portalHandler := handler.NewPortalHandler(svc.portal, svc.shop, svc.incidents)
	incidentHandler := handler.NewIncidentHandler(svc.incidents)
	artifactHandler := handler.NewArtifactHandler(svc.artifacts)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/levels", progressHandler.Levels)
	api.GET("/powers", progressHandler.Powers)

	console := api.Group("")
	console.Use(middleware.JWT(svc.auth), middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	{
		console.GET("/auth/me", authHandler.Me)
		console.GET("/metrics/summary", metricsHandler.Summary)

		console.POST("/grants", ledgerHandler.Grant)
		console.GET("/ledger", ledgerHandler.History)
		console.POST("/ledger/:id/reverse", ledgerHandler.Reverse)

		console.GET("/teams/:id/xp", progressHandler.TeamXP)
		console.GET("/teams/:id/shop", shopHandler.Storefront)
		console.GET("/teams/:id/artifacts", artifactHandler.TeamArtifacts)
		console.POST("/teams/:id/leader-code", portalHandler.IssueCode)
		console.GET("/students/:id/xp", progressHandler.StudentXP)
		console.PUT("/students/:id/power", rosterHandler.SetPower)

		console.POST("/shop/purchase", shopHandler.Purchase)

		console.POST("/phases", phaseHandler.Start)
		console.GET("/phases", phaseHandler.List)
		console.GET("/phases/active", phaseHandler.Active)

		console.POST("/transfers", rosterHandler.Transfer)
		console.GET("/transfers", rosterHandler.Transfers)

		console.PUT("/rooms/:id/powers", rosterHandler.SetRoomPowers)
		console.GET("/rooms/:id/standings/teams", standingsHandler.Teams)
		console.GET("/rooms/:id/standings/students", standingsHandler.Students)
		console.GET("/rooms/:id/standings/export", standingsHandler.Export)

		console.GET("/incidents", incidentHandler.List)
		console.POST("/incidents", incidentHandler.Create)
		console.PATCH("/incidents/:id", incidentHandler.Update)

		console.GET("/artifacts", artifactHandler.List)
		console.POST("/artifacts", artifactHandler.Create)
		console.POST("/artifacts/:id/award", artifactHandler.Award)
	}

	portal := api.Group("/portal")
	portal.Use(middleware.LeaderCode(svc.portal))
	{
		portal.GET("/team", portalHandler.Team)
		portal.GET("/shop", portalHandler.Shop)
		portal.POST("/shop/purchase", portalHandler.Purchase)
		portal.GET("/incidents", portalHandler.Incidents)
		portal.POST("/incidents", portalHandler.ReportIncident)
	}

	return r
}
