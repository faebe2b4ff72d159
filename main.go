package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	apirest "github.com/mistveil/textrpg/server/api/rest"
	"github.com/mistveil/textrpg/server/api/sse"
	"github.com/mistveil/textrpg/server/audit"
	"github.com/mistveil/textrpg/server/cache"
	"github.com/mistveil/textrpg/server/config"
	dbadapter "github.com/mistveil/textrpg/server/db"
	"github.com/mistveil/textrpg/server/game/mission"
	"github.com/mistveil/textrpg/server/game/player"
	mw "github.com/mistveil/textrpg/server/middleware"
	"github.com/mistveil/textrpg/server/model"
	"github.com/mistveil/textrpg/server/resource"
	"github.com/mistveil/textrpg/server/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Mission data ----
	res := resource.NewLoader(cfg.Missions.DataPath)
	if err := res.Load(); err != nil {
		log.Fatalf("mission data: %v", err)
	}
	logger.Info("Mission data loaded",
		zap.Int("missions", len(res.Missions)),
		zap.Int("campaign", len(res.Campaign)))

	// ---- Mission engine ----
	registry := mission.DefaultRegistry()
	store := mission.NewStore(db, c, res, registry, logger)
	engine := mission.NewEngine(store, registry, res, cfg.Missions, logger)
	engine.SetPubSub(pubsub)
	missionSvc := mission.NewService(store, res, registry, cfg.Missions, logger)

	// Player service and the engine apply each other's effects, so they are
	// wired together after construction.
	playerSvc := player.NewService(db, logger)
	playerSvc.SetUpdater(engine)
	engine.SetRewardApplier(playerSvc)
	locks := player.NewLockManager()

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	sched.AddMidnight("daily_mission_rotation", func() {
		if _, err := store.GetOrGenerateDaily(context.Background()); err != nil {
			logger.Error("daily mission rotation failed", zap.Error(err))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	playerH := apirest.NewPlayerHandler(playerSvc, missionSvc, logger)
	missionH := apirest.NewMissionHandler(engine, missionSvc, playerSvc, locks, auditSvc, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		playersG := api.Group("/players")
		playersG.Use(mw.Auth(cfg.Security, c))
		playersG.POST("", playerH.Create)
		playersG.GET("/me", playerH.Me)

		missionsG := api.Group("/missions")
		missionsG.Use(mw.Auth(cfg.Security, c))
		missionsG.GET("", missionH.List)
		missionsG.GET("/status", missionH.Status)
		missionsG.POST("/give", missionH.Give)
		missionsG.POST("/event", missionH.Event)
	}

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
