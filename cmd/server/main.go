package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripcore/internal/cache"
	"tripcore/internal/config"
	"tripcore/internal/handler"
	"tripcore/internal/logger"
	"tripcore/internal/repository"
	"tripcore/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.InitLogger(cfg.Logging.Level, cfg.Logging.File); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Log.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("Trip planning core starting")

	gin.SetMode(cfg.Server.GinMode)

	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()
	logger.Log.Info("Connected to PostgreSQL database")

	// Redis is optional; without it reality signals are read from Postgres on every request
	var realityCache service.RealityCache
	var redisCache *cache.RealityCache
	if cfg.Redis.Addr != "" {
		redisCache = cache.NewRealityCache(cache.NewRedisClient(cfg.Redis), cfg.Redis.TTL)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			logger.Log.WithError(err).Warn("Redis unavailable, reality cache disabled")
			redisCache.Close()
			redisCache = nil
		} else {
			realityCache = redisCache
			defer redisCache.Close()
			logger.Log.WithFields(logrus.Fields{
				"addr": cfg.Redis.Addr,
				"ttl":  cfg.Redis.TTL.String(),
			}).Info("Reality cache enabled")
		}
		cancel()
	}

	rates, err := config.LoadRateTable(cfg.Budget.RateTableFile)
	if err != nil {
		logger.Log.Fatalf("Failed to load rate table: %v", err)
	}

	pricing := service.NewBreakerPricing(repo, cfg.Pricing.BreakerFailures, cfg.Pricing.BreakerTimeout)

	// No judge credential means every itinerary is accepted as skipped
	var verdictJudge service.VerdictJudge
	if cfg.Judge.Enabled {
		llmJudge, err := service.NewLLMJudge(context.Background(), cfg.Judge)
		if err != nil {
			logger.Log.Fatalf("Failed to initialize judge: %v", err)
		}
		verdictJudge = service.NewRecoveringJudge(llmJudge)
		logger.Log.WithFields(logrus.Fields{
			"api_base": cfg.Judge.APIBase,
			"model":    cfg.Judge.Model,
			"timeout":  cfg.Judge.Timeout.String(),
			"rpm":      cfg.Judge.RPM,
		}).Info("Itinerary judge initialized")
	} else {
		logger.Log.Warn("JUDGE_API_KEY not set - itinerary verification will be skipped")
	}

	gate := service.NewVerificationGate(verdictJudge, cfg.Judge.Timeout)
	planner := service.NewPlannerService(
		repo,
		repo,
		realityCache,
		service.NewScoreAggregator(),
		service.NewPersonalizationRanker(),
		service.NewBudgetCalculator(rates, pricing, cfg.Budget.PlacesPerDay),
		gate,
	)
	logger.Log.Info("Services initialized")

	plannerHandler := handler.NewPlannerHandler(planner, cfg.Recommend.DefaultLimit, cfg.Recommend.MaxLimit)
	embeddingHandler := handler.NewEmbeddingHandler(planner)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		database := "ok"
		if err := repo.Ping(ctx); err != nil {
			status, code, database = "degraded", http.StatusServiceUnavailable, err.Error()
		}
		redisStatus := "disabled"
		if redisCache != nil {
			redisStatus = "ok"
			if err := redisCache.Ping(ctx); err != nil {
				redisStatus = err.Error()
			}
		}

		c.JSON(code, gin.H{
			"status":          status,
			"service":         "tripcore",
			"version":         Version,
			"database":        database,
			"redis":           redisStatus,
			"judge_enabled":   gate.Enabled(),
			"pricing_breaker": pricing.State(),
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	{
		// Scoring
		apiV1.POST("/places/score", plannerHandler.ScorePlace)
		apiV1.POST("/places/:place_id/score", plannerHandler.RescorePlace)
		apiV1.POST("/cities/:city/score", plannerHandler.ScoreCity)
		apiV1.POST("/cities/:city/score/stream", plannerHandler.ScoreCityStream)
		apiV1.POST("/cities/:city/reality/refresh", plannerHandler.RefreshReality)

		// Ranking
		apiV1.POST("/rank", plannerHandler.Rank)
		apiV1.POST("/cities/:city/recommendations", plannerHandler.Recommend)

		// Budget and verification
		apiV1.POST("/budget", plannerHandler.Budget)
		apiV1.POST("/itineraries/verify", plannerHandler.Verify)

		// Embedding endpoints
		apiV1.POST("/places/embeddings/batch", embeddingHandler.BatchUpdate)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shut down")
	}
	logger.Log.Info("Server stopped")
}

// requestLogger logs one line per request through logrus
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.Log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Debug("request handled")
	}
}
