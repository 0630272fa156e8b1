package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autograder/internal/common/cache"
	commonmw "autograder/internal/common/http/middleware"
	runnercfg "autograder/internal/runner/config"
	"autograder/internal/runner/controller"
	"autograder/internal/runner/sandbox"
	"autograder/internal/runner/sandbox/engine"
	"autograder/internal/runner/service"
	"autograder/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/runner_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	var rateLimiter *service.RateLimitService
	if appCfg.RateLimit.Enabled {
		redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			logger.Error(context.Background(), "init redis failed", zap.Error(err))
			return
		}
		defer func() {
			_ = redisCache.Close()
		}()
		rateLimiter = service.NewRateLimitService(redisCache, appCfg.RateLimit.Window, appCfg.RateLimit.RedisTimeout)
	}

	policyRepo, err := runnercfg.NewLocalRepository(appCfg.Policies.Defaults, appCfg.Policies.Assignments)
	if err != nil {
		logger.Error(context.Background(), "init policy repository failed", zap.Error(err))
		return
	}

	eng, err := engine.NewEngine(engine.Config{MaxCaptureBytes: appCfg.Engine.MaxCaptureBytes})
	if err != nil {
		logger.Error(context.Background(), "init execution engine failed", zap.Error(err))
		return
	}

	executor, err := sandbox.NewExecutor(eng, appCfg.Runner.WorkRoot)
	if err != nil {
		logger.Error(context.Background(), "init executor failed", zap.Error(err))
		return
	}

	execSvc, err := service.NewExecuteService(service.Config{
		Executor:      executor,
		Policies:      policyRepo,
		RateLimiter:   rateLimiter,
		StudentMax:    appCfg.RateLimit.StudentMax,
		PoolSize:      appCfg.Runner.PoolSize,
		SlotWait:      appCfg.Runner.SlotWait,
		MaxSourceSize: appCfg.Runner.MaxSourceSize,
	})
	if err != nil {
		logger.Error(context.Background(), "init execute service failed", zap.Error(err))
		return
	}

	httpServer := buildHTTPServer(appCfg.Server, execSvc)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "runner http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg ServerConfig, execSvc *service.ExecuteService) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	execController := controller.NewExecuteController(execSvc)
	router.GET("/healthz", execController.Health)

	api := router.Group("/api/v1/runner")
	api.POST("/executions", execController.Execute)

	return &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(c.Request.Context(), "http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
