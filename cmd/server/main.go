package main

import (
	"context"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"signal-relay/internal/bot"
	"signal-relay/internal/cache"
	"signal-relay/internal/config"
	"signal-relay/internal/db"
	"signal-relay/internal/handler"
	"signal-relay/internal/repository"
	"signal-relay/internal/service"
	"signal-relay/internal/sshui"
	"signal-relay/internal/ws"
	"signal-relay/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "signal-relay/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newSignalRepoFunc      = repository.NewSignalRepository
	newSignalServiceFunc   = service.NewSignalService
	startTelegramBotFunc   = bot.StartTelegramBot
	newSSHServerFunc       = sshui.NewServer
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Signal Relay API
// @version         1.0
// @description     Trading-signal ingestion, persistence, broadcast and query service.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := initPostgresFunc(ctx, cfg.DatabaseURL)
	redisClient := initRedisFunc(ctx, cfg.RedisURL)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	signalRepo := newSignalRepoFunc(pool, tracer)
	if pool != nil {
		if err := signalRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	hub := ws.NewHub()
	signalCache := cache.NewSignalCache(redisClient, time.Duration(cfg.CacheTTLSecs)*time.Second)
	signalService := newSignalServiceFunc(tracer, signalRepo, hub, signalCache, cfg.HistoryMaxLimit)
	wsHandler := ws.NewHandler(hub, signalService)

	startTelegramBotFunc(ctx, cfg.TelegramBotToken, signalService, hub)

	if cfg.SSHUIEnabled {
		sshSrv, err := newSSHServerFunc(sshui.Config{
			Bind:        cfg.SSHUIBind,
			Port:        cfg.SSHUIPort,
			HostKeyPath: cfg.SSHUIHostKeyPath,
		}, signalService, hub)
		if err != nil {
			log.Fatalf("failed to create ssh server: %v", err)
		}
		go func() {
			log.Printf("SSH watch UI listening on %s", sshSrv.Addr)
			if err := sshSrv.ListenAndServe(); err != nil {
				log.Printf("ssh server stopped: %v", err)
			}
		}()
		defer sshSrv.Close()
	}

	h := newHandlerFunc(tracer, signalService, wsHandler, cfg.IngestKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("signal-relay"))
	r.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    httpAddrFromEnv(),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func httpAddrFromEnv() string {
	port := os.Getenv("PORT")
	if port == "" {
		return ":8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
