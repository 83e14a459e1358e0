package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"signal-relay/internal/bot"
	"signal-relay/internal/config"
	"signal-relay/internal/repository"
	"signal-relay/internal/service"
	"signal-relay/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func TestHTTPAddrFromEnv(t *testing.T) {
	t.Setenv("PORT", "")
	if got := httpAddrFromEnv(); got != ":8080" {
		t.Fatalf("expected default :8080, got %s", got)
	}

	t.Setenv("PORT", "9090")
	if got := httpAddrFromEnv(); got != ":9090" {
		t.Fatalf("expected :9090, got %s", got)
	}

	t.Setenv("PORT", ":7070")
	if got := httpAddrFromEnv(); got != ":7070" {
		t.Fatalf("expected :7070, got %s", got)
	}
}

func TestCORSConfig(t *testing.T) {
	cfg := corsConfig(nil)
	if !cfg.AllowAllOrigins {
		t.Fatal("expected all origins allowed when none configured")
	}

	cfg = corsConfig([]string{"https://app.example.com"})
	if cfg.AllowAllOrigins {
		t.Fatal("expected origin allowlist to disable wildcard")
	}
	if len(cfg.AllowOrigins) != 1 || cfg.AllowOrigins[0] != "https://app.example.com" {
		t.Fatalf("unexpected allow origins: %+v", cfg.AllowOrigins)
	}
}

func stubServerDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewSignalRepo := newSignalRepoFunc
	origNewSignalService := newSignalServiceFunc
	origStartTelegram := startTelegramBotFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{CacheTTLSecs: 1, HistoryMaxLimit: 100}
	}
	initPostgresFunc = func(ctx context.Context, dsn string) *pgxpool.Pool { return nil }
	initRedisFunc = func(ctx context.Context, addr string) *redis.Client { return nil }
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newSignalRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.SignalRepository {
		return nil
	}
	newSignalServiceFunc = func(
		trace.Tracer,
		service.SignalRepository,
		service.SignalPublisher,
		service.SignalCache,
		int,
	) *service.SignalService {
		return nil
	}
	startTelegramBotFunc = func(context.Context, string, bot.SignalQuerier, *ws.Hub) *bot.AlertDispatcher {
		return nil
	}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newSignalRepoFunc = origNewSignalRepo
		newSignalServiceFunc = origNewSignalService
		startTelegramBotFunc = origStartTelegram
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}
