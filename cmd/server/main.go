package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignatzorin/catalog-backend/internal/cache"
	"github.com/ignatzorin/catalog-backend/internal/config"
	"github.com/ignatzorin/catalog-backend/internal/db"
	"github.com/ignatzorin/catalog-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/catalog-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/catalog-backend/internal/http/router"
	"github.com/ignatzorin/catalog-backend/internal/logger"
	"github.com/ignatzorin/catalog-backend/internal/repository"
	"github.com/ignatzorin/catalog-backend/internal/service"
	"github.com/ignatzorin/catalog-backend/internal/ws"
)

// catalogCache - кэш каталога с проверкой доступности и закрытием.
type catalogCache interface {
	repository.Cache
	httpHandlers.Pinger
	io.Closer
}

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.IsProduction() {
		logger.Init("info")
	} else {
		logger.Init("debug")
		logger.SetTextFormatter()
	}

	policy, err := service.ParseVisibilityPolicy(cfg.VisibilityPolicy)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose("база", dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.DBDriver); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	catalogCacheStore := newCache(ctx, cfg)
	defer safeClose("кэш", catalogCacheStore)

	// Репозитории.
	catalogRepo := repository.NewCatalogRepository(dbConn)
	cachedRepo := repository.NewCachedCatalogRepository(catalogRepo, catalogCacheStore, cfg.CacheTTL)

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, hub.Run)

	// Сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	catalogService := service.NewCatalogService(cachedRepo, policy)
	catalogService.SetNotifier(hub)

	var seedHandler *httpHandlers.SeedHandler
	if !cfg.IsProduction() {
		seedHandler = httpHandlers.NewSeedHandler(service.NewSeedService(cachedRepo))
	}

	// HTTP хэндлеры.
	catalogHandler := httpHandlers.NewCatalogHandler(catalogService)
	wsHandler := httpHandlers.NewWSHandler(hub, catalogService, cfg.AllowedOrigins)
	healthHandler := httpHandlers.NewHealthHandler(dbConn, catalogCacheStore)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, catalogHandler, wsHandler, healthHandler, seedHandler, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("main: ошибка остановки http сервера: %v", err)
		}
	})

	logger.Log.WithField("driver", cfg.DBDriver).
		WithField("visibility_policy", policy).
		Infof("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// newCache выбирает Redis, если он настроен и доступен, иначе кэш в памяти.
func newCache(ctx context.Context, cfg *config.Config) catalogCache {
	if cfg.RedisAddr != "" {
		client, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			logger.Log.WithField("addr", cfg.RedisAddr).Info("main: кэш каталога в Redis")
			return cache.NewRedisCache(client, "catalog-backend:")
		}
		logger.Log.Warnf("main: Redis недоступен, используем кэш в памяти: %v", err)
	}
	return cache.NewMemoryCache(cfg.CacheTTL)
}

// safeClose закрывает ресурс и логирует ошибку.
func safeClose(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Log.Errorf("main: ошибка закрытия (%s): %v", name, err)
	}
}
