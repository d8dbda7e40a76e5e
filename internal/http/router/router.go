package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/catalog-backend/internal/config"
	"github.com/ignatzorin/catalog-backend/internal/http/handlers"
	"github.com/ignatzorin/catalog-backend/internal/http/middleware"
	"github.com/ignatzorin/catalog-backend/internal/metrics"
	"github.com/ignatzorin/catalog-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	catalogHandler *handlers.CatalogHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	seedHandler *handlers.SeedHandler,
	tokens middleware.AccessTokenParser,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))

	if seedHandler != nil && !cfg.IsProduction() {
		api.POST("/seed", seedHandler.Seed)
	}

	// Публичное чтение: токен администратора снимает фильтр видимости.
	public := api.Group("/")
	public.Use(middleware.OptionalAuth(tokens))
	{
		public.GET("/catalogs", catalogHandler.List)
		public.GET("/catalogs/:id", middleware.IDValidator("id"), catalogHandler.Get)
		public.GET("/catalogs/:id/categories", middleware.IDValidator("id"), catalogHandler.ListCategories)
		if wsHandler != nil {
			public.GET("/ws/catalogs/:id", middleware.IDValidator("id"), wsHandler.Subscribe)
		}
	}

	// Защищённые маршруты
	admin := api.Group("/")
	admin.Use(middleware.AuthMiddleware(tokens), middleware.RequireRole(service.RoleAdmin))
	{
		admin.PUT("/catalogs/:id", middleware.IDValidator("id"), catalogHandler.Modify)
	}

	return r
}
