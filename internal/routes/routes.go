package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/hansikdang-api/internal/app/domain/geo"
	"github.com/FACorreiaa/hansikdang-api/internal/app/domain/restaurants"
	"github.com/FACorreiaa/hansikdang-api/internal/pkg/config"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Setup wires repositories, services and handlers onto r.
func Setup(r *gin.Engine, dbPool *pgxpool.Pool, cfg *config.Config, logger *zap.Logger) {
	restaurantRepo := restaurants.NewRepository(dbPool, logger)
	restaurantService := restaurants.NewServiceImpl(restaurantRepo, cfg.RecalcWorkers, logger)
	ipLocator := geo.NewIPLocator(cfg.Geolocation.BaseURL, nil, logger)
	restaurantHandler := restaurants.NewHandler(restaurantService, ipLocator, cfg.PositionOptions(), logger)

	Register(r, restaurantHandler, dbPool, logger)
}

// Register mounts the API routes.
func Register(r *gin.Engine, h *restaurants.Handler, db Pinger, logger *zap.Logger) {
	r.GET("/health", healthHandler(db, logger))

	api := r.Group("/api")
	{
		api.GET("/restaurants", h.ListRestaurants)
		api.GET("/restaurants/nearby", h.FindNearby)
		api.GET("/restaurants/:id", h.GetRestaurant)
		api.GET("/restaurants/:id/popularity", h.GetPopularity)
		api.GET("/location", h.CurrentLocation)
		api.GET("/distance", h.Distance)
	}

	admin := api.Group("/admin")
	{
		admin.PUT("/restaurants/:id/ratings", h.SyncRatings)
		admin.POST("/popularity/recalculate", h.RecalculatePopularity)
	}

	logger.Info("Routes registered", zap.Int("count", len(r.Routes())))
}

func healthHandler(db Pinger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				logger.Warn("Health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
