package restaurants

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/hansikdang-api/internal/app/domain/geo"
	"github.com/FACorreiaa/hansikdang-api/internal/app/domain/popularity"
	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
	"github.com/FACorreiaa/hansikdang-api/internal/app/observability/metrics"
)

// DefaultPageSize applies to GET /api/restaurants when no limit is given.
const DefaultPageSize = 50

// Locator resolves the position source of a client address.
type Locator interface {
	Source(ip string) geo.PositionSource
}

type Handler struct {
	service     Service
	locator     Locator
	positioning geo.PositionOptions
	log         *zap.Logger
}

// NewHandler builds the restaurant API handler. locator may be nil, in which case only
// coordinates sent by the client are used.
func NewHandler(service Service, locator Locator, positioning geo.PositionOptions, log *zap.Logger) *Handler {
	return &Handler{
		service:     service,
		locator:     locator,
		positioning: positioning,
		log:         log,
	}
}

type distanceResponse struct {
	From          models.Coordinate `json:"from"`
	To            models.Coordinate `json:"to"`
	DistanceKm    float64           `json:"distance_km"`
	DistanceLabel string            `json:"distance_label"`
}

type nearbyResponse struct {
	Origin      *models.Coordinate        `json:"origin,omitempty"`
	Located     bool                      `json:"located"`
	Restaurants []models.NearbyRestaurant `json:"restaurants"`
}

// ListRestaurants handles GET /api/restaurants
func (h *Handler) ListRestaurants(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		h.respondError(c, err)
		return
	}

	list, err := h.service.ListRestaurants(c.Request.Context(), models.ListParams{
		District: c.Query("district"),
		Category: c.Query("category"),
		SortBy:   c.Query("sort"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurants": list, "count": len(list)})
}

// GetRestaurant handles GET /api/restaurants/:id
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := h.restaurantID(c)
	if !ok {
		return
	}
	rest, err := h.service.GetRestaurant(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rest)
}

// GetPopularity handles GET /api/restaurants/:id/popularity. Nothing to render is 204.
func (h *Handler) GetPopularity(c *gin.Context) {
	id, ok := h.restaurantID(c)
	if !ok {
		return
	}
	view, err := h.service.GetPopularity(c.Request.Context(), id, requestLocale(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if view == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SyncRatings handles PUT /api/admin/restaurants/:id/ratings
func (h *Handler) SyncRatings(c *gin.Context) {
	id, ok := h.restaurantID(c)
	if !ok {
		return
	}
	var update models.RatingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.log.Warn("Invalid ratings payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ratings payload"})
		return
	}
	rest, err := h.service.SyncRatings(c.Request.Context(), id, update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rest)
}

// FindNearby handles GET /api/restaurants/nearby. Without lat/lng the caller is located by
// address; when that fails the list is returned without distances.
func (h *Handler) FindNearby(c *gin.Context) {
	radius := 0.0
	if raw := c.Query("radius"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			h.respondError(c, models.ErrBadRequest)
			return
		}
		radius = v
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.respondError(c, err)
		return
	}

	reported, err := h.originFromQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var origin *models.Coordinate
	if coord, ok := h.locate(c, reported); ok {
		origin = &coord
	}

	list, err := h.service.FindNearby(c.Request.Context(), origin, radius, limit, requestLocale(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nearbyResponse{Origin: origin, Located: origin != nil, Restaurants: list})
}

// CurrentLocation handles GET /api/location. 204 when the caller cannot be located.
func (h *Handler) CurrentLocation(c *gin.Context) {
	reported, err := h.originFromQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	coord, ok := h.locate(c, reported)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, coord)
}

// Distance handles GET /api/distance?from=lat,lng&to=lat,lng
func (h *Handler) Distance(c *gin.Context) {
	from, err := geo.ParseCoordinate(c.Query("from"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	to, err := geo.ParseCoordinate(c.Query("to"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	km, err := geo.HaversineDistanceKm(from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, distanceResponse{
		From:          from,
		To:            to,
		DistanceKm:    km,
		DistanceLabel: geo.FormatDistance(km, requestLocale(c)),
	})
}

// RecalculatePopularity handles POST /api/admin/popularity/recalculate
func (h *Handler) RecalculatePopularity(c *gin.Context) {
	report, err := h.service.RecalculatePopularity(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) originFromQuery(c *gin.Context) (*models.Coordinate, error) {
	lat, lng := c.Query("lat"), c.Query("lng")
	if lat == "" && lng == "" {
		return nil, nil
	}
	coord, err := geo.ParseLatLng(lat, lng)
	if err != nil {
		return nil, err
	}
	return &coord, nil
}

// locate asks for the caller's position: a coordinate the client reported first, then its
// address. It never fails; false means unknown.
func (h *Handler) locate(c *gin.Context, reported *models.Coordinate) (models.Coordinate, bool) {
	sources := []geo.PositionSource{geo.ClientPosition{Coordinate: reported}}
	if h.locator != nil {
		sources = append(sources, h.locator.Source(c.ClientIP()))
	}
	coord, ok := geo.RequestCurrentLocation(c.Request.Context(), geo.FirstAvailable(sources...), h.positioning)

	result := "absent"
	if ok {
		result = "hit"
	}
	metrics.Get().LocationLookupsTotal.Add(c.Request.Context(), 1, metric.WithAttributes(attribute.String("result", result)))
	h.log.Debug("Location lookup", zap.String("ip", c.ClientIP()), zap.Bool("located", ok))
	return coord, ok
}

func (h *Handler) restaurantID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.log.Warn("Invalid restaurant ID", zap.String("id", c.Param("id")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid restaurant id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidCoordinate),
		errors.Is(err, models.ErrInvalidRating),
		errors.Is(err, models.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// requestLocale takes ?lang= and falls back to Accept-Language.
func requestLocale(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" {
		return popularity.ResolveLocale(lang)
	}
	return popularity.ResolveLocale(c.GetHeader("Accept-Language"))
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, models.ErrBadRequest
	}
	return v, nil
}
