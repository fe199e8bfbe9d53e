package restaurants

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/hansikdang-api/internal/app/domain/geo"
	"github.com/FACorreiaa/hansikdang-api/internal/app/domain/popularity"
	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
	"github.com/FACorreiaa/hansikdang-api/internal/app/observability/metrics"
)

var _ Service = (*ServiceImpl)(nil)

const (
	DefaultWorkers     = 8
	DefaultNearbyLimit = 20
	topScoresInReport  = 10
)

// Service defines the business logic contract for restaurant operations.
type Service interface {
	GetRestaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
	ListRestaurants(ctx context.Context, params models.ListParams) ([]models.Restaurant, error)
	GetPopularity(ctx context.Context, id uuid.UUID, locale string) (*models.PopularityView, error)
	FindNearby(ctx context.Context, origin *models.Coordinate, radiusKm float64, limit int, locale string) ([]models.NearbyRestaurant, error)
	SyncRatings(ctx context.Context, id uuid.UUID, update models.RatingsUpdate) (*models.Restaurant, error)
	RecalculatePopularity(ctx context.Context) (*models.RecalculationReport, error)
}

type ServiceImpl struct {
	logger  *zap.Logger
	repo    Repository
	cache   *cache.Cache
	workers int
}

func NewServiceImpl(repo Repository, workers int, logger *zap.Logger) *ServiceImpl {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &ServiceImpl{
		logger:  logger,
		repo:    repo,
		cache:   cache.New(5*time.Minute, 10*time.Minute),
		workers: workers,
	}
}

func restaurantCacheKey(id uuid.UUID) string {
	return "restaurant:" + id.String()
}

func (s *ServiceImpl) GetRestaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	ctx, span := otel.Tracer("RestaurantService").Start(ctx, "GetRestaurant", trace.WithAttributes(
		attribute.String("restaurant.id", id.String()),
	))
	defer span.End()

	key := restaurantCacheKey(id)
	if cached, found := s.cache.Get(key); found {
		if rest, ok := cached.(models.Restaurant); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &rest, nil
		}
	}

	rest, err := s.repo.GetRestaurant(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get restaurant")
		return nil, err
	}

	s.cache.Set(key, *rest, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "Restaurant retrieved")
	return rest, nil
}

func (s *ServiceImpl) ListRestaurants(ctx context.Context, params models.ListParams) ([]models.Restaurant, error) {
	ctx, span := otel.Tracer("RestaurantService").Start(ctx, "ListRestaurants", trace.WithAttributes(
		attribute.String("filter.district", params.District),
		attribute.String("filter.category", params.Category),
		attribute.String("sort", params.SortBy),
		attribute.Int("limit", params.Limit),
	))
	defer span.End()

	list, err := s.repo.ListRestaurants(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list restaurants")
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(list)))
	span.SetStatus(codes.Ok, "Restaurants listed")
	return list, nil
}

// GetPopularity builds the popularity card of a restaurant. A nil view with a nil error means
// the restaurant has nothing to show.
func (s *ServiceImpl) GetPopularity(ctx context.Context, id uuid.UUID, locale string) (*models.PopularityView, error) {
	ctx, span := otel.Tracer("RestaurantService").Start(ctx, "GetPopularity", trace.WithAttributes(
		attribute.String("restaurant.id", id.String()),
		attribute.String("locale", locale),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "GetPopularity"), zap.String("restaurantID", id.String()))

	rest, err := s.GetRestaurant(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load restaurant")
		return nil, err
	}

	view, err := popularity.BuildPopularityView(rest.NaverRatings(), rest.GoogleRatings(), rest.PopularityScore, locale)
	if err != nil {
		l.Warn("Stored ratings rejected", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid stored ratings")
		return nil, fmt.Errorf("failed to build popularity view: %w", err)
	}

	tier := "none"
	if view != nil && view.Overall != nil {
		tier = string(view.Overall.Tier.Tier)
	}
	metrics.Get().PopularityViewsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))

	span.SetAttributes(attribute.Bool("view.empty", view == nil), attribute.String("tier", tier))
	span.SetStatus(codes.Ok, "Popularity view built")
	return view, nil
}

// FindNearby returns geolocated restaurants within radiusKm of origin, closest first. A nil
// origin means the caller's location is unknown: the popularity-sorted list is returned without
// distances. A radius <= 0 disables the radius filter and a limit <= 0 uses DefaultNearbyLimit.
func (s *ServiceImpl) FindNearby(ctx context.Context, origin *models.Coordinate, radiusKm float64, limit int, locale string) ([]models.NearbyRestaurant, error) {
	ctx, span := otel.Tracer("RestaurantService").Start(ctx, "FindNearby", trace.WithAttributes(
		attribute.Bool("origin.known", origin != nil),
		attribute.Float64("radius.km", radiusKm),
		attribute.Int("limit", limit),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "FindNearby"))

	if limit <= 0 {
		limit = DefaultNearbyLimit
	}

	if origin == nil {
		metrics.Get().NearbySearchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("located", false)))
		list, err := s.repo.ListRestaurants(ctx, models.ListParams{SortBy: "popularity", Limit: limit})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to list restaurants")
			return nil, fmt.Errorf("failed to list restaurants: %w", err)
		}
		out := make([]models.NearbyRestaurant, 0, len(list))
		for _, rest := range list {
			out = append(out, models.NearbyRestaurant{Restaurant: rest})
		}
		l.Debug("No origin, returning list without distances", zap.Int("count", len(out)))
		span.SetStatus(codes.Ok, "Degraded nearby list")
		return out, nil
	}

	if err := origin.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid origin")
		return nil, err
	}
	metrics.Get().NearbySearchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("located", true)))

	candidates, err := s.repo.ListGeolocated(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list geolocated restaurants")
		return nil, fmt.Errorf("failed to list geolocated restaurants: %w", err)
	}

	out := make([]models.NearbyRestaurant, 0, len(candidates))
	for _, rest := range candidates {
		point, ok := rest.Coordinate()
		if !ok {
			continue
		}
		km, err := geo.HaversineDistanceKm(*origin, point)
		if err != nil {
			l.Warn("Skipping restaurant with invalid coordinates",
				zap.String("restaurantID", rest.ID.String()), zap.Error(err))
			continue
		}
		if radiusKm > 0 && km > radiusKm {
			continue
		}
		out = append(out, models.NearbyRestaurant{
			Restaurant:    rest,
			DistanceKm:    &km,
			DistanceLabel: geo.FormatDistance(km, locale),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if *out[i].DistanceKm != *out[j].DistanceKm {
			return *out[i].DistanceKm < *out[j].DistanceKm
		}
		return out[i].Restaurant.Name < out[j].Restaurant.Name
	})
	if len(out) > limit {
		out = out[:limit]
	}

	span.SetAttributes(attribute.Int("results.count", len(out)))
	span.SetStatus(codes.Ok, "Nearby restaurants found")
	return out, nil
}

// SyncRatings stores freshly fetched provider ratings and the composite score derived from them.
func (s *ServiceImpl) SyncRatings(ctx context.Context, id uuid.UUID, update models.RatingsUpdate) (*models.Restaurant, error) {
	ctx, span := otel.Tracer("RestaurantService").Start(ctx, "SyncRatings", trace.WithAttributes(
		attribute.String("restaurant.id", id.String()),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "SyncRatings"), zap.String("restaurantID", id.String()))

	if err := validateRatingsUpdate(update); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid ratings")
		return nil, err
	}

	current, err := s.repo.GetRestaurant(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load restaurant")
		return nil, err
	}

	merged := applyRatings(*current, update)
	score, tier := popularity.ScoreRestaurant(merged)
	update.PopularityScore = &score
	merged.PopularityScore = &score

	if err := s.repo.UpdateRatings(ctx, id, update); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store ratings")
		return nil, fmt.Errorf("failed to store ratings: %w", err)
	}
	s.cache.Delete(restaurantCacheKey(id))

	l.Info("Ratings synced", zap.Float64("score", score), zap.String("tier", string(tier)))
	span.SetAttributes(attribute.Float64("score", score), attribute.String("tier", string(tier)))
	span.SetStatus(codes.Ok, "Ratings synced")
	return &merged, nil
}

// RecalculatePopularity recomputes the composite score of every restaurant. A failed update is
// counted in the report and does not stop the run.
func (s *ServiceImpl) RecalculatePopularity(ctx context.Context) (*models.RecalculationReport, error) {
	ctx, span := otel.Tracer("RestaurantService").Start(ctx, "RecalculatePopularity", trace.WithAttributes(
		attribute.Int("workers", s.workers),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "RecalculatePopularity"))
	start := time.Now()

	all, err := s.repo.ListRestaurants(ctx, models.ListParams{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list restaurants")
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	l.Info("Recalculating popularity scores", zap.Int("restaurants", len(all)))

	var (
		mu      sync.Mutex
		changes = make([]models.ScoreChange, 0, len(all))
		failed  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, rest := range all {
		g.Go(func() error {
			score, _ := popularity.ScoreRestaurant(rest)
			err := s.repo.UpdateRatings(gctx, rest.ID, models.RatingsUpdate{PopularityScore: &score})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				l.Warn("Failed to update score", zap.String("restaurantID", rest.ID.String()), zap.Error(err))
				return nil
			}
			old := 0.0
			if rest.PopularityScore != nil {
				old = *rest.PopularityScore
			}
			changes = append(changes, models.ScoreChange{ID: rest.ID, Name: rest.Name, OldScore: old, NewScore: score})
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Recalculation interrupted")
		return nil, fmt.Errorf("recalculation interrupted: %w", err)
	}

	s.cache.Flush()
	m := metrics.Get()
	m.ScoresRecalculated.Add(ctx, int64(len(changes)), metric.WithAttributes(attribute.String("outcome", "updated")))
	m.ScoresRecalculated.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("outcome", "failed")))

	report := buildReport(len(all), changes, failed)
	report.Duration = time.Since(start)

	l.Info("Popularity scores recalculated",
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
		zap.Float64("average", report.Average),
		zap.Duration("duration", report.Duration),
	)
	span.SetAttributes(attribute.Int("updated", report.Updated), attribute.Int("failed", report.Failed))
	span.SetStatus(codes.Ok, "Popularity recalculated")
	return report, nil
}

func buildReport(total int, changes []models.ScoreChange, failed int) *models.RecalculationReport {
	report := &models.RecalculationReport{
		Total:   total,
		Updated: len(changes),
		Failed:  failed,
	}

	counts := make(map[models.Tier]int)
	var sum float64
	var positive int
	for _, c := range changes {
		counts[popularity.ClassifyTier(c.NewScore)]++
		if c.NewScore <= 0 {
			continue
		}
		if positive == 0 || c.NewScore > report.Max {
			report.Max = c.NewScore
		}
		if positive == 0 || c.NewScore < report.Min {
			report.Min = c.NewScore
		}
		sum += c.NewScore
		positive++
	}
	if positive > 0 {
		report.Average = math.Round(sum/float64(positive)*10) / 10
	}

	for _, tier := range popularity.Tiers() {
		report.Distribution = append(report.Distribution, models.TierCount{Tier: tier, Count: counts[tier]})
	}

	ranked := make([]models.ScoreChange, 0, positive)
	for _, c := range changes {
		if c.NewScore > 0 {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].NewScore != ranked[j].NewScore {
			return ranked[i].NewScore > ranked[j].NewScore
		}
		return ranked[i].Name < ranked[j].Name
	})
	report.Top = ranked[:min(len(ranked), topScoresInReport)]
	return report
}

func validateRatingsUpdate(u models.RatingsUpdate) error {
	for name, v := range map[string]*float64{"naver_rating": u.NaverRating, "google_rating": u.GoogleRating} {
		if v != nil && !(*v >= 0) {
			return fmt.Errorf("%w: %s %v", models.ErrInvalidRating, name, *v)
		}
	}
	for name, v := range map[string]*int{"naver_review_count": u.NaverReviewCount, "google_review_count": u.GoogleReviewCount} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s %d", models.ErrInvalidRating, name, *v)
		}
	}
	return nil
}

func applyRatings(r models.Restaurant, u models.RatingsUpdate) models.Restaurant {
	if u.NaverPlaceID != nil {
		r.NaverPlaceID = u.NaverPlaceID
	}
	if u.NaverRating != nil {
		r.NaverRating = u.NaverRating
	}
	if u.NaverReviewCount != nil {
		r.NaverReviewCount = u.NaverReviewCount
	}
	if u.GooglePlaceID != nil {
		r.GooglePlaceID = u.GooglePlaceID
	}
	if u.GoogleRating != nil {
		r.GoogleRating = u.GoogleRating
	}
	if u.GoogleReviewCount != nil {
		r.GoogleReviewCount = u.GoogleReviewCount
	}
	return r
}
