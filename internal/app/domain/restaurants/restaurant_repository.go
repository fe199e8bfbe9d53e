package restaurants

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
	"github.com/FACorreiaa/hansikdang-api/internal/app/observability/metrics"
)

// DBTX is the subset of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	GetRestaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
	ListRestaurants(ctx context.Context, params models.ListParams) ([]models.Restaurant, error)
	ListGeolocated(ctx context.Context) ([]models.Restaurant, error)
	UpdateRatings(ctx context.Context, id uuid.UUID, update models.RatingsUpdate) error
}

var restaurantColumns = []string{
	"id", "name", "name_en", "category", "cuisine", "district", "address",
	"latitude", "longitude",
	"naver_place_id", "naver_rating", "naver_review_count",
	"google_place_id", "google_rating", "google_review_count",
	"popularity_score", "updated_at",
}

type RepositoryImpl struct {
	db     DBTX
	psql   sq.StatementBuilderType
	logger *zap.Logger
}

func NewRepository(db DBTX, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepositoryImpl{
		db:     db,
		psql:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
	}
}

// GetRestaurant returns models.ErrNotFound when no row matches id.
func (r *RepositoryImpl) GetRestaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	query, args, err := r.psql.Select(restaurantColumns...).
		From("restaurants").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build restaurant query: %w", err)
	}

	start := time.Now()
	var rest models.Restaurant
	err = scanRestaurant(r.db.QueryRow(ctx, query, args...), &rest)
	observeQuery(ctx, "get_restaurant", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("restaurant %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant %s: %w", id, err)
	}
	return &rest, nil
}

// ListRestaurants filters by district and category and orders by params.SortBy. A zero Limit
// returns every match.
func (r *RepositoryImpl) ListRestaurants(ctx context.Context, params models.ListParams) ([]models.Restaurant, error) {
	q := r.psql.Select(restaurantColumns...).From("restaurants")
	if params.District != "" {
		q = q.Where(sq.Eq{"district": params.District})
	}
	if params.Category != "" {
		q = q.Where(sq.Eq{"category": params.Category})
	}

	switch params.SortBy {
	case "popularity":
		q = q.OrderBy("popularity_score DESC NULLS LAST", "name")
	case "rating":
		q = q.OrderBy("google_rating DESC NULLS LAST", "name")
	case "reviews":
		q = q.OrderBy("naver_review_count DESC NULLS LAST", "name")
	default:
		q = q.OrderBy("name")
	}

	if params.Limit > 0 {
		q = q.Limit(uint64(params.Limit))
	}
	if params.Offset > 0 {
		q = q.Offset(uint64(params.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build restaurant list query: %w", err)
	}
	return r.queryRestaurants(ctx, "list_restaurants", query, args...)
}

// ListGeolocated returns every restaurant that has both coordinates.
func (r *RepositoryImpl) ListGeolocated(ctx context.Context) ([]models.Restaurant, error) {
	query, args, err := r.psql.Select(restaurantColumns...).
		From("restaurants").
		Where(sq.And{
			sq.NotEq{"latitude": nil},
			sq.NotEq{"longitude": nil},
		}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build geolocated query: %w", err)
	}
	return r.queryRestaurants(ctx, "list_geolocated", query, args...)
}

// UpdateRatings writes the non-nil fields of update. Nil fields keep their stored value.
func (r *RepositoryImpl) UpdateRatings(ctx context.Context, id uuid.UUID, update models.RatingsUpdate) error {
	set := map[string]interface{}{}
	if update.NaverPlaceID != nil {
		set["naver_place_id"] = *update.NaverPlaceID
	}
	if update.NaverRating != nil {
		set["naver_rating"] = *update.NaverRating
	}
	if update.NaverReviewCount != nil {
		set["naver_review_count"] = *update.NaverReviewCount
	}
	if update.GooglePlaceID != nil {
		set["google_place_id"] = *update.GooglePlaceID
	}
	if update.GoogleRating != nil {
		set["google_rating"] = *update.GoogleRating
	}
	if update.GoogleReviewCount != nil {
		set["google_review_count"] = *update.GoogleReviewCount
	}
	if update.PopularityScore != nil {
		set["popularity_score"] = *update.PopularityScore
	}
	if len(set) == 0 {
		return nil
	}

	query, args, err := r.psql.Update("restaurants").
		SetMap(set).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build ratings update: %w", err)
	}

	start := time.Now()
	tag, err := r.db.Exec(ctx, query, args...)
	observeQuery(ctx, "update_ratings", start, err)
	if err != nil {
		return fmt.Errorf("failed to update ratings of %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("restaurant %s: %w", id, models.ErrNotFound)
	}

	r.logger.Debug("Restaurant ratings updated", zap.String("restaurantID", id.String()), zap.Int("fields", len(set)))
	return nil
}

func (r *RepositoryImpl) queryRestaurants(ctx context.Context, op, query string, args ...interface{}) ([]models.Restaurant, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		observeQuery(ctx, op, start, err)
		return nil, fmt.Errorf("failed to query restaurants: %w", err)
	}
	defer rows.Close()

	restaurants := make([]models.Restaurant, 0)
	for rows.Next() {
		var rest models.Restaurant
		if err := scanRestaurant(rows, &rest); err != nil {
			observeQuery(ctx, op, start, err)
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		restaurants = append(restaurants, rest)
	}
	err = rows.Err()
	observeQuery(ctx, op, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate restaurants: %w", err)
	}
	return restaurants, nil
}

func scanRestaurant(row pgx.Row, rest *models.Restaurant) error {
	return row.Scan(
		&rest.ID,
		&rest.Name,
		&rest.NameEn,
		&rest.Category,
		&rest.Cuisine,
		&rest.District,
		&rest.Address,
		&rest.Latitude,
		&rest.Longitude,
		&rest.NaverPlaceID,
		&rest.NaverRating,
		&rest.NaverReviewCount,
		&rest.GooglePlaceID,
		&rest.GoogleRating,
		&rest.GoogleReviewCount,
		&rest.PopularityScore,
		&rest.UpdatedAt,
	)
}

func observeQuery(ctx context.Context, op string, start time.Time, err error) {
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("query", op))
	m.DBQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		m.DBQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}
