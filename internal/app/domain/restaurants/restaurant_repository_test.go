package restaurants

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
)

func newMockRepository(t *testing.T) (Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewRepository(pool, zap.NewNop()), pool
}

func restaurantRow(rows *pgxmock.Rows, r models.Restaurant) *pgxmock.Rows {
	return rows.AddRow(
		r.ID, r.Name, r.NameEn, r.Category, r.Cuisine, r.District, r.Address,
		r.Latitude, r.Longitude,
		r.NaverPlaceID, r.NaverRating, r.NaverReviewCount,
		r.GooglePlaceID, r.GoogleRating, r.GoogleReviewCount,
		r.PopularityScore, r.UpdatedAt,
	)
}

func TestRepositoryImpl_GetRestaurant(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo, pool := newMockRepository(t)
		want := models.Restaurant{
			ID:               uuid.New(),
			Name:             "진진",
			NameEn:           "Jin Jin",
			Category:         "restaurant",
			Cuisine:          "chinese",
			District:         "Mapo-gu",
			Address:          "서울 마포구 서교동",
			Latitude:         ptr(37.5563),
			Longitude:        ptr(126.9236),
			NaverRating:      ptr(4.6),
			NaverReviewCount: ptr(2310),
			UpdatedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}

		pool.ExpectQuery(`SELECT (.+) FROM restaurants WHERE id = \$1`).
			WithArgs(want.ID.String()).
			WillReturnRows(restaurantRow(pgxmock.NewRows(restaurantColumns), want))

		got, err := repo.GetRestaurant(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, *got)
		assert.Nil(t, got.GoogleRating)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		repo, pool := newMockRepository(t)
		id := uuid.New()
		pool.ExpectQuery(`SELECT (.+) FROM restaurants WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetRestaurant(ctx, id)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}

func TestRepositoryImpl_ListRestaurants(t *testing.T) {
	ctx := context.Background()

	t.Run("filters and sorts by popularity", func(t *testing.T) {
		repo, pool := newMockRepository(t)
		first := models.Restaurant{ID: uuid.New(), Name: "하동관", District: "Jung-gu", PopularityScore: ptr(88.5)}
		second := models.Restaurant{ID: uuid.New(), Name: "명동교자", District: "Jung-gu"}

		rows := pgxmock.NewRows(restaurantColumns)
		restaurantRow(rows, first)
		restaurantRow(rows, second)
		pool.ExpectQuery(`SELECT (.+) FROM restaurants WHERE district = \$1 ORDER BY popularity_score DESC NULLS LAST, name LIMIT`).
			WithArgs("Jung-gu", pgxmock.AnyArg()).
			WillReturnRows(rows)

		got, err := repo.ListRestaurants(ctx, models.ListParams{District: "Jung-gu", SortBy: "popularity", Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "하동관", got[0].Name)
		assert.Nil(t, got[1].PopularityScore)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("defaults to name order without limit", func(t *testing.T) {
		repo, pool := newMockRepository(t)
		pool.ExpectQuery(`SELECT (.+) FROM restaurants ORDER BY name$`).
			WillReturnRows(pgxmock.NewRows(restaurantColumns))

		got, err := repo.ListRestaurants(ctx, models.ListParams{})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		repo, pool := newMockRepository(t)
		pool.ExpectQuery(`SELECT (.+) FROM restaurants`).WillReturnError(errors.New("connection refused"))

		_, err := repo.ListRestaurants(ctx, models.ListParams{SortBy: "reviews"})
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestRepositoryImpl_ListGeolocated(t *testing.T) {
	repo, pool := newMockRepository(t)
	rest := models.Restaurant{ID: uuid.New(), Name: "광장시장", Latitude: ptr(37.5701), Longitude: ptr(126.9997)}
	pool.ExpectQuery(`SELECT (.+) FROM restaurants WHERE \(latitude IS NOT NULL AND longitude IS NOT NULL\) ORDER BY name`).
		WillReturnRows(restaurantRow(pgxmock.NewRows(restaurantColumns), rest))

	got, err := repo.ListGeolocated(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	coord, ok := got[0].Coordinate()
	assert.True(t, ok)
	assert.Equal(t, 37.5701, coord.Latitude)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepositoryImpl_UpdateRatings(t *testing.T) {
	ctx := context.Background()

	t.Run("writes only the given fields", func(t *testing.T) {
		repo, pool := newMockRepository(t)
		id := uuid.New()
		pool.ExpectExec(`UPDATE restaurants SET google_rating = \$1, naver_rating = \$2, updated_at = NOW\(\) WHERE id = \$3`).
			WithArgs(4.3, 4.5, id.String()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateRatings(ctx, id, models.RatingsUpdate{NaverRating: ptr(4.5), GoogleRating: ptr(4.3)})
		require.NoError(t, err)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("no rows affected maps to ErrNotFound", func(t *testing.T) {
		repo, pool := newMockRepository(t)
		id := uuid.New()
		pool.ExpectExec(`UPDATE restaurants SET popularity_score = \$1`).
			WithArgs(72.5, id.String()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateRatings(ctx, id, models.RatingsUpdate{PopularityScore: ptr(72.5)})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		repo, pool := newMockRepository(t)
		require.NoError(t, repo.UpdateRatings(ctx, uuid.New(), models.RatingsUpdate{}))
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}
