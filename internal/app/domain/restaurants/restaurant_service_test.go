package restaurants

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetRestaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Restaurant), args.Error(1)
}

func (m *MockRepository) ListRestaurants(ctx context.Context, params models.ListParams) ([]models.Restaurant, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Restaurant), args.Error(1)
}

func (m *MockRepository) ListGeolocated(ctx context.Context) ([]models.Restaurant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Restaurant), args.Error(1)
}

func (m *MockRepository) UpdateRatings(ctx context.Context, id uuid.UUID, update models.RatingsUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func ptr[T any](v T) *T {
	return &v
}

func setupService() (*ServiceImpl, *MockRepository) {
	repo := new(MockRepository)
	return NewServiceImpl(repo, 2, zap.NewNop()), repo
}

func located(name string, lat, lng float64) models.Restaurant {
	return models.Restaurant{
		ID:        uuid.New(),
		Name:      name,
		Latitude:  ptr(lat),
		Longitude: ptr(lng),
	}
}

func TestServiceImpl_GetRestaurant(t *testing.T) {
	ctx := context.Background()

	t.Run("second read is served from cache", func(t *testing.T) {
		svc, repo := setupService()
		rest := &models.Restaurant{ID: uuid.New(), Name: "광장시장 빈대떡"}
		repo.On("GetRestaurant", mock.Anything, rest.ID).Return(rest, nil).Once()

		first, err := svc.GetRestaurant(ctx, rest.ID)
		require.NoError(t, err)
		second, err := svc.GetRestaurant(ctx, rest.ID)
		require.NoError(t, err)

		assert.Equal(t, rest.Name, first.Name)
		assert.Equal(t, first, second)
		repo.AssertExpectations(t)
	})

	t.Run("not found is propagated", func(t *testing.T) {
		svc, repo := setupService()
		id := uuid.New()
		repo.On("GetRestaurant", mock.Anything, id).Return(nil, models.ErrNotFound).Once()

		rest, err := svc.GetRestaurant(ctx, id)
		assert.Nil(t, rest)
		assert.ErrorIs(t, err, models.ErrNotFound)
		repo.AssertExpectations(t)
	})
}

func TestServiceImpl_GetPopularity(t *testing.T) {
	ctx := context.Background()

	t.Run("builds the localized view", func(t *testing.T) {
		svc, repo := setupService()
		rest := &models.Restaurant{
			ID:                uuid.New(),
			Name:              "을지면옥",
			NaverRating:       ptr(4.5),
			NaverReviewCount:  ptr(12345),
			GoogleRating:      ptr(4.3),
			PopularityScore:   ptr(94.0),
			GoogleReviewCount: nil,
		}
		repo.On("GetRestaurant", mock.Anything, rest.ID).Return(rest, nil).Once()

		view, err := svc.GetPopularity(ctx, rest.ID, "en-US")
		require.NoError(t, err)
		require.NotNil(t, view)
		require.NotNil(t, view.Overall)
		assert.Equal(t, models.TierTopRated, view.Overall.Tier.Tier)
		assert.Equal(t, "Top Rated", view.Overall.Tier.Label)
		require.NotNil(t, view.Naver)
		assert.Equal(t, "12,345 reviews", view.Naver.ReviewCountDisplay)
		require.NotNil(t, view.Google)
		assert.Nil(t, view.Google.ReviewCount)
		repo.AssertExpectations(t)
	})

	t.Run("nothing to render is a nil view", func(t *testing.T) {
		svc, repo := setupService()
		rest := &models.Restaurant{ID: uuid.New(), Name: "신규 식당", NaverReviewCount: ptr(3)}
		repo.On("GetRestaurant", mock.Anything, rest.ID).Return(rest, nil).Once()

		view, err := svc.GetPopularity(ctx, rest.ID, "ko")
		require.NoError(t, err)
		assert.Nil(t, view)
	})

	t.Run("corrupt stored score fails", func(t *testing.T) {
		svc, repo := setupService()
		rest := &models.Restaurant{ID: uuid.New(), PopularityScore: ptr(140.0)}
		repo.On("GetRestaurant", mock.Anything, rest.ID).Return(rest, nil).Once()

		view, err := svc.GetPopularity(ctx, rest.ID, "ko")
		assert.Nil(t, view)
		assert.ErrorIs(t, err, models.ErrInvalidScore)
	})
}

func TestServiceImpl_FindNearby(t *testing.T) {
	ctx := context.Background()
	cityHall := models.Coordinate{Latitude: 37.5665, Longitude: 126.9780}

	t.Run("filters by radius and sorts by distance", func(t *testing.T) {
		svc, repo := setupService()
		gwanghwamun := located("광화문 국밥", 37.5759, 126.9769)
		myeongdong := located("명동교자", 37.5636, 126.9826)
		gangnam := located("강남 한우", 37.4979, 127.0276)
		repo.On("ListGeolocated", mock.Anything).
			Return([]models.Restaurant{gwanghwamun, gangnam, myeongdong}, nil).Once()

		out, err := svc.FindNearby(ctx, &cityHall, 5, 0, "ko")
		require.NoError(t, err)
		require.Len(t, out, 2)

		assert.Equal(t, "명동교자", out[0].Restaurant.Name)
		assert.Equal(t, "500m", out[0].DistanceLabel)
		assert.Equal(t, "광화문 국밥", out[1].Restaurant.Name)
		assert.LessOrEqual(t, *out[0].DistanceKm, *out[1].DistanceKm)
		repo.AssertExpectations(t)
	})

	t.Run("ties are ordered by name and limit applies", func(t *testing.T) {
		svc, repo := setupService()
		b := located("B", 37.5, 127.0)
		a := located("A", 37.5, 127.0)
		c := located("C", 37.5, 127.0)
		repo.On("ListGeolocated", mock.Anything).Return([]models.Restaurant{b, c, a}, nil).Once()

		out, err := svc.FindNearby(ctx, &cityHall, 0, 2, "en")
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "A", out[0].Restaurant.Name)
		assert.Equal(t, "B", out[1].Restaurant.Name)
	})

	t.Run("unknown origin degrades to the popular list", func(t *testing.T) {
		svc, repo := setupService()
		list := []models.Restaurant{{ID: uuid.New(), Name: "하동관"}}
		repo.On("ListRestaurants", mock.Anything, models.ListParams{SortBy: "popularity", Limit: DefaultNearbyLimit}).
			Return(list, nil).Once()

		out, err := svc.FindNearby(ctx, nil, 3, 0, "ko")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Nil(t, out[0].DistanceKm)
		assert.Empty(t, out[0].DistanceLabel)
		repo.AssertNotCalled(t, "ListGeolocated", mock.Anything)
	})

	t.Run("invalid origin", func(t *testing.T) {
		svc, repo := setupService()
		_, err := svc.FindNearby(ctx, &models.Coordinate{Latitude: 91}, 3, 0, "ko")
		assert.ErrorIs(t, err, models.ErrInvalidCoordinate)
		repo.AssertNotCalled(t, "ListGeolocated", mock.Anything)
	})

	t.Run("repository error", func(t *testing.T) {
		svc, repo := setupService()
		repo.On("ListGeolocated", mock.Anything).Return(nil, errors.New("connection reset")).Once()

		_, err := svc.FindNearby(ctx, &cityHall, 3, 0, "ko")
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestServiceImpl_SyncRatings(t *testing.T) {
	ctx := context.Background()

	t.Run("merges, rescores and invalidates the cache", func(t *testing.T) {
		svc, repo := setupService()
		stored := &models.Restaurant{
			ID:                uuid.New(),
			Name:              "우래옥",
			GoogleRating:      ptr(4.3),
			GoogleReviewCount: ptr(856),
		}
		update := models.RatingsUpdate{NaverRating: ptr(4.5), NaverReviewCount: ptr(1200)}

		repo.On("GetRestaurant", mock.Anything, stored.ID).Return(stored, nil)
		repo.On("UpdateRatings", mock.Anything, stored.ID, mock.MatchedBy(func(u models.RatingsUpdate) bool {
			return u.PopularityScore != nil && *u.PopularityScore == 94.0 &&
				u.NaverRating != nil && *u.NaverRating == 4.5 &&
				u.GoogleRating == nil
		})).Return(nil).Once()

		_, err := svc.GetRestaurant(ctx, stored.ID)
		require.NoError(t, err)

		rest, err := svc.SyncRatings(ctx, stored.ID, update)
		require.NoError(t, err)
		require.NotNil(t, rest.PopularityScore)
		assert.Equal(t, 94.0, *rest.PopularityScore)
		assert.Equal(t, 4.3, *rest.GoogleRating)

		_, found := svc.cache.Get(restaurantCacheKey(stored.ID))
		assert.False(t, found)
		repo.AssertExpectations(t)
	})

	t.Run("negative values are rejected", func(t *testing.T) {
		svc, repo := setupService()
		_, err := svc.SyncRatings(ctx, uuid.New(), models.RatingsUpdate{NaverReviewCount: ptr(-1)})
		assert.ErrorIs(t, err, models.ErrInvalidRating)
		repo.AssertNotCalled(t, "GetRestaurant", mock.Anything, mock.Anything)
	})

	t.Run("missing restaurant", func(t *testing.T) {
		svc, repo := setupService()
		id := uuid.New()
		repo.On("GetRestaurant", mock.Anything, id).Return(nil, models.ErrNotFound).Once()

		_, err := svc.SyncRatings(ctx, id, models.RatingsUpdate{GoogleRating: ptr(4.0)})
		assert.ErrorIs(t, err, models.ErrNotFound)
		repo.AssertNotCalled(t, "UpdateRatings", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestServiceImpl_RecalculatePopularity(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupService()

	topRated := models.Restaurant{
		ID:                uuid.New(),
		Name:              "을지면옥",
		NaverRating:       ptr(4.5),
		NaverReviewCount:  ptr(1200),
		GoogleRating:      ptr(4.3),
		GoogleReviewCount: ptr(856),
		PopularityScore:   ptr(80.0),
	}
	failing := models.Restaurant{ID: uuid.New(), Name: "실패 식당", NaverRating: ptr(4.0), NaverReviewCount: ptr(5)}
	unrated := models.Restaurant{ID: uuid.New(), Name: "무평가 식당"}

	repo.On("ListRestaurants", mock.Anything, models.ListParams{}).
		Return([]models.Restaurant{topRated, failing, unrated}, nil).Once()
	repo.On("UpdateRatings", mock.Anything, topRated.ID, models.RatingsUpdate{PopularityScore: ptr(94.0)}).Return(nil).Once()
	repo.On("UpdateRatings", mock.Anything, failing.ID, models.RatingsUpdate{PopularityScore: ptr(21.3)}).
		Return(errors.New("deadlock detected")).Once()
	repo.On("UpdateRatings", mock.Anything, unrated.ID, models.RatingsUpdate{PopularityScore: ptr(0.0)}).Return(nil).Once()

	report, err := svc.RecalculatePopularity(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 94.0, report.Average)
	assert.Equal(t, 94.0, report.Max)
	assert.Equal(t, 94.0, report.Min)

	require.Len(t, report.Distribution, 5)
	assert.Equal(t, models.TierCount{Tier: models.TierTopRated, Count: 1}, report.Distribution[0])
	assert.Equal(t, models.TierCount{Tier: models.TierNewOrLimited, Count: 1}, report.Distribution[4])

	require.Len(t, report.Top, 1, "zero scores are left out of the ranking")
	assert.Equal(t, topRated.ID, report.Top[0].ID)
	assert.Equal(t, 80.0, report.Top[0].OldScore)
	assert.Equal(t, 94.0, report.Top[0].NewScore)
	repo.AssertExpectations(t)
}

func TestServiceImpl_RecalculatePopularity_ListFails(t *testing.T) {
	svc, repo := setupService()
	repo.On("ListRestaurants", mock.Anything, models.ListParams{}).Return(nil, errors.New("timeout")).Once()

	report, err := svc.RecalculatePopularity(context.Background())
	assert.Nil(t, report)
	assert.ErrorContains(t, err, "timeout")
}
