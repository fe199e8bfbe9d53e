package geo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
)

func TestDefaultPositionOptions(t *testing.T) {
	opts := DefaultPositionOptions()
	assert.False(t, opts.EnableHighAccuracy)
	assert.Equal(t, 10*time.Second, opts.Timeout)
	assert.Equal(t, 5*time.Minute, opts.MaximumAge)
}

func TestRequestCurrentLocation(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves a fix", func(t *testing.T) {
		var seen PositionOptions
		src := PositionSourceFunc(func(_ context.Context, opts PositionOptions) (models.Coordinate, error) {
			seen = opts
			return seoulCityHall, nil
		})

		opts := DefaultPositionOptions()
		opts.EnableHighAccuracy = true
		c, ok := RequestCurrentLocation(ctx, src, opts)
		assert.True(t, ok)
		assert.Equal(t, seoulCityHall, c)
		assert.False(t, seen.EnableHighAccuracy)
		assert.Equal(t, 5*time.Minute, seen.MaximumAge)
	})

	t.Run("unsupported platform", func(t *testing.T) {
		_, ok := RequestCurrentLocation(ctx, nil, DefaultPositionOptions())
		assert.False(t, ok)
	})

	t.Run("denied", func(t *testing.T) {
		src := PositionSourceFunc(func(context.Context, PositionOptions) (models.Coordinate, error) {
			return models.Coordinate{}, errors.New("user denied geolocation")
		})
		_, ok := RequestCurrentLocation(ctx, src, DefaultPositionOptions())
		assert.False(t, ok)
	})

	t.Run("invalid fix", func(t *testing.T) {
		src := PositionSourceFunc(func(context.Context, PositionOptions) (models.Coordinate, error) {
			return models.Coordinate{Latitude: 120}, nil
		})
		_, ok := RequestCurrentLocation(ctx, src, DefaultPositionOptions())
		assert.False(t, ok)
	})

	t.Run("timeout even if the source ignores the context", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		src := PositionSourceFunc(func(context.Context, PositionOptions) (models.Coordinate, error) {
			<-release
			return seoulCityHall, nil
		})

		start := time.Now()
		_, ok := RequestCurrentLocation(ctx, src, PositionOptions{Timeout: 20 * time.Millisecond})
		assert.False(t, ok)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("cancelled parent context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		src := PositionSourceFunc(func(ctx context.Context, _ PositionOptions) (models.Coordinate, error) {
			<-ctx.Done()
			return models.Coordinate{}, ctx.Err()
		})
		_, ok := RequestCurrentLocation(cctx, src, DefaultPositionOptions())
		assert.False(t, ok)
	})

	t.Run("each call issues its own request", func(t *testing.T) {
		var calls atomic.Int32
		src := PositionSourceFunc(func(context.Context, PositionOptions) (models.Coordinate, error) {
			calls.Add(1)
			return gangnamStn, nil
		})
		for i := 0; i < 3; i++ {
			_, ok := RequestCurrentLocation(ctx, src, DefaultPositionOptions())
			assert.True(t, ok)
		}
		assert.Equal(t, int32(3), calls.Load())
	})
}

func TestClientPosition(t *testing.T) {
	_, err := ClientPosition{}.CurrentPosition(context.Background(), DefaultPositionOptions())
	assert.ErrorIs(t, err, models.ErrPositionUnavailable)

	c := seoulCityHall
	got, err := ClientPosition{Coordinate: &c}.CurrentPosition(context.Background(), DefaultPositionOptions())
	assert.NoError(t, err)
	assert.Equal(t, seoulCityHall, got)

	bad := models.Coordinate{Longitude: 300}
	_, err = ClientPosition{Coordinate: &bad}.CurrentPosition(context.Background(), DefaultPositionOptions())
	assert.ErrorIs(t, err, models.ErrInvalidCoordinate)
}

func TestFirstAvailable(t *testing.T) {
	failing := PositionSourceFunc(func(context.Context, PositionOptions) (models.Coordinate, error) {
		return models.Coordinate{}, models.ErrPositionUnavailable
	})
	fixed := PositionSourceFunc(func(context.Context, PositionOptions) (models.Coordinate, error) {
		return gangnamStn, nil
	})

	c, ok := RequestCurrentLocation(context.Background(), FirstAvailable(ClientPosition{}, nil, failing, fixed), DefaultPositionOptions())
	assert.True(t, ok)
	assert.Equal(t, gangnamStn, c)

	_, ok = RequestCurrentLocation(context.Background(), FirstAvailable(ClientPosition{}, failing), DefaultPositionOptions())
	assert.False(t, ok)
}
