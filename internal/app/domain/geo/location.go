package geo

import (
	"context"
	"time"

	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
)

const (
	DefaultLocationTimeout = 10 * time.Second
	DefaultLocationMaxAge  = 5 * time.Minute
)

// PositionOptions controls a single position request.
type PositionOptions struct {
	EnableHighAccuracy bool
	// Timeout bounds the whole request.
	Timeout time.Duration
	// MaximumAge is how old a fix the source may answer from its own cache. Zero asks for a
	// fresh fix.
	MaximumAge time.Duration
}

// DefaultPositionOptions trades precision for speed: low accuracy, 10s timeout and fixes up
// to five minutes old.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{
		EnableHighAccuracy: false,
		Timeout:            DefaultLocationTimeout,
		MaximumAge:         DefaultLocationMaxAge,
	}
}

// PositionSource is the platform capability that knows where the caller is.
type PositionSource interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (models.Coordinate, error)
}

// PositionSourceFunc adapts a function to PositionSource.
type PositionSourceFunc func(ctx context.Context, opts PositionOptions) (models.Coordinate, error)

func (f PositionSourceFunc) CurrentPosition(ctx context.Context, opts PositionOptions) (models.Coordinate, error) {
	return f(ctx, opts)
}

// RequestCurrentLocation asks source for the caller's position once. Any failure (no
// source, denial, source error, invalid fix, timeout or cancellation) yields false; callers
// fall back to a presentation without distances. It never retries and keeps no cache of its
// own: reuse of older fixes is left to the source through MaximumAge.
func RequestCurrentLocation(ctx context.Context, source PositionSource, opts PositionOptions) (models.Coordinate, bool) {
	if source == nil {
		return models.Coordinate{}, false
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLocationTimeout
	}
	if opts.MaximumAge < 0 {
		opts.MaximumAge = 0
	}
	opts.EnableHighAccuracy = false

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	type result struct {
		coord models.Coordinate
		err   error
	}
	done := make(chan result, 1)
	go func() {
		c, err := source.CurrentPosition(ctx, opts)
		done <- result{coord: c, err: err}
	}()

	select {
	case <-ctx.Done():
		return models.Coordinate{}, false
	case r := <-done:
		if r.err != nil || r.coord.Validate() != nil {
			return models.Coordinate{}, false
		}
		return r.coord, true
	}
}

// ClientPosition is a position the client already resolved on its side (for example a browser
// geolocation fix sent along with the request).
type ClientPosition struct {
	Coordinate *models.Coordinate
}

func (p ClientPosition) CurrentPosition(_ context.Context, _ PositionOptions) (models.Coordinate, error) {
	if p.Coordinate == nil {
		return models.Coordinate{}, models.ErrPositionUnavailable
	}
	if err := p.Coordinate.Validate(); err != nil {
		return models.Coordinate{}, err
	}
	return *p.Coordinate, nil
}

// FirstAvailable tries each source in order and returns the first fix. It is itself a
// PositionSource, so RequestCurrentLocation still applies a single timeout to the chain.
func FirstAvailable(sources ...PositionSource) PositionSource {
	return PositionSourceFunc(func(ctx context.Context, opts PositionOptions) (models.Coordinate, error) {
		for _, s := range sources {
			if s == nil {
				continue
			}
			c, err := s.CurrentPosition(ctx, opts)
			if err == nil {
				return c, nil
			}
			if ctx.Err() != nil {
				return models.Coordinate{}, ctx.Err()
			}
		}
		return models.Coordinate{}, models.ErrPositionUnavailable
	})
}
