package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
)

// DefaultIPLocatorURL answers GET /{ip} with ip-api style JSON.
const DefaultIPLocatorURL = "http://ip-api.com/json"

// fixRetention bounds how long a fix is kept at all; MaximumAge decides whether it is reused.
const fixRetention = 30 * time.Minute

type ipFix struct {
	coord     models.Coordinate
	fetchedAt time.Time
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// IPLocator resolves an approximate (city level) position from a client IP address. Fixes are
// cached per address and lookups for the same address are collapsed while one is in flight.
type IPLocator struct {
	baseURL string
	client  *http.Client
	fixes   *cache.Cache
	group   singleflight.Group
	logger  *zap.Logger
	now     func() time.Time
}

// NewIPLocator creates a locator against baseURL. A nil client gets an otelhttp-instrumented
// default.
func NewIPLocator(baseURL string, client *http.Client, logger *zap.Logger) *IPLocator {
	if baseURL == "" {
		baseURL = DefaultIPLocatorURL
	}
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   DefaultLocationTimeout,
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IPLocator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		fixes:   cache.New(fixRetention, 10*time.Minute),
		logger:  logger,
		now:     time.Now,
	}
}

// Source binds the locator to one client address.
func (l *IPLocator) Source(ip string) PositionSource {
	return PositionSourceFunc(func(ctx context.Context, opts PositionOptions) (models.Coordinate, error) {
		return l.Locate(ctx, ip, opts)
	})
}

// Locate returns the position of ip, reusing a cached fix younger than opts.MaximumAge.
// Private, loopback and unparsable addresses have no position.
func (l *IPLocator) Locate(ctx context.Context, ip string, opts PositionOptions) (models.Coordinate, error) {
	ctx, span := otel.Tracer("IPLocator").Start(ctx, "Locate", trace.WithAttributes(
		attribute.String("client.ip", ip),
	))
	defer span.End()

	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil || !addr.IsGlobalUnicast() || addr.IsPrivate() {
		span.SetStatus(codes.Error, "address has no public location")
		return models.Coordinate{}, fmt.Errorf("%w: %q is not a public address", models.ErrPositionUnavailable, ip)
	}
	key := addr.String()

	if cached, found := l.fixes.Get(key); found && opts.MaximumAge > 0 {
		fix := cached.(ipFix)
		if l.now().Sub(fix.fetchedAt) <= opts.MaximumAge {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return fix.coord, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	// The shared fetch outlives any single caller; each caller only waits as long as its own
	// context allows.
	ch := l.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultLocationTimeout)
		defer cancel()
		fix, err := l.fetch(fetchCtx, key)
		if err != nil {
			return nil, err
		}
		l.fixes.Set(key, fix, cache.DefaultExpiration)
		return fix, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		err := fmt.Errorf("%w: %v", models.ErrPositionUnavailable, ctx.Err())
		span.RecordError(err)
		span.SetStatus(codes.Error, "IP geolocation abandoned")
		return models.Coordinate{}, err
	case res = <-ch:
	}
	if res.Err != nil {
		l.logger.Debug("IP geolocation failed", zap.String("ip", key), zap.Error(res.Err))
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "IP geolocation failed")
		return models.Coordinate{}, res.Err
	}
	span.SetAttributes(attribute.Bool("singleflight.shared", res.Shared))

	return res.Val.(ipFix).coord, nil
}

func (l *IPLocator) fetch(ctx context.Context, ip string) (ipFix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/"+ip+"?fields=status,message,lat,lon", nil)
	if err != nil {
		return ipFix{}, fmt.Errorf("failed to build geolocation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return ipFix{}, fmt.Errorf("%w: %v", models.ErrPositionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ipFix{}, fmt.Errorf("%w: geolocation service returned %d", models.ErrPositionUnavailable, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ipFix{}, fmt.Errorf("failed to decode geolocation response: %w", err)
	}
	if body.Status != "success" {
		return ipFix{}, fmt.Errorf("%w: %s", models.ErrPositionUnavailable, body.Message)
	}

	coord := models.Coordinate{Latitude: body.Lat, Longitude: body.Lon}
	if err := coord.Validate(); err != nil {
		return ipFix{}, err
	}
	return ipFix{coord: coord, fetchedAt: l.now()}, nil
}
