package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal      metric.Int64Counter
	HTTPRequestDuration    metric.Float64Histogram
	DBQueryDurationSeconds metric.Float64Histogram
	DBQueryErrorsTotal     metric.Int64Counter
	PopularityViewsTotal   metric.Int64Counter
	NearbySearchesTotal    metric.Int64Counter
	LocationLookupsTotal   metric.Int64Counter
	ScoresRecalculated     metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once, from the globally configured MeterProvider.
// Call it after the provider is installed; before that the instruments are no-ops.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("hansikdang-api")
		var err error
		m := &AppMetrics{}

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}

		m.DBQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DBQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		m.PopularityViewsTotal, err = meter.Int64Counter(
			"popularity_views_total",
			metric.WithDescription("Popularity cards built, by tier"),
			metric.WithUnit("{view}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create popularity_views_total: %v", err)
		}

		m.NearbySearchesTotal, err = meter.Int64Counter(
			"nearby_searches_total",
			metric.WithDescription("Nearby restaurant searches, with or without a known origin"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create nearby_searches_total: %v", err)
		}

		m.LocationLookupsTotal, err = meter.Int64Counter(
			"location_lookups_total",
			metric.WithDescription("Best-effort current location requests, by outcome"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create location_lookups_total: %v", err)
		}

		m.ScoresRecalculated, err = meter.Int64Counter(
			"popularity_scores_recalculated_total",
			metric.WithDescription("Composite popularity scores recomputed, by outcome"),
			metric.WithUnit("{restaurant}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create popularity_scores_recalculated_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the instruments, creating them on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
