package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/sewa"

// Metrics holds the HTTP and matching instruments
type Metrics struct {
	RequestCount     metric.Int64Counter
	RequestDuration  metric.Float64Histogram
	BookingOutcomes  metric.Int64Counter
	SearchResults    metric.Int64Histogram
	RecommendCache   metric.Int64Counter
	AlternativeTiers metric.Int64Histogram
}

// Setup installs the OTLP trace exporter and propagators. The returned
// function flushes and stops the tracer provider.
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

// InitMetrics creates the instruments on the global meter provider. Without
// an SDK meter provider they are no-ops.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}
	var err error

	if m.RequestCount, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.RequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.BookingOutcomes, err = meter.Int64Counter(
		"sewa.booking.outcome.count",
		metric.WithDescription("Booking requests by outcome"),
	); err != nil {
		return nil, err
	}
	if m.SearchResults, err = meter.Int64Histogram(
		"sewa.search.results",
		metric.WithDescription("Candidates returned per search"),
	); err != nil {
		return nil, err
	}
	if m.RecommendCache, err = meter.Int64Counter(
		"sewa.recommendation.cache.count",
		metric.WithDescription("Recommendation cache lookups by result"),
	); err != nil {
		return nil, err
	}
	if m.AlternativeTiers, err = meter.Int64Histogram(
		"sewa.alternatives.tiers",
		metric.WithDescription("Radius tiers walked before alternatives were found"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error in the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// RecordRequestMetric records an HTTP request
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, route string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	)
	metrics.RequestCount.Add(ctx, 1, attrs)
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordBookingOutcome counts a booking request as created, slot_taken or
// user_provider_duplicate
func RecordBookingOutcome(ctx context.Context, metrics *Metrics, outcome string) {
	if metrics == nil {
		return
	}
	metrics.BookingOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSearchResults records how many candidates a search returned
func RecordSearchResults(ctx context.Context, metrics *Metrics, category string, count int) {
	if metrics == nil {
		return
	}
	metrics.SearchResults.Record(ctx, int64(count), metric.WithAttributes(attribute.String("category", category)))
}

// RecordRecommendationCache counts a recommendation cache hit or miss
func RecordRecommendationCache(ctx context.Context, metrics *Metrics, hit bool) {
	if metrics == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.RecommendCache.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordAlternativeTiers records how many radius tiers an alternatives lookup walked
func RecordAlternativeTiers(ctx context.Context, metrics *Metrics, tiers int) {
	if metrics == nil {
		return
	}
	metrics.AlternativeTiers.Record(ctx, int64(tiers))
}
